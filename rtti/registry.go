// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import (
	"errors"
	"fmt"
	"sync"
)

// UID is a 16-bit type identifier. The first cheapCopyUIDCeiling values
// are reserved for cheap-copy types (spec.md §4.1).
type UID uint16

// cheapCopyUIDCeiling is the first UID available to standard, list, and
// method types; UIDs below it are reserved for cheap-copy types.
const cheapCopyUIDCeiling UID = 200

// maxUID bounds the dense descriptor array. Finroc's C++ register sizes
// this array at 128 KiB (16-bit index of pointer-sized entries); Go's
// descriptor is larger, so the array is grown lazily instead of
// preallocated at max size.
const maxUID = ^UID(0)

// Kind classifies a registered type.
type Kind int

const (
	// KindCheapCopy is a trivially-copyable value type (spec.md
	// glossary): fixed size, no virtual table, handled by thread-local
	// pools.
	KindCheapCopy Kind = iota
	// KindStandard is a heap-allocated, reference-counted type.
	KindStandard
	// KindList is the implicit list type paired with a standard or
	// cheap-copy type.
	KindList
	// KindMethod is a port-interface (RPC method set) type.
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindCheapCopy:
		return "cheap-copy"
	case KindStandard:
		return "standard"
	case KindList:
		return "list"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Factory creates a new instance of a registered type. interThread
// selects the inter-thread-container variant for cheap-copy types
// (spec.md §4.1: "a factory that can create either a normal or an
// inter-thread buffer").
type Factory func(interThread bool) any

// Descriptor describes one registered type.
type Descriptor struct {
	UID  UID
	Name string
	Kind Kind

	// Size is the type's size in bytes, as reported at registration;
	// meaningful for cheap-copy types whose buffers are fixed-size.
	Size int

	// VTableOffset is non-zero for types that carry a virtual-table
	// pointer (spec.md §4.1); MemcpySafeSize = Size - VTableOffset.
	VTableOffset int

	Factory Factory

	// ListUID is the UID of this type's implicit paired list type, or 0
	// if one has not been created yet.
	ListUID UID
	// ElementUID is set on a KindList descriptor: the UID of the
	// element type this list carries.
	ElementUID UID

	// CustomTag is an opaque, process-lifetime tag. spec.md §9 notes
	// the original's "custom-int" field is used inconsistently; this
	// registry never interprets it.
	CustomTag int32

	// Methods holds the method set for a KindMethod (port-interface)
	// descriptor.
	Methods []Method
}

// MemcpySafeSize is Size minus VTableOffset: the portion of the type
// that a raw memcpy may safely duplicate.
func (d *Descriptor) MemcpySafeSize() int {
	return d.Size - d.VTableOffset
}

var (
	// ErrUnknownUID is returned by CreateInstance when no type is
	// registered under the given UID (Lookup returns nil in that case).
	ErrUnknownUID = errors.New("rtti: unknown type uid")
	// ErrUIDConflict is returned by RegisterAt when the given UID is
	// already bound to a different native type name.
	ErrUIDConflict = errors.New("rtti: uid already registered to a different type")
)

// Registry is the process-wide type registry (spec.md §4.1). The zero
// value is not usable; construct with NewRegistry, or use the package
// singleton via Default().
type Registry struct {
	mu        sync.RWMutex
	byUID     []*Descriptor // dense, indexed by UID; grown on demand
	byName    map[string]*Descriptor
	nextStd   UID
	nextCC    UID
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Descriptor),
		nextStd: cheapCopyUIDCeiling,
		nextCC:  0,
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide type registry used by ports and the
// RPC dispatcher unless a component is explicitly given another one
// (tests construct private registries via NewRegistry to stay
// independent of global state).
func Default() *Registry { return defaultRegistry }

func (r *Registry) ensureCapacity(uid UID) {
	if int(uid) < len(r.byUID) {
		return
	}
	grown := make([]*Descriptor, int(uid)+1)
	copy(grown, r.byUID)
	r.byUID = grown
}

// GetOrRegister returns the existing descriptor for name if one is
// already registered, otherwise allocates the next UID in the
// appropriate band (cheap-copy vs. standard) and registers a new one.
// Repeated registration of the same native type name is idempotent.
func (r *Registry) GetOrRegister(name string, kind Kind, size, vtableOffset int, factory Factory) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		return existing, nil
	}

	var uid UID
	switch kind {
	case KindCheapCopy:
		if r.nextCC >= cheapCopyUIDCeiling {
			return nil, fmt.Errorf("rtti: cheap-copy type uid space exhausted at %q", name)
		}
		uid = r.nextCC
		r.nextCC++
	default:
		if r.nextStd == maxUID {
			return nil, fmt.Errorf("rtti: type uid space exhausted at %q", name)
		}
		uid = r.nextStd
		r.nextStd++
	}

	d := &Descriptor{
		UID:          uid,
		Name:         name,
		Kind:         kind,
		Size:         size,
		VTableOffset: vtableOffset,
		Factory:      factory,
	}
	r.ensureCapacity(uid)
	r.byUID[uid] = d
	r.byName[name] = d
	return d, nil
}

// RegisterAt registers name at an explicit UID, failing with
// ErrUIDConflict if that UID is already bound to a different name. Used
// to mirror a remote peer's UID assignment after type negotiation
// (spec.md §6).
func (r *Registry) RegisterAt(uid UID, name string, kind Kind, size, vtableOffset int, factory Factory) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureCapacity(uid)
	if existing := r.byUID[uid]; existing != nil {
		if existing.Name != name {
			return nil, ErrUIDConflict
		}
		return existing, nil
	}
	if existing, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("rtti: %q already registered under uid %d, cannot rebind to %d", name, existing.UID, uid)
	}

	d := &Descriptor{UID: uid, Name: name, Kind: kind, Size: size, VTableOffset: vtableOffset, Factory: factory}
	r.byUID[uid] = d
	r.byName[name] = d
	return d, nil
}

// Lookup returns the descriptor registered under uid, or nil.
func (r *Registry) Lookup(uid UID) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(uid) >= len(r.byUID) {
		return nil
	}
	return r.byUID[uid]
}

// LookupName returns the descriptor registered under name, or nil.
func (r *Registry) LookupName(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// CreateInstance invokes the factory registered for uid. Returns
// ErrUnknownUID if no type is registered there.
func (r *Registry) CreateInstance(uid UID, interThread bool) (any, error) {
	d := r.Lookup(uid)
	if d == nil {
		return nil, ErrUnknownUID
	}
	if d.Factory == nil {
		return nil, fmt.Errorf("rtti: type %q has no factory", d.Name)
	}
	return d.Factory(interThread), nil
}

// MaxTypeIndex returns the next UID to be issued from the standard
// band: one past the highest UID issued there so far, or 200 when none
// has been issued.
func (r *Registry) MaxTypeIndex() UID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextStd
}

// Count returns the number of types currently registered, used by the
// diagnostics status endpoint.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.byUID {
		if d != nil {
			n++
		}
	}
	return n
}
