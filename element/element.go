// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package element

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// RegistryLock serializes every structural change to the tree: linking
// a child under a parent, attaching an annotation, or tearing an
// element down (spec.md §4.3: "A single registry-lock serializes
// structural operations; read-only iteration is lock-free"). It is
// intentionally a single package-level lock, mirroring the original's
// single global registry lock rather than a per-subtree lock, so lock
// order never has to be reasoned about between two elements.
var RegistryLock sync.Mutex

// link names one path by which an element is reachable: its name and
// the parent it hangs from. Element.primaryParent/primaryName form the
// zeroth link; Secondary holds the rest (spec.md §3: "zero or more
// secondary links to alternate parents").
type link struct {
	name   string
	parent *Element
}

// Element is a node in the framework-element tree (spec.md §3).
// The zero value is not usable; construct with New.
type Element struct {
	primaryName   string
	primaryParent *Element
	secondary     []link

	flags atomic.Uint32

	// childrenPtr holds *[]*Element; read lock-free via Load, replaced
	// under RegistryLock via copy-on-write so concurrent range-style
	// iteration never observes a torn slice.
	childrenPtr atomic.Pointer[[]*Element]

	annotations map[reflect.Type]Annotation

	// DiagnosticUID tags this element for globally-unique-link
	// collision diagnostics: when FlagGloballyUniqueLink is set, two
	// elements that collide on qualified name report both UIDs so an
	// operator can tell which process introduced the conflict.
	DiagnosticUID uuid.UUID

	// PreChildInitFunc and PostChildInitFunc are invoked by Init before
	// and after the element's children are initialized, respectively
	// (spec.md §4.3). A concrete element kind (port, edge aggregator,
	// thread container, ...) built on top of Element sets these during
	// construction; both are optional.
	PreChildInitFunc  func()
	PostChildInitFunc func()

	// ReleaseEdgesFunc is invoked by ManagedDelete before children are
	// recursively deleted (spec.md §4.3: "ManagedDelete ... removes
	// edges port-by-port under the registry lock"). Ports set this to
	// disconnect their edge lists; non-port elements leave it nil.
	ReleaseEdgesFunc func()

	LockOrder LockOrder
}

// New creates a root element (no parent). Use AddChild to attach
// further elements beneath it.
func New(name string) *Element {
	e := &Element{primaryName: name, LockOrder: LockOrderRuntimeRoot, DiagnosticUID: uuid.New()}
	e.childrenPtr.Store(&[]*Element{})
	return e
}

// NewChild creates an element named name, not yet attached to any
// parent; call parent.AddChild(e) to attach it.
func NewChild(name string, lockOrder LockOrder) *Element {
	e := &Element{primaryName: name, LockOrder: lockOrder, DiagnosticUID: uuid.New()}
	e.childrenPtr.Store(&[]*Element{})
	return e
}

// Flags returns the element's current flag bitmask.
func (e *Element) Flags() Flags { return Flags(e.flags.Load()) }

// HasFlag reports whether bit is set.
func (e *Element) HasFlag(bit Flags) bool { return e.Flags().has(bit) }

// SetFlag sets bit in the element's flag bitmask.
func (e *Element) SetFlag(bit Flags) {
	for {
		old := e.flags.Load()
		if old&uint32(bit) != 0 {
			return
		}
		if e.flags.CompareAndSwap(old, old|uint32(bit)) {
			return
		}
	}
}

// IsReady reports whether Init has completed for this element.
func (e *Element) IsReady() bool { return e.HasFlag(FlagReady) }

// IsDeleted reports whether ManagedDelete has been called on this
// element.
func (e *Element) IsDeleted() bool { return e.HasFlag(FlagDeleted) }

// PrimaryParent returns the element's primary parent, or nil for the
// root.
func (e *Element) PrimaryParent() *Element { return e.primaryParent }

// Children returns a snapshot of the element's current children. The
// returned slice must not be mutated; it may be shared with concurrent
// readers.
func (e *Element) Children() []*Element {
	p := e.childrenPtr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// AddChild links child under e as its primary parent. Fails if child
// already has a primary parent (spec.md §4.3: "attaching a second time
// fails if the element already has a primary").
func (e *Element) AddChild(child *Element) error {
	RegistryLock.Lock()
	defer RegistryLock.Unlock()

	if child.primaryParent != nil {
		return fmt.Errorf("element: %q already has a primary parent", child.primaryName)
	}
	if e.IsDeleted() {
		return fmt.Errorf("element: cannot add child to deleted element %q", e.primaryName)
	}

	child.primaryParent = e

	old := e.childrenPtr.Load()
	grown := make([]*Element, len(*old)+1)
	copy(grown, *old)
	grown[len(*old)] = child
	e.childrenPtr.Store(&grown)
	return nil
}

// AddSecondaryLink adds name as an additional path to child, reachable
// from parent, without affecting child's primary parent or ownership
// (spec.md §3: "secondary links to alternate parents").
func (e *Element) AddSecondaryLink(name string, parent *Element) {
	RegistryLock.Lock()
	defer RegistryLock.Unlock()
	e.secondary = append(e.secondary, link{name: name, parent: parent})
}

// Init walks the subtree rooted at e in parent-first order: calls
// PreChildInitFunc, recurses into children, then PostChildInitFunc,
// and sets FlagReady (spec.md §4.3).
func (e *Element) Init() {
	if e.PreChildInitFunc != nil {
		e.PreChildInitFunc()
	}
	for _, c := range e.Children() {
		c.Init()
	}
	if e.PostChildInitFunc != nil {
		e.PostChildInitFunc()
	}
	e.SetFlag(FlagReady)
}

// ManagedDelete marks e deleted, releases its edges, recursively
// deletes its children, and finally detaches it from its parents.
// Idempotent (spec.md §3 invariant iii).
func (e *Element) ManagedDelete() {
	RegistryLock.Lock()
	alreadyDeleted := e.IsDeleted()
	if !alreadyDeleted {
		e.SetFlag(FlagDeleted)
	}
	RegistryLock.Unlock()
	if alreadyDeleted {
		return
	}

	if e.ReleaseEdgesFunc != nil {
		e.ReleaseEdgesFunc()
	}

	for _, c := range e.Children() {
		c.ManagedDelete()
	}

	RegistryLock.Lock()
	defer RegistryLock.Unlock()
	if e.primaryParent != nil {
		e.primaryParent.removeChildLocked(e)
		e.primaryParent = nil
	}
	e.secondary = nil
}

// removeChildLocked removes child from e's children slice. Callers
// must hold RegistryLock.
func (e *Element) removeChildLocked(child *Element) {
	old := e.childrenPtr.Load()
	shrunk := make([]*Element, 0, len(*old))
	for _, c := range *old {
		if c != child {
			shrunk = append(shrunk, c)
		}
	}
	e.childrenPtr.Store(&shrunk)
}

// GetQualifiedName concatenates link names from the root down to e,
// following primary parents (spec.md §4.3).
func (e *Element) GetQualifiedName() string {
	var names []string
	for cur := e; cur != nil; cur = cur.primaryParent {
		names = append(names, cur.primaryName)
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Name returns the element's primary link name.
func (e *Element) Name() string { return e.primaryName }
