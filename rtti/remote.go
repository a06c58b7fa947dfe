// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import "fmt"

// RemoteTypeTable maps a peer's locally-assigned type UIDs to the
// equivalent descriptor in this process's registry (spec.md §6: "The
// type UID space is negotiated at connect time via a remote-type
// exchange that maps each peer-local UID to its name so mismatched UIDs
// can be reconciled"). Grounded on
// original_source/port/net/tRemoteTypes.{h,cpp}.
//
// The actual network exchange (reading/writing the -1-terminated wire
// list) is the external peer's job; this type only owns the resulting
// bookkeeping.
type RemoteTypeTable struct {
	registry *Registry
	// localByRemote maps a remote UID to the local descriptor that
	// represents the same named type, or nil if this process has no
	// matching type.
	localByRemote map[UID]*Descriptor
}

// NewRemoteTypeTable creates an empty table resolved against registry.
func NewRemoteTypeTable(registry *Registry) *RemoteTypeTable {
	return &RemoteTypeTable{
		registry:      registry,
		localByRemote: make(map[UID]*Descriptor),
	}
}

// RemoteTypeEntry is one (uid, name) pair as received over the wire
// during remote-type negotiation.
type RemoteTypeEntry struct {
	RemoteUID UID
	Name      string
}

// LoadEntries reconciles a peer's remote-UID -> name list (as decoded
// from the wire form terminated by a -1 remote UID, spec.md §6) against
// this process's registry. Entries whose name has no local match are
// recorded with a nil local descriptor, matching the original's
// "local_data_type == NULL" sentinel.
func (t *RemoteTypeTable) LoadEntries(entries []RemoteTypeEntry) {
	for _, e := range entries {
		t.localByRemote[e.RemoteUID] = t.registry.LookupName(e.Name)
	}
}

// LocalType returns the local descriptor that corresponds to the given
// remote UID, or nil if the peer's type has no local counterpart.
func (t *RemoteTypeTable) LocalType(remoteUID UID) *Descriptor {
	return t.localByRemote[remoteUID]
}

// EncodeLocalTypes renders this process's registered types as (uid,
// name) entries, one per registered type, for a peer to receive during
// connect-time negotiation. The returned slice has no terminator entry.
func EncodeLocalTypes(r *Registry) []RemoteTypeEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]RemoteTypeEntry, 0, len(r.byUID))
	for _, d := range r.byUID {
		if d == nil {
			continue
		}
		entries = append(entries, RemoteTypeEntry{RemoteUID: d.UID, Name: d.Name})
	}
	return entries
}

// String renders the table for diagnostics.
func (t *RemoteTypeTable) String() string {
	return fmt.Sprintf("RemoteTypeTable{%d entries}", len(t.localByRemote))
}
