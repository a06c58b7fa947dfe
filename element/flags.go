// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package element

// Flags is a bitmask of framework-element attributes (spec.md §3,
// Framework Element).
type Flags uint32

const (
	// FlagPort marks an element as a port.
	FlagPort Flags = 1 << iota
	// FlagEdgeAggregator marks an element as an edge aggregator: the
	// interface parent of one or more ports, owner of outgoing
	// aggregated edges.
	FlagEdgeAggregator
	// FlagFinstructableGroup marks a group whose structure is editable
	// and persistable at the component-graph level.
	FlagFinstructableGroup
	// FlagInterface marks a port-interface grouping element.
	FlagInterface
	// FlagNetworkElement marks an element representing a remote peer's
	// runtime or port.
	FlagNetworkElement
	// FlagGloballyUniqueLink requires this element's qualified name to
	// be unique across the whole runtime, not just among its siblings.
	FlagGloballyUniqueLink
	// FlagReady is set by Init once PostChildInit has completed for
	// this element and its whole subtree.
	FlagReady
	// FlagDeleted is set at the start of ManagedDelete, before any
	// teardown work happens, so concurrent readers stop treating the
	// element as live immediately.
	FlagDeleted
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }
