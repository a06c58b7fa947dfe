// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtti implements the runtime's type registry: a dense,
// UID-indexed table of type descriptors, shared by the RPC call objects
// and dispatcher, the diagnostics endpoint, and the runtime command.
//
// UIDs 0-199 are reserved for cheap-copy types (spec.md §4.1); standard,
// list, and method/interface types are assigned UIDs starting at 200.
// Each registered standard or cheap-copy type implicitly gets a paired
// list type, created lazily on first request.
package rtti
