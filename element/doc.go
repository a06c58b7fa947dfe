// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package element implements the runtime's framework-element tree: the
// node type every port, edge aggregator, and group attaches to, plus
// its lifecycle (constructed -> initialized -> ready -> prepare-delete
// -> deleted), link names, and typed annotations.
//
// Structural changes (AddChild, ManagedDelete, annotation attachment)
// serialize on the package-level RegistryLock; read-only tree
// iteration is lock-free against a copy-on-write child slice.
package element
