// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package port implements the port graph: typed ports carrying
// reference-counted buffers, edges between them, the edge aggregators
// that own outgoing aggregated edges, and pull-request propagation.
//
// A Port[T] is always backed by a buffer.Pool[T] (package buffer) for
// its standard Publish/GetCurrent path. A "cheap-copy" port (CheapCopy
// true) additionally gets a thread-local scratch pool and an
// inter-thread hand-off pool: producers call AcquireLocal then
// PublishCheapCopy, which assigns the new value via a non-blocking
// compare-and-swap loop instead of the standard path's mutex-guarded
// swap, and materializes a single-reference hand-off container per
// cross-goroutine subscriber.
package port
