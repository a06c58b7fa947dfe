// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rpc implements the method-call dispatcher: call objects
// drawn from one pool per Dispatcher, a bounded syncher pool that parks
// synchronous callers on a condition variable, and a bounded worker
// pool that executes extra-thread and remote calls on their own
// goroutines. Submitting a call to the worker pool blocks the caller
// while the pool is at its bound.
package rpc
