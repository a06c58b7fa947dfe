// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import "sync"

// Pool hands out Call objects and recycles them once their state
// machine returns to StatusNone (spec.md §4.5: "the call object is
// recycled by the receiver path"). Grounded on
// original_source/port/rpc/tThreadLocalRPCData.cpp's per-thread call
// object pool; built on sync.Pool rather than buffer.Pool because call
// objects carry no reference-counted payload to track — they are
// reused whole, not locked by multiple readers at once, which is
// exactly what sync.Pool is for and no ecosystem library in the
// retrieval pack improves on.
type Pool struct {
	pool sync.Pool
}

// NewPool creates an empty call-object pool.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{New: func() any { return &Call{} }},
	}
}

// Get returns a Call in StatusNone, either reused or newly allocated.
func (p *Pool) Get() *Call {
	return p.pool.Get().(*Call)
}

// Put returns call to the pool. The caller must have already brought
// call back to StatusNone (via a completed round trip through
// RecycleParameters and the state machine).
func (p *Pool) Put(call *Call) {
	call.reset()
	p.pool.Put(call)
}
