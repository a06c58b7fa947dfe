// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import (
	"sync"
)

// slot holds one pooled value alongside the reference counter and
// ownership bookkeeping that tracks it. slot is never moved once
// allocated (Pool.slots holds pointers), so the RefCounter's cache-line
// padding stays meaningful even as the backing slice grows.
type slot[T any] struct {
	value  T
	ref    RefCounter
	unused bool // owning-producer-only; see Buffer.SetLocks
}

// Buffer is a handle to one pooled value. It is owned by exactly one
// goroutine at a time: the producer between GetUnused and the first
// Publish, then whichever subscriber goroutines hold a lock on it.
type Buffer[T any] struct {
	pool  *Pool[T]
	index uint32
}

// Value returns a pointer to the buffer's payload. Valid as long as the
// caller holds a lock (or is the producer, prior to the first publish).
func (b *Buffer[T]) Value() *T {
	return &b.pool.slot(b.index).value
}

// RefCounter returns the buffer's banked reference counter.
func (b *Buffer[T]) RefCounter() *RefCounter {
	return &b.pool.slot(b.index).ref
}

// Unused reports whether this buffer has never been assigned a value
// since it was last handed out by GetUnused.
func (b *Buffer[T]) Unused() bool {
	return b.pool.slot(b.index).unused
}

// SetLocks performs the single "set-locks" operation a producer issues
// once a previously-unused buffer has been written and is about to be
// published (spec.md §4.2): it clears the unused flag and sets the
// active bank's lock count directly, rather than adding to whatever was
// left over from the buffer's prior life.
func (b *Buffer[T]) SetLocks(count int) {
	s := b.pool.slot(b.index)
	s.unused = false
	s.ref.SetLocks(count)
}

// Lock attempts to take one reference on this buffer. It fails if the
// buffer has been recycled since this handle was obtained.
func (b *Buffer[T]) Lock() bool {
	return b.RefCounter().TryLock()
}

// Release releases one reference. If this was the last outstanding
// reference the buffer is returned to its pool's free list.
func (b *Buffer[T]) Release() {
	if b.RefCounter().ReleaseLock() {
		b.pool.recycle(b.index)
	}
}

// ReleaseLocks releases count references in a single atomic subtract —
// the publish-path "assign" step's reversal of an over-estimated lock
// count (spec.md §4.2: "if set_locks < lock_estimate, release the
// difference back in a single atomic subtract"). If this causes the
// buffer to become unlocked it is returned to its pool's free list.
func (b *Buffer[T]) ReleaseLocks(count int) {
	if b.RefCounter().ReleaseLocks(count) {
		b.pool.recycle(b.index)
	}
}

// Index returns the buffer's slot index within its pool. Used by ports
// that need a stable, comparable identity for a buffer (e.g. to detect
// whether GetCurrent returned the same value as a prior read).
func (b *Buffer[T]) Index() uint32 {
	return b.index
}

// Pool is a typed, reference-counted buffer pool (spec.md §4.2).
//
// On first use it allocates an initial set of buffers; GetUnused grows
// the backing array on demand if the free list is empty. Growth takes
// the pool mutex and is not lock-free — by design, matching the spec's
// note that growth need not be real-time once a producer's steady-state
// working set has been absorbed by the initial allocation.
type Pool[T any] struct {
	mu      sync.RWMutex
	slots   []*slot[T]
	free    *freeList
	newFunc func() T

	// growFree holds indices of slots added by grow() that have since
	// been recycled. The lock-free freeList is sized to the pool's
	// initial capacity and cannot hold indices beyond it; growFree is
	// the mutex-guarded overflow list that lets those slots be reused
	// instead of stranded (growth already isn't on the lock-free hot
	// path, see Pool's doc comment).
	growFree []uint32
}

// slot returns the slot at index. Slots themselves are never moved or
// reallocated once created (only appended); the RWMutex guards the
// slice header, which growth (via append) can reallocate.
func (p *Pool[T]) slot(index uint32) *slot[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.slots[index]
}

// NewPool creates a Pool with an initial capacity of n buffers rounded
// up to the next power of two, each produced by newFunc. n values below
// 1 are treated as 1; per spec.md §4.2 a pool
// sustaining a single producer-consumer relation needs at least 5
// buffers to keep banks from colliding with in-flight publishes, but
// that minimum is a configuration responsibility, not enforced here.
func NewPool[T any](n int, newFunc func() T) *Pool[T] {
	if n < 1 {
		n = 1
	}
	p := &Pool[T]{
		free:    newFreeList(n),
		newFunc: newFunc,
	}
	p.free.fill()
	slots := make([]*slot[T], p.free.cap())
	for i := range slots {
		s := &slot[T]{value: newFunc(), unused: true}
		s.ref.Init()
		slots[i] = s
	}
	p.slots = slots
	return p
}

// GetUnused returns a buffer marked unused, growing the pool (or
// reusing a previously recycled grown slot) if none is free.
func (p *Pool[T]) GetUnused() *Buffer[T] {
	idx, err := p.free.get()
	if err != nil {
		idx = p.growOrReuse()
	}
	p.slot(idx).unused = true
	return &Buffer[T]{pool: p, index: idx}
}

// growOrReuse returns an index recycled from a prior grow() if one is
// available, otherwise allocates a brand-new slot.
func (p *Pool[T]) growOrReuse() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.growFree); n > 0 {
		idx := p.growFree[n-1]
		p.growFree = p.growFree[:n-1]
		return idx
	}
	s := &slot[T]{value: p.newFunc(), unused: true}
	s.ref.Init()
	p.slots = append(p.slots, s)
	return uint32(len(p.slots) - 1)
}

func (p *Pool[T]) recycle(index uint32) {
	s := p.slot(index)
	s.ref.recycle()
	s.unused = true
	// Indices within the free list's original capacity go back onto
	// the lock-free hot path; everything else (grown slots, or the
	// rare case the bounded list rejects an in-range index) is queued
	// on growFree so growOrReuse can hand it out instead of growing
	// further.
	if index < uint32(p.free.cap()) {
		if err := p.free.put(index); err == nil {
			return
		}
	}
	p.mu.Lock()
	p.growFree = append(p.growFree, index)
	p.mu.Unlock()
}

// Len returns the pool's initial (pre-growth) capacity.
func (p *Pool[T]) Len() int {
	return p.free.cap()
}

// Cap returns the pool's current total size, including any buffers
// added by GetUnused-triggered growth.
func (p *Pool[T]) Cap() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}
