// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import (
	"math"
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// freeListEntryEmpty marks a slot in freeList.entries as currently
// holding no index; freeListEntryTurnMask masks the ABA-guarding "turn"
// counter folded into each entry.
const (
	freeListEntryEmpty    = 1 << 62
	freeListEntryTurnMask = freeListEntryEmpty>>32 - 1
)

// freeList is a bounded, lock-free MPMC FIFO of uint32 buffer indices,
// used to hand out and reclaim Pool slots without a mutex on the hot
// path. It is the same algorithm the teacher's BoundedPool uses — see
// https://nikitakoval.org/publications/ppopp20-queues.pdf — generalized
// to hold plain indices rather than arbitrary items, since Pool already
// owns the backing buffer array.
type freeList struct {
	_ noCopy

	capacity   uint32
	mask       uint32
	entries    []atomic.Uint64
	remapM     uint32
	remapN     uint32
	remapMask  uint32
	head, tail atomic.Uint32
}

func newFreeList(capacity int) *freeList {
	if capacity < 1 || capacity > math.MaxUint32 {
		panic("buffer: capacity must be between 1 and MaxUint32")
	}
	capacity--
	capacity |= capacity >> 1
	capacity |= capacity >> 2
	capacity |= capacity >> 4
	capacity |= capacity >> 8
	capacity |= capacity >> 16
	capacity++

	remapM := min(uintptr(CacheLineSize)/unsafe.Sizeof(atomic.Uint64{}), uintptr(capacity))
	remapN := max(1, uintptr(capacity)/remapM)

	return &freeList{
		capacity:  uint32(capacity),
		mask:      uint32(capacity - 1),
		remapM:    uint32(remapM),
		remapN:    uint32(remapN),
		remapMask: uint32(remapN - 1),
	}
}

// fill seeds the free list with indices [0, capacity).
func (fl *freeList) fill() {
	fl.entries = make([]atomic.Uint64, fl.capacity)
	for i := range fl.capacity {
		fl.entries[i].Store(uint64(i))
	}
	fl.tail.Store(fl.capacity)
}

func (fl *freeList) cap() int {
	return int(fl.capacity)
}

// get returns iox.ErrWouldBlock if the list is currently empty; callers
// that want to grow the backing pool instead of blocking check for that
// sentinel.
func (fl *freeList) get() (index uint32, err error) {
	sw := spin.Wait{}
	for {
		h, t := fl.head.Load(), fl.tail.Load()
		hi := fl.remap(h & fl.mask)
		e := fl.entries[hi].Load()

		if h != fl.head.Load() {
			sw.Once()
			continue
		}
		if h == t {
			return 0, iox.ErrWouldBlock
		}

		nextTurn := (h/fl.capacity + 1) & freeListEntryTurnMask
		if e == fl.empty(nextTurn) {
			fl.head.CompareAndSwap(h, h+1)
			sw.Once()
			continue
		}
		ok := fl.entries[hi].CompareAndSwap(e, fl.empty(nextTurn))
		fl.head.CompareAndSwap(h, h+1)
		if ok {
			return uint32(e & uint64(fl.mask)), nil
		}
		sw.Once()
	}
}

// put returns iox.ErrWouldBlock if the list is already at capacity.
func (fl *freeList) put(index uint32) error {
	e := uint64(index)
	sw := spin.Wait{}
	for {
		h, t := fl.head.Load(), fl.tail.Load()
		if t != fl.tail.Load() {
			sw.Once()
			continue
		}
		if t == h+fl.capacity {
			return iox.ErrWouldBlock
		}
		turn, ti := (t/fl.capacity)&freeListEntryTurnMask, fl.remap(t)
		ok := fl.entries[ti].CompareAndSwap(fl.empty(turn), e)
		fl.tail.CompareAndSwap(t, t+1)
		if ok {
			return nil
		}
		sw.Once()
	}
}

func (fl *freeList) remap(cursor uint32) int {
	p, q := cursor/fl.remapN, cursor&fl.remapMask
	return int(q*fl.remapM + p%fl.remapM)
}

func (fl *freeList) empty(turn uint32) uint64 {
	return freeListEntryEmpty | uint64(turn&freeListEntryTurnMask)
}
