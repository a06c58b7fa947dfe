// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import (
	"sync/atomic"
	"unsafe"
)

// numBanks is the number of reference-counter banks per buffer. The
// active bank is always reuseCounter mod numBanks; a lock attempt that
// was issued against a bank recorded before the buffer's last recycle
// lands on a bank that has already wrapped to -1 and is rejected,
// without disturbing the live bank.
const numBanks = 4

// bank stores locks-1 so that -1 means unlocked. This lets AddLock and
// ReleaseLock both be a single atomic add, and lets a lock attempt that
// lands on an already-recycled (wrapped) bank fail cheaply instead of
// corrupting live state.
type bank struct {
	wrapped atomic.Int32
	// pad separates adjacent banks (and adjacent buffers' banks) onto
	// distinct cache lines to avoid false sharing under concurrent
	// lock/release from different subscriber goroutines.
	_ [CacheLineSize - 4]byte
}

func (b *bank) reset() {
	b.wrapped.Store(-1)
}

// setLocks sets the bank to exactly count locks. Used once, by the
// owning publisher, when a previously-unused buffer is first assigned a
// value.
func (b *bank) setLocks(count int32) {
	b.wrapped.Store(count - 1)
}

// addLocks adds count locks unconditionally. Used by the publish-path
// lock estimate phase (spec.md §4.2), which applies the estimate before
// the subscriber walk even begins.
func (b *bank) addLocks(count int32) {
	b.wrapped.Add(count)
}

// releaseLocks releases count locks and reports whether the bank
// reached the unlocked state (-1) as a result, in which case the caller
// must recycle the owning buffer exactly once.
func (b *bank) releaseLocks(count int32) (recycled bool) {
	v := b.wrapped.Add(-count)
	return v < 0
}

// tryLock attempts to add a single lock, failing if the bank has
// already wrapped to -1 (the buffer was recycled out from under this
// lock attempt, or never had an initial lock set). It never makes a
// negative count positive: CompareAndSwap loops only on non-negative
// observed values.
func (b *bank) tryLock() bool {
	for {
		v := b.wrapped.Load()
		if v < 0 {
			return false
		}
		if b.wrapped.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

func (b *bank) locks() int32 {
	return b.wrapped.Load() + 1
}

func (b *bank) isLocked() bool {
	return b.wrapped.Load() >= 0
}

// newBanks allocates the numBanks banks from CacheLineAlignedMem rather
// than as a plain inline array. bank's own trailing padding only keeps
// adjacent banks apart once the block they live in starts on a cache
// line boundary — Go's allocator aligns heap objects to their word
// size, not to CacheLineSize, so without this the first bank in a slot
// can still share a line with whatever precedes it in memory (e.g. a
// neighboring slot's trailing bytes).
func newBanks() []bank {
	raw := CacheLineAlignedMem(numBanks * int(unsafe.Sizeof(bank{})))
	return unsafe.Slice((*bank)(unsafe.Pointer(unsafe.SliceData(raw))), numBanks)
}

// RefCounter is the banked, reuse-safe reference counter carried by
// every pooled buffer (spec.md §3, Buffer / Reference Counter). The
// zero value is not ready to use; call Init once, in place, before the
// first SetLocks (RefCounter carries noCopy, so construction never
// hands one back by value).
type RefCounter struct {
	_ noCopy

	banks []bank
	// reuseCounter is incremented every time the buffer is recycled;
	// reuseCounter mod numBanks selects the active bank.
	reuseCounter atomic.Uint32
}

// Init allocates rc's banks on cache-line-aligned storage (see
// newBanks) and resets every bank to the unlocked state (-1). Must be
// called exactly once, before rc is used.
func (rc *RefCounter) Init() {
	rc.banks = newBanks()
	for i := range rc.banks {
		rc.banks[i].reset()
	}
}

func (rc *RefCounter) active() *bank {
	return &rc.banks[rc.reuseCounter.Load()&(numBanks-1)]
}

// SetLocks sets the current bank's lock count to exactly count. Called
// once by the buffer's producer immediately after a GetUnused buffer is
// assigned a value.
func (rc *RefCounter) SetLocks(count int) {
	rc.active().setLocks(int32(count))
}

// AddLock adds a single read lock to the current bank.
func (rc *RefCounter) AddLock() {
	rc.active().addLocks(1)
}

// AddLocks adds count read locks to the current bank in a single atomic
// add — the publish-path "lock estimate" step (spec.md §4.2).
func (rc *RefCounter) AddLocks(count int) {
	rc.active().addLocks(int32(count))
}

// TryLock attempts to take one lock against the current bank, failing
// if the bank has already wrapped (the buffer was recycled).
func (rc *RefCounter) TryLock() bool {
	return rc.active().tryLock()
}

// ReleaseLock releases a single lock from the current bank. Returns
// true if this release caused the bank to reach the unlocked state,
// meaning the owning buffer must be recycled exactly once.
func (rc *RefCounter) ReleaseLock() bool {
	return rc.active().releaseLocks(1)
}

// ReleaseLocks releases count locks from the current bank in one
// atomic subtract — the publish-path "assign" step's reversal of an
// over-estimated lock count (spec.md §4.2).
func (rc *RefCounter) ReleaseLocks(count int) bool {
	if count == 0 {
		return false
	}
	return rc.active().releaseLocks(int32(count))
}

// Locks returns the current bank's lock count.
func (rc *RefCounter) Locks() int {
	return int(rc.active().locks())
}

// IsLocked reports whether the current bank's lock count is > 0.
func (rc *RefCounter) IsLocked() bool {
	return rc.active().isLocked()
}

// recycle marks the current bank unlocked and advances the reuse
// counter, so any lock attempt still in flight against the old bank
// lands on a bank that has already wrapped.
func (rc *RefCounter) recycle() {
	rc.active().reset()
	rc.reuseCounter.Add(1)
}

// ReuseCount returns the number of times this counter has been recycled.
// Exposed for the bank-independence testable property (spec.md §8):
// bank_i = i mod 4.
func (rc *RefCounter) ReuseCount() uint32 {
	return rc.reuseCounter.Load()
}
