// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxSynchers bounds the number of threads issuing blocking synchronous
// calls concurrently (spec.md §3, Method-Call Syncher: "A fixed-size
// pool (<=127 slots)"). Grounded on
// original_source/port/rpc/tMethodCallSyncher.h's cMAX_THREADS.
const maxSynchers = 127

// ErrSyncherPoolExhausted is returned by SyncherPool.Acquire when every
// slot is already assigned to a goroutine issuing a blocking call.
var ErrSyncherPoolExhausted = errors.New("rpc: syncher pool exhausted (127 concurrent blocking callers)")

// ErrCallTimeout is returned by Syncher.WaitForReturn when no return
// value arrives before the network timeout elapses.
var ErrCallTimeout = errors.New("rpc: synchronous call timed out")

// Syncher is a per-caller synchronization slot used to block a
// goroutine issuing a synchronous remote call until its return value
// arrives, or until it times out (spec.md §3, Method-Call Syncher).
// Go has no native thread-local storage, so callers acquire a Syncher
// explicitly from a SyncherPool and must call SyncherPool.Release (the
// analogue of the original's per-thread teardown hook) when done
// issuing blocking calls.
type Syncher struct {
	index int

	mu                sync.Mutex
	cond              *sync.Cond
	returned          *Call
	currentCallIndex  int32
	threadUID         uuid.UUID
}

// Index returns this syncher's slot index within its pool.
func (s *Syncher) Index() int { return s.index }

// ThreadUID returns the synthetic thread identity assigned when this
// syncher was acquired.
func (s *Syncher) ThreadUID() uuid.UUID { return s.threadUID }

// NextCallIndex advances and returns the syncher's current call index.
// Must be called by the owning goroutine before a new synchronous call
// is sent, so a subsequently arriving stale return (from an
// already-timed-out call) is recognized as such (spec.md §4.5).
func (s *Syncher) NextCallIndex() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCallIndex++
	return s.currentCallIndex
}

// Deliver hands a returned call to the waiting goroutine. It reports
// false, without waking anyone, if call.MethodCallIndex no longer
// matches the syncher's current call index — the return is stale and
// the caller must recycle call itself instead.
func (s *Syncher) Deliver(call *Call) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if call.MethodCallIndex != s.currentCallIndex {
		return false
	}
	s.returned = call
	s.cond.Broadcast()
	return true
}

// WaitForReturn blocks until Deliver hands this syncher a call, or
// timeout elapses, whichever comes first.
func (s *Syncher) WaitForReturn(timeout time.Duration) (*Call, error) {
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	deadline := time.Now().Add(timeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.returned == nil {
		if time.Now().After(deadline) {
			return nil, ErrCallTimeout
		}
		s.cond.Wait()
	}
	call := s.returned
	s.returned = nil
	return call, nil
}

// SyncherPool is the fixed-size pool of Syncher slots (spec.md §3).
type SyncherPool struct {
	mu    sync.Mutex
	slots [maxSynchers]*Syncher
	free  []int
}

// NewSyncherPool creates a pool with all 127 slots free.
func NewSyncherPool() *SyncherPool {
	p := &SyncherPool{free: make([]int, maxSynchers)}
	for i := 0; i < maxSynchers; i++ {
		s := &Syncher{index: i}
		s.cond = sync.NewCond(&s.mu)
		p.slots[i] = s
		p.free[i] = maxSynchers - 1 - i
	}
	return p
}

// Acquire assigns a free slot to the calling goroutine, tagging it with
// a fresh synthetic thread UID. Returns ErrSyncherPoolExhausted if
// every slot is already in use.
func (p *SyncherPool) Acquire() (*Syncher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil, ErrSyncherPoolExhausted
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	s := p.slots[idx]
	s.threadUID = uuid.New()
	return s, nil
}

// Release returns s to the pool of free slots (the analogue of the
// original's ThreadLocalCache teardown hook, called explicitly here
// since Go has no thread-termination callback to hook).
func (p *SyncherPool) Release(s *Syncher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.mu.Lock()
	s.returned = nil
	s.threadUID = uuid.UUID{}
	s.mu.Unlock()
	p.free = append(p.free, s.index)
}

// Get returns the syncher at the given slot index, for routing a
// network-delivered return to the right caller by its syncher index
// (spec.md §4.5).
func (p *SyncherPool) Get(index int) *Syncher {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[index]
}
