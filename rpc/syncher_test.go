// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import (
	"testing"
	"time"
)

func TestSyncherPool_AcquireAssignsDistinctThreadUIDs(t *testing.T) {
	p := NewSyncherPool()
	a, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ThreadUID() == b.ThreadUID() {
		t.Fatalf("expected distinct thread UIDs for distinct synchers")
	}
	if a.Index() == b.Index() {
		t.Fatalf("expected distinct slot indices")
	}
}

func TestSyncherPool_ExhaustionAndRelease(t *testing.T) {
	p := NewSyncherPool()
	acquired := make([]*Syncher, 0, maxSynchers)
	for i := 0; i < maxSynchers; i++ {
		s, err := p.Acquire()
		if err != nil {
			t.Fatalf("unexpected error acquiring slot %d: %v", i, err)
		}
		acquired = append(acquired, s)
	}
	if _, err := p.Acquire(); err != ErrSyncherPoolExhausted {
		t.Fatalf("err = %v, want ErrSyncherPoolExhausted", err)
	}

	p.Release(acquired[0])
	if _, err := p.Acquire(); err != nil {
		t.Fatalf("expected a slot to be free after Release, got %v", err)
	}
}

func TestSyncher_DeliverAndWaitForReturn(t *testing.T) {
	p := NewSyncherPool()
	s, _ := p.Acquire()

	call := &Call{}
	call.MethodCallIndex = s.NextCallIndex()

	go func() {
		time.Sleep(5 * time.Millisecond)
		if !s.Deliver(call) {
			t.Error("Deliver should have accepted a call matching the current index")
		}
	}()

	ret, err := s.WaitForReturn(time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret != call {
		t.Fatalf("WaitForReturn returned a different call object")
	}
}

func TestSyncher_StaleReturnIsRejected(t *testing.T) {
	p := NewSyncherPool()
	s, _ := p.Acquire()

	stale := &Call{}
	stale.MethodCallIndex = s.NextCallIndex()
	// Advance the syncher's current index past the stale call's, as
	// happens when the original call already timed out and a new one
	// was issued.
	s.NextCallIndex()

	if s.Deliver(stale) {
		t.Fatalf("expected Deliver to reject a call whose index no longer matches")
	}
}

func TestSyncher_WaitForReturnTimesOut(t *testing.T) {
	p := NewSyncherPool()
	s, _ := p.Acquire()

	if _, err := s.WaitForReturn(10 * time.Millisecond); err != ErrCallTimeout {
		t.Fatalf("err = %v, want ErrCallTimeout", err)
	}
}
