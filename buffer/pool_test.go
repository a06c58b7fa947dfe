// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer_test

import (
	"testing"

	"github.com/finroc/finroc-go/buffer"
)

func TestPool_TrivialPublishRead(t *testing.T) {
	// Scenario 1 from spec.md §8: publish, read, buffer returns to the
	// pool (pool size is unchanged).
	pool := buffer.NewPool(8, func() int { return 0 })
	startCap := pool.Cap()

	b := pool.GetUnused()
	*b.Value() = 42
	b.SetLocks(1) // producer's own implicit lock before handing out

	if got := *b.Value(); got != 42 {
		t.Fatalf("Value() = %d, want 42", got)
	}

	b.Release()
	if pool.Cap() != startCap {
		t.Fatalf("Cap() = %d, want unchanged %d", pool.Cap(), startCap)
	}
}

func TestPool_GrowsWhenExhausted(t *testing.T) {
	pool := buffer.NewPool(2, func() int { return 0 })
	var held []*buffer.Buffer[int]
	for range 5 {
		b := pool.GetUnused()
		b.SetLocks(1)
		held = append(held, b)
	}
	if pool.Cap() < 5 {
		t.Fatalf("Cap() = %d, want >= 5 after exhausting initial capacity", pool.Cap())
	}
	for _, b := range held {
		b.Release()
	}
}

func TestPool_RecycledGrownSlotsAreReusedNotStranded(t *testing.T) {
	pool := buffer.NewPool(2, func() int { return 0 })

	// Exhaust initial capacity and force growth past it.
	var held []*buffer.Buffer[int]
	for range 5 {
		b := pool.GetUnused()
		b.SetLocks(1)
		held = append(held, b)
	}
	capAfterFirstGrowth := pool.Cap()

	// Release everything, then repeat the same transient overshoot.
	// If grown slots were stranded, this second overshoot would grow
	// the pool again; since they're recycled into growFree, it should
	// reuse them instead.
	for _, b := range held {
		b.Release()
	}

	held = held[:0]
	for range 5 {
		b := pool.GetUnused()
		b.SetLocks(1)
		held = append(held, b)
	}
	if pool.Cap() != capAfterFirstGrowth {
		t.Fatalf("Cap() = %d, want unchanged at %d after a second transient overshoot", pool.Cap(), capAfterFirstGrowth)
	}
	for _, b := range held {
		b.Release()
	}
}

func TestPool_SubscriberLockAndRelease(t *testing.T) {
	pool := buffer.NewPool(4, func() int { return 0 })
	b := pool.GetUnused()
	*b.Value() = 7
	b.SetLocks(1)

	if !b.Lock() {
		t.Fatal("expected subscriber Lock to succeed on a live buffer")
	}
	b.Release() // subscriber's lock
	b.Release() // producer's own lock

	if b.Lock() {
		t.Fatal("expected Lock to fail on a fully-released, recycled buffer")
	}
}
