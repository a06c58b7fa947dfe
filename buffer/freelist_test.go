// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffer

import (
	"sync"
	"testing"

	"code.hybscloud.com/iox"
)

func TestFreeList_BasicGetPut(t *testing.T) {
	const capacity = 16
	fl := newFreeList(capacity)
	fl.fill()

	indices := make([]uint32, capacity)
	for i := range capacity {
		idx, err := fl.get()
		if err != nil {
			t.Fatalf("get() failed at %d: %v", i, err)
		}
		indices[i] = idx
	}

	if _, err := fl.get(); err != iox.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock on empty list, got %v", err)
	}

	for _, idx := range indices {
		if err := fl.put(idx); err != nil {
			t.Fatalf("put(%d) failed: %v", idx, err)
		}
	}

	if err := fl.put(0); err != iox.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock on full list, got %v", err)
	}
}

func TestFreeList_ConcurrentGetPut(t *testing.T) {
	const capacity = 64
	fl := newFreeList(capacity)
	fl.fill()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				idx, err := fl.get()
				if err != nil {
					continue
				}
				_ = fl.put(idx)
			}
		}()
	}
	wg.Wait()

	seen := make(map[uint32]bool)
	for range capacity {
		idx, err := fl.get()
		if err != nil {
			t.Fatalf("get() failed during drain: %v", err)
		}
		if seen[idx] {
			t.Fatalf("duplicate index %d returned from free list", idx)
		}
		seen[idx] = true
	}
}

func TestFreeList_RoundsCapacityToPowerOfTwo(t *testing.T) {
	fl := newFreeList(5)
	if fl.cap() != 8 {
		t.Fatalf("cap() = %d, want 8", fl.cap())
	}
}
