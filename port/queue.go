// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package port

import (
	"sync"

	"github.com/finroc/finroc-go/buffer"
)

// boundedQueue is a queued subscriber's FIFO (spec.md §4.4: "values are
// appended to a bounded FIFO; overflow drops oldest"). Each entry holds
// its own dedicated reference lock, released either on dequeue or when
// dropped for overflow.
type boundedQueue[T any] struct {
	mu      sync.Mutex
	entries []*buffer.Buffer[T]
	max     int
}

func newBoundedQueue[T any](max int) *boundedQueue[T] {
	return &boundedQueue[T]{max: max}
}

// push appends buf, dropping and releasing the oldest entry if the
// queue is already at capacity.
func (q *boundedQueue[T]) push(buf *buffer.Buffer[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.max && q.max > 0 {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		dropped.Release()
	}
	q.entries = append(q.entries, buf)
}

// pop removes and returns the oldest entry, or (nil, false) if empty.
// The caller owns the returned buffer's lock and must Release it once
// done reading.
func (q *boundedQueue[T]) pop() (*buffer.Buffer[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil, false
	}
	buf := q.entries[0]
	q.entries = q.entries[1:]
	return buf, true
}

// len reports the number of entries currently queued.
func (q *boundedQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// drain releases every remaining entry. Used when a port is deleted.
func (q *boundedQueue[T]) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		e.Release()
	}
	q.entries = nil
}
