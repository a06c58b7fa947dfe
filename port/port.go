// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package port

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/finroc/finroc-go/buffer"
	"github.com/finroc/finroc-go/element"
)

// Strategy selects whether a port receives published values
// automatically (push) or only on request (pull), and whether pushed
// values are queued or replace the latest value (spec.md §3, Port).
type Strategy int

const (
	// StrategyPull never receives a push; readers must call Pull.
	StrategyPull Strategy = iota
	// StrategyPushLatest receives every publish but only the most
	// recent value is retained.
	StrategyPushLatest
	// StrategyPushQueued receives every publish into a bounded FIFO
	// (spec.md §4.4: "values are appended to a bounded FIFO; overflow
	// drops oldest").
	StrategyPushQueued
)

// PullHandler lazily produces a port's current value on demand
// (spec.md §4.4: "a port can register a pull-request handler that
// lazily produces the current value on demand").
type PullHandler[T any] func(ctx context.Context) (T, bool)

// Port is a framework element carrying a typed value and bidirectional
// edges to other ports of the same type (spec.md §3, Port). Standard
// ports use the reference-counted current/Publish path below. Cheap-copy
// ports (constructed with cheapCopy true) are an architecturally
// distinct variant (spec.md §4.4): the producer writes into a
// thread-local container drawn from localPool, publishes it via a
// non-blocking compare-and-swap loop (ccCurrent) rather than the
// RWMutex-guarded swap standard ports use, and — for every subscriber on
// a different goroutine — materializes a single inter-thread hand-off
// container from interPool carrying exactly one reference, released
// when that consumer finishes with it. See PublishCheapCopy/AcquireLocal.
type Port[T any] struct {
	*element.Element

	aggregator *EdgeAggregator
	pool       *buffer.Pool[T]
	cheapCopy  bool

	// localPool and interPool back the cheap-copy path only (nil for
	// standard ports): localPool hands producers thread-local-style
	// scratch containers (spec.md §4.4's "thread-local pool"),
	// interPool supplies the per-subscriber inter-thread hand-off
	// containers (its "inter-thread-container pool").
	localPool *buffer.Pool[T]
	interPool *buffer.Pool[T]
	ccCurrent atomic.Pointer[buffer.Buffer[T]]

	mu          sync.RWMutex
	current     *buffer.Buffer[T]
	strategy    Strategy
	queue       *boundedQueue[T]
	subscribers []*Port[T]
	publishers  []*Port[T]
	pullHandler PullHandler[T]
	listeners   []func(T)
}

// NewPort creates a port named name under aggregator, backed by a pool
// of poolSize buffers produced by newFunc. strategy and maxQueueLength
// configure its default subscription behaviour; maxQueueLength is
// ignored unless strategy is StrategyPushQueued. If cheapCopy is true,
// the port additionally gets the thread-local/inter-thread pool pair
// used by AcquireLocal/PublishCheapCopy instead of the standard Publish
// path.
func NewPort[T any](name string, aggregator *EdgeAggregator, poolSize int, newFunc func() T, strategy Strategy, maxQueueLength int, cheapCopy bool) *Port[T] {
	p := &Port[T]{
		Element:    element.NewChild(name, element.LockOrderPort),
		aggregator: aggregator,
		pool:       buffer.NewPool(poolSize, newFunc),
		cheapCopy:  cheapCopy,
		strategy:   strategy,
	}
	if cheapCopy {
		p.localPool = buffer.NewPool(poolSize, newFunc)
		p.interPool = buffer.NewPool(poolSize, newFunc)
	}
	p.SetFlag(element.FlagPort)
	if strategy == StrategyPushQueued {
		p.queue = newBoundedQueue[T](maxQueueLength)
	}
	p.ReleaseEdgesFunc = p.releaseAllEdges
	if aggregator != nil {
		_ = aggregator.AddChild(p.Element)
	}
	return p
}

// CheapCopy reports whether this port uses the cheap-copy publish path
// (AcquireLocal/PublishCheapCopy) instead of the standard Publish path.
func (p *Port[T]) CheapCopy() bool { return p.cheapCopy }

// Aggregator returns the edge aggregator this port belongs to.
func (p *Port[T]) Aggregator() *EdgeAggregator { return p.aggregator }

// AddListener registers fn to be called, after state is committed,
// every time this port's value changes via Publish (spec.md §4.4:
// "Listeners fire after state is committed").
func (p *Port[T]) AddListener(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// SetPullHandler registers the port's pull-request handler.
func (p *Port[T]) SetPullHandler(h PullHandler[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pullHandler = h
}

// Connect creates an edge from p to target: target becomes a
// subscriber of p, and an aggregated edge is recorded between their
// edge aggregators (spec.md §4.4). controlFlow selects which of the
// aggregated edge's two counters this edge contributes to.
func (p *Port[T]) Connect(target *Port[T], controlFlow bool) error {
	if p.pool == nil || target.pool == nil {
		return fmt.Errorf("port: cannot connect unconstructed port")
	}

	element.RegistryLock.Lock()
	p.mu.Lock()
	p.subscribers = append(p.subscribers, target)
	p.mu.Unlock()
	target.mu.Lock()
	target.publishers = append(target.publishers, p)
	target.mu.Unlock()
	element.RegistryLock.Unlock()

	if p.aggregator != nil && target.aggregator != nil {
		linkEdge(p.aggregator, target.aggregator, controlFlow)
	}
	return nil
}

// Disconnect removes the edge from p to target, deleting the
// aggregated edge it was the last contributor to.
func (p *Port[T]) Disconnect(target *Port[T], controlFlow bool) {
	element.RegistryLock.Lock()
	p.mu.Lock()
	p.subscribers = removePort(p.subscribers, target)
	p.mu.Unlock()
	target.mu.Lock()
	target.publishers = removePort(target.publishers, p)
	target.mu.Unlock()
	element.RegistryLock.Unlock()

	if p.aggregator != nil && target.aggregator != nil {
		unlinkEdge(p.aggregator, target.aggregator, controlFlow)
	}
}

func removePort[T any](ports []*Port[T], target *Port[T]) []*Port[T] {
	out := ports[:0]
	for _, q := range ports {
		if q != target {
			out = append(out, q)
		}
	}
	return out
}

// releaseAllEdges disconnects every subscriber and publisher edge this
// port holds. Installed as the embedded element's ReleaseEdgesFunc, run
// by ManagedDelete before the port is unlinked from its parent
// (spec.md §4.3: "removes edges port-by-port under the registry
// lock").
func (p *Port[T]) releaseAllEdges() {
	p.mu.Lock()
	subs := p.subscribers
	pubs := p.publishers
	p.subscribers = nil
	p.publishers = nil
	p.mu.Unlock()

	for _, s := range subs {
		p.Disconnect(s, false)
	}
	for _, pub := range pubs {
		pub.Disconnect(p, false)
	}

	p.mu.Lock()
	if p.current != nil {
		p.current.Release()
		p.current = nil
	}
	p.mu.Unlock()
	if p.queue != nil {
		p.queue.drain()
	}
	if old := p.ccCurrent.Swap(nil); old != nil {
		old.Release()
	}
}

// CheapCopyLocal is a producer's thread-local-style scratch container
// for a cheap-copy port (spec.md §4.4: "the producer writes into a
// thread-local container"). Go has no native thread-local storage, so
// producers acquire one explicitly via AcquireLocal and hand it to
// PublishCheapCopy, mirroring the rpc.SyncherPool acquire/release idiom
// used elsewhere in this module for the same reason.
type CheapCopyLocal[T any] struct {
	buf *buffer.Buffer[T]
}

// Value returns a pointer to the local container's payload, valid to
// write until PublishCheapCopy is called.
func (l *CheapCopyLocal[T]) Value() *T { return l.buf.Value() }

// AcquireLocal draws a thread-local-style scratch container from the
// cheap-copy port's local pool. Only valid on ports constructed with
// cheapCopy true.
func (p *Port[T]) AcquireLocal() *CheapCopyLocal[T] {
	return &CheapCopyLocal[T]{buf: p.localPool.GetUnused()}
}

// PublishCheapCopy assigns local's container to the port's current
// value via a non-blocking compare-and-swap loop — never a mutex —
// satisfying spec.md §4.4's cheap-copy publish contract. For every
// subscriber that is itself a cheap-copy port with the push strategy it
// then materializes a single inter-thread hand-off container (drawn
// from interPool) carrying local's value plus exactly one reference,
// released when that consumer finishes with it (deliverCheapCopy).
// Other subscribers receive nothing from this call.
func (p *Port[T]) PublishCheapCopy(ctx context.Context, local *CheapCopyLocal[T]) {
	local.buf.SetLocks(1) // the port's own retained "current" reference
	for {
		old := p.ccCurrent.Load()
		if p.ccCurrent.CompareAndSwap(old, local.buf) {
			if old != nil {
				old.Release()
			}
			break
		}
	}
	value := *local.buf.Value()

	p.mu.RLock()
	subs := make([]*Port[T], len(p.subscribers))
	copy(subs, p.subscribers)
	listeners := p.listeners
	p.mu.RUnlock()

	for _, s := range subs {
		if s.cheapCopy && s.pushStrategy() {
			s.deliverCheapCopy(value)
		}
	}

	if p.aggregator != nil {
		approxSize := 0
		if sizer, ok := any(value).(interface{ Size() int }); ok {
			approxSize = sizer.Size()
		}
		for _, s := range subs {
			if s.cheapCopy && s.aggregator != nil {
				if agg, ok := p.aggregator.edgeTo(s.aggregator); ok {
					agg.recordPublish(ctx, approxSize)
				}
			}
		}
	}

	for _, l := range listeners {
		l(value)
	}
}

// deliverCheapCopy materializes an inter-thread hand-off container for
// a cross-goroutine subscriber: a fresh buffer from interPool, carrying
// exactly one reference, assigned as this port's current cheap-copy
// value via the same non-blocking CAS loop PublishCheapCopy uses. The
// previous container's single reference is released, returning it to
// interPool once its last reader (if any) has also released it.
func (p *Port[T]) deliverCheapCopy(value T) {
	buf := p.interPool.GetUnused()
	*buf.Value() = value
	buf.SetLocks(1)
	for {
		old := p.ccCurrent.Load()
		if p.ccCurrent.CompareAndSwap(old, buf) {
			if old != nil {
				old.Release()
			}
			return
		}
	}
}

// GetCurrentCheapCopy returns a copy of a cheap-copy port's
// CAS-published current value. ok is false if it has never received
// one.
func (p *Port[T]) GetCurrentCheapCopy() (value T, ok bool) {
	buf := p.ccCurrent.Load()
	if buf == nil {
		return value, false
	}
	return *buf.Value(), true
}

// Publish writes value into a fresh buffer and delivers it to every
// push subscriber (spec.md §4.4, publish semantics). It implements the
// two-phase lock accounting of spec.md §4.2: an up-front estimate
// covering the port's own retained reference plus every push
// subscriber, then a walk that corrects the estimate down to the
// number of subscribers that actually accepted the value.
func (p *Port[T]) Publish(ctx context.Context, value T) {
	p.mu.RLock()
	subs := make([]*Port[T], len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	estimate := 1 // the port's own retained "current" reference
	pushTargets := make([]*Port[T], 0, len(subs))
	for _, s := range subs {
		if s.pushStrategy() {
			estimate++
			pushTargets = append(pushTargets, s)
		}
	}

	buf := p.pool.GetUnused()
	*buf.Value() = value
	buf.SetLocks(estimate)

	p.mu.Lock()
	old := p.current
	p.current = buf
	p.mu.Unlock()
	if old != nil {
		old.Release()
	}

	assigned := 0
	for _, s := range pushTargets {
		if s.acceptPush(buf) {
			assigned++
		}
	}
	if slack := estimate - 1 - assigned; slack > 0 {
		buf.ReleaseLocks(slack)
	}

	if p.aggregator != nil {
		approxSize := 0
		if sizer, ok := any(value).(interface{ Size() int }); ok {
			approxSize = sizer.Size()
		}
		for _, s := range pushTargets {
			if s.aggregator != nil {
				if agg, ok := p.aggregator.edgeTo(s.aggregator); ok {
					agg.recordPublish(ctx, approxSize)
				}
			}
		}
	}

	p.mu.RLock()
	listeners := p.listeners
	p.mu.RUnlock()
	for _, l := range listeners {
		l(value)
	}
}

func (p *Port[T]) pushStrategy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.strategy != StrategyPull
}

// acceptPush delivers buf (already carrying one of the publisher's
// pre-accounted locks) into this port, either as its new latest value
// or appended to its queue. Reports whether it accepted the lock.
func (p *Port[T]) acceptPush(buf *buffer.Buffer[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.strategy {
	case StrategyPushQueued:
		p.queue.push(buf)
	case StrategyPushLatest:
		old := p.current
		p.current = buf
		if old != nil {
			old.Release()
		}
	default:
		return false
	}
	return true
}

// GetCurrent returns a copy of the port's current value. ok is false
// if the port has never received a value (spec.md §3 invariant: "or a
// sentinel empty buffer").
func (p *Port[T]) GetCurrent() (value T, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return value, false
	}
	return *p.current.Value(), true
}

// Dequeue pops the oldest queued value for a StrategyPushQueued port.
func (p *Port[T]) Dequeue() (value T, ok bool) {
	p.mu.RLock()
	q := p.queue
	p.mu.RUnlock()
	if q == nil {
		return value, false
	}
	buf, ok := q.pop()
	if !ok {
		return value, false
	}
	v := *buf.Value()
	buf.Release()
	return v, true
}

// Pull returns the port's value on demand: its own pull handler if one
// is registered, its current pushed value if it has one, or else the
// answer from the first publisher (reverse edge) that can supply one
// (spec.md §4.4: "Pulls propagate along reverse edges until a handler
// answers or the chain ends").
func (p *Port[T]) Pull(ctx context.Context) (value T, ok bool) {
	p.mu.RLock()
	handler := p.pullHandler
	current := p.current
	pubs := make([]*Port[T], len(p.publishers))
	copy(pubs, p.publishers)
	p.mu.RUnlock()

	if handler != nil {
		return handler(ctx)
	}
	if current != nil {
		return *current.Value(), true
	}
	for _, pub := range pubs {
		if v, ok := pub.Pull(ctx); ok {
			return v, true
		}
	}
	return value, false
}
