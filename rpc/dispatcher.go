// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/finroc/finroc-go/rtti"
)

var tracer = otel.Tracer("github.com/finroc/finroc-go/rpc")

// Handler answers a method call dispatched to this process, local or
// remote (spec.md §4.5).
type Handler interface {
	HandleCall(ctx context.Context, call *Call) (result Param, err error)
}

// AsyncReturnHandler receives the result of a call dispatched through
// the worker pool, once it completes (spec.md §4.5, modes 2 and 4).
type AsyncReturnHandler func(call *Call, result Param, err error)

// Sender writes a method call onto a network interface port (spec.md
// §4.5, modes 3 and 4). The dispatcher never opens sockets itself;
// Sender is supplied by whatever owns the network interface port.
type Sender func(ctx context.Context, call *Call) error

var (
	// ErrUnknownMethod is returned when no handler is registered for a
	// call's interface type.
	ErrUnknownMethod = errors.New("rpc: no handler registered for this interface type")
	// ErrWorkerPoolClosed is returned when a call is submitted to the
	// worker pool after Close.
	ErrWorkerPoolClosed = errors.New("rpc: worker pool is closed")
)

// Dispatcher implements the four method-call dispatch modes plus
// network forwarding (spec.md §4.5). Grounded on
// original_source/port/rpc/tSynchMethodCallLogic.{h,cpp} (synchronous
// dispatch and stale-return handling) and tRPCThreadPool.{h,cpp} (the
// extra-thread worker pool).
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[rtti.UID]Handler

	synchers *SyncherPool
	calls    *Pool

	// sem bounds the number of extra-thread/remote worker goroutines
	// running at once; callers beyond the bound queue on Acquire,
	// giving the "pool grows as needed" behaviour of spec.md §5 a hard
	// ceiling instead of unbounded goroutine growth.
	sem    *semaphore.Weighted
	closed closedFlag
}

// closedFlag is a tiny mutex-guarded bool recording whether the
// dispatcher's worker pool still accepts new submissions.
type closedFlag struct {
	mu sync.Mutex
	v  bool
}

func (f *closedFlag) set()      { f.mu.Lock(); f.v = true; f.mu.Unlock() }
func (f *closedFlag) get() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.v }

// NewDispatcher creates a dispatcher whose worker pool runs at most
// maxWorkers extra-thread/remote calls concurrently.
func NewDispatcher(maxWorkers int64) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[rtti.UID]Handler),
		synchers: NewSyncherPool(),
		calls:    NewPool(),
		sem:      semaphore.NewWeighted(maxWorkers),
	}
}

// Synchers returns the dispatcher's syncher pool, for callers that need
// to Acquire/Release one around a sequence of synchronous calls.
func (d *Dispatcher) Synchers() *SyncherPool { return d.synchers }

// Calls returns the dispatcher's call-object pool.
func (d *Dispatcher) Calls() *Pool { return d.calls }

// RegisterHandler attaches h to every call whose InterfaceType.UID
// equals interfaceUID.
func (d *Dispatcher) RegisterHandler(interfaceUID rtti.UID, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[interfaceUID] = h
}

func (d *Dispatcher) handlerFor(call *Call) (Handler, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if call.InterfaceType == nil {
		return nil, ErrUnknownMethod
	}
	h, ok := d.handlers[call.InterfaceType.UID]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return h, nil
}

// DispatchLocal implements dispatch modes 1 ("local, non-extra-thread")
// and 2 ("local, extra-thread"): extraThread selects whether the
// handler runs synchronously in the caller's goroutine or is handed to
// the worker pool, in which case retHandler receives the result
// asynchronously (spec.md §4.5).
func (d *Dispatcher) DispatchLocal(ctx context.Context, call *Call, extraThread bool, retHandler AsyncReturnHandler) error {
	if extraThread {
		call.setStatus(StatusAsynchCall)
		return d.submit(ctx, "rpc.local.extra-thread", func(ctx context.Context) {
			result, err := d.invoke(ctx, call)
			if retHandler != nil {
				retHandler(call, result, err)
			}
		})
	}

	call.setStatus(StatusSynchCall)
	ctx, span := tracer.Start(ctx, "rpc.local.direct", trace.WithAttributes(callAttrs(call)...))
	defer span.End()
	_, err := d.invoke(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// invoke runs call's handler and transitions the call's state machine
// to its terminal state. It returns the handler's result and error;
// the result is not written into the call object, and DispatchLocal's
// synchronous path discards it and keeps only the error.
func (d *Dispatcher) invoke(ctx context.Context, call *Call) (Param, error) {
	h, err := d.handlerFor(call)
	if err != nil {
		call.SetException(ExceptionUnknownMethod)
		return Param{}, err
	}
	result, err := h.HandleCall(ctx, call)
	if err != nil {
		call.SetException(ExceptionProgrammerError)
		return Param{}, err
	}
	if call.Status() == StatusAsynchCall {
		call.setStatus(StatusAsynchReturn)
	} else {
		call.setStatus(StatusSynchReturn)
	}
	return result, nil
}

// DispatchRemoteSync implements mode 3: the call is sent over send,
// and the calling goroutine blocks on syncher up to timeout for the
// matching return (spec.md §4.5).
func (d *Dispatcher) DispatchRemoteSync(ctx context.Context, call *Call, syncher *Syncher, send Sender) (Param, error) {
	ctx, span := tracer.Start(ctx, "rpc.remote.synch", trace.WithAttributes(callAttrs(call)...))
	defer span.End()

	call.SyncherIndex = syncher.Index()
	call.CallerThreadUID = syncher.ThreadUID()
	call.MethodCallIndex = syncher.NextCallIndex()
	call.setStatus(StatusSynchCall)

	if err := send(ctx, call); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		call.SetException(ExceptionNoConnection)
		return Param{}, err
	}

	ret, err := syncher.WaitForReturn(call.NetTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		call.SetException(ExceptionTimeout)
		return Param{}, err
	}
	if ret.Status() == StatusException {
		err := fmt.Errorf("rpc: remote call raised exception %d", ret.ExceptionKind())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ret.setStatus(StatusNone)
		d.calls.Put(ret)
		return Param{}, err
	}
	result := ret.Param(0)
	ret.setStatus(StatusNone)
	d.calls.Put(ret)
	return result, nil
}

// DispatchRemoteAsync implements mode 4: the blocking network send
// happens on a worker-pool goroutine; retHandler receives the result
// once it completes (spec.md §4.5).
func (d *Dispatcher) DispatchRemoteAsync(ctx context.Context, call *Call, send Sender, retHandler AsyncReturnHandler) error {
	call.setStatus(StatusAsynchCall)
	return d.submit(ctx, "rpc.remote.asynch", func(ctx context.Context) {
		err := send(ctx, call)
		if err != nil {
			call.SetException(ExceptionNoConnection)
		} else {
			call.setStatus(StatusAsynchReturn)
		}
		if retHandler != nil {
			retHandler(call, call.Param(0), err)
		}
	})
}

// Forward re-dispatches a call received from the network whose target
// is itself another network port: send delivers it to the destination,
// and the destination's return is written back through the original
// source port by the caller once this returns (spec.md §4.5:
// "Forwarding").
func (d *Dispatcher) Forward(ctx context.Context, call *Call, send Sender) error {
	return d.submit(ctx, "rpc.forward", func(ctx context.Context) {
		if err := send(ctx, call); err != nil {
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			call.SetException(ExceptionNoConnection)
		}
	})
}

// submit runs fn on a worker-pool goroutine, bounded by d.sem, under a
// span named label.
func (d *Dispatcher) submit(ctx context.Context, label string, fn func(ctx context.Context)) error {
	if d.closed.get() {
		return ErrWorkerPoolClosed
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer d.sem.Release(1)
		ctx, span := tracer.Start(ctx, label)
		defer span.End()
		fn(ctx)
	}()
	return nil
}

// Close marks the dispatcher closed: further DispatchLocal(extraThread
// = true), DispatchRemoteAsync, and Forward calls fail with
// ErrWorkerPoolClosed. In-flight worker goroutines are unaffected.
func (d *Dispatcher) Close() {
	d.closed.set()
}

func callAttrs(call *Call) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if call.Method != nil {
		attrs = append(attrs, attribute.String("rpc.method", call.Method.Name))
	}
	if call.InterfaceType != nil {
		attrs = append(attrs, attribute.String("rpc.interface", call.InterfaceType.Name))
	}
	return attrs
}
