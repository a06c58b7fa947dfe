// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finroc/finroc-go/rtti"
)

// Status is a method call's position in its state machine (spec.md
// §3, Method Call; §4.5: "NONE -> {SYNCH_CALL, ASYNCH_CALL} ->
// {SYNCH_RETURN, ASYNCH_RETURN, EXCEPTION} -> NONE (recycled)").
type Status int

const (
	StatusNone Status = iota
	StatusSynchCall
	StatusAsynchCall
	StatusSynchReturn
	StatusAsynchReturn
	StatusException
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusSynchCall:
		return "synch-call"
	case StatusAsynchCall:
		return "asynch-call"
	case StatusSynchReturn:
		return "synch-return"
	case StatusAsynchReturn:
		return "asynch-return"
	case StatusException:
		return "exception"
	default:
		return "unknown"
	}
}

// ExceptionKind classifies why a call ended in StatusException.
type ExceptionKind int

const (
	ExceptionNone ExceptionKind = iota
	ExceptionUnknownMethod
	ExceptionInvalidParameters
	ExceptionNoConnection
	ExceptionTimeout
	ExceptionProgrammerError
)

// paramKind discriminates Param's cell (spec.md §3, Method Call:
// "stored as a discriminated cell: number, object-reference, or
// null").
type paramKind int

const (
	paramNull paramKind = iota
	paramNumber
	paramObject
)

// Param is one method-call parameter or return value cell. Grounded on
// original_source/port/rpc/tCallParameter.{h,cpp}.
type Param struct {
	kind   paramKind
	number float64
	object any
}

// NullParam returns the empty parameter cell.
func NullParam() Param { return Param{kind: paramNull} }

// NumberParam wraps a numeric value.
func NumberParam(v float64) Param { return Param{kind: paramNumber, number: v} }

// ObjectParam wraps an object reference.
func ObjectParam(v any) Param { return Param{kind: paramObject, object: v} }

// IsNull reports whether the cell holds no value.
func (p Param) IsNull() bool { return p.kind == paramNull }

// Number returns the cell's numeric value, if it holds one.
func (p Param) Number() (float64, bool) {
	if p.kind != paramNumber {
		return 0, false
	}
	return p.number, true
}

// Object returns the cell's object reference, if it holds one.
func (p Param) Object() (any, bool) {
	if p.kind != paramObject {
		return nil, false
	}
	return p.object, true
}

// maxParams bounds a call's parameter count (spec.md §3: "up to N
// parameters"), matching the original's fixed 4-slot parameter array.
const maxParams = 4

// Call is a method-call object (spec.md §3, Method Call). Call objects
// are drawn from a Pool and returned to it once their state machine
// reaches StatusNone again.
type Call struct {
	mu sync.Mutex

	Method        *rtti.Method
	InterfaceType *rtti.Descriptor

	params    [maxParams]Param
	numParams int

	status        Status
	exceptionKind ExceptionKind

	// SyncherIndex identifies the caller's method-call syncher slot for
	// a synchronous call (spec.md §3, Method-Call Syncher).
	SyncherIndex int
	// CallerThreadUID identifies the calling thread, used to route a
	// return back to the right syncher even though Go has no native
	// thread-local storage.
	CallerThreadUID uuid.UUID
	// MethodCallIndex increases monotonically per syncher and is used
	// to detect a stale return (spec.md §4.5: "A returning object whose
	// method-call-index no longer matches its syncher's current index
	// is silently recycled").
	MethodCallIndex int32

	LocalPortHandle  uint32
	RemotePortHandle uint32

	// NetTimeout is the network timeout for a remote synchronous call
	// (spec.md §3: "optional network timeout").
	NetTimeout time.Duration
}

// Status returns the call's current state-machine status.
func (c *Call) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ExceptionKind returns the call's exception classification, valid
// once Status is StatusException.
func (c *Call) ExceptionKind() ExceptionKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exceptionKind
}

// setStatus transitions the call's state machine, matching spec.md
// §4.5's allowed transitions. Passing a disallowed transition is a
// programmer error and panics, mirroring the original's assertion-style
// enforcement of the state machine's shape.
func (c *Call) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !validTransition(c.status, s) {
		panic(fmt.Sprintf("rpc: invalid call state transition %s -> %s", c.status, s))
	}
	c.status = s
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusNone:
		return to == StatusSynchCall || to == StatusAsynchCall
	case StatusSynchCall:
		return to == StatusSynchReturn || to == StatusException
	case StatusAsynchCall:
		return to == StatusAsynchReturn || to == StatusException
	case StatusSynchReturn, StatusAsynchReturn, StatusException:
		return to == StatusNone
	default:
		return false
	}
}

// SetException moves the call to StatusException with the given kind,
// discarding any parameters it carried (spec.md §4.5's exception
// path).
func (c *Call) SetException(kind ExceptionKind) {
	c.mu.Lock()
	c.exceptionKind = kind
	c.mu.Unlock()
	c.setStatus(StatusException)
	c.RecycleParameters()
}

// SetParam stores v at index, which must be below maxParams.
func (c *Call) SetParam(index int, v Param) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[index] = v
	if index+1 > c.numParams {
		c.numParams = index + 1
	}
}

// Param returns the parameter stored at index.
func (c *Call) Param(index int) Param {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params[index]
}

// NumParams returns how many parameter slots have been set.
func (c *Call) NumParams() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numParams
}

// RecycleParameters clears every parameter slot without touching the
// call's method/status, e.g. before it is handed back to its pool.
func (c *Call) RecycleParameters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.params {
		c.params[i] = Param{}
	}
	c.numParams = 0
}

// reset returns the call object to its zero, NONE, unattached state so
// its Pool can hand it to a new caller. It must not overwrite c.mu
// itself: the lock guarding this call must stay live across reuse.
func (c *Call) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Method = nil
	c.InterfaceType = nil
	c.params = [maxParams]Param{}
	c.numParams = 0
	c.status = StatusNone
	c.exceptionKind = ExceptionNone
	c.SyncherIndex = 0
	c.CallerThreadUID = uuid.UUID{}
	c.MethodCallIndex = 0
	c.LocalPortHandle = 0
	c.RemotePortHandle = 0
	c.NetTimeout = 0
}
