// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rpc

import "testing"

func TestCall_ValidStateMachineTransitions(t *testing.T) {
	c := &Call{}
	if got := c.Status(); got != StatusNone {
		t.Fatalf("initial status = %v, want StatusNone", got)
	}
	c.setStatus(StatusSynchCall)
	c.setStatus(StatusSynchReturn)
	c.setStatus(StatusNone)
	if got := c.Status(); got != StatusNone {
		t.Fatalf("status after round trip = %v, want StatusNone", got)
	}
}

func TestCall_InvalidTransitionPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic transitioning directly from NONE to SYNCH_RETURN")
		}
	}()
	c := &Call{}
	c.setStatus(StatusSynchReturn)
}

func TestCall_SetExceptionRecyclesParameters(t *testing.T) {
	c := &Call{}
	c.setStatus(StatusSynchCall)
	c.SetParam(0, NumberParam(3.5))
	c.SetException(ExceptionTimeout)

	if c.Status() != StatusException {
		t.Fatalf("Status() = %v, want StatusException", c.Status())
	}
	if c.ExceptionKind() != ExceptionTimeout {
		t.Fatalf("ExceptionKind() = %v, want ExceptionTimeout", c.ExceptionKind())
	}
	if c.NumParams() != 0 {
		t.Fatalf("NumParams() = %d, want 0 after SetException", c.NumParams())
	}
}

func TestParam_NumberAndObjectCells(t *testing.T) {
	n := NumberParam(42)
	if v, ok := n.Number(); !ok || v != 42 {
		t.Fatalf("Number() = (%v, %v), want (42, true)", v, ok)
	}
	if _, ok := n.Object(); ok {
		t.Fatalf("Object() should fail on a number cell")
	}

	o := ObjectParam("hello")
	if v, ok := o.Object(); !ok || v != "hello" {
		t.Fatalf("Object() = (%v, %v), want (\"hello\", true)", v, ok)
	}

	if !NullParam().IsNull() {
		t.Fatalf("NullParam() should report IsNull")
	}
}

func TestPool_GetPutResetsCall(t *testing.T) {
	p := NewPool()
	c := p.Get()
	c.setStatus(StatusSynchCall)
	c.SetParam(0, NumberParam(1))
	c.setStatus(StatusSynchReturn)
	c.setStatus(StatusNone)
	p.Put(c)

	c2 := p.Get()
	if c2.Status() != StatusNone {
		t.Fatalf("reused call status = %v, want StatusNone", c2.Status())
	}
	if c2.NumParams() != 0 {
		t.Fatalf("reused call NumParams() = %d, want 0", c2.NumParams())
	}
}
