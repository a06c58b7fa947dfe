// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"

	"github.com/finroc/finroc-go/element"
	"github.com/finroc/finroc-go/port"
)

// ExecutionControl is the annotation a thread container attaches to
// its own framework element so that descendants can find their
// nearest controlling container via element.FindParentWithAnnotation
// (spec.md §4.6: "whose nearest execution control is this container"),
// grounded on original_source/thread/tExecutionControl.h's
// Find(fe) == FindParentWithAnnotation(fe, cTYPE).
type ExecutionControl struct {
	Container *Container
}

// OnAttach implements element.Annotation.
func (c *ExecutionControl) OnAttach(*element.Element) {}

// findExecutionControl returns the nearest ExecutionControl annotation
// above (and including) e, or nil if none is attached.
func findExecutionControl(e *element.Element) *ExecutionControl {
	a := element.FindParentWithAnnotation(e, &ExecutionControl{})
	if a == nil {
		return nil
	}
	return a.(*ExecutionControl)
}

// Callback is a periodic task's work function, invoked once per
// scheduling cycle in topological order.
type Callback func(ctx context.Context)

// PeriodicTask is the annotation marking a framework element as an
// aggregated task: a unit of periodic work with declared incoming and
// outgoing interfaces used to build the cycle's dependency graph
// (spec.md §4.6 steps 1-2). Grounded on
// original_source/thread/tExecutionControl.{h,cpp}, which pairs a
// tStartAndPausable implementation with the annotated element the same
// way PeriodicTask pairs a Callback with it here.
type PeriodicTask struct {
	// SensePhase tasks run before all non-sense-phase tasks in a cycle
	// (spec.md §4.6 step 1: "partition into sense-phase tasks and other
	// tasks; concatenate with sense first").
	SensePhase bool

	// Incoming and Outgoing list the edge aggregators this task reads
	// from and publishes to, used to trace the dependency graph.
	Incoming []*port.EdgeAggregator
	Outgoing []*port.EdgeAggregator

	Run Callback

	element *element.Element
}

// OnAttach implements element.Annotation.
func (t *PeriodicTask) OnAttach(e *element.Element) { t.element = e }

// Element returns the framework element this task annotation is
// attached to.
func (t *PeriodicTask) Element() *element.Element { return t.element }

// findPeriodicTask returns the PeriodicTask annotation attached
// directly to e, or nil.
func findPeriodicTask(e *element.Element) *PeriodicTask {
	a := e.Annotation(&PeriodicTask{})
	if a == nil {
		return nil
	}
	return a.(*PeriodicTask)
}
