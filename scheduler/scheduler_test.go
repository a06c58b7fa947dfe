// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finroc/finroc-go/element"
	"github.com/finroc/finroc-go/port"
)

func attachTask(t *testing.T, e *element.Element, task *PeriodicTask) {
	t.Helper()
	require.NoError(t, e.AddAnnotation(task))
}

func TestCollectTasks_ScopedToNearestControl(t *testing.T) {
	root := element.New("runtime")
	outerControl := &ExecutionControl{}
	require.NoError(t, root.AddAnnotation(outerControl))

	inner := element.NewChild("container", element.LockOrderRuntimeRoot)
	require.NoError(t, root.AddChild(inner))
	innerControl := &ExecutionControl{}
	require.NoError(t, inner.AddAnnotation(innerControl))

	outerTaskElem := element.NewChild("outer-task", element.LockOrderLeafGroup)
	require.NoError(t, root.AddChild(outerTaskElem))
	outerTask := &PeriodicTask{}
	attachTask(t, outerTaskElem, outerTask)

	innerTaskElem := element.NewChild("inner-task", element.LockOrderLeafGroup)
	require.NoError(t, inner.AddChild(innerTaskElem))
	innerTask := &PeriodicTask{}
	attachTask(t, innerTaskElem, innerTask)

	tasks := collectTasks(root, innerControl)
	require.Len(t, tasks, 1)
	require.Same(t, innerTask, tasks[0])

	tasks = collectTasks(root, outerControl)
	require.Len(t, tasks, 1)
	require.Same(t, outerTask, tasks[0])
}

func TestPartitionSenseFirst(t *testing.T) {
	a := &PeriodicTask{SensePhase: false}
	b := &PeriodicTask{SensePhase: true}
	c := &PeriodicTask{SensePhase: false}
	d := &PeriodicTask{SensePhase: true}

	ordered := partitionSenseFirst([]*PeriodicTask{a, b, c, d})
	require.Equal(t, []*PeriodicTask{b, d, a, c}, ordered)
}

// buildChain wires three edge aggregators producer -> passthrough ->
// consumer under root and returns them.
func buildChain(t *testing.T, root *element.Element) (producer, passthrough, consumer *port.EdgeAggregator) {
	t.Helper()
	producer = port.NewEdgeAggregator("producer-if", element.LockOrderLeafPortGroup)
	require.NoError(t, root.AddChild(producer.Element))
	passthrough = port.NewEdgeAggregator("passthrough-if", element.LockOrderLeafPortGroup)
	require.NoError(t, root.AddChild(passthrough.Element))
	consumer = port.NewEdgeAggregator("consumer-if", element.LockOrderLeafPortGroup)
	require.NoError(t, root.AddChild(consumer.Element))

	producerOut := port.NewPort[int]("out", producer, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	passthroughIn := port.NewPort[int]("in", passthrough, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	passthroughOut := port.NewPort[int]("out", passthrough, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	consumerIn := port.NewPort[int]("in", consumer, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)

	require.NoError(t, producerOut.Connect(passthroughIn, false))
	require.NoError(t, passthroughOut.Connect(consumerIn, false))
	return producer, passthrough, consumer
}

func TestTraceSuccessors_ThroughPassThroughInterface(t *testing.T) {
	root := element.New("runtime")
	producer, _, consumer := buildChain(t, root)

	producerTask := &PeriodicTask{Outgoing: []*port.EdgeAggregator{producer}}
	attachTask(t, producer.Element, producerTask)
	consumerTask := &PeriodicTask{}
	attachTask(t, consumer.Element, consumerTask)

	index := map[*PeriodicTask]int{producerTask: 0, consumerTask: 1}
	found := traceSuccessors(producerTask, index)
	require.Equal(t, []int{1}, found)
}

func TestTopologicalSort_OrdersByDependency(t *testing.T) {
	root := element.New("runtime")
	producer, passthrough, consumer := buildChain(t, root)

	taskA := &PeriodicTask{Outgoing: []*port.EdgeAggregator{producer}}
	attachTask(t, producer.Element, taskA)
	taskB := &PeriodicTask{Outgoing: []*port.EdgeAggregator{passthrough}}
	attachTask(t, passthrough.Element, taskB)
	taskC := &PeriodicTask{}
	attachTask(t, consumer.Element, taskC)

	order := topologicalSort([]*PeriodicTask{taskC, taskB, taskA}, nil)
	require.Equal(t, []*PeriodicTask{taskA, taskB, taskC}, order)
}

func TestTopologicalSort_BreaksCycleDeterministicallyAndWarns(t *testing.T) {
	root := element.New("runtime")
	aAgg := port.NewEdgeAggregator("a-if", element.LockOrderLeafPortGroup)
	require.NoError(t, root.AddChild(aAgg.Element))
	bAgg := port.NewEdgeAggregator("b-if", element.LockOrderLeafPortGroup)
	require.NoError(t, root.AddChild(bAgg.Element))

	aOut := port.NewPort[int]("out", aAgg, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	aIn := port.NewPort[int]("in", aAgg, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	bOut := port.NewPort[int]("out", bAgg, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	bIn := port.NewPort[int]("in", bAgg, 4, func() int { return 0 }, port.StrategyPushLatest, 0, false)
	require.NoError(t, aOut.Connect(bIn, false))
	require.NoError(t, bOut.Connect(aIn, false))

	a := &PeriodicTask{Outgoing: []*port.EdgeAggregator{aAgg}}
	attachTask(t, aAgg.Element, a)
	b := &PeriodicTask{Outgoing: []*port.EdgeAggregator{bAgg}}
	attachTask(t, bAgg.Element, b)

	var cycleWarnings []string
	order := topologicalSort([]*PeriodicTask{a, b}, func(pt *PeriodicTask) {
		cycleWarnings = append(cycleWarnings, taskName(pt))
	})
	require.Len(t, order, 2)
	require.Equal(t, a, order[0], "cycle break picks the lowest-index remaining task")
	require.NotEmpty(t, cycleWarnings)
}

func TestContainer_RunsCycleAndUpdatesLastDuration(t *testing.T) {
	root := element.New("runtime")
	c := NewContainer("container", element.LockOrderRuntimeRoot, 5*time.Millisecond, nil)
	require.NoError(t, root.AddChild(c.Element))

	var mu sync.Mutex
	var ran []string

	e1 := element.NewChild("task-1", element.LockOrderLeafGroup)
	require.NoError(t, c.Element.AddChild(e1))
	t1 := &PeriodicTask{Run: func(context.Context) {
		mu.Lock()
		ran = append(ran, "task-1")
		mu.Unlock()
	}}
	attachTask(t, e1, t1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = c.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, ran)
}

func TestContainer_RunCycleCompletesAndRecordsDuration(t *testing.T) {
	root := element.New("runtime")
	c := NewContainer("container", element.LockOrderRuntimeRoot, time.Millisecond, nil)
	require.NoError(t, root.AddChild(c.Element))

	e1 := element.NewChild("slow-task", element.LockOrderLeafGroup)
	require.NoError(t, c.Element.AddChild(e1))
	started := make(chan struct{})
	release := make(chan struct{})
	t1 := &PeriodicTask{Run: func(context.Context) {
		close(started)
		<-release
	}}
	attachTask(t, e1, t1)

	done := make(chan struct{})
	go func() {
		c.runCycle(context.Background())
		close(done)
	}()

	<-started
	close(release)
	<-done
	require.True(t, c.LastCycleDuration() >= 0)
}

func TestSupervisor_StopsAllOnContextCancel(t *testing.T) {
	c1 := NewContainer("c1", element.LockOrderRuntimeRoot, time.Millisecond, nil)
	c2 := NewContainer("c2", element.LockOrderRuntimeRoot, time.Millisecond, nil)
	sup := NewSupervisor(c1, c2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := sup.Run(ctx)
	require.NoError(t, err)
}
