// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"fmt"

	"github.com/finroc/finroc-go/element"
	"github.com/finroc/finroc-go/port"
)

// collectTasks walks the subtree rooted at root and returns every
// descendant's PeriodicTask annotation whose nearest execution control
// is control (spec.md §4.6 step 1). root itself is included in the
// walk so a task attached directly to the container is also found.
func collectTasks(root *element.Element, control *ExecutionControl) []*PeriodicTask {
	var tasks []*PeriodicTask
	var walk func(e *element.Element)
	walk = func(e *element.Element) {
		if t := findPeriodicTask(e); t != nil && findExecutionControl(e) == control {
			tasks = append(tasks, t)
		}
		for _, c := range e.Children() {
			walk(c)
		}
	}
	walk(root)
	return tasks
}

// partitionSenseFirst reorders tasks so every sense-phase task precedes
// every other task, preserving relative order within each group
// (spec.md §4.6 step 1: "concatenate with sense first").
func partitionSenseFirst(tasks []*PeriodicTask) []*PeriodicTask {
	ordered := make([]*PeriodicTask, 0, len(tasks))
	for _, t := range tasks {
		if t.SensePhase {
			ordered = append(ordered, t)
		}
	}
	for _, t := range tasks {
		if !t.SensePhase {
			ordered = append(ordered, t)
		}
	}
	return ordered
}

// buildDependencyEdges traces, for every task in tasks, its outgoing
// aggregated edges breadth-first through pass-through interface
// elements until reaching another task in the set (spec.md §4.6 step
// 2). It returns predecessor counts and a successor list keyed by
// task, both indexed by position in tasks.
func buildDependencyEdges(tasks []*PeriodicTask) (predecessorCount []int, successors [][]int) {
	index := make(map[*PeriodicTask]int, len(tasks))
	for i, t := range tasks {
		index[t] = i
	}

	predecessorCount = make([]int, len(tasks))
	successors = make([][]int, len(tasks))

	for i, t := range tasks {
		for _, succIdx := range traceSuccessors(t, index) {
			successors[i] = append(successors[i], succIdx)
			predecessorCount[succIdx]++
		}
	}
	return predecessorCount, successors
}

// traceSuccessors performs the breadth-first trace for a single task
// and returns the indices (into index) of every task reached.
func traceSuccessors(t *PeriodicTask, index map[*PeriodicTask]int) []int {
	var found []int
	visited := make(map[*port.EdgeAggregator]bool)
	queue := append([]*port.EdgeAggregator(nil), t.Outgoing...)
	for _, a := range t.Outgoing {
		visited[a] = true
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, edge := range cur.OutgoingEdges() {
			dst := edge.Destination
			if dstTask := findPeriodicTask(dst.Element); dstTask != nil {
				if idx, ok := index[dstTask]; ok && dstTask != t {
					found = append(found, idx)
					continue
				}
			}
			if !visited[dst] {
				visited[dst] = true
				queue = append(queue, dst)
			}
		}
	}
	return found
}

// topologicalSort orders tasks so every predecessor precedes its
// successors, repeatedly picking the lowest-index remaining task with
// no outstanding predecessors (spec.md §4.6 step 3). If a cycle
// remains once no zero-predecessor task is left, it picks the
// lowest-index remaining task, reports it via onCycle, and continues —
// breaking the cycle deterministically by order of discovery.
func topologicalSort(tasks []*PeriodicTask, onCycle func(t *PeriodicTask)) []*PeriodicTask {
	predecessorCount, successors := buildDependencyEdges(tasks)
	remaining := make([]bool, len(tasks))
	for i := range remaining {
		remaining[i] = true
	}

	order := make([]*PeriodicTask, 0, len(tasks))
	remainingCount := len(tasks)

	for remainingCount > 0 {
		pick := -1
		for i, r := range remaining {
			if r && predecessorCount[i] == 0 {
				pick = i
				break
			}
		}
		if pick == -1 {
			for i, r := range remaining {
				if r {
					pick = i
					break
				}
			}
			if onCycle != nil {
				onCycle(tasks[pick])
			}
		}

		remaining[pick] = false
		remainingCount--
		order = append(order, tasks[pick])
		for _, s := range successors[pick] {
			predecessorCount[s]--
		}
	}
	return order
}

// schedule runs the full scheduling steps (spec.md §4.6 steps 1-3) for
// container, returning the cycle's task execution order.
func schedule(root *element.Element, control *ExecutionControl, onCycle func(t *PeriodicTask)) []*PeriodicTask {
	tasks := partitionSenseFirst(collectTasks(root, control))
	return topologicalSort(tasks, onCycle)
}

func taskName(t *PeriodicTask) string {
	if t.element == nil {
		return fmt.Sprintf("<unattached task %p>", t)
	}
	return t.element.GetQualifiedName()
}
