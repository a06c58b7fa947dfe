// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/finroc/finroc-go/element"
)

// Container is a thread container: a framework element with a loop
// thread that owns an execution period, rebuilds its task schedule on
// structural change, and runs one cycle of tasks per period under a
// watchdog (spec.md §4.6). Grounded on
// original_source/thread/tThreadContainerThread.cpp.
type Container struct {
	*element.Element

	control *ExecutionControl
	period  time.Duration

	// DebugBuild selects the watchdog's alert behavior: abort the
	// process (debug) or log and continue (release), per spec.md §4.6
	// and §7 ("Watchdog alert ... aborts in debug builds, continues in
	// release").
	DebugBuild bool

	logger *log.Logger

	rebuildMu    sync.Mutex
	needsRebuild atomic.Bool
	order        []*PeriodicTask

	lastCycleDuration atomic.Int64 // nanoseconds
	currentTask       atomic.Pointer[PeriodicTask]

	alertsMu sync.Mutex
	alerts   []string
}

// maxRetainedAlerts bounds the in-memory watchdog alert history
// exposed to the diagnostics endpoint.
const maxRetainedAlerts = 50

// NewContainer creates a thread container named name, owning period as
// its execution period. logger defaults to log.Default() if nil.
func NewContainer(name string, lockOrder element.LockOrder, period time.Duration, logger *log.Logger) *Container {
	if logger == nil {
		logger = log.Default()
	}
	c := &Container{
		Element: element.NewChild(name, lockOrder),
		period:  period,
		logger:  logger.With("container", name),
	}
	c.control = &ExecutionControl{Container: c}
	if err := c.Element.AddAnnotation(c.control); err != nil {
		panic(err)
	}
	c.needsRebuild.Store(true)
	return c
}

// TriggerReschedule marks the container's schedule stale. Adding or
// removing an element under the container does not call it: the
// schedule is built before the first cycle and rebuilt only after a
// call to this method. The rebuild itself happens lazily, right before
// the next cycle, under the registry lock.
func (c *Container) TriggerReschedule() {
	c.needsRebuild.Store(true)
}

// rebuildIfNeeded rebuilds the cycle's task order under the registry
// lock if a structural change was observed since the last build.
func (c *Container) rebuildIfNeeded() {
	if !c.needsRebuild.Load() {
		return
	}
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()
	if !c.needsRebuild.Load() {
		return
	}

	element.RegistryLock.Lock()
	defer element.RegistryLock.Unlock()

	c.order = schedule(c.Element, c.control, func(t *PeriodicTask) {
		c.logger.Warn("task dependency cycle broken by order of discovery", "task", taskName(t))
	})
	c.needsRebuild.Store(false)
}

// LastCycleDuration returns the wall-clock duration of the most
// recently completed cycle.
func (c *Container) LastCycleDuration() time.Duration {
	return time.Duration(c.lastCycleDuration.Load())
}

// TaskOrder returns the qualified names of the container's current
// cycle task order, exposed for the diagnostics endpoint.
func (c *Container) TaskOrder() []string {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()
	names := make([]string, len(c.order))
	for i, t := range c.order {
		names[i] = taskName(t)
	}
	return names
}

// recordAlert appends a watchdog alert description to the bounded
// in-memory history.
func (c *Container) recordAlert(description string) {
	c.alertsMu.Lock()
	defer c.alertsMu.Unlock()
	c.alerts = append(c.alerts, description)
	if len(c.alerts) > maxRetainedAlerts {
		c.alerts = c.alerts[len(c.alerts)-maxRetainedAlerts:]
	}
}

// Alerts returns a snapshot of the container's retained watchdog
// alerts, most recent last.
func (c *Container) Alerts() []string {
	c.alertsMu.Lock()
	defer c.alertsMu.Unlock()
	out := make([]string, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// runCycle rebuilds the schedule if needed, then invokes every task's
// callback in order under a watchdog deadline of 4x the last cycle's
// duration plus one second (spec.md §4.6: "record last-cycle duration
// into a status port, arm the watchdog with a deadline of 4x
// cycle-time + 1s, invoke each task's callback in order, disarm the
// watchdog").
func (c *Container) runCycle(ctx context.Context) {
	c.rebuildIfNeeded()

	start := time.Now()
	deadline := 4*c.LastCycleDuration() + time.Second

	alert := make(chan struct{})
	timer := time.AfterFunc(deadline, func() { close(alert) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, t := range c.order {
			c.currentTask.Store(t)
			t.Run(ctx)
		}
		c.currentTask.Store(nil)
	}()

	select {
	case <-done:
		timer.Stop()
	case <-alert:
		c.watchdogFire()
		<-done
	}

	c.lastCycleDuration.Store(int64(time.Since(start)))
}

// watchdogFire is invoked when a cycle exceeds its deadline. It dumps
// the stuck task's qualified name and either aborts the process
// (debug builds) or logs and continues (release builds), per spec.md
// §4.6 and §7.
func (c *Container) watchdogFire() {
	stuck := c.currentTask.Load()
	name := "<unknown>"
	if stuck != nil {
		name = taskName(stuck)
	}
	c.logger.Error("watchdog deadline exceeded", "task", name, "container", c.GetQualifiedName())
	c.recordAlert(fmt.Sprintf("watchdog deadline exceeded: task=%s container=%s", name, c.GetQualifiedName()))
	if c.DebugBuild {
		fmt.Fprintf(os.Stderr, "fatal: watchdog deadline exceeded in task %s\n", name)
		os.Exit(1)
	}
}

// Run executes the container's cycle loop until ctx is cancelled,
// sleeping for the remainder of each period between cycles. It returns
// nil on clean cancellation.
func (c *Container) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

// Supervisor runs a fixed set of containers concurrently, joining
// their errors via golang.org/x/sync/errgroup so that one container's
// unrecoverable error cancels every other container's context (spec.md
// §5: "Multiple OS threads execute in parallel: one per thread
// container ... Cancellation ... process-wide shutdown ... sets a
// shutdown flag observed by all loop threads").
type Supervisor struct {
	containers []*Container
}

// NewSupervisor creates a Supervisor over containers.
func NewSupervisor(containers ...*Container) *Supervisor {
	return &Supervisor{containers: containers}
}

// Run starts every container's loop and blocks until ctx is cancelled
// or one container's loop returns an error.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.containers {
		c := c
		g.Go(func() error { return c.Run(gctx) })
	}
	return g.Wait()
}
