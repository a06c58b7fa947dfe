// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command finroc-runtime is the default runtime entry point: it boots
// a process-wide environment, loads the parameter config file if one
// was given, builds a thread container running the registered
// periodic tasks, and optionally serves the read-only diagnostics
// HTTP endpoint — all per spec.md §6's CLI contract. Grounded on
// default_main_wrapper.cpp (flag semantics, SIGINT-abort counting) and
// blampe/rreading-glasses/main.go (kong command structure,
// charmbracelet/log verbosity wiring).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/finroc/finroc-go/config"
	"github.com/finroc/finroc-go/diagnostics"
	"github.com/finroc/finroc-go/element"
	"github.com/finroc/finroc-go/environment"
	"github.com/finroc/finroc-go/rtti"
	"github.com/finroc/finroc-go/scheduler"
	"github.com/finroc/finroc-go/telemetry"
)

var logger = log.Default()

// maxSigints is the number of SIGINTs the process tolerates before
// aborting instead of continuing a graceful shutdown (spec.md §6:
// "five SIGINTs abort"; default_main_wrapper.cpp's HandleSignalSIGINT).
const maxSigints = 5

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("finroc-runtime"),
		kong.Description("Finroc thread-container runtime."))

	if c.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if c.CrashHandler == "on" {
		defer crashHandler()
	}

	env := environment.GetInstance()
	if err := env.SetMaxPorts(c.MaxPorts); err != nil {
		logger.Error(err.Error())
	}
	if err := env.SetMaxElements(c.MaxElements); err != nil {
		logger.Error(err.Error())
	}

	if c.ConfigFile != "" {
		cf, err := config.LoadConfigFile(c.ConfigFile)
		if err != nil {
			logger.Error("could not load config file", "file", c.ConfigFile, "err", err)
		} else {
			logger.Debug("loaded config file", "file", c.ConfigFile)
			if err := env.Root.AddAnnotation(cf); err != nil {
				logger.Error("could not attach config file", "err", err)
			}
		}
	}

	connectTo := c.Connect
	if connectTo == "" {
		connectTo = fmt.Sprintf("localhost:%d", c.Port)
	}
	logger.Debug("network configuration", "listen_port", c.Port, "connect", connectTo, "links_unique", !c.NotUnique)

	ctx, stop := context.WithCancel(context.Background())

	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		logger.Error("telemetry init failed, continuing without export", "err", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(sctx)
	}()

	mainThread := scheduler.NewContainer("Main Thread", element.LockOrderRuntimeRoot, time.Second, logger)
	if !c.NotUnique {
		// Port links in this runtime are unique in the P2P network by
		// default; --port-links-are-not-unique opts out (spec.md §6).
		mainThread.SetFlag(element.FlagGloballyUniqueLink)
	}
	if err := env.AddChild(env.Root, mainThread.Element); err != nil {
		logger.Error("could not attach main thread container", "err", err)
		os.Exit(1)
	}
	env.Root.Init()

	registry := rtti.Default()
	status := &diagnostics.Status{Containers: []*scheduler.Container{mainThread}, Registry: registry}

	var diagServer *http.Server
	if c.Diagnostics != "" {
		diagServer = &http.Server{Addr: c.Diagnostics, Handler: diagnostics.NewRouter(status)}
		go func() {
			logger.Info("serving diagnostics endpoint", "addr", c.Diagnostics)
			if err := diagServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("diagnostics server stopped", "err", err)
			}
		}()
	}

	if c.Pause {
		printPauseDump(mainThread, registry)
		logger.Info("paused at startup, not starting run loop; see --pause in help for details")
	} else {
		supervisor := scheduler.NewSupervisor(mainThread)
		go func() {
			if err := supervisor.Run(ctx); err != nil {
				logger.Error("supervisor stopped with error", "err", err)
			}
		}()
	}

	waitForShutdown(stop)

	if diagServer != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = diagServer.Shutdown(sctx)
		cancel()
	}
	env.Shutdown()
	logger.Debug("left main loop")
}

// waitForShutdown blocks until the first SIGINT arrives, then calls
// stop and returns. Further SIGINTs keep being counted in the
// background while shutdown proceeds: the second to fourth log a
// warning and the fifth aborts the process, per spec.md §6 and
// default_main_wrapper.cpp's HandleSignalSIGINT.
func waitForShutdown(stop context.CancelFunc) {
	sigCh := make(chan os.Signal, maxSigints)
	signal.Notify(sigCh, syscall.SIGINT)

	first := make(chan struct{})
	go func() {
		count := 0
		for sig := range sigCh {
			count++
			switch classifySigint(count) {
			case sigintActionStop:
				logger.Info("caught SIGINT, exiting", "signal", sig)
				stop()
				close(first)
			case sigintActionWarn:
				logger.Warn("caught SIGINT again, program still hasn't terminated; will abort at the fifth signal", "count", count)
			case sigintActionAbort:
				logger.Error("caught SIGINT for the fifth time, aborting")
				os.Exit(130)
			}
		}
	}()
	<-first
}

// sigintAction classifies the count-th SIGINT received, per spec.md
// §6 and default_main_wrapper.cpp's HandleSignalSIGINT: the first
// initiates graceful shutdown, the next three warn, the fifth aborts.
// Extracted as a pure function so the counting policy is testable
// without sending real signals.
type sigintAction int

const (
	sigintActionStop sigintAction = iota
	sigintActionWarn
	sigintActionAbort
)

func classifySigint(count int) sigintAction {
	switch {
	case count == 1:
		return sigintActionStop
	case count < maxSigints:
		return sigintActionWarn
	default:
		return sigintActionAbort
	}
}

// printPauseDump renders the container's scheduled task order and the
// type registry's contents as tables, grounded on
// giantswarm/muster/cmd's jedib0t/go-pretty table usage.
func printPauseDump(c *scheduler.Container, registry *rtti.Registry) {
	tasks := table.NewWriter()
	tasks.SetOutputMirror(os.Stdout)
	tasks.SetStyle(table.StyleRounded)
	tasks.SetTitle("scheduled tasks: " + c.GetQualifiedName())
	tasks.AppendHeader(table.Row{"#", "task"})
	for i, name := range c.TaskOrder() {
		tasks.AppendRow(table.Row{i, name})
	}
	tasks.Render()

	types := table.NewWriter()
	types.SetOutputMirror(os.Stdout)
	types.SetStyle(table.StyleRounded)
	types.SetTitle("registered types")
	types.AppendHeader(table.Row{"type count"})
	types.AppendRow(table.Row{registry.Count()})
	types.Render()
}

// crashHandler recovers an unhandled panic on the main goroutine, logs
// a stack trace, then re-panics so the process still terminates with
// a nonzero exit code — mirroring
// finroc::util::InstallCrashHandler's "log diagnostics, then crash"
// behavior (spec.md §6, default_main_wrapper.cpp's
// enable_crash_handler). It must be deferred directly in main so it is
// the last deferred call to run; like the original's signal-based
// handler it only covers the main goroutine.
func crashHandler() {
	if r := recover(); r != nil {
		logger.Error("unhandled panic", "recovered", r, "stack", string(debug.Stack()))
		panic(r)
	}
}
