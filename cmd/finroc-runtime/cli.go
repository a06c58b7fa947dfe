// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

// cli holds the command-line flags of the default runtime entry
// point. The flag set is the one named in spec.md §6 ("CLI (from the
// default main wrapper; external)"), grounded on
// default_main_wrapper.cpp's rrlib::getopt option list and structured
// in blampe/rreading-glasses/main.go's flat embedded-struct style.
type cli struct {
	logconfig

	LogConfig    string `help:"Log config file."`
	ConfigFile   string `help:"Parameter config file."`
	Port         int    `default:"4444" help:"Network port to use."`
	Connect      string `help:"TCP address of finroc application to connect to (default: localhost:<port>)."`
	MaxPorts     int    `default:"65535" help:"Maximum number of ports. Has significant impact on memory footprint."`
	MaxElements  int    `default:"65535" help:"Maximum number of framework elements excluding ports."`
	CrashHandler string `enum:"on,off" default:"off" help:"Enable/disable crash handler."`
	Pause        bool   `help:"Pause program at startup: dump registered tasks and types and do not start the run loop."`
	NotUnique    bool   `name:"port-links-are-not-unique" help:"Port links in this part are not unique in P2P network (=> host name is prepended in GUI, for instance)."`

	Diagnostics string `name:"diagnostics-addr" help:"If set, serve the read-only diagnostics HTTP endpoint on this address (e.g. :8080)."`
}

// logconfig toggles log verbosity, mirroring
// blampe/rreading-glasses/main.go's embedded logconfig.Run pattern.
type logconfig struct {
	Verbose bool `name:"verbose" short:"v" help:"Increase log verbosity."`
}
