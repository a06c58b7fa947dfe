// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the thread-container scheduler: a
// periodic loop that, on every structural change under it, rebuilds a
// task dependency graph by tracing aggregated edges through
// pass-through interfaces, topologically sorts it (breaking any
// remaining cycle deterministically), and then runs each cycle's
// tasks in that order under a per-cycle watchdog.
package scheduler
