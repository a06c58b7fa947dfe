// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diagnostics exposes a read-only HTTP status endpoint over
// scheduler and type-registry state: each thread container's current
// task order and retained watchdog alerts, plus the registry's type
// count. It is distinct from the finstruct admin-RPC protocol, which
// is out of scope for this runtime.
package diagnostics
