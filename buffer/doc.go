// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package buffer implements the runtime's typed buffer pools and the
// banked reference counter used to track how many subscribers still
// hold a published value.
//
// # Banked reference counter
//
// Every buffer carries four atomic lock counters ("banks") plus a
// reuse counter. The active bank is reuseCounter mod 4. A bank stores
// locks-1, so -1 means unlocked; this lets a single atomic add serve
// both AddLock and the lock-estimate/assign sequence used on the
// publish path (see port.Port.Publish). Recycling a buffer increments its
// reuse counter, so a lock attempt made against a stale reference lands
// on a bank that has already reached -1 and is rejected without
// corrupting the live bank.
//
// # Pool
//
// Pool[T] hands out buffers via GetUnused, which pulls a free index
// from a lock-free MPMC free list (the same algorithm as the teacher's
// BoundedPool) and grows the backing array on demand the first time the
// free list runs dry. Buffers are returned to the free list
// automatically the moment their active bank's lock count reaches -1.
package buffer
