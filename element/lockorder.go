// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package element

import "math"

// LockOrder is a class of structural lock ordering, used so that code
// taking more than one per-element lock at a time can assert a
// consistent nesting order and avoid deadlock. Grounded on
// original_source/tLockOrderLevels.h.
type LockOrder int

const (
	// LockOrderFirst is locked before everything else.
	LockOrderFirst LockOrder = 0
	// LockOrderRuntimeRoot is a group that will not contain any other
	// (unknown) groups.
	LockOrderRuntimeRoot LockOrder = 100000
	// LockOrderLeafGroup is a group that will not contain any other
	// groups.
	LockOrderLeafGroup LockOrder = 200000
	// LockOrderLeafPortGroup is a port group that contains only ports.
	LockOrderLeafPortGroup LockOrder = 300000
	// LockOrderPort is the level used by ports themselves.
	LockOrderPort LockOrder = 400000
	// LockOrderRemoteLinking is links to elements in a remote runtime.
	LockOrderRemoteLinking LockOrder = 500000
	// LockOrderRemote is elements representing a remote runtime.
	LockOrderRemote LockOrder = 500000
	// LockOrderRemotePort is remote-runtime ports.
	LockOrderRemotePort LockOrder = 600000
	// LockOrderRuntimeRegister is the top-level runtime register.
	LockOrderRuntimeRegister LockOrder = 800000
	// LockOrderInnerMost is the innermost level any lock may claim.
	LockOrderInnerMost LockOrder = math.MaxInt32 - 10
)
