// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package environment

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/finroc/finroc-go/element"
)

// defaultMaxElements matches the original's tCoreRegister default
// capacity (spec.md §6: "--max-ports=<2..16,777,216>", default
// documented there as 65535).
const (
	defaultMaxElements = 65535
	minRegisterSize    = 2
	maxRegisterSize    = 0x1000000 // 16777216, per spec.md §6
)

// Environment is the process-wide runtime environment: the root of
// the framework-element tree, plus the two capacity limits and the
// globally-unique-link name claim table that the original enforces in
// its core register and tree filter. Grounded on
// default_main_wrapper.cpp's RuntimeEnvironment/tCoreRegister usage.
type Environment struct {
	Root *element.Element

	maxElements atomic.Int64
	maxPorts    atomic.Int64

	elementCount atomic.Int64
	portCount    atomic.Int64

	uniqueMu    sync.Mutex
	uniqueNames map[string]*element.Element
}

// New creates a runtime environment with an unattached root element
// and the original's default capacity limits.
func New() *Environment {
	env := &Environment{
		Root:        element.New("runtime"),
		uniqueNames: make(map[string]*element.Element),
	}
	env.maxElements.Store(defaultMaxElements)
	env.maxPorts.Store(defaultMaxElements)
	return env
}

var (
	instance     *Environment
	instanceOnce sync.Once
)

// GetInstance returns the process-wide singleton environment, creating
// it on first call (mirrors tRuntimeEnvironment::GetInstance()).
func GetInstance() *Environment {
	instanceOnce.Do(func() { instance = New() })
	return instance
}

// SetMaxElements bounds the number of non-port framework elements this
// environment will accept. n must be within [2, 16777216] (spec.md §6).
func (env *Environment) SetMaxElements(n int) error {
	if n < minRegisterSize || n > maxRegisterSize {
		return fmt.Errorf("environment: max-elements %d out of range [%d, %d]", n, minRegisterSize, maxRegisterSize)
	}
	env.maxElements.Store(int64(n))
	return nil
}

// SetMaxPorts bounds the number of ports this environment will accept.
// n must be within [2, 16777216] (spec.md §6).
func (env *Environment) SetMaxPorts(n int) error {
	if n < minRegisterSize || n > maxRegisterSize {
		return fmt.Errorf("environment: max-ports %d out of range [%d, %d]", n, minRegisterSize, maxRegisterSize)
	}
	env.maxPorts.Store(int64(n))
	return nil
}

// AddChild attaches child under parent, enforcing this environment's
// element/port capacity and, for elements flagged
// FlagGloballyUniqueLink, claiming a process-wide unique qualified
// name (spec.md §5 shared-resource policy;
// FlagGloballyUniqueLink per spec.md §3).
func (env *Environment) AddChild(parent, child *element.Element) error {
	isPort := child.HasFlag(element.FlagPort)
	if isPort {
		if env.portCount.Load() >= env.maxPorts.Load() {
			return fmt.Errorf("environment: maximum number of ports (%d) exceeded", env.maxPorts.Load())
		}
	} else if env.elementCount.Load() >= env.maxElements.Load() {
		return fmt.Errorf("environment: maximum number of framework elements (%d) exceeded", env.maxElements.Load())
	}

	if err := parent.AddChild(child); err != nil {
		return err
	}

	if isPort {
		env.portCount.Add(1)
	} else {
		env.elementCount.Add(1)
	}

	if child.HasFlag(element.FlagGloballyUniqueLink) {
		if err := env.claimUniqueName(child); err != nil {
			return err
		}
	}
	return nil
}

// claimUniqueName registers child's qualified name as process-wide
// unique, failing if another element already claimed it (spec.md §6:
// "globally-unique-link elements must produce a name unique across
// the process").
func (env *Environment) claimUniqueName(child *element.Element) error {
	env.uniqueMu.Lock()
	defer env.uniqueMu.Unlock()
	name := child.GetQualifiedName()
	if existing, ok := env.uniqueNames[name]; ok && existing != child {
		return fmt.Errorf("environment: qualified name %q is not globally unique (claimed by %s, %s)",
			name, existing.DiagnosticUID, child.DiagnosticUID)
	}
	env.uniqueNames[name] = child
	return nil
}

// ElementCount returns the number of non-port elements currently
// registered, for diagnostics.
func (env *Environment) ElementCount() int { return int(env.elementCount.Load()) }

// PortCount returns the number of ports currently registered, for
// diagnostics.
func (env *Environment) PortCount() int { return int(env.portCount.Load()) }

// Shutdown tears down the whole element tree rooted at env.Root
// (mirrors tRuntimeEnvironment::Shutdown(), called once from main
// after the run loop returns).
func (env *Environment) Shutdown() {
	env.Root.ManagedDelete()
}
