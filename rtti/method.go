// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import (
	"fmt"
	"time"
)

// Method describes one callable method exposed by a port-interface
// (method/interface) type (spec.md §4.1: "carry the set of methods they
// expose (name, index, parameter arity, handle-in-extra-thread flag,
// default network timeout)"). Grounded on
// original_source/port/rpc/method/tAbstractMethod.h.
type Method struct {
	Name  string
	Index int
	// Arity is the number of parameters this method accepts, 0-4
	// (original_source/port/rpc/method/tPort4Method.hpp is the widest
	// variant kept by the original).
	Arity int
	// HandleInExtraThread requests dispatch mode 2 (local, extra
	// thread) rather than in-caller-thread execution (spec.md §4.5).
	HandleInExtraThread bool
	// DefaultNetTimeout is applied to a remote synchronous call for
	// this method when the caller does not override it (spec.md §3,
	// Method Call: "optional network timeout").
	DefaultNetTimeout time.Duration
}

// RegisterInterface registers a method/interface (port-interface) type
// under name with the given method set, or returns the existing
// descriptor if name is already registered.
func (r *Registry) RegisterInterface(name string, methods []Method) (*Descriptor, error) {
	d, err := r.GetOrRegister(name, KindMethod, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	if len(d.Methods) == 0 && len(methods) > 0 {
		r.mu.Lock()
		d.Methods = methods
		r.mu.Unlock()
	}
	return d, nil
}

// MethodByIndex returns the method at idx within d's method set.
func (d *Descriptor) MethodByIndex(idx int) (Method, error) {
	if d.Kind != KindMethod {
		return Method{}, fmt.Errorf("rtti: %q is not a method/interface type", d.Name)
	}
	if idx < 0 || idx >= len(d.Methods) {
		return Method{}, fmt.Errorf("rtti: method index %d out of range for %q", idx, d.Name)
	}
	return d.Methods[idx], nil
}
