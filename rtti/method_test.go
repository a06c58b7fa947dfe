// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import (
	"testing"
	"time"
)

func TestRegisterInterface_AndMethodByIndex(t *testing.T) {
	r := NewRegistry()
	methods := []Method{
		{Name: "Get", Index: 0, Arity: 0},
		{Name: "Set", Index: 1, Arity: 1, DefaultNetTimeout: 500 * time.Millisecond},
	}
	d, err := r.RegisterInterface("Storage", methods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := d.MethodByIndex(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "Set" || m.Arity != 1 {
		t.Fatalf("unexpected method: %+v", m)
	}
}

func TestMethodByIndex_OutOfRange(t *testing.T) {
	r := NewRegistry()
	d, _ := r.RegisterInterface("Empty", nil)
	if _, err := d.MethodByIndex(0); err == nil {
		t.Fatalf("expected error for out-of-range method index")
	}
}

func TestMethodByIndex_WrongKind(t *testing.T) {
	r := NewRegistry()
	d, _ := r.GetOrRegister("NotAnInterface", KindStandard, 0, 0, nil)
	if _, err := d.MethodByIndex(0); err == nil {
		t.Fatalf("expected error when type is not a method/interface type")
	}
}
