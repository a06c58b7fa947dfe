// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import "testing"

func TestGetOrRegister_CheapCopyUIDBand(t *testing.T) {
	r := NewRegistry()
	d, err := r.GetOrRegister("Int", KindCheapCopy, 4, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.UID >= cheapCopyUIDCeiling {
		t.Fatalf("cheap-copy type got uid %d, want < %d", d.UID, cheapCopyUIDCeiling)
	}
}

func TestGetOrRegister_StandardUIDBand(t *testing.T) {
	r := NewRegistry()
	d, err := r.GetOrRegister("SomeStruct", KindStandard, 64, 8, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.UID < cheapCopyUIDCeiling {
		t.Fatalf("standard type got uid %d, want >= %d", d.UID, cheapCopyUIDCeiling)
	}
}

func TestGetOrRegister_Idempotent(t *testing.T) {
	r := NewRegistry()
	a, err := r.GetOrRegister("Foo", KindStandard, 16, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := r.GetOrRegister("Foo", KindStandard, 16, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("re-registering the same name should return the same descriptor")
	}
}

func TestRegisterAt_ConflictDetected(t *testing.T) {
	r := NewRegistry()
	if _, err := r.RegisterAt(300, "A", KindStandard, 0, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.RegisterAt(300, "B", KindStandard, 0, 0, nil); err == nil {
		t.Fatalf("expected ErrUIDConflict registering a second name at the same uid")
	}
}

func TestLookup_UnknownUID(t *testing.T) {
	r := NewRegistry()
	if d := r.Lookup(9999); d != nil {
		t.Fatalf("expected nil descriptor for unregistered uid, got %+v", d)
	}
}

func TestMemcpySafeSize(t *testing.T) {
	d := &Descriptor{Size: 40, VTableOffset: 8}
	if got := d.MemcpySafeSize(); got != 32 {
		t.Fatalf("MemcpySafeSize() = %d, want 32", got)
	}
}

func TestCreateInstance_InvokesFactory(t *testing.T) {
	r := NewRegistry()
	d, err := r.GetOrRegister("Widget", KindCheapCopy, 4, 0, func(interThread bool) any {
		return interThread
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := r.CreateInstance(d.UID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != true {
		t.Fatalf("factory result = %v, want true", v)
	}
}

func TestCreateInstance_UnknownUID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateInstance(42, false); err != ErrUnknownUID {
		t.Fatalf("err = %v, want ErrUnknownUID", err)
	}
}
