// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import "testing"

func TestListOf_CreatesOnFirstUse(t *testing.T) {
	r := NewRegistry()
	elem, err := r.GetOrRegister("Elem", KindStandard, 8, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, err := r.ListOf(elem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Kind != KindList {
		t.Fatalf("list.Kind = %v, want KindList", list.Kind)
	}
	if list.ElementUID != elem.UID {
		t.Fatalf("list.ElementUID = %d, want %d", list.ElementUID, elem.UID)
	}
}

func TestListOf_CachesResult(t *testing.T) {
	r := NewRegistry()
	elem, _ := r.GetOrRegister("Elem", KindStandard, 8, 0, nil)
	a, err := r.ListOf(elem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := r.ListOf(elem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("ListOf should return the same descriptor on repeated calls")
	}
}

func TestGenericList_AppendAndAt(t *testing.T) {
	l := newGenericList(7)
	l.Append("a")
	l.Append("b")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if l.At(0) != "a" || l.At(1) != "b" {
		t.Fatalf("unexpected contents: %v, %v", l.At(0), l.At(1))
	}
	if l.ElementUID() != 7 {
		t.Fatalf("ElementUID() = %d, want 7", l.ElementUID())
	}
}
