// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package environment

import (
	"testing"

	"github.com/finroc/finroc-go/element"
)

func TestSetMaxElements_RejectsOutOfRange(t *testing.T) {
	env := New()
	if err := env.SetMaxElements(1); err == nil {
		t.Fatal("expected error for max-elements below 2")
	}
	if err := env.SetMaxElements(0x1000001); err == nil {
		t.Fatal("expected error for max-elements above 16777216")
	}
	if err := env.SetMaxElements(1000); err != nil {
		t.Fatalf("SetMaxElements(1000): %v", err)
	}
}

func TestAddChild_EnforcesElementCapacity(t *testing.T) {
	env := New()
	if err := env.SetMaxElements(2); err != nil {
		t.Fatalf("SetMaxElements: %v", err)
	}

	a := element.NewChild("a", element.LockOrderLeafGroup)
	b := element.NewChild("b", element.LockOrderLeafGroup)
	c := element.NewChild("c", element.LockOrderLeafGroup)

	if err := env.AddChild(env.Root, a); err != nil {
		t.Fatalf("AddChild a: %v", err)
	}
	if err := env.AddChild(env.Root, b); err != nil {
		t.Fatalf("AddChild b: %v", err)
	}
	if err := env.AddChild(env.Root, c); err == nil {
		t.Fatal("expected capacity error adding a third element")
	}
	if env.ElementCount() != 2 {
		t.Fatalf("ElementCount() = %d, want 2", env.ElementCount())
	}
}

func TestAddChild_PortsAndElementsCountedSeparately(t *testing.T) {
	env := New()
	if err := env.SetMaxPorts(1); err != nil {
		t.Fatalf("SetMaxPorts: %v", err)
	}

	port := element.NewChild("port", element.LockOrderPort)
	port.SetFlag(element.FlagPort)
	group := element.NewChild("group", element.LockOrderLeafGroup)

	if err := env.AddChild(env.Root, port); err != nil {
		t.Fatalf("AddChild port: %v", err)
	}
	if err := env.AddChild(env.Root, group); err != nil {
		t.Fatalf("AddChild group should not be capped by max-ports: %v", err)
	}
	if env.PortCount() != 1 || env.ElementCount() != 1 {
		t.Fatalf("PortCount=%d ElementCount=%d, want 1 and 1", env.PortCount(), env.ElementCount())
	}
}

func TestAddChild_RejectsDuplicateGloballyUniqueLinkName(t *testing.T) {
	env := New()

	a := element.NewChild("shared", element.LockOrderLeafGroup)
	a.SetFlag(element.FlagGloballyUniqueLink)
	if err := env.AddChild(env.Root, a); err != nil {
		t.Fatalf("AddChild a: %v", err)
	}

	b := element.NewChild("shared", element.LockOrderLeafGroup)
	b.SetFlag(element.FlagGloballyUniqueLink)
	if err := env.AddChild(env.Root, b); err == nil {
		t.Fatal("expected a second element with the same globally-unique-link name to be rejected")
	}
}

func TestGetInstance_ReturnsSameSingleton(t *testing.T) {
	a := GetInstance()
	b := GetInstance()
	if a != b {
		t.Fatal("GetInstance() returned different environments")
	}
}
