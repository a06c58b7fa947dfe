// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtti

import "testing"

func TestRemoteTypeTable_LoadEntriesResolvesLocalMatch(t *testing.T) {
	r := NewRegistry()
	local, _ := r.GetOrRegister("Matrix3x3", KindStandard, 36, 0, nil)

	table := NewRemoteTypeTable(r)
	table.LoadEntries([]RemoteTypeEntry{
		{RemoteUID: 900, Name: "Matrix3x3"},
		{RemoteUID: 901, Name: "UnknownOnThisSide"},
	})

	if got := table.LocalType(900); got != local {
		t.Fatalf("LocalType(900) = %+v, want %+v", got, local)
	}
	if got := table.LocalType(901); got != nil {
		t.Fatalf("LocalType(901) = %+v, want nil", got)
	}
	if got := table.LocalType(555); got != nil {
		t.Fatalf("LocalType on unknown remote uid should return nil, got %+v", got)
	}
}

func TestEncodeLocalTypes_RoundTripsThroughAnotherTable(t *testing.T) {
	src := NewRegistry()
	src.GetOrRegister("A", KindStandard, 0, 0, nil)
	src.GetOrRegister("B", KindCheapCopy, 4, 0, nil)

	entries := EncodeLocalTypes(src)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	dst := NewRegistry()
	dstA, _ := dst.GetOrRegister("A", KindStandard, 0, 0, nil)

	table := NewRemoteTypeTable(dst)
	table.LoadEntries(entries)

	var found bool
	for _, e := range entries {
		if e.Name == "A" {
			if table.LocalType(e.RemoteUID) != dstA {
				t.Fatalf("LocalType(%d) did not resolve to the local A descriptor", e.RemoteUID)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("encoded entries did not include %q", "A")
	}
}
