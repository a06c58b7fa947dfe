// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"
	"time"

	"github.com/finroc/finroc-go/element"
	"github.com/finroc/finroc-go/rtti"
	"github.com/finroc/finroc-go/scheduler"
)

func TestClassifySigint_FirstStopsRestWarnFifthAborts(t *testing.T) {
	cases := []struct {
		count int
		want  sigintAction
	}{
		{1, sigintActionStop},
		{2, sigintActionWarn},
		{3, sigintActionWarn},
		{4, sigintActionWarn},
		{5, sigintActionAbort},
		{6, sigintActionAbort},
	}
	for _, c := range cases {
		if got := classifySigint(c.count); got != c.want {
			t.Errorf("classifySigint(%d) = %v, want %v", c.count, got, c.want)
		}
	}
}

func TestCrashHandler_RecoversAndRePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected crashHandler to re-panic")
		}
		if r != "boom" {
			t.Fatalf("recovered value = %v, want boom", r)
		}
	}()

	func() {
		defer crashHandler()
		panic("boom")
	}()
}

func TestPrintPauseDump_DoesNotPanicOnEmptyState(t *testing.T) {
	c := scheduler.NewContainer("container", element.LockOrderRuntimeRoot, time.Second, nil)
	registry := rtti.NewRegistry()
	printPauseDump(c, registry)
}
