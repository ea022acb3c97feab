// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/reqresp/componenttest"
)

func TestListCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"list"})
	if err := root.Execute(); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, test := range componenttest.Tests() {
		if !strings.Contains(out.String(), componenttest.ServiceName(test.Name())) {
			t.Fatalf("list output %q lacks %s", out.String(), test.Name())
		}
	}
}

func TestRunUnknownTest(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "missing"})
	if err := root.Execute(); err == nil {
		t.Fatal("run of an unknown test succeeded")
	}
}

// TestRunCompletes runs every component test without any outside client.
func TestRunCompletes(t *testing.T) {
	skipRace(t)
	t.Setenv("REQRESP_LOG_LEVEL", "error")
	root := newRootCommand()
	root.SetArgs([]string{"run", "--refresh", "1ms"})

	done := make(chan error, 1)
	go func() { done <- root.Execute() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
}
