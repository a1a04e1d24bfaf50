// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptyterm/ptyterm_test.go
// Summary: Exercises Backend against real shell processes and sink pipes.

package ptyterm

import (
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/termstack/termstack/stack"
)

type recordingSink struct {
	mu    sync.Mutex
	lines map[stack.TerminalID]int
	exits map[stack.TerminalID]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{lines: make(map[stack.TerminalID]int), exits: make(map[stack.TerminalID]bool)}
}

func (s *recordingSink) OnLine(id stack.TerminalID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[id]++
}

func (s *recordingSink) OnAltScreenEnter(stack.TerminalID) {}
func (s *recordingSink) OnAltScreenExit(stack.TerminalID)  {}

func (s *recordingSink) OnExit(id stack.TerminalID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exits[id] = true
}

func (s *recordingSink) lineCount(id stack.TerminalID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[id]
}

func (s *recordingSink) exited(id stack.TerminalID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exits[id]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestSpawnShellReportsLinesAndExit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	sink := newRecordingSink()
	b := NewBackend(sink)

	id, err := b.SpawnShell(nil, "", "printf 'one\\ntwo\\nthree\\n'")
	if err != nil {
		t.Fatalf("SpawnShell: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return sink.lineCount(id) >= 3 })
	waitFor(t, 3*time.Second, func() bool { return sink.exited(id) })
}

func TestSpawnSinkParsesWrittenBytesIntoLines(t *testing.T) {
	sink := newRecordingSink()
	b := NewBackend(sink)

	id, w, err := b.SpawnSink()
	if err != nil {
		t.Fatalf("SpawnSink: %v", err)
	}

	for i := 0; i < 3; i++ {
		fmt.Fprintf(w, "line %d\n", i)
	}
	if err := b.Close(id); err != nil {
		t.Fatalf("Close: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return sink.lineCount(id) >= 3 })
}

func TestResizeUnknownTerminalFails(t *testing.T) {
	b := NewBackend(newRecordingSink())
	if err := b.Resize("nonexistent", 24, 80); err == nil {
		t.Fatal("expected error resizing unknown terminal")
	}
}

func TestResizeOnSinkTerminalIsNoOp(t *testing.T) {
	b := NewBackend(newRecordingSink())
	id, _, err := b.SpawnSink()
	if err != nil {
		t.Fatalf("SpawnSink: %v", err)
	}
	if err := b.Resize(id, 24, 80); err != nil {
		t.Fatalf("Resize on sink terminal should be a no-op, got: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	sink := newRecordingSink()
	b := NewBackend(sink)

	id, err := b.SpawnShell(nil, "", "sleep 5")
	if err != nil {
		t.Fatalf("SpawnShell: %v", err)
	}
	if err := b.Close(id); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := b.Close(id); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
