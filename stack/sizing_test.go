// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/sizing_test.go
// Summary: Exercises the terminal sizing state machine's scrollback
// preservation and alternate-screen freeze behavior.

package stack

import "testing"

func TestContentRowsMonotonicAndFrozenDuringResize(t *testing.T) {
	s := NewTerminalSizing()
	s.OnConfigure(1) // pretend the PTY starts at 1 row; state stays Stable
	s.state = Stable
	s.configuredRows = 1

	const viewport, rowHeight = 24, 1 // 24 rows max

	prev := s.ContentRows()
	var sawGrowthRequested bool
	for i := 0; i < 50; i++ {
		action := s.OnNewLine(viewport, rowHeight)
		if s.ContentRows() < prev {
			t.Fatalf("content_rows decreased: %d -> %d", prev, s.ContentRows())
		}
		prev = s.ContentRows()

		if action.Kind == ActionRequestGrowth {
			sawGrowthRequested = true
			before := s.ContentRows()
			s.ApplyGrowth()
			if s.State() != Resizing {
				t.Fatalf("ApplyGrowth did not transition to Resizing")
			}

			// Lines produced while Resizing must not increment
			// content_rows (property 6).
			s.OnNewLine(viewport, rowHeight)
			s.OnNewLine(viewport, rowHeight)
			if s.ContentRows() != before {
				t.Fatalf("content_rows changed during Resizing: %d -> %d", before, s.ContentRows())
			}
			if s.PendingScrollback() != 2 {
				t.Fatalf("pending_scrollback = %d, want 2", s.PendingScrollback())
			}

			s.OnConfigure(action.Target)
			complete := s.OnResizeComplete()
			if s.State() != Stable {
				t.Fatalf("OnResizeComplete did not return to Stable")
			}
			if complete.Kind != ActionRestoreScrollback || complete.Lines != 2 {
				t.Fatalf("completion action = %+v, want RestoreScrollback(2)", complete)
			}
			prev = s.ContentRows()
		}
	}
	if !sawGrowthRequested {
		t.Fatalf("expected at least one growth request across 50 lines at 24-row cap")
	}
}

func TestGrowthCappedAtViewportMax(t *testing.T) {
	s := NewTerminalSizing()
	const viewport, rowHeight = 10, 1 // cap of 10 rows
	for i := 0; i < 30; i++ {
		if action := s.OnNewLine(viewport, rowHeight); action.Kind == ActionRequestGrowth {
			if action.Target > 10 {
				t.Fatalf("growth target %d exceeds viewport cap 10", action.Target)
			}
			s.ApplyGrowth()
			s.OnConfigure(action.Target)
			s.OnResizeComplete()
		}
	}
	if s.ConfiguredRows() > 10 {
		t.Fatalf("configured_rows = %d, exceeds cap 10", s.ConfiguredRows())
	}
}

func TestAltScreenFreezesSizing(t *testing.T) {
	s := NewTerminalSizing()
	s.OnAltScreenEnter(240, 1)
	if s.State() != Stable {
		t.Fatalf("alt-screen entry must land in Stable, got %v", s.State())
	}
	before := s.ContentRows()
	if action := s.OnNewLine(240, 1); action.Kind != ActionNone {
		t.Fatalf("OnNewLine while frozen returned %+v, want no-op", action)
	}
	if s.ContentRows() != before {
		t.Fatalf("content_rows changed while frozen: %d -> %d", before, s.ContentRows())
	}
	s.OnAltScreenExit()
	if action := s.OnNewLine(240, 1); action.Kind == ActionNone && s.ContentRows() == before {
		t.Fatalf("OnNewLine after unfreezing should resume content-aware sizing")
	}
}
