// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/hittest_test.go
// Summary: Exercises screen-space hit testing against a computed layout,
// including title-bar and resize-handle sub-region classification.

package stack

import "testing"

func TestHitTestReturnsUniqueContainingCell(t *testing.T) {
	cells := []Cell{
		newExternalCell("s0", DecorationServer, 200, "zero"),
		newExternalCell("s1", DecorationServer, 200, "one"),
		newExternalCell("s2", DecorationServer, 200, "two"),
	}
	heights := []int{200, 200, 200}
	const viewport = 600
	layout := ComputeLayout(heights, viewport, 0, 0)

	// Screen y=10 is near the top of the viewport, inside cell 0's
	// title bar (spec scenario 4).
	res := HitTest(cells, layout, viewport, 0, 10)
	if !res.Hit || res.Index != 0 {
		t.Fatalf("hit = %+v, want index 0", res)
	}
	if res.Region != RegionTitleBar {
		t.Fatalf("region = %v, want title-bar", res.Region)
	}
}

func TestHitTestMissOutsideAnyCell(t *testing.T) {
	cells := []Cell{newExternalCell("s0", DecorationServer, 200, "zero")}
	layout := ComputeLayout([]int{200}, 600, 0, 0)
	res := HitTest(cells, layout, 600, 0, 500)
	if res.Hit {
		t.Fatalf("expected miss, got %+v", res)
	}
}

func TestHitTestResizeHandleOnExternalCellOnly(t *testing.T) {
	ext := newExternalCell("s0", DecorationServer, 200, "win")
	term := newTerminalCell("t0", false)
	cells := []Cell{ext, term}
	heights := []int{200, 200}
	const viewport = 400
	layout := ComputeLayout(heights, viewport, 0, 0)

	// Bottom of the external cell, screen space: render range for cell 0
	// is [200,400), so its spatial bottom (screen-space) is at y=200.
	res := HitTest(cells, layout, viewport, 0, 199)
	if !res.Hit || res.Index != 0 || res.Region != RegionResizeHandle {
		t.Fatalf("external bottom edge = %+v, want resize-handle on index 0", res)
	}

	// Same relative position against the terminal cell must never
	// report a resize handle (only external cells have one).
	res2 := HitTest(cells, layout, viewport, 0, 399)
	if !res2.Hit || res2.Index != 1 || res2.Region == RegionResizeHandle {
		t.Fatalf("terminal bottom edge = %+v, must not be a resize-handle", res2)
	}
}

func TestHitHeightMatchesModelCachedHeight(t *testing.T) {
	// Property 8: hit testing must read the same cached height the
	// layout pass used, never a separately derived "preferred" height.
	m := NewModel(DefaultHeightDefaults())
	c := newExternalCell("s0", DecorationServer, 321, "w")
	m.Insert(c, 0)
	m.UpdateCachedHeight(c.id, 500)

	layout := ComputeLayout(m.Heights(), 720, 0, 0)
	if layout.Cells[0].Height != 500 {
		t.Fatalf("layout height = %d, want the cached 500, not DefaultHeight", layout.Cells[0].Height)
	}
}
