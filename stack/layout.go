// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/layout.go
// Summary: Implements the pure stack layout function.

package stack

// CellLayout is one cell's computed position for a single frame.
type CellLayout struct {
	ContentTop ContentY
	RenderTop  RenderY
	Height     int
	Visible    bool
}

// Layout is the output of the pure layout function: one CellLayout per
// cell plus the stack's total height.
type Layout struct {
	Cells       []CellLayout
	TotalHeight int
}

// ComputeLayout is a pure function with no side effects, no mutation,
// no I/O: given the ordered cached heights, the viewport height and
// the scroll offset, it deterministically produces each cell's
// content-top, render-top and visibility.
//
// gap is inserted between adjacent cells; passing 0 reproduces the
// original touching-cells layout.
func ComputeLayout(heights []int, viewportHeight int, scroll ContentY, gap int) Layout {
	out := Layout{Cells: make([]CellLayout, len(heights))}
	var c ContentY
	for i, h := range heights {
		lo, _ := CellRenderRange(c, h, scroll, viewportHeight)
		visible := int(c)+h > int(scroll) && int(c) < int(scroll)+viewportHeight
		out.Cells[i] = CellLayout{
			ContentTop: c,
			RenderTop:  lo,
			Height:     h,
			Visible:    visible,
		}
		out.TotalHeight += h
		c += ContentY(h)
		if i < len(heights)-1 {
			c += ContentY(gap)
			out.TotalHeight += gap
		}
	}
	return out
}
