// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/hittest.go
// Summary: Implements screen-space hit testing against a computed layout.

package stack

// HitRegion sub-classifies where within a cell a hit landed (spec
// §4.5).
type HitRegion int

const (
	RegionContent HitRegion = iota
	RegionTitleBar
	RegionResizeHandle
)

func (r HitRegion) String() string {
	switch r {
	case RegionTitleBar:
		return "title-bar"
	case RegionResizeHandle:
		return "resize-handle"
	default:
		return "content"
	}
}

// HitResult identifies the cell and sub-region a screen-space point
// landed in.
type HitResult struct {
	Index  int
	Region HitRegion
	Hit    bool
}

// HitTest converts a screen-space point to a (cell index, sub-region).
// Layout and heights must come from the same frame — callers
// (Coordinator) are responsible for recomputing layout before calling
// this so that hit testing and rendering read the exact same cached
// height for every cell.
func HitTest(cells []Cell, layout Layout, viewportHeight int, screenX, screenY int) HitResult {
	render := ScreenToRender(ScreenY(screenY), viewportHeight)

	for i, cl := range layout.Cells {
		rangeLo := cl.RenderTop
		rangeHi := cl.RenderTop + RenderY(cl.Height)
		if int(render) < int(rangeLo) || int(render) >= int(rangeHi) {
			continue
		}
		region := classifyRegion(cells[i], render, rangeLo, rangeHi)
		return HitResult{Index: i, Region: region, Hit: true}
	}
	return HitResult{Hit: false}
}

// classifyRegion sub-classifies a point known to be inside a cell's
// render range into title-bar / resize-handle / content.
func classifyRegion(cell Cell, render, lo, hi RenderY) HitRegion {
	// The title bar occupies the top TitleBarHeight px of the cell. In
	// render space the cell's spatial top is hi (larger render value,
	// since render increases upward) — see coord.go's CellRenderRange.
	if cell.HasTitleBar() {
		titleLo := hi - RenderY(TitleBarHeight)
		if int(render) >= int(titleLo) {
			return RegionTitleBar
		}
	}
	if cell.Kind() == KindExternal {
		resizeHi := lo + RenderY(ResizeHandleHeight)
		if int(render) < int(resizeHi) {
			return RegionResizeHandle
		}
	}
	return RegionContent
}
