// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/coord.go
// Summary: Implements the screen/render/content coordinate conversions.

// Package stack implements the cell stack engine: the ordered list of
// terminal/external/builtin cells, the coordinate system that maps
// between screen, render and content space, the pure layout function,
// scrolling, hit testing, the terminal sizing state machine and the
// external-window resize handshake.
//
// Everything in this package is single-threaded by contract (see
// Coordinator): no exported type here is safe for concurrent use
// without going through Coordinator's event queue.
package stack

// ScreenY is a point in screen space: origin at the top of the
// viewport, increasing downward. Screen-space values arrive from the
// windowing collaborator as raw input-event coordinates.
type ScreenY int

// RenderY is a point in render space: origin at the bottom of the
// viewport, increasing upward. This is the collaborator renderer's
// native coordinate convention (GPU/pixel composition).
type RenderY int

// ContentY is a point in content space: origin at the top of the
// scrollable column, increasing downward, independent of the current
// scroll position. Cell tops and bottoms are expressed in content
// space by the layout engine.
type ContentY int

// Viewport describes the visible window into the stack.
type Viewport struct {
	Height int
}

// ScreenToRender converts a screen-space Y to render-space, given the
// viewport height H: render = H - screen.
func ScreenToRender(screen ScreenY, h int) RenderY {
	return RenderY(h - int(screen))
}

// RenderToScreen is the inverse of ScreenToRender.
func RenderToScreen(render RenderY, h int) ScreenY {
	return ScreenY(h - int(render))
}

// RenderTopToContent converts the render-space Y of the top of the
// viewport into content space, given scroll offset S and viewport
// height H: content = S + (H - render).
func RenderTopToContent(render RenderY, scroll ContentY, h int) ContentY {
	return scroll + ContentY(h-int(render))
}

// CellRenderRange computes the half-open render-space range [lo, hi)
// a cell occupies, given its content-space top c, its height h, the
// scroll offset S and viewport height H:
//
//	lo = H - (c + h - S)   (render-top, the smaller of the two bounds
//	                        because render space increases upward)
//	hi = lo + h
//
// Hit testing walks cells and checks whether a render-space point
// falls in [lo, hi).
func CellRenderRange(contentTop ContentY, height int, scroll ContentY, viewportHeight int) (lo, hi RenderY) {
	lo = RenderY(viewportHeight - (int(contentTop) + height - int(scroll)))
	hi = lo + RenderY(height)
	return lo, hi
}
