// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/scroll.go
// Summary: Implements scroll clamping and the auto-scroll-on-growth policy.

package stack

// ScrollController owns scroll clamping and the auto-scroll-on-growth
// policy. It operates on a *Model's scroll offset but needs the
// current viewport height and total content height to clamp correctly,
// so both are passed in rather than cached (they change every frame as
// the layout is recomputed).
type ScrollController struct {
	// manuallyScrolledUp is sticky: once the user scrolls away from the
	// bottom, auto-scroll-on-growth stays disabled until they return to
	// the bottom.
	manuallyScrolledUp bool
}

func NewScrollController() *ScrollController {
	return &ScrollController{}
}

func clampScroll(s ContentY, totalHeight, viewportHeight int) ContentY {
	max := totalHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	if int(s) < 0 {
		return 0
	}
	if int(s) > max {
		return ContentY(max)
	}
	return s
}

// ScrollBy adjusts the scroll offset by delta, clamped to
// [0, max(0, totalHeight-viewportHeight)].
func (c *ScrollController) ScrollBy(m *Model, delta int, totalHeight, viewportHeight int) {
	next := clampScroll(m.Scroll()+ContentY(delta), totalHeight, viewportHeight)
	m.SetScroll(next)
	c.updateStickiness(next, totalHeight, viewportHeight)
}

// ScrollToTop sets scroll to 0.
func (c *ScrollController) ScrollToTop(m *Model) {
	m.SetScroll(0)
	c.manuallyScrolledUp = true
}

// ScrollToBottom sets scroll to the maximum.
func (c *ScrollController) ScrollToBottom(m *Model, totalHeight, viewportHeight int) {
	max := totalHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	m.SetScroll(ContentY(max))
	c.manuallyScrolledUp = false
}

// pageOverlap is the fraction of the viewport retained between pages:
// roughly 10% of the viewport height, with a one-line minimum.
func pageOverlap(viewportHeight, lineHeight int) int {
	overlap := viewportHeight / 10
	if overlap < lineHeight {
		overlap = lineHeight
	}
	return overlap
}

// PageUp scrolls up by one viewport minus the overlap.
func (c *ScrollController) PageUp(m *Model, totalHeight, viewportHeight, lineHeight int) {
	delta := -(viewportHeight - pageOverlap(viewportHeight, lineHeight))
	c.ScrollBy(m, delta, totalHeight, viewportHeight)
}

// PageDown scrolls down by one viewport minus the overlap.
func (c *ScrollController) PageDown(m *Model, totalHeight, viewportHeight, lineHeight int) {
	delta := viewportHeight - pageOverlap(viewportHeight, lineHeight)
	c.ScrollBy(m, delta, totalHeight, viewportHeight)
}

// updateStickiness recomputes whether the user currently counts as
// "manually scrolled up": sticky until they return to the bottom
// itself (a scroll offset equal to the maximum).
func (c *ScrollController) updateStickiness(s ContentY, totalHeight, viewportHeight int) {
	max := totalHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	c.manuallyScrolledUp = int(s) < max
}

// AtBottom reports whether the given scroll offset is within one line
// of the bottom, for the "previous scroll position was within one line
// of the bottom" test in the auto-scroll policy.
func AtBottom(s ContentY, totalHeight, viewportHeight, lineHeight int) bool {
	max := totalHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	return int(max)-int(s) <= lineHeight
}

// OnContentGrew implements the auto-scroll policy: if the scroll
// position before growth was within one line of the bottom,
// advance scroll to keep newly appended content visible (i.e. track
// the bottom); otherwise leave the scroll position unchanged.
//
// beforeTotalHeight/afterTotalHeight are the total content height
// before and after the growth that triggered this call.
func (c *ScrollController) OnContentGrew(m *Model, beforeTotalHeight, afterTotalHeight, viewportHeight, lineHeight int) {
	wasAtBottom := AtBottom(m.Scroll(), beforeTotalHeight, viewportHeight, lineHeight) && !c.manuallyScrolledUp
	if !wasAtBottom {
		// Re-clamp only; the user's manual position must still be valid
		// now that total height changed.
		m.SetScroll(clampScroll(m.Scroll(), afterTotalHeight, viewportHeight))
		return
	}
	c.ScrollToBottom(m, afterTotalHeight, viewportHeight)
}
