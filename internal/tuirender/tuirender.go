// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/tuirender/tuirender.go
// Summary: Implements a debug renderer that draws cell boundaries and
// title bars from a stack.Layout onto a tcell.Screen.

package tuirender

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/termstack/termstack/stack"
)

// ScreenDriver is the subset of tcell.Screen this renderer needs, kept
// as a narrow interface so a fake screen can stand in for tests.
type ScreenDriver interface {
	Init() error
	Fini()
	Size() (int, int)
	Clear()
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Show()
}

// tcellDriver adapts a real tcell.Screen to ScreenDriver.
type tcellDriver struct{ screen tcell.Screen }

// NewTcellScreenDriver wraps screen as a ScreenDriver.
func NewTcellScreenDriver(screen tcell.Screen) ScreenDriver {
	return &tcellDriver{screen: screen}
}

func (d *tcellDriver) Init() error { return d.screen.Init() }
func (d *tcellDriver) Fini()       { d.screen.Fini() }
func (d *tcellDriver) Size() (int, int) {
	return d.screen.Size()
}
func (d *tcellDriver) Clear() { d.screen.Clear() }
func (d *tcellDriver) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
	d.screen.SetContent(x, y, mainc, combc, style)
}
func (d *tcellDriver) Show() { d.screen.Show() }

var (
	titleStyle      = tcell.StyleDefault.Bold(true).Reverse(true)
	focusTitleStyle = titleStyle.Foreground(tcell.ColorYellow)
	borderStyle     = tcell.StyleDefault.Dim(true)
)

// Renderer draws a snapshot of the stack model's cells (title bars and
// boundaries only; cell content is the terminal/GUI collaborators'
// territory and out of scope here) to a ScreenDriver.
type Renderer struct {
	driver ScreenDriver
}

// New returns a Renderer drawing onto driver.
func New(driver ScreenDriver) *Renderer {
	return &Renderer{driver: driver}
}

// Draw paints one frame. layout gives each cell's content-space top,
// which Draw converts to a screen row using the model's scroll offset;
// model supplies the matching Cell for its title and kind. rowHeight
// converts the layout's pixel heights into terminal rows.
func (r *Renderer) Draw(model *stack.Model, layout stack.Layout, rowHeight int) {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	cols, rows := r.driver.Size()
	r.driver.Clear()

	focus := model.Focus()
	for i, cl := range layout.Cells {
		if !cl.Visible || i >= model.Len() {
			continue
		}
		cell := model.CellAt(i)
		top := int(cl.ContentTop-model.Scroll()) / rowHeight
		height := cl.Height / rowHeight
		if height < 1 {
			height = 1
		}
		r.drawCell(cell, top, height, cols, rows, cell.Identity() == focus)
	}
	r.driver.Show()
}

func (r *Renderer) drawCell(cell stack.Cell, top, height, cols, rows int, focused bool) {
	bottom := top + height
	if top >= rows || bottom < 0 {
		return
	}
	style := titleStyle
	if focused {
		style = focusTitleStyle
	}

	if cell.HasTitleBar() && top >= 0 && top < rows {
		label := fmt.Sprintf(" %s  [%s]", cell.Title(), cell.Kind())
		r.drawRow(top, cols, label, style)
	}

	for y := top + 1; y < bottom && y < rows; y++ {
		if y < 0 {
			continue
		}
		r.driver.SetContent(0, y, '|', nil, borderStyle)
		r.driver.SetContent(cols-1, y, '|', nil, borderStyle)
	}
}

func (r *Renderer) drawRow(y, cols int, text string, style tcell.Style) {
	x := 0
	for _, ch := range text {
		if x >= cols {
			break
		}
		r.driver.SetContent(x, y, ch, nil, style)
		x += runewidth.RuneWidth(ch)
	}
	for ; x < cols; x++ {
		r.driver.SetContent(x, y, ' ', nil, style)
	}
}
