// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/model.go
// Summary: Implements the ordered cell stack and its invariants.

package stack

import "log"

// entry pairs a Cell with its cached height: the authoritative height
// used by both hit testing and the next layout pass.
type entry struct {
	cell   Cell
	height int
}

// Model is the ordered sequence of cells with a focus identity, a
// scroll offset and a height cache. It enforces the stack invariants
// on every mutation; Model itself never touches the coordinate system
// or rendering — those live in Layout and ScrollController.
type Model struct {
	entries  []entry
	focus    Identity
	scroll   ContentY
	heightCfg HeightDefaults
	dirty    bool
}

// NewModel returns an empty stack using the given height defaults.
func NewModel(cfg HeightDefaults) *Model {
	return &Model{heightCfg: cfg}
}

// Len returns the number of cells currently in the stack.
func (m *Model) Len() int { return len(m.entries) }

// CellAt returns the cell at index i, or nil if out of range.
func (m *Model) CellAt(i int) Cell {
	if i < 0 || i >= len(m.entries) {
		return nil
	}
	return m.entries[i].cell
}

// HeightAt returns the cached height of the cell at index i.
func (m *Model) HeightAt(i int) int {
	if i < 0 || i >= len(m.entries) {
		return 0
	}
	return m.entries[i].height
}

// Heights returns a copy of the current height cache, in stack order.
// The Layout engine consumes this.
func (m *Model) Heights() []int {
	out := make([]int, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.height
	}
	return out
}

// TotalHeight returns the sum of cached cell heights (invariant 3).
func (m *Model) TotalHeight() int {
	total := 0
	for _, e := range m.entries {
		total += e.height
	}
	return total
}

// Scroll returns the current scroll offset.
func (m *Model) Scroll() ContentY { return m.scroll }

// Focus returns the currently focused identity (NilIdentity if none).
func (m *Model) Focus() Identity { return m.focus }

// FocusIndex resolves the focused identity to its current index, or -1
// if it no longer resolves — should not happen in steady state, but
// insert/remove bugs would surface here first.
func (m *Model) FocusIndex() int {
	return m.indexOf(m.focus)
}

func (m *Model) indexOf(id Identity) int {
	if id == NilIdentity {
		return -1
	}
	for i, e := range m.entries {
		if e.cell.Identity() == id {
			return i
		}
	}
	return -1
}

// MarkDirty flags that layout must be recomputed before the next read.
// Insert/Remove/ReplaceAt/UpdateCachedHeight/SetScroll all call this; the coordinator
// clears it once layout has run.
func (m *Model) MarkDirty()      { m.dirty = true }
func (m *Model) Dirty() bool     { return m.dirty }
func (m *Model) ClearDirty()     { m.dirty = false }

// Insert inserts cell at position, clamping position to the stack
// length if it overruns. The cell's cached height is seeded from its
// own DefaultHeight.
func (m *Model) Insert(cell Cell, position int) {
	if position < 0 {
		position = 0
	}
	if position > len(m.entries) {
		position = len(m.entries)
	}
	e := entry{cell: cell, height: cell.DefaultHeight(m.heightCfg)}
	m.entries = append(m.entries, entry{})
	copy(m.entries[position+1:], m.entries[position:])
	m.entries[position] = e
	if m.focus == NilIdentity {
		m.focus = cell.Identity()
	}
	m.MarkDirty()
}

// InsertBelowFocused inserts a cell directly below the currently
// focused cell, or at the end if nothing is focused.
func (m *Model) InsertBelowFocused(cell Cell) int {
	idx := m.FocusIndex()
	pos := len(m.entries)
	if idx >= 0 {
		pos = idx + 1
	}
	m.Insert(cell, pos)
	return pos
}

// Remove removes the cell with the given identity. No-op if the
// identity isn't present. Returns the removed cell, or nil.
//
// Focus-persistence rule: removing a non-focused cell must not change
// which identity is focused. Removing the focused cell transfers focus
// to the neighbor below, or above if it was last.
func (m *Model) Remove(id Identity) Cell {
	idx := m.indexOf(id)
	if idx < 0 {
		log.Printf("stack: model: Remove(%s) not found, ignoring", id)
		return nil
	}
	removed := m.entries[idx].cell
	wasFocused := m.focus == id

	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)

	if wasFocused {
		switch {
		case len(m.entries) == 0:
			m.focus = NilIdentity
		case idx < len(m.entries):
			m.focus = m.entries[idx].cell.Identity()
		default:
			m.focus = m.entries[len(m.entries)-1].cell.Identity()
		}
	}
	m.MarkDirty()
	return removed
}

// ReplaceAt swaps the cell at index i for a new cell, preserving
// position and, if the replaced cell held focus, transferring focus to
// the replacement (used by output-terminal promotion).
func (m *Model) ReplaceAt(i int, cell Cell) {
	if i < 0 || i >= len(m.entries) {
		log.Printf("stack: model: ReplaceAt(%d) out of range", i)
		return
	}
	old := m.entries[i].cell
	m.entries[i] = entry{cell: cell, height: cell.DefaultHeight(m.heightCfg)}
	if m.focus == old.Identity() {
		m.focus = cell.Identity()
	}
	m.MarkDirty()
}

// SetFocus resolves identity to an index; no-op with a warning if not
// found.
func (m *Model) SetFocus(id Identity) {
	if m.indexOf(id) < 0 {
		log.Printf("stack: model: SetFocus(%s) not in stack, ignoring", id)
		return
	}
	m.focus = id
}

// FocusNext moves focus one position down, clamped at the end (no
// wrap).
func (m *Model) FocusNext() bool {
	idx := m.FocusIndex()
	if idx < 0 || idx >= len(m.entries)-1 {
		return false
	}
	m.focus = m.entries[idx+1].cell.Identity()
	return true
}

// FocusPrev moves focus one position up, clamped at the start.
func (m *Model) FocusPrev() bool {
	idx := m.FocusIndex()
	if idx <= 0 {
		return false
	}
	m.focus = m.entries[idx-1].cell.Identity()
	return true
}

// UpdateCachedHeight writes back a render result for the cell with the
// given identity. No-op with a warning if not found.
func (m *Model) UpdateCachedHeight(id Identity, measuredPx int) {
	idx := m.indexOf(id)
	if idx < 0 {
		log.Printf("stack: model: UpdateCachedHeight(%s) not found, ignoring", id)
		return
	}
	if measuredPx < 0 {
		log.Printf("stack: model: UpdateCachedHeight(%s) negative height %d, clamping to 0", id, measuredPx)
		measuredPx = 0
	}
	if m.entries[idx].height != measuredPx {
		m.entries[idx].height = measuredPx
		m.MarkDirty()
	}
}

// SetScroll is the low-level scroll setter used by ScrollController; it
// does not clamp (clamping is ScrollController's job, since it needs
// the viewport height that Model doesn't own).
func (m *Model) SetScroll(s ContentY) {
	if s != m.scroll {
		m.scroll = s
		m.MarkDirty()
	}
}

// Identities returns the identities currently in the stack, in order.
func (m *Model) Identities() []Identity {
	out := make([]Identity, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.cell.Identity()
	}
	return out
}
