// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/coordinator.go
// Summary: Implements the single-threaded cell lifecycle coordinator tying
// the model, layout, scrolling, sizing and resize negotiation together.

package stack

import (
	"fmt"
	"log"
	"time"
)

// Config bundles the coordinator's tunables (height defaults, gap size,
// viewport height, auto-scroll default). They are fixed at
// construction; only the viewport height changes afterwards, through
// SetViewportHeight.
type Config struct {
	Heights         HeightDefaults
	Gap             int
	ViewportHeight  int
	AutoScrollOnNew bool
}

// Coordinator owns every piece of the cell stack engine and is the only
// type in this package meant to be driven directly by the rest of the
// application. It is not goroutine-safe: every exported method must run
// on the single core thread, which in practice means handing calls in
// through Post and draining them in a single loop (see Run) that
// serializes all mutation through one
// owner goroutine.
type Coordinator struct {
	cfg Config

	model     *Model
	scrollCtl *ScrollController
	resizeNeg *ResizeNegotiator
	outputs   *outputTerminals

	terminal TerminalBackend
	launcher GUIProcessLauncher
	surfaces SurfaceConfigurer

	sizingByTerm map[TerminalID]*TerminalSizing
	identByTerm  map[TerminalID]Identity
	identBySurf  map[SurfaceID]Identity

	layout   Layout
	dragging *dragState

	events chan func()
	done   chan struct{}
}

// NewCoordinator wires a Coordinator against its three collaborators.
// Any of them may be nil in a test harness that never exercises the
// corresponding operation.
func NewCoordinator(cfg Config, terminal TerminalBackend, launcher GUIProcessLauncher, surfaces SurfaceConfigurer) *Coordinator {
	return &Coordinator{
		cfg:          cfg,
		model:        NewModel(cfg.Heights),
		scrollCtl:    NewScrollController(),
		resizeNeg:    NewResizeNegotiator(),
		outputs:      newOutputTerminals(),
		terminal:     terminal,
		launcher:     launcher,
		surfaces:     surfaces,
		sizingByTerm: make(map[TerminalID]*TerminalSizing),
		identByTerm:  make(map[TerminalID]Identity),
		identBySurf:  make(map[SurfaceID]Identity),
		events:       make(chan func(), 256),
		done:         make(chan struct{}),
	}
}

// Model exposes the underlying stack model for read-only inspection
// (rendering, debugging, tests). Mutating it directly instead of going
// through Coordinator's operations voids every invariant this package
// enforces.
func (c *Coordinator) Model() *Model { return c.model }

// Layout returns the most recently computed layout, recomputing first
// if the model is dirty.
func (c *Coordinator) Layout() Layout {
	if c.model.Dirty() {
		c.recomputeLayout()
	}
	return c.layout
}

func (c *Coordinator) recomputeLayout() {
	c.layout = ComputeLayout(c.model.Heights(), c.cfg.ViewportHeight, c.model.Scroll(), c.cfg.Gap)
	c.model.ClearDirty()
}

// ViewportHeight returns the height the stack currently lays out and
// scrolls against.
func (c *Coordinator) ViewportHeight() int { return c.cfg.ViewportHeight }

// SetViewportHeight retargets the height against which the stack lays
// out and scrolls, then recomputes immediately so Layout reflects it on
// the next call. Callers must invoke this from the core thread (inside
// a Post callback), the same rule every other Coordinator mutator
// follows.
func (c *Coordinator) SetViewportHeight(height int) {
	if height == c.cfg.ViewportHeight {
		return
	}
	c.cfg.ViewportHeight = height
	c.model.MarkDirty()
	c.recomputeLayout()
}

// Post queues fn to run on the core thread via Run. Collaborators
// running on their own goroutines (the PTY reader, the Wayland event
// loop) use this to hand events back in; there is exactly one
// subscriber, the coordinator itself, so no fan-out is needed.
func (c *Coordinator) Post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.done:
	}
}

// Run drains the event queue until Stop is called. Every mutating
// method on Coordinator is safe to call only from inside a function
// passed to Post (or before Run starts).
func (c *Coordinator) Run() {
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-c.done:
			return
		}
	}
}

// Stop ends Run's loop. Idempotent.
func (c *Coordinator) Stop() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// SpawnTerminal implements the `spawn_terminal` operation (spec'd
// lifecycle op set): starts an interactive shell and inserts its cell
// below the currently focused cell.
func (c *Coordinator) SpawnTerminal(env []string, cwd, cmd string) (Identity, error) {
	if c.terminal == nil {
		return NilIdentity, fmt.Errorf("stack: coordinator: no terminal backend configured")
	}
	termID, err := c.terminal.SpawnShell(env, cwd, cmd)
	if err != nil {
		return NilIdentity, fmt.Errorf("stack: coordinator: spawn terminal: %w", err)
	}
	isLauncher := c.model.Len() == 0
	cell := newTerminalCell(termID, isLauncher)
	c.sizingByTerm[termID] = cell.sizing
	c.identByTerm[termID] = cell.id
	c.model.InsertBelowFocused(cell)
	c.model.SetFocus(cell.id)
	return cell.id, nil
}

// SpawnBuiltin implements `spawn_builtin`: records an inert builtin
// cell and inserts it below the focused cell. Builtins never mutate
// after creation, so there is no lifecycle to track beyond insertion.
func (c *Coordinator) SpawnBuiltin(prompt, command, output string, isError bool) Identity {
	cell := newBuiltinCell(prompt, command, output, isError)
	c.model.InsertBelowFocused(cell)
	c.model.SetFocus(cell.id)
	return cell.id
}

// SpawnGUI implements `spawn_gui`: allocates a hidden output terminal to
// capture the child process's stdout/stderr and launches the process.
// The hidden terminal only becomes a visible cell once it receives its
// first line or, in background mode, immediately.
//
// token correlates this call with the later call to
// ExternalToplevelAnnounced once the launched process's window arrives;
// the transport that makes that correlation (matching a client
// connection or PID to a Wayland surface) is the compositor
// collaborator's job, not this package's.
func (c *Coordinator) SpawnGUI(env []string, cwd, cmd string, background bool) (token string, err error) {
	if c.terminal == nil {
		return "", fmt.Errorf("stack: coordinator: no terminal backend configured")
	}
	if c.launcher == nil {
		return "", fmt.Errorf("stack: coordinator: no GUI launcher configured")
	}
	termID, writer, err := c.terminal.SpawnSink()
	if err != nil {
		return "", fmt.Errorf("stack: coordinator: spawn output sink: %w", err)
	}
	cell := newTerminalCell(termID, false)
	c.sizingByTerm[termID] = cell.sizing
	c.identByTerm[termID] = cell.id

	st := &OutputTerminalState{TermID: termID, CellID: cell.id, Background: background, Sizing: cell.sizing}
	c.outputs.register(st)

	if background {
		c.model.InsertBelowFocused(cell)
		st.Visible = true
	}

	if err := c.launcher.Launch(env, cwd, cmd, writer, writer); err != nil {
		c.outputs.forget(st)
		delete(c.sizingByTerm, termID)
		delete(c.identByTerm, termID)
		if st.Visible {
			c.model.Remove(cell.id)
		}
		return "", fmt.Errorf("stack: coordinator: launch gui process: %w", err)
	}
	return string(termID), nil
}

// ExternalToplevelAnnounced implements `external_toplevel_announced`:
// inserts the external cell for a newly arrived client surface. If
// token matches an in-flight SpawnGUI call, the two are linked so that
// ExternalToplevelClosed can find the companion output terminal.
func (c *Coordinator) ExternalToplevelAnnounced(token string, surface SurfaceID, decoration Decoration, initialSize int, title string) Identity {
	cell := newExternalCell(surface, decoration, initialSize, title)
	c.identBySurf[surface] = cell.id

	if token != "" {
		if st := c.outputs.linkSurface(TerminalID(token), surface); st != nil {
			cell.outputTerm = st.CellID
		}
	}

	c.model.InsertBelowFocused(cell)
	c.model.SetFocus(cell.id)
	return cell.id
}

// ExternalToplevelClosed implements `external_toplevel_closed` (spec
// §4.8's promotion rule): if the closed window's companion output
// terminal ever received content, the external cell is replaced in
// place by that terminal cell so the GUI's output remains in the
// stack; otherwise the external cell is simply removed and the unused
// output terminal is discarded.
func (c *Coordinator) ExternalToplevelClosed(surface SurfaceID) {
	extID, ok := c.identBySurf[surface]
	if !ok {
		log.Printf("stack: coordinator: external_toplevel_closed for unknown surface %s", surface)
		return
	}
	delete(c.identBySurf, surface)

	st := c.outputs.forSurface(surface)

	switch {
	case st != nil && st.HasContent:
		var term Cell
		if st.Visible {
			// The output terminal already occupies its own slot
			// (promoted visible on first write); pull it out before
			// replacing the GUI cell so the same identity never
			// appears twice in the stack.
			term = c.model.Remove(st.CellID)
		}
		if term == nil {
			term = newTerminalCellFromState(st)
		}
		idx := c.model.indexOf(extID)
		if idx >= 0 {
			c.model.ReplaceAt(idx, term)
		} else {
			c.model.InsertBelowFocused(term)
		}
		c.outputs.forget(st)
	case st != nil:
		c.model.Remove(extID)
		if c.terminal != nil {
			if err := c.terminal.Close(st.TermID); err != nil {
				log.Printf("stack: coordinator: close unused output terminal %s: %v", st.TermID, err)
			}
		}
		delete(c.sizingByTerm, st.TermID)
		delete(c.identByTerm, st.TermID)
		c.outputs.forget(st)
	default:
		c.model.Remove(extID)
	}
}

// newTerminalCellFromState rebuilds a terminalCell around an
// already-running output terminal, preserving its sizing state machine
// and identity so promotion doesn't look like a fresh spawn.
func newTerminalCellFromState(st *OutputTerminalState) *terminalCell {
	sizing := st.Sizing
	if sizing == nil {
		sizing = NewTerminalSizing()
	}
	return &terminalCell{
		id:     st.CellID,
		termID: st.TermID,
		sizing: sizing,
		title:  string(st.TermID),
	}
}

// OnTerminalLine reports that one new line arrived from id's PTY. It
// advances the sizing state machine
// and, when a growth request results, immediately resizes the PTY
// (treated as synchronous, per the note on TerminalBackend.Resize in
// interfaces.go) and
// updates the cached height so the next layout reflects the new row
// count.
func (c *Coordinator) OnTerminalLine(id TerminalID) {
	sizing, ok := c.sizingByTerm[id]
	if !ok {
		log.Printf("stack: coordinator: OnTerminalLine for unknown terminal %s", id)
		return
	}
	c.promoteOutputOnFirstLine(id)

	before := c.model.TotalHeight()
	action := sizing.OnNewLine(c.cfg.ViewportHeight, c.cfg.Heights.RowHeight)
	c.applySizingAction(id, sizing, action)
	c.updateTerminalHeight(id, sizing)
	after := c.model.TotalHeight()

	if c.cfg.AutoScrollOnNew {
		c.scrollCtl.OnContentGrew(c.model, before, after, c.cfg.ViewportHeight, c.cfg.Heights.RowHeight)
	}
}

// promoteOutputOnFirstLine inserts a foreground GUI's output terminal
// into the stack the moment its first byte arrives; it is a no-op for
// ordinary terminals and for background/already-visible output
// terminals.
func (c *Coordinator) promoteOutputOnFirstLine(id TerminalID) {
	st := c.outputs.byTermID[id]
	if st == nil {
		return
	}
	st.HasContent = true
	if st.Visible {
		return
	}
	st.Visible = true
	ident := c.identByTerm[id]
	cell := &terminalCell{id: ident, termID: id, sizing: c.sizingByTerm[id], title: string(id)}
	c.model.InsertBelowFocused(cell)
}

func (c *Coordinator) applySizingAction(id TerminalID, sizing *TerminalSizing, action SizingAction) {
	switch action.Kind {
	case ActionRequestGrowth:
		sizing.ApplyGrowth()
		if c.terminal != nil {
			if err := c.terminal.Resize(id, action.Target, 0); err != nil {
				log.Printf("stack: coordinator: resize terminal %s to %d rows: %v", id, action.Target, err)
			}
		}
		sizing.OnConfigure(action.Target)
		follow := sizing.OnResizeComplete()
		c.applySizingAction(id, sizing, follow)
	case ActionRestoreScrollback:
		if c.terminal != nil {
			if err := c.terminal.RestoreScrollback(id, action.Lines); err != nil {
				log.Printf("stack: coordinator: restore scrollback for %s: %v", id, err)
			}
		}
	}
}

// updateTerminalHeight recomputes a terminal cell's predicted height
// from its sizing state and writes it back to the model, matching spec
// §4.5's "only differs from the predicted height when content was
// constrained" rule: render feedback (FrameRendered) may later correct
// it further.
func (c *Coordinator) updateTerminalHeight(id TerminalID, sizing *TerminalSizing) {
	ident, ok := c.identByTerm[id]
	if !ok {
		return
	}
	rows := sizing.ConfiguredRows()
	if sizing.ContentRows() < rows {
		rows = sizing.ContentRows()
	}
	if rows < c.cfg.Heights.MinTerminalRows {
		rows = c.cfg.Heights.MinTerminalRows
	}
	height := rows * c.cfg.Heights.RowHeight
	if cell, idx := c.cellAndIndex(ident); idx >= 0 && cell.HasTitleBar() {
		height += TitleBarHeight
	}
	c.model.UpdateCachedHeight(ident, height)
}

func (c *Coordinator) cellAndIndex(id Identity) (Cell, int) {
	idx := c.model.indexOf(id)
	if idx < 0 {
		return nil, -1
	}
	return c.model.CellAt(idx), idx
}

// OnTerminalAltScreenEnter/Exit implement the alternate-screen freeze
// rule: while an app like a pager or editor holds the alternate
// screen, the sizing machine is pinned to the viewport maximum and
// produces no further growth requests.
func (c *Coordinator) OnTerminalAltScreenEnter(id TerminalID) {
	sizing, ok := c.sizingByTerm[id]
	if !ok {
		return
	}
	sizing.OnAltScreenEnter(c.cfg.ViewportHeight, c.cfg.Heights.RowHeight)
	if c.terminal != nil {
		if err := c.terminal.Resize(id, sizing.ConfiguredRows(), 0); err != nil {
			log.Printf("stack: coordinator: resize terminal %s to %d rows for alternate screen: %v", id, sizing.ConfiguredRows(), err)
		}
	}
	c.updateTerminalHeight(id, sizing)
}

func (c *Coordinator) OnTerminalAltScreenExit(id TerminalID) {
	if sizing, ok := c.sizingByTerm[id]; ok {
		sizing.OnAltScreenExit()
	}
}

// OnTerminalExit tears down the cell for a terminal whose process
// exited, removing it from the stack and its bookkeeping maps.
func (c *Coordinator) OnTerminalExit(id TerminalID) {
	ident, ok := c.identByTerm[id]
	if !ok {
		log.Printf("stack: coordinator: OnTerminalExit for unknown terminal %s", id)
		return
	}
	c.model.Remove(ident)
	delete(c.sizingByTerm, id)
	delete(c.identByTerm, id)
	if st := c.outputs.byTermID[id]; st != nil {
		c.outputs.forget(st)
	}
}

// RequestExternalResize handles the user dragging surface's resize
// handle to newVisualHeight
// (already floor-clamped by the caller). If the negotiator decides a
// configure is due, it is sent through the surface collaborator.
func (c *Coordinator) RequestExternalResize(surface SurfaceID, newVisualHeight int, now time.Time) {
	ident, ok := c.identBySurf[surface]
	if !ok {
		return
	}
	cell, idx := c.cellAndIndex(ident)
	if idx < 0 {
		return
	}
	ext, ok := cell.(*externalCell)
	if !ok {
		return
	}
	req, send := c.resizeNeg.RequestResize(ext, newVisualHeight, now)
	if !send {
		return
	}
	if c.surfaces != nil {
		c.surfaces.SendConfigure(surface, req)
	}
}

// AckExternalResize records that the client has committed a buffer at
// the size requested by serial. On
// acceptance the cell's cached height is updated from the negotiated
// dimension, adding back the title bar height for server-decorated
// cells so the model always stores total visual height.
func (c *Coordinator) AckExternalResize(surface SurfaceID, serial ResizeSerial) {
	ident, ok := c.identBySurf[surface]
	if !ok {
		return
	}
	cell, idx := c.cellAndIndex(ident)
	if idx < 0 {
		return
	}
	ext, ok := cell.(*externalCell)
	if !ok {
		return
	}
	outcome := c.resizeNeg.Ack(ext, serial)
	if !outcome.Accepted {
		return
	}
	height := outcome.AcceptedHeight
	if ext.decoration == DecorationServer {
		height += TitleBarHeight
	}
	c.model.UpdateCachedHeight(ident, height)
}

// FrameRendered implements `frame_rendered`: the renderer reports the
// actual measured height it produced for each cell after constraints
// (minimum sizes, clipping) were applied. This is the final authority
// on cached height for the next frame.
func (c *Coordinator) FrameRendered(measured map[Identity]int) {
	for id, h := range measured {
		c.model.UpdateCachedHeight(id, h)
	}
}

// InputEvent implements `input_event`: routes pointer events through
// hit testing to focus/resize handling, and key-binding events to
// scroll/focus/spawn operations. Screen-space fields are ignored for
// key-binding kinds.
func (c *Coordinator) InputEvent(ev InputEvent, now time.Time) {
	switch ev.Kind {
	case InputPointerDown:
		c.handlePointerDown(ev)
	case InputPointerDrag:
		c.handlePointerDrag(ev, now)
	case InputPointerUp:
		c.dragging = nil
	case InputScrollWheel:
		c.scrollCtl.ScrollBy(c.model, ev.ScrollDelta, c.Layout().TotalHeight, c.cfg.ViewportHeight)
	case KeyFocusNext:
		c.model.FocusNext()
	case KeyFocusPrev:
		c.model.FocusPrev()
	case KeyScrollLine:
		c.scrollCtl.ScrollBy(c.model, ev.ScrollDelta*c.cfg.Heights.RowHeight, c.Layout().TotalHeight, c.cfg.ViewportHeight)
	case KeyScrollPage:
		if ev.ScrollDelta < 0 {
			c.scrollCtl.PageUp(c.model, c.Layout().TotalHeight, c.cfg.ViewportHeight, c.cfg.Heights.RowHeight)
		} else {
			c.scrollCtl.PageDown(c.model, c.Layout().TotalHeight, c.cfg.ViewportHeight, c.cfg.Heights.RowHeight)
		}
	case KeyScrollHome:
		c.scrollCtl.ScrollToTop(c.model)
	case KeyScrollEnd:
		c.scrollCtl.ScrollToBottom(c.model, c.Layout().TotalHeight, c.cfg.ViewportHeight)
	default:
		// KeySpawnTerminal, KeyQuit, KeyCopy, KeyPaste are owned by the
		// application layer, which already knows which cell is focused
		// via Model().Focus(); nothing for the coordinator to do here.
	}
}

func (c *Coordinator) handlePointerDown(ev InputEvent) {
	hit := HitTest(c.cellsSnapshot(), c.Layout(), c.cfg.ViewportHeight, ev.X, ev.Y)
	if !hit.Hit {
		return
	}
	cell := c.model.CellAt(hit.Index)
	c.model.SetFocus(cell.Identity())
	if hit.Region == RegionResizeHandle {
		if ext, ok := cell.(*externalCell); ok {
			c.dragging = &dragState{surface: ext.surface, startY: ev.Y}
		}
	}
}

func (c *Coordinator) handlePointerDrag(ev InputEvent, now time.Time) {
	if c.dragging == nil {
		return
	}
	// The pointer tracks the cell's bottom edge, so the requested visual
	// height is its distance from the cell's screen-space top, floored so
	// the title bar and the resize handle stay reachable.
	ident, ok := c.identBySurf[c.dragging.surface]
	if !ok {
		return
	}
	idx := c.model.indexOf(ident)
	layout := c.Layout()
	if idx < 0 || idx >= len(layout.Cells) {
		return
	}
	screenTop := int(layout.Cells[idx].ContentTop) - int(c.model.Scroll())
	height := ev.Y - screenTop
	if floor := TitleBarHeight + ResizeHandleHeight; height < floor {
		height = floor
	}
	c.RequestExternalResize(c.dragging.surface, height, now)
}

func (c *Coordinator) cellsSnapshot() []Cell {
	out := make([]Cell, c.model.Len())
	for i := range out {
		out[i] = c.model.CellAt(i)
	}
	return out
}

// dragState tracks an in-progress resize-handle drag between
// InputPointerDown and InputPointerUp.
type dragState struct {
	surface SurfaceID
	startY  int
}
