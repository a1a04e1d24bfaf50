// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/cell.go
// Summary: Implements the tagged-union Cell type and its three concrete variants.

package stack

// Kind identifies which of the three disjoint cell variants a Cell is.
type Kind int

const (
	KindTerminal Kind = iota
	KindExternal
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindExternal:
		return "external"
	case KindBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Decoration selects who paints a window's title bar.
type Decoration int

const (
	// DecorationServer means the compositor draws the title bar; its
	// height (TitleBarHeight) counts toward the cell's total height.
	DecorationServer Decoration = iota
	// DecorationClient means the client paints its own chrome; the
	// compositor contributes no title-bar height.
	DecorationClient
)

// TitleBarHeight is the server-decorated title bar height in the hit
// testing sub-region table.
const TitleBarHeight = 24

// ResizeHandleHeight is the bottom resize-handle hit region height for
// external cells.
const ResizeHandleHeight = 4

// Cell is the tagged-union interface every stack entry satisfies. Per
// the design notes, variants are disjoint enough that an inheritance
// hierarchy would add indirection without reuse, so Cell exposes only
// the capability set every variant needs: identity, a default initial
// height, and a title for the title-bar sub-region.
type Cell interface {
	Identity() Identity
	Kind() Kind
	// DefaultHeight is the height used the first frame a cell exists,
	// before any render feedback has arrived.
	DefaultHeight(cfg HeightDefaults) int
	// Title is shown in the cell's title-bar hit-test sub-region.
	Title() string
	// HasTitleBar reports whether a title-bar sub-region should be hit
	// tested at all for this cell (the launcher terminal has none).
	HasTitleBar() bool
}

// HeightDefaults carries the component-specific defaults: terminals
// need a minimum one row plus title bar; externals use the initial
// size they announced, or a 200-pixel fallback.
type HeightDefaults struct {
	MinTerminalRows  int
	RowHeight        int
	ExternalFallback int
}

// DefaultHeightDefaults returns the defaults used when nothing else
// has overridden them: a terminal cell needs at least one content row
// plus its title bar, and an external cell with no announced size
// falls back to 200px.
func DefaultHeightDefaults() HeightDefaults {
	return HeightDefaults{
		MinTerminalRows:  1,
		RowHeight:        1,
		ExternalFallback: 200,
	}
}

// terminalCell owns a terminal identifier (opaque handle into the
// PTY/grid collaborator) and a sizing-state machine.
type terminalCell struct {
	id         Identity
	termID     TerminalID
	sizing     *TerminalSizing
	isLauncher bool // the initial terminal hosting the interactive shell has no title bar
	title      string
}

func newTerminalCell(termID TerminalID, isLauncher bool) *terminalCell {
	c := &terminalCell{
		id:         newIdentity(stringSeed(termID)),
		termID:     termID,
		isLauncher: isLauncher,
		title:      string(termID),
	}
	c.sizing = NewTerminalSizing()
	return c
}

func (c *terminalCell) Identity() Identity { return c.id }
func (c *terminalCell) Kind() Kind         { return KindTerminal }
func (c *terminalCell) Title() string      { return c.title }
func (c *terminalCell) HasTitleBar() bool  { return !c.isLauncher }

func (c *terminalCell) DefaultHeight(cfg HeightDefaults) int {
	h := cfg.MinTerminalRows * cfg.RowHeight
	if c.HasTitleBar() {
		h += TitleBarHeight
	}
	return h
}

// externalCell owns a handle to an external client surface, its
// decoration mode, a pending-resize record (possibly empty), and a
// linkage to an optional output terminal.
type externalCell struct {
	id          Identity
	surface     SurfaceID
	decoration  Decoration
	pending     *PendingResize
	outputTerm  Identity // NilIdentity if none
	initialSize int      // 0 if the client announced none
	title       string
}

func newExternalCell(surface SurfaceID, decoration Decoration, initialSize int, title string) *externalCell {
	return &externalCell{
		id:          newIdentity(stringSeed(surface)),
		surface:     surface,
		decoration:  decoration,
		initialSize: initialSize,
		title:       title,
	}
}

func (c *externalCell) Identity() Identity { return c.id }
func (c *externalCell) Kind() Kind         { return KindExternal }
func (c *externalCell) Title() string      { return c.title }
func (c *externalCell) HasTitleBar() bool  { return c.decoration == DecorationServer }

func (c *externalCell) DefaultHeight(cfg HeightDefaults) int {
	if c.initialSize > 0 {
		return c.initialSize
	}
	return cfg.ExternalFallback
}

// builtinCell is an immutable record of a shell-builtin execution. It
// renders like a terminal cell but is inert: nothing ever mutates it
// after creation.
type builtinCell struct {
	id       Identity
	prompt   string
	command  string
	output   string
	errorFlg bool
}

func newBuiltinCell(prompt, command, output string, errorFlag bool) *builtinCell {
	return &builtinCell{
		id:       newIdentity(stringSeed(prompt + command)),
		prompt:   prompt,
		command:  command,
		output:   output,
		errorFlg: errorFlag,
	}
}

func (c *builtinCell) Identity() Identity { return c.id }
func (c *builtinCell) Kind() Kind         { return KindBuiltin }
func (c *builtinCell) Title() string      { return c.command }
func (c *builtinCell) HasTitleBar() bool  { return true }

func (c *builtinCell) DefaultHeight(cfg HeightDefaults) int {
	lines := 1
	for _, r := range c.output {
		if r == '\n' {
			lines++
		}
	}
	return lines*cfg.RowHeight + TitleBarHeight
}
