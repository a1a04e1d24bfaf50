// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/hosttty/hosttty.go
// Summary: Puts the controlling terminal into raw mode for the
// lifetime of the compositor process and restores it on shutdown.

package hosttty

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Handle owns the open /dev/tty file descriptor and the saved terminal
// state needed to restore cooked mode.
type Handle struct {
	tty   *os.File
	state *term.State
}

// Open puts the controlling terminal into raw mode. Callers must call
// Restore before the process exits, or input handling left in whatever
// shell started termstackd will behave incorrectly.
func Open() (*Handle, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("hosttty: open /dev/tty: %w", err)
	}

	state, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("hosttty: make raw: %w", err)
	}

	return &Handle{tty: tty, state: state}, nil
}

// Size reports the current terminal size in columns and rows.
func (h *Handle) Size() (cols, rows int, err error) {
	return term.GetSize(int(h.tty.Fd()))
}

// File exposes the underlying /dev/tty handle for direct reads/writes
// (e.g. a debug renderer driving tcell against it).
func (h *Handle) File() *os.File {
	return h.tty
}

// Restore returns the terminal to cooked mode and closes the handle.
func (h *Handle) Restore() error {
	if err := term.Restore(int(h.tty.Fd()), h.state); err != nil {
		h.tty.Close()
		return fmt.Errorf("hosttty: restore: %w", err)
	}
	return h.tty.Close()
}
