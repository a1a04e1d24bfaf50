// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/types.go
// Summary: Declares opaque terminal and surface identifier types.

package stack

// TerminalID is an opaque handle to a terminal/PTY instance owned by
// the terminal-emulation collaborator. The stack engine never inspects
// it beyond using it as a map key.
type TerminalID string

// SurfaceID is an opaque handle to an external client's Wayland
// toplevel surface, owned by the compositor/transport collaborator.
type SurfaceID string
