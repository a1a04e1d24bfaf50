// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/daemon/health.go
// Summary: Implements a ping/pong liveness check against termstackd's
// Unix socket, used by both the daemon itself and external callers.

package daemon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/termstack/termstack/ipc"
)

// CheckSocket dials socketPath and exchanges a ping/pong to confirm the
// listening process is actually termstackd and not a stale socket file
// left behind by a crash.
func CheckSocket(ctx context.Context, socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("daemon: connect: %w", err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("daemon: set deadline: %w", err)
	}

	hdr := ipc.Header{Version: ipc.Version, Type: ipc.MsgPing, Flags: ipc.FlagChecksum}
	payload, err := ipc.EncodePing(ipc.Ping{Timestamp: deadline.UnixNano()})
	if err != nil {
		return err
	}
	if err := ipc.WriteMessage(conn, hdr, payload); err != nil {
		return fmt.Errorf("daemon: send ping: %w", err)
	}

	// The server sends MsgWelcome immediately on accept, before any
	// reply to our ping; drain it first.
	respHdr, _, err := ipc.ReadMessage(conn)
	if err != nil {
		return fmt.Errorf("daemon: read welcome: %w", err)
	}
	if respHdr.Type == ipc.MsgWelcome {
		respHdr, _, err = ipc.ReadMessage(conn)
		if err != nil {
			return fmt.Errorf("daemon: read response: %w", err)
		}
	}
	if respHdr.Type != ipc.MsgPong {
		return fmt.Errorf("daemon: unexpected response type %v", respHdr.Type)
	}
	return nil
}

// State describes whether a previously recorded daemon is actually
// alive and responsive.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateUnresponsive
	StateStale
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateUnresponsive:
		return "unresponsive"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// GetState combines the PID file and a socket health check into a
// single lifecycle verdict.
func GetState(ctx context.Context, pidFile *PIDFile, socketPath string) State {
	if _, err := pidFile.Read(); err != nil {
		return StateStopped
	}
	if !pidFile.IsProcessRunning() {
		return StateStale
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := CheckSocket(checkCtx, socketPath, 2*time.Second); err != nil {
		return StateUnresponsive
	}
	return StateRunning
}
