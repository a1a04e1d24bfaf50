// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/termstack/termstack/ipc"
)

func TestPIDFileWriteReadRemove(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "sub", "termstackd.pid"))

	if _, err := p.Read(); err == nil {
		t.Fatal("expected Read to fail before Write")
	}

	if err := p.Write(os.Getpid()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pid, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}
	if !p.IsProcessRunning() {
		t.Fatal("expected own process to be reported running")
	}

	if err := p.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := p.Remove(); err != nil {
		t.Fatalf("Remove should be idempotent: %v", err)
	}
}

func TestIsProcessRunningFalseForStalePID(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "termstackd.pid"))
	// PID 1 typically belongs to init, not this test process; a PID far
	// outside any plausible live range is used instead so the check
	// cannot accidentally observe a real unrelated process.
	if err := p.Write(1 << 30); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if p.IsProcessRunning() {
		t.Fatal("expected implausible PID to report not running")
	}
}

func TestGetStateStopped(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "termstackd.pid"))
	state := GetState(context.Background(), p, filepath.Join(t.TempDir(), "termstackd.sock"))
	if state != StateStopped {
		t.Fatalf("expected StateStopped, got %v", state)
	}
}

func TestGetStateStale(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "termstackd.pid"))
	if err := p.Write(1 << 30); err != nil {
		t.Fatalf("Write: %v", err)
	}
	state := GetState(context.Background(), p, filepath.Join(t.TempDir(), "termstackd.sock"))
	if state != StateStale {
		t.Fatalf("expected StateStale, got %v", state)
	}
}

// serveFakePing answers exactly one ping with a welcome frame followed
// by a pong, mirroring ipcserver's connection.serve handshake closely
// enough to exercise CheckSocket's welcome-drain step.
func serveFakePing(t *testing.T, l net.Listener) {
	conn, err := l.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	welcome, _ := ipc.EncodeWelcome(ipc.Welcome{ServerName: "test"})
	ipc.WriteMessage(conn, ipc.Header{Version: ipc.Version, Type: ipc.MsgWelcome, Flags: ipc.FlagChecksum}, welcome)

	hdr, payload, err := ipc.ReadMessage(conn)
	if err != nil || hdr.Type != ipc.MsgPing {
		return
	}
	req, err := ipc.DecodePing(payload)
	if err != nil {
		return
	}
	pong, _ := ipc.EncodePong(ipc.Pong{Timestamp: req.Timestamp})
	ipc.WriteMessage(conn, ipc.Header{Version: ipc.Version, Type: ipc.MsgPong, Flags: ipc.FlagChecksum}, pong)
}

func TestCheckSocketDrainsWelcomeBeforePong(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "termstackd.sock")
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	go serveFakePing(t, l)

	if err := CheckSocket(context.Background(), sockPath, time.Second); err != nil {
		t.Fatalf("CheckSocket: %v", err)
	}
}

func TestGetStateRunning(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "termstackd.sock")
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	go serveFakePing(t, l)

	p := NewPIDFile(filepath.Join(t.TempDir(), "termstackd.pid"))
	if err := p.Write(os.Getpid()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	state := GetState(context.Background(), p, sockPath)
	if state != StateRunning {
		t.Fatalf("expected StateRunning, got %v", state)
	}
}
