// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package surfaceadapter

import (
	"errors"
	"testing"

	"github.com/termstack/termstack/ipc"
	"github.com/termstack/termstack/stack"
)

type fakeConn struct {
	frames []ipc.ResizeConfigure
	err    error
}

func (f *fakeConn) WriteConfigure(req ipc.ResizeConfigure) error {
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, req)
	return nil
}

func TestSendConfigureRoutesToRegisteredConnection(t *testing.T) {
	a := New()
	conn := &fakeConn{}
	a.Register("surf-1", conn)

	a.SendConfigure("surf-1", stack.ConfigureRequest{Height: 480, Serial: 7})

	if len(conn.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(conn.frames))
	}
	if conn.frames[0].Height != 480 || conn.frames[0].Serial != 7 {
		t.Fatalf("unexpected frame: %+v", conn.frames[0])
	}
}

func TestSendConfigureWithNoRegisteredConnectionDoesNotPanic(t *testing.T) {
	a := New()
	a.SendConfigure("surf-unknown", stack.ConfigureRequest{Height: 100, Serial: 1})
}

func TestSendConfigureUnregistersOnWriteError(t *testing.T) {
	a := New()
	conn := &fakeConn{err: errors.New("boom")}
	a.Register("surf-1", conn)

	a.SendConfigure("surf-1", stack.ConfigureRequest{Height: 1, Serial: 1})

	a.mu.Lock()
	_, ok := a.conns["surf-1"]
	a.mu.Unlock()
	if ok {
		t.Fatal("expected surface to be unregistered after write error")
	}
}

func TestUnregisterRemovesSurface(t *testing.T) {
	a := New()
	conn := &fakeConn{}
	a.Register("surf-1", conn)
	a.Unregister("surf-1")

	a.SendConfigure("surf-1", stack.ConfigureRequest{Height: 1, Serial: 1})
	if len(conn.frames) != 0 {
		t.Fatal("expected no frames sent after unregister")
	}
}
