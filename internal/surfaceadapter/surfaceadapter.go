// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/surfaceadapter/surfaceadapter.go
// Summary: Implements stack.SurfaceConfigurer by forwarding configure
// messages to whichever client connection announced the surface. The
// Wayland protocol itself is out of scope; this adapter only needs to
// know which ConnWriter a surface's client is reachable on.

package surfaceadapter

import (
	"log"
	"sync"

	"github.com/termstack/termstack/ipc"
	"github.com/termstack/termstack/stack"
)

// Adapter routes stack.ConfigureRequest values to the ipc connection
// that announced the corresponding external surface.
type Adapter struct {
	mu    sync.Mutex
	conns map[stack.SurfaceID]ConnWriter
}

// ConnWriter is the minimal surface a transport connection must expose
// to receive routed configure frames. ipcserver's connection type
// satisfies this directly.
type ConnWriter interface {
	WriteConfigure(req ipc.ResizeConfigure) error
}

// New returns an empty Adapter.
func New() *Adapter {
	return &Adapter{conns: make(map[stack.SurfaceID]ConnWriter)}
}

// Register associates a surface with the connection that announced it.
// Call this from the ipc handler for MsgExternalAnnounced.
func (a *Adapter) Register(surface stack.SurfaceID, w ConnWriter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conns[surface] = w
}

// Unregister drops a surface's routing entry. Call this from the ipc
// handler for MsgExternalClosed, or when the owning connection drops.
func (a *Adapter) Unregister(surface stack.SurfaceID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conns, surface)
}

// SendConfigure implements stack.SurfaceConfigurer.
func (a *Adapter) SendConfigure(surface stack.SurfaceID, req stack.ConfigureRequest) {
	a.mu.Lock()
	w, ok := a.conns[surface]
	a.mu.Unlock()
	if !ok {
		log.Printf("surfaceadapter: no connection registered for surface %s, dropping configure", surface)
		return
	}
	frame := ipc.ResizeConfigure{SurfaceID: string(surface), Height: int32(req.Height), Serial: uint64(req.Serial)}
	if err := w.WriteConfigure(frame); err != nil {
		log.Printf("surfaceadapter: send configure to surface %s: %v", surface, err)
		a.Unregister(surface)
	}
}
