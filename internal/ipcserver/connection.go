// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ipcserver/connection.go
// Summary: Reads frames from one client connection and dispatches them
// onto the coordinator's event loop, replying on the same connection.

package ipcserver

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/termstack/termstack/internal/collab"
	"github.com/termstack/termstack/internal/surfaceadapter"
	"github.com/termstack/termstack/ipc"
	"github.com/termstack/termstack/stack"
)

type connection struct {
	conn       net.Conn
	coord      *stack.Coordinator
	classifier collab.Classifier
	surfaces   *surfaceadapter.Adapter
	sessionID  [16]byte
	writeMu    sync.Mutex
}

func newConnection(conn net.Conn, coord *stack.Coordinator, classifier collab.Classifier, surfaces *surfaceadapter.Adapter) *connection {
	var id [16]byte
	_, _ = rand.Read(id[:])
	return &connection{conn: conn, coord: coord, classifier: classifier, surfaces: surfaces, sessionID: id}
}

// WriteConfigure implements the surfaceadapter.ConnWriter interface the
// Adapter expects, letting the adapter push a configure frame back down this
// specific connection.
func (c *connection) WriteConfigure(req ipc.ResizeConfigure) error {
	payload, err := ipc.EncodeResizeConfigure(req)
	if err != nil {
		return err
	}
	return c.write(ipc.MsgResizeConfigure, payload)
}

// runSync posts fn onto the coordinator's single-threaded event loop
// and blocks until it has run, the way a synchronous RPC handler waits
// for its backing call to complete.
func runSync(coord *stack.Coordinator, fn func()) {
	done := make(chan struct{})
	coord.Post(func() {
		fn()
		close(done)
	})
	<-done
}

func (c *connection) serve() error {
	welcome, err := ipc.EncodeWelcome(ipc.Welcome{SessionID: c.sessionID, ServerName: "termstackd"})
	if err != nil {
		return err
	}
	if err := c.write(ipc.MsgWelcome, welcome); err != nil {
		return err
	}

	for {
		hdr, payload, err := ipc.ReadMessage(c.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := c.dispatch(hdr, payload); err != nil {
			return err
		}
	}
}

func (c *connection) dispatch(hdr ipc.Header, payload []byte) error {
	switch hdr.Type {
	case ipc.MsgSpawnTerminal:
		req, err := ipc.DecodeSpawnTerminal(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		var id stack.Identity
		var spawnErr error
		runSync(c.coord, func() {
			id, spawnErr = c.coord.SpawnTerminal(req.Env, req.Cwd, req.Cmd)
		})
		if spawnErr != nil {
			return c.writeError(2, spawnErr.Error())
		}
		ack, err := ipc.EncodeSpawnAck(ipc.SpawnAck{CellID: id})
		if err != nil {
			return err
		}
		return c.write(ipc.MsgSpawnAck, ack)

	case ipc.MsgSpawnGUI:
		req, err := ipc.DecodeSpawnGUI(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		var token string
		var spawnErr error
		runSync(c.coord, func() {
			token, spawnErr = c.coord.SpawnGUI(req.Env, req.Cwd, req.Cmd, req.Background)
		})
		if spawnErr != nil {
			return c.writeError(2, spawnErr.Error())
		}
		ack, err := ipc.EncodeSpawnAck(ipc.SpawnAck{Token: token})
		if err != nil {
			return err
		}
		return c.write(ipc.MsgSpawnAck, ack)

	case ipc.MsgSpawnBuiltin:
		req, err := ipc.DecodeSpawnBuiltin(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		var id stack.Identity
		runSync(c.coord, func() {
			id = c.coord.SpawnBuiltin(req.Prompt, req.Command, req.Output, req.IsError)
		})
		ack, err := ipc.EncodeSpawnAck(ipc.SpawnAck{CellID: id})
		if err != nil {
			return err
		}
		return c.write(ipc.MsgSpawnAck, ack)

	case ipc.MsgClassifyRequest:
		req, err := ipc.DecodeClassifyRequest(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		resp, err := ipc.EncodeClassifyResponse(ipc.ClassifyResponse{Code: uint8(c.classifier.Classify(req.Cmd))})
		if err != nil {
			return err
		}
		return c.write(ipc.MsgClassifyResponse, resp)

	case ipc.MsgViewportResize:
		req, err := ipc.DecodeViewportResize(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		// ModeContent and ModeFull both retarget the same coordinator
		// height today; a client-side chrome allowance would only
		// matter once termstackd draws its own borders around the
		// viewport, which it does not yet.
		runSync(c.coord, func() {
			c.coord.SetViewportHeight(int(req.Height))
		})
		return nil

	case ipc.MsgResizeAck:
		req, err := ipc.DecodeResizeAck(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		runSync(c.coord, func() {
			c.coord.AckExternalResize(stack.SurfaceID(req.SurfaceID), stack.ResizeSerial(req.Serial))
		})
		return nil

	case ipc.MsgExternalAnnounced:
		req, err := ipc.DecodeExternalAnnounced(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		decoration := stack.DecorationClient
		if req.Decorated {
			decoration = stack.DecorationServer
		}
		surface := stack.SurfaceID(req.SurfaceID)
		if c.surfaces != nil {
			c.surfaces.Register(surface, c)
		}
		runSync(c.coord, func() {
			c.coord.ExternalToplevelAnnounced(req.Token, surface, decoration, int(req.InitialSize), req.Title)
		})
		return nil

	case ipc.MsgExternalClosed:
		req, err := ipc.DecodeExternalClosed(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		surface := stack.SurfaceID(req.SurfaceID)
		if c.surfaces != nil {
			c.surfaces.Unregister(surface)
		}
		runSync(c.coord, func() {
			c.coord.ExternalToplevelClosed(surface)
		})
		return nil

	case ipc.MsgPing:
		req, err := ipc.DecodePing(payload)
		if err != nil {
			return c.writeError(1, err.Error())
		}
		pong, err := ipc.EncodePong(ipc.Pong{Timestamp: req.Timestamp})
		if err != nil {
			return err
		}
		return c.write(ipc.MsgPong, pong)

	default:
		return c.writeError(0, fmt.Sprintf("unhandled message type %d", hdr.Type))
	}
}

func (c *connection) write(t ipc.MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	hdr := ipc.Header{Version: ipc.Version, Type: t, Flags: ipc.FlagChecksum, SessionID: c.sessionID}
	return ipc.WriteMessage(c.conn, hdr, payload)
}

func (c *connection) writeError(code uint16, message string) error {
	payload, err := ipc.EncodeErrorFrame(ipc.ErrorFrame{Code: code, Message: message})
	if err != nil {
		return err
	}
	return c.write(ipc.MsgError, payload)
}
