// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: stack/resize_test.go
// Summary: Exercises the external-window resize handshake's serial
// correlation, stale-ack discarding and throttling.

package stack

import (
	"testing"
	"time"
)

func TestResizeScenario5ServerDecoratedDragAndAck(t *testing.T) {
	neg := NewResizeNegotiator()
	cell := newExternalCell("s0", DecorationServer, 200, "w")

	t0 := time.Now()
	req, ok := neg.RequestResize(cell, 250, t0)
	if !ok {
		t.Fatalf("expected a configure to be sent")
	}
	if req.Height != 226 {
		t.Fatalf("content height = %d, want 250-24=226", req.Height)
	}
	serial := req.Serial

	outcome := neg.Ack(cell, serial)
	if !outcome.Accepted || outcome.AcceptedHeight != 226 {
		t.Fatalf("ack outcome = %+v, want accepted content height 226", outcome)
	}

	// A second micro-drag to a new target within the throttle window
	// must be suppressed.
	cell2 := newExternalCell("s1", DecorationServer, 200, "w2")
	neg.RequestResize(cell2, 250, t0)
	_, ok2 := neg.RequestResize(cell2, 255, t0.Add(5*time.Millisecond))
	if ok2 {
		t.Fatalf("drag within throttle window should be suppressed")
	}
}

func TestResizeStaleAckDiscarded(t *testing.T) {
	neg := NewResizeNegotiator()
	cell := newExternalCell("s0", DecorationClient, 0, "w")

	t0 := time.Now()
	req1, _ := neg.RequestResize(cell, 200, t0)
	_ = neg.Ack(cell, req1.Serial)

	req2, _ := neg.RequestResize(cell, 300, t0.Add(time.Second))

	// An ack for the first (now-stale) serial must not overwrite the
	// second, still-pending resize.
	stale := neg.Ack(cell, req1.Serial)
	if stale.Accepted {
		t.Fatalf("stale ack was accepted")
	}
	if cell.pending == nil || cell.pending.Serial != req2.Serial {
		t.Fatalf("stale ack disturbed the pending resize")
	}
}

func TestResizeRedundantSameTargetDropped(t *testing.T) {
	neg := NewResizeNegotiator()
	cell := newExternalCell("s0", DecorationClient, 0, "w")
	t0 := time.Now()

	_, ok := neg.RequestResize(cell, 300, t0)
	if !ok {
		t.Fatalf("first request should send a configure")
	}
	_, ok2 := neg.RequestResize(cell, 300, t0.Add(time.Second))
	if ok2 {
		t.Fatalf("identical target while pending should be dropped")
	}
}
