// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: ipc/messages.go
// Summary: Implements the payload types and their manual wire encodings
// for each message type named in wire.go.

package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var (
	errStringTooLong = errors.New("ipc: string exceeds maximum length")
	errPayloadShort  = errors.New("ipc: payload too short")
)

// maxStringLen bounds a single encoded string. Command lines, paths
// and titles are well under this in practice; the bound exists only to
// stop a corrupt or hostile length prefix from driving an enormous
// allocation in decodeString.
const maxStringLen = 1 << 20

// Hello initiates the handshake from client to server.
type Hello struct {
	ClientName   string
	Capabilities uint32
}

// Welcome is returned by termstackd acknowledging the handshake.
type Welcome struct {
	SessionID  [16]byte
	ServerName string
}

// SpawnTerminal requests a new interactive terminal cell.
type SpawnTerminal struct {
	Cwd string
	Cmd string
	Env []string
}

// SpawnGUI requests launching a GUI process with its output captured
// into a companion terminal.
type SpawnGUI struct {
	Cwd        string
	Cmd        string
	Env        []string
	Background bool
}

// SpawnBuiltin records a shell-builtin execution as an inert cell.
type SpawnBuiltin struct {
	Prompt  string
	Command string
	Output  string
	IsError bool
}

// SpawnAck reports the identity assigned to a spawned cell.
type SpawnAck struct {
	CellID [16]byte
	Token  string
}

// ClassifyRequest asks the classification collaborator whether a typed
// command line is complete, and whether it can run in a new cell or
// needs the invoking shell's own state.
type ClassifyRequest struct {
	Cmd string
}

// ClassifyResponse answers a ClassifyRequest with one of the outcome
// codes defined by the Classify message's wire contract: 0 to spawn a
// new cell, 2 if the command affects shell state, 3 if its syntax is
// incomplete.
type ClassifyResponse struct {
	Code uint8
}

// ResizeConfigure carries a configure message toward an external
// client.
type ResizeConfigure struct {
	SurfaceID string
	Height    int32
	Serial    uint64
}

// ResizeAck carries a client's acknowledgment of a configure back to
// termstackd.
type ResizeAck struct {
	SurfaceID string
	Serial    uint64
}

// ExternalAnnounced reports a newly mapped external toplevel surface,
// optionally correlated to a prior SpawnGUI via Token.
type ExternalAnnounced struct {
	Token       string
	SurfaceID   string
	Decorated   bool
	InitialSize int32
	Title       string
}

// ExternalClosed reports that an external toplevel surface unmapped.
type ExternalClosed struct {
	SurfaceID string
}

// ErrorFrame communicates protocol-level errors.
type ErrorFrame struct {
	Code    uint16
	Message string
}

// Ping/Pong keep the connection alive.
type Ping struct{ Timestamp int64 }
type Pong struct{ Timestamp int64 }

// ViewportResizeMode selects which dimension a ViewportResize frame is
// retargeting.
type ViewportResizeMode uint8

const (
	// ResizeModeFull sets the overall viewport height a client window
	// occupies.
	ResizeModeFull ViewportResizeMode = 0
	// ResizeModeContent sets the height available to cell content once
	// chrome (borders, gaps) is subtracted.
	ResizeModeContent ViewportResizeMode = 1
)

// ViewportResize asks termstackd to relayout the stack against a new
// viewport height. Height is carried alongside Mode because a mode on
// its own names which dimension changed but not its new value; a client
// resizing its window has that value in hand already.
type ViewportResize struct {
	Mode   ViewportResizeMode
	Height int32
}

// encodeString writes value as a LEB128 varint length followed by its
// bytes, rather than a fixed-width count, so a one-word command doesn't
// pay the same length-prefix cost as a long Cmd or Title field.
func encodeString(buf *bytes.Buffer, value string) error {
	if len(value) > maxStringLen {
		return errStringTooLong
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(value)))
	buf.Write(lenBuf[:n])
	if len(value) > 0 {
		if _, err := buf.WriteString(value); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(b []byte) (string, []byte, error) {
	length, n := binary.Uvarint(b)
	if n <= 0 || length > maxStringLen {
		return "", nil, errPayloadShort
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return "", nil, errPayloadShort
	}
	return string(b[:length]), b[length:], nil
}

func encodeStringSlice(buf *bytes.Buffer, values []string) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(values)))
	buf.Write(lenBuf[:n])
	for _, v := range values {
		if err := encodeString(buf, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeStringSlice(b []byte) ([]string, []byte, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, errPayloadShort
	}
	b = b[n:]
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		v, rest, err := decodeString(b)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
		b = rest
	}
	return out, b, nil
}

func EncodeSpawnTerminal(m SpawnTerminal) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64+len(m.Cwd)+len(m.Cmd)))
	if err := encodeString(buf, m.Cwd); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.Cmd); err != nil {
		return nil, err
	}
	if err := encodeStringSlice(buf, m.Env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSpawnTerminal(b []byte) (SpawnTerminal, error) {
	var m SpawnTerminal
	cwd, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	cmd, rest, err := decodeString(rest)
	if err != nil {
		return m, err
	}
	env, _, err := decodeStringSlice(rest)
	if err != nil {
		return m, err
	}
	m.Cwd, m.Cmd, m.Env = cwd, cmd, env
	return m, nil
}

func EncodeSpawnGUI(m SpawnGUI) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64+len(m.Cwd)+len(m.Cmd)))
	if err := encodeString(buf, m.Cwd); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.Cmd); err != nil {
		return nil, err
	}
	if err := encodeStringSlice(buf, m.Env); err != nil {
		return nil, err
	}
	background := byte(0)
	if m.Background {
		background = 1
	}
	buf.WriteByte(background)
	return buf.Bytes(), nil
}

func DecodeSpawnGUI(b []byte) (SpawnGUI, error) {
	var m SpawnGUI
	cwd, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	cmd, rest, err := decodeString(rest)
	if err != nil {
		return m, err
	}
	env, rest, err := decodeStringSlice(rest)
	if err != nil {
		return m, err
	}
	if len(rest) < 1 {
		return m, errPayloadShort
	}
	m.Cwd, m.Cmd, m.Env = cwd, cmd, env
	m.Background = rest[0] != 0
	return m, nil
}

func EncodeResizeConfigure(m ResizeConfigure) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(m.SurfaceID)))
	if err := encodeString(buf, m.SurfaceID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Height); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Serial); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeResizeConfigure(b []byte) (ResizeConfigure, error) {
	var m ResizeConfigure
	surface, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	if len(rest) < 12 {
		return m, errPayloadShort
	}
	m.SurfaceID = surface
	m.Height = int32(binary.LittleEndian.Uint32(rest[0:4]))
	m.Serial = binary.LittleEndian.Uint64(rest[4:12])
	return m, nil
}

func EncodeResizeAck(m ResizeAck) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(m.SurfaceID)))
	if err := encodeString(buf, m.SurfaceID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Serial); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeResizeAck(b []byte) (ResizeAck, error) {
	var m ResizeAck
	surface, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	if len(rest) < 8 {
		return m, errPayloadShort
	}
	m.SurfaceID = surface
	m.Serial = binary.LittleEndian.Uint64(rest[0:8])
	return m, nil
}

func EncodeHello(m Hello) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(m.ClientName)))
	if err := encodeString(buf, m.ClientName); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Capabilities); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeHello(b []byte) (Hello, error) {
	var m Hello
	name, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	if len(rest) < 4 {
		return m, errPayloadShort
	}
	m.ClientName = name
	m.Capabilities = binary.LittleEndian.Uint32(rest[0:4])
	return m, nil
}

func EncodeWelcome(m Welcome) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 32+len(m.ServerName)))
	buf.Write(m.SessionID[:])
	if err := encodeString(buf, m.ServerName); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeWelcome(b []byte) (Welcome, error) {
	var m Welcome
	if len(b) < 16 {
		return m, errPayloadShort
	}
	copy(m.SessionID[:], b[:16])
	name, _, err := decodeString(b[16:])
	if err != nil {
		return m, err
	}
	m.ServerName = name
	return m, nil
}

func EncodeSpawnBuiltin(m SpawnBuiltin) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64+len(m.Prompt)+len(m.Command)+len(m.Output)))
	if err := encodeString(buf, m.Prompt); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.Command); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.Output); err != nil {
		return nil, err
	}
	isError := byte(0)
	if m.IsError {
		isError = 1
	}
	buf.WriteByte(isError)
	return buf.Bytes(), nil
}

func DecodeSpawnBuiltin(b []byte) (SpawnBuiltin, error) {
	var m SpawnBuiltin
	prompt, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	command, rest, err := decodeString(rest)
	if err != nil {
		return m, err
	}
	output, rest, err := decodeString(rest)
	if err != nil {
		return m, err
	}
	if len(rest) < 1 {
		return m, errPayloadShort
	}
	m.Prompt, m.Command, m.Output = prompt, command, output
	m.IsError = rest[0] != 0
	return m, nil
}

func EncodeSpawnAck(m SpawnAck) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 32+len(m.Token)))
	buf.Write(m.CellID[:])
	if err := encodeString(buf, m.Token); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSpawnAck(b []byte) (SpawnAck, error) {
	var m SpawnAck
	if len(b) < 16 {
		return m, errPayloadShort
	}
	copy(m.CellID[:], b[:16])
	token, _, err := decodeString(b[16:])
	if err != nil {
		return m, err
	}
	m.Token = token
	return m, nil
}

func EncodeClassifyRequest(m ClassifyRequest) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 8+len(m.Cmd)))
	if err := encodeString(buf, m.Cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeClassifyRequest(b []byte) (ClassifyRequest, error) {
	var m ClassifyRequest
	cmd, _, err := decodeString(b)
	if err != nil {
		return m, err
	}
	m.Cmd = cmd
	return m, nil
}

func EncodeClassifyResponse(m ClassifyResponse) ([]byte, error) {
	return []byte{m.Code}, nil
}

func DecodeClassifyResponse(b []byte) (ClassifyResponse, error) {
	var m ClassifyResponse
	if len(b) < 1 {
		return m, errPayloadShort
	}
	m.Code = b[0]
	return m, nil
}

func EncodePing(m Ping) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 8))
	if err := binary.Write(buf, binary.LittleEndian, m.Timestamp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodePing(b []byte) (Ping, error) {
	var m Ping
	if len(b) < 8 {
		return m, errPayloadShort
	}
	m.Timestamp = int64(binary.LittleEndian.Uint64(b[0:8]))
	return m, nil
}

func EncodePong(m Pong) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 8))
	if err := binary.Write(buf, binary.LittleEndian, m.Timestamp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodePong(b []byte) (Pong, error) {
	var m Pong
	if len(b) < 8 {
		return m, errPayloadShort
	}
	m.Timestamp = int64(binary.LittleEndian.Uint64(b[0:8]))
	return m, nil
}

func EncodeExternalAnnounced(m ExternalAnnounced) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64+len(m.SurfaceID)+len(m.Title)))
	if err := encodeString(buf, m.Token); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.SurfaceID); err != nil {
		return nil, err
	}
	decorated := byte(0)
	if m.Decorated {
		decorated = 1
	}
	buf.WriteByte(decorated)
	if err := binary.Write(buf, binary.LittleEndian, m.InitialSize); err != nil {
		return nil, err
	}
	if err := encodeString(buf, m.Title); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeExternalAnnounced(b []byte) (ExternalAnnounced, error) {
	var m ExternalAnnounced
	token, rest, err := decodeString(b)
	if err != nil {
		return m, err
	}
	surface, rest, err := decodeString(rest)
	if err != nil {
		return m, err
	}
	if len(rest) < 5 {
		return m, errPayloadShort
	}
	m.Token, m.SurfaceID = token, surface
	m.Decorated = rest[0] != 0
	m.InitialSize = int32(binary.LittleEndian.Uint32(rest[1:5]))
	title, _, err := decodeString(rest[5:])
	if err != nil {
		return m, err
	}
	m.Title = title
	return m, nil
}

func EncodeExternalClosed(m ExternalClosed) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(m.SurfaceID)))
	if err := encodeString(buf, m.SurfaceID); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeExternalClosed(b []byte) (ExternalClosed, error) {
	var m ExternalClosed
	surface, _, err := decodeString(b)
	if err != nil {
		return m, err
	}
	m.SurfaceID = surface
	return m, nil
}

func EncodeErrorFrame(e ErrorFrame) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(e.Message)))
	if err := binary.Write(buf, binary.LittleEndian, e.Code); err != nil {
		return nil, err
	}
	if err := encodeString(buf, e.Message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeErrorFrame(b []byte) (ErrorFrame, error) {
	var e ErrorFrame
	if len(b) < 2 {
		return e, errPayloadShort
	}
	e.Code = binary.LittleEndian.Uint16(b[:2])
	msg, _, err := decodeString(b[2:])
	if err != nil {
		return e, err
	}
	e.Message = msg
	return e, nil
}

func EncodeViewportResize(m ViewportResize) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 5))
	buf.WriteByte(byte(m.Mode))
	if err := binary.Write(buf, binary.LittleEndian, m.Height); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeViewportResize(b []byte) (ViewportResize, error) {
	var m ViewportResize
	if len(b) < 5 {
		return m, errPayloadShort
	}
	m.Mode = ViewportResizeMode(b[0])
	m.Height = int32(binary.LittleEndian.Uint32(b[1:5]))
	return m, nil
}
