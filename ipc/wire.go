// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: ipc/wire.go
// Summary: Implements the length-prefixed binary frame format exchanged
// between termstackd and its CLI/front-end clients.

package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

const (
	magic      uint32 = 0x54534b31 // "TSK1"
	headerSize        = 40
)

// crcTable uses the Castagnoli polynomial (the same one SSE4.2's CRC32
// instruction implements) rather than the IEEE polynomial, so a frame
// built by this package never silently validates against a decoder
// expecting the IEEE variant.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Flag bits for the header Flags byte.
const (
	FlagChecksum uint8 = 0x01
)

// Version is the negotiated protocol version implemented by this package.
const Version uint8 = 0

// MessageType enumerates the frames exchanged between a client and
// termstackd: spawning cells, classifying launch requests, and driving
// the external-window resize handshake.
type MessageType uint8

const (
	MsgHello MessageType = iota
	MsgWelcome
	MsgSpawnTerminal
	MsgSpawnGUI
	MsgSpawnBuiltin
	MsgSpawnAck
	MsgClassifyRequest
	MsgClassifyResponse
	MsgResizeConfigure
	MsgResizeAck
	MsgExternalAnnounced
	MsgExternalClosed
	MsgInputEvent
	MsgStackSnapshot
	MsgError
	MsgPing
	MsgPong
	MsgViewportResize
)

// Header describes the fixed portion of every frame exchanged over the
// wire between termstackd and its own front ends, a transport format
// this package owns end to end.
type Header struct {
	Version    uint8
	Type       MessageType
	Flags      uint8
	Reserved   uint8
	SessionID  [16]byte
	Sequence   uint64
	PayloadLen uint32
	Checksum   uint32
}

var (
	ErrInvalidMagic     = errors.New("ipc: invalid magic")
	ErrUnsupportedVer   = errors.New("ipc: unsupported version")
	ErrShortPayload     = errors.New("ipc: payload shorter than declared length")
	ErrChecksumMismatch = errors.New("ipc: checksum mismatch")
)

// frameChecksum covers the fields that identify and carry a frame's
// content — type, session, sequence and payload — but deliberately
// excludes Version/Flags/Reserved/PayloadLen, which describe the frame
// rather than being part of it; a version bump or flag change should
// never by itself invalidate a checksum computed on the same content.
func frameChecksum(typ MessageType, sessionID [16]byte, sequence uint64, payload []byte) uint32 {
	crc := crc32.New(crcTable)
	crc.Write([]byte{byte(typ)})
	crc.Write(sessionID[:])
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)
	crc.Write(seqBuf[:])
	if len(payload) > 0 {
		crc.Write(payload)
	}
	return crc.Sum32()
}

// WriteMessage serializes the header and payload to w. The payload slice
// is written as-is; callers retain ownership of the buffer.
func WriteMessage(w io.Writer, hdr Header, payload []byte) error {
	hdr.PayloadLen = uint32(len(payload))
	if hdr.Flags&FlagChecksum != 0 {
		hdr.Checksum = frameChecksum(hdr.Type, hdr.SessionID, hdr.Sequence, payload)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload))
	binary.Write(&buf, binary.LittleEndian, magic)
	buf.WriteByte(hdr.Version)
	buf.WriteByte(byte(hdr.Type))
	buf.WriteByte(hdr.Flags)
	buf.WriteByte(hdr.Reserved)
	buf.Write(hdr.SessionID[:])
	binary.Write(&buf, binary.LittleEndian, hdr.Sequence)
	binary.Write(&buf, binary.LittleEndian, hdr.PayloadLen)
	binary.Write(&buf, binary.LittleEndian, hdr.Checksum)
	if len(payload) > 0 {
		buf.Write(payload)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ReadMessage reads a header and payload from r.
func ReadMessage(r io.Reader) (Header, []byte, error) {
	var hdr Header
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return hdr, nil, err
	}
	head := bytes.NewReader(raw)

	var gotMagic uint32
	binary.Read(head, binary.LittleEndian, &gotMagic)
	if gotMagic != magic {
		return hdr, nil, ErrInvalidMagic
	}

	version, _ := head.ReadByte()
	typ, _ := head.ReadByte()
	flags, _ := head.ReadByte()
	reserved, _ := head.ReadByte()
	hdr.Version = version
	hdr.Type = MessageType(typ)
	hdr.Flags = flags
	hdr.Reserved = reserved
	io.ReadFull(head, hdr.SessionID[:])
	binary.Read(head, binary.LittleEndian, &hdr.Sequence)
	binary.Read(head, binary.LittleEndian, &hdr.PayloadLen)
	binary.Read(head, binary.LittleEndian, &hdr.Checksum)

	if hdr.Version != Version {
		return hdr, nil, ErrUnsupportedVer
	}

	payload := make([]byte, hdr.PayloadLen)
	if hdr.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return hdr, nil, ErrShortPayload
			}
			return hdr, nil, err
		}
	}

	if hdr.Flags&FlagChecksum != 0 {
		if frameChecksum(hdr.Type, hdr.SessionID, hdr.Sequence, payload) != hdr.Checksum {
			return hdr, nil, ErrChecksumMismatch
		}
	}

	return hdr, payload, nil
}
