package vcp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/celrix/celrix-go/wire"
)

// Header is a decoded frame header.
type Header struct {
	Version    byte
	Opcode     Opcode
	Flags      uint16
	PayloadLen uint32
	RequestID  uint64
}

// AppendHeader appends the 22-byte wire form of h to dst.
// Multi-byte fields are big-endian, the reserved bytes are zero.
func AppendHeader(dst []byte, h Header) []byte {
	dst = append(dst, Magic...)
	dst = append(dst, h.Version, byte(h.Opcode))
	dst = binary.BigEndian.AppendUint16(dst, h.Flags)
	dst = binary.BigEndian.AppendUint32(dst, h.PayloadLen)
	dst = binary.BigEndian.AppendUint64(dst, h.RequestID)
	return append(dst, 0, 0)
}

// EncodeFrame returns header and payload as one frame. Flags are zero.
func EncodeFrame(op Opcode, payload []byte, requestID uint64) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = AppendHeader(frame, Header{
		Version:    Version,
		Opcode:     op,
		PayloadLen: uint32(len(payload)),
		RequestID:  requestID,
	})
	return append(frame, payload...)
}

// DecodeHeader parses exactly HeaderSize bytes.
// The magic is checked first; no other field is trusted when it is wrong.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, &wire.FrameTruncatedError{Declared: HeaderSize, Received: uint64(len(b))}
	}

	if string(b[offMagic:offVersion]) != Magic {
		var got [4]byte
		copy(got[:], b[offMagic:offVersion])
		return Header{}, &wire.BadMagicError{Got: got}
	}

	return Header{
		Version:    b[offVersion],
		Opcode:     Opcode(b[offOpcode]),
		Flags:      binary.BigEndian.Uint16(b[offFlags:]),
		PayloadLen: binary.BigEndian.Uint32(b[offPayloadLen:]),
		RequestID:  binary.BigEndian.Uint64(b[offRequestID:offReserved]),
	}, nil
}

// ReadHeader reads one header with a single exact-size read.
//
// A stream that is already at EOF returns wire.ErrConnectionClosed; a stream
// that ends inside the header returns *wire.FrameTruncatedError.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return Header{}, wire.ErrConnectionClosed
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Header{}, &wire.FrameTruncatedError{Declared: HeaderSize, Received: uint64(n)}
		default:
			return Header{}, &wire.ConnectionError{Op: "read", Err: err}
		}
	}
	return DecodeHeader(buf[:])
}

// readChunk bounds the up-front allocation for a payload, so a garbage
// length cannot allocate gigabytes before the stream proves it has them.
const readChunk = 64 << 10

// ReadPayload reads exactly n bytes.
//
// n == 0 returns an empty payload without reading. A short stream returns
// *wire.FrameTruncatedError and no data.
func ReadPayload(r io.Reader, n uint32) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	if n <= readChunk {
		payload := make([]byte, n)
		got, err := io.ReadFull(r, payload)
		if err != nil {
			return nil, payloadReadError(err, n, got)
		}
		return payload, nil
	}

	var buf bytes.Buffer
	buf.Grow(readChunk)
	got, err := io.CopyN(&buf, r, int64(n))
	if err != nil {
		return nil, payloadReadError(err, n, int(got))
	}
	return buf.Bytes(), nil
}

func payloadReadError(err error, declared uint32, received int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &wire.FrameTruncatedError{Declared: uint64(declared), Received: uint64(received)}
	}
	return &wire.ConnectionError{Op: "read", Err: err}
}
