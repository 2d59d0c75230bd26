package vcp

import (
	"encoding/binary"
	"math"

	"github.com/celrix/celrix-go/wire"
)

// Payload builders. Every length is a big-endian u32.

func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// appendVector writes [count: u32][f32 × count], each float big-endian IEEE-754.
func appendVector(dst []byte, v []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
	for _, f := range v {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// cursor walks a received payload. Every read is bounds-checked against the
// payload end and fails with *wire.PayloadTruncatedError instead of panicking.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) need(n int) error {
	if n < 0 || n > len(c.buf)-c.off {
		return &wire.PayloadTruncatedError{Offset: c.off, Need: n, Len: len(c.buf)}
	}
	return nil
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) uint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) uint64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

// bytes reads a [len: u32][bytes] field. The result is a copy.
func (c *cursor) bytes() ([]byte, error) {
	n, err := c.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(c.remaining()) {
		return nil, &wire.PayloadTruncatedError{Offset: c.off, Need: int(n), Len: len(c.buf)}
	}
	b := make([]byte, n)
	copy(b, c.buf[c.off:])
	c.off += int(n)
	return b, nil
}

func (c *cursor) string() (string, error) {
	b, err := c.bytes()
	return string(b), err
}

func (c *cursor) vector() ([]float32, error) {
	n, err := c.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*4 > uint64(c.remaining()) {
		return nil, &wire.PayloadTruncatedError{Offset: c.off, Need: int(uint64(n) * 4), Len: len(c.buf)}
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(c.buf[c.off:]))
		c.off += 4
	}
	return v, nil
}

// done fails when bytes are left over after a fixed layout.
func (c *cursor) done() error {
	if c.remaining() != 0 {
		return &wire.ParseError{Message: "trailing bytes in payload"}
	}
	return nil
}
