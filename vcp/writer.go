package vcp

import (
	"bufio"
	"io"
	"sync"

	"github.com/celrix/celrix-go/wire"
)

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 512)
		return &b
	},
}

var zeroHeader [HeaderSize]byte

// maxPooledBuffer keeps a single large vector frame from pinning memory.
const maxPooledBuffer = 64 << 10

func getBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

func putBuffer(b *[]byte) {
	if cap(*b) > maxPooledBuffer {
		return
	}
	*b = (*b)[:0]
	bufferPool.Put(b)
}

// WriteRequest encodes cmd as one frame carrying requestID and writes it to w.
// A *bufio.Writer is flushed before returning.
//
// Validation errors are returned before anything is written.
func WriteRequest(w io.Writer, requestID uint64, cmd wire.Command) error {
	buf := getBuffer()
	defer putBuffer(buf)

	// Reserve the header, encode the payload behind it, then fill the header in.
	frame := append((*buf)[:0], zeroHeader[:]...)
	op, frame, err := AppendCommand(frame, cmd)
	if err != nil {
		return err
	}
	AppendHeader(frame[:0], Header{
		Version:    Version,
		Opcode:     op,
		PayloadLen: uint32(len(frame) - HeaderSize),
		RequestID:  requestID,
	})
	*buf = frame

	return writeFrame(w, frame)
}

// WriteResponse encodes v as one response frame carrying requestID.
func WriteResponse(w io.Writer, requestID uint64, v wire.Value) error {
	op, payload, err := EncodeResponse(v)
	if err != nil {
		return err
	}
	return writeFrame(w, EncodeFrame(op, payload, requestID))
}

func writeFrame(w io.Writer, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return &wire.ConnectionError{Op: "write", Err: err}
	}
	if bw, ok := w.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			return &wire.ConnectionError{Op: "flush", Err: err}
		}
	}
	return nil
}
