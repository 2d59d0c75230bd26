package vcp

import (
	"io"

	"github.com/celrix/celrix-go/wire"
)

// ReadResponse reads one response frame and decodes it.
//
// The header is read and checked before any payload byte is consumed.
// Server errors are returned as a wire.Error value, not as a Go error; Go
// errors mean the stream can no longer be trusted (see wire.ShouldCloseConnection).
func ReadResponse(r io.Reader) (Header, wire.Value, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, err
	}

	payload, err := ReadPayload(r, h.PayloadLen)
	if err != nil {
		return h, nil, err
	}

	v, err := DecodeResponse(h.Opcode, payload)
	if err != nil {
		return h, nil, err
	}
	return h, v, nil
}

// ReadRequest reads one request frame and decodes its command.
func ReadRequest(r io.Reader) (Header, wire.Command, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, err
	}

	payload, err := ReadPayload(r, h.PayloadLen)
	if err != nil {
		return h, nil, err
	}

	cmd, err := DecodeCommand(h.Opcode, payload)
	if err != nil {
		return h, nil, err
	}
	return h, cmd, nil
}
