package celrix

import (
	"bufio"

	"github.com/celrix/celrix-go/resp"
	"github.com/celrix/celrix-go/vcp"
	"github.com/celrix/celrix-go/wire"
)

// codec is one of the two wire formats, seen from the client side.
type codec interface {
	send(w *bufio.Writer, requestID uint64, cmd wire.Command) error
	// receive returns the request ID echoed by the peer, 0 when the format has none.
	receive(r *bufio.Reader) (uint64, wire.Value, error)
}

func newCodec(p Protocol, maxDepth int) codec {
	if p == ProtocolText {
		return textCodec{maxDepth: maxDepth}
	}
	return binaryCodec{}
}

type binaryCodec struct{}

func (binaryCodec) send(w *bufio.Writer, requestID uint64, cmd wire.Command) error {
	return vcp.WriteRequest(w, requestID, cmd)
}

func (binaryCodec) receive(r *bufio.Reader) (uint64, wire.Value, error) {
	hdr, v, err := vcp.ReadResponse(r)
	return hdr.RequestID, v, err
}

type textCodec struct {
	maxDepth int
}

func (textCodec) send(w *bufio.Writer, _ uint64, cmd wire.Command) error {
	return resp.WriteCommand(w, cmd)
}

func (c textCodec) receive(r *bufio.Reader) (uint64, wire.Value, error) {
	v, err := resp.ReadValueDepth(r, c.maxDepth)
	return 0, v, err
}
