package vcp

import (
	"encoding/binary"
	"fmt"

	"github.com/celrix/celrix-go/wire"
)

// DecodeResponse maps a response frame to a Value.
//
//	OK       -> wire.Status("OK")
//	PONG     -> wire.Status("PONG")
//	ERROR    -> wire.Error(payload)
//	VALUE    -> wire.Bulk(payload)
//	NIL      -> wire.Nil (payload must be empty)
//	INTEGER  -> wire.Integer (payload is exactly 8 bytes, big-endian signed)
//	ARRAY    -> wire.Array of wire.Bulk, payload [count]([len][bytes])*
//
// Any other opcode fails with *wire.UnknownOpcodeError.
func DecodeResponse(op Opcode, payload []byte) (wire.Value, error) {
	switch op {
	case OpOK:
		return wire.StatusOK, nil
	case OpPong:
		return wire.StatusPong, nil
	case OpError:
		return wire.Error(payload), nil
	case OpValue:
		if payload == nil {
			payload = []byte{}
		}
		return wire.Bulk(payload), nil
	case OpNil:
		if len(payload) != 0 {
			return nil, &wire.ParseError{Message: fmt.Sprintf("NIL response with %d payload bytes", len(payload))}
		}
		return wire.Nil{}, nil
	case OpInteger:
		if len(payload) != 8 {
			return nil, &wire.ParseError{Message: fmt.Sprintf("INTEGER payload is %d bytes, want 8", len(payload))}
		}
		return wire.Integer(int64(binary.BigEndian.Uint64(payload))), nil
	case OpArray:
		return decodeArray(payload)
	default:
		return nil, &wire.UnknownOpcodeError{Opcode: byte(op)}
	}
}

// decodeArray walks [count]([len][bytes])*, advancing 4+len per element.
func decodeArray(payload []byte) (wire.Value, error) {
	c := &cursor{buf: payload}

	count, err := c.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(c.remaining()) {
		return nil, &wire.PayloadTruncatedError{Offset: c.off, Need: int(count) * 4, Len: len(payload)}
	}

	arr := make(wire.Array, count)
	for i := range arr {
		item, err := c.bytes()
		if err != nil {
			return nil, err
		}
		arr[i] = wire.Bulk(item)
	}
	if err := c.done(); err != nil {
		return nil, err
	}
	return arr, nil
}

// EncodeResponse is the inverse of DecodeResponse.
// Arrays may only hold Bulk elements; the binary ARRAY layout has no type tags.
func EncodeResponse(v wire.Value) (Opcode, []byte, error) {
	op, payload, err := encodeResponse(v)
	if err == nil && uint64(len(payload)) > wire.MaxLength {
		return 0, nil, &wire.InvalidArgumentError{
			Message: fmt.Sprintf("%s payload of %d bytes exceeds the frame limit", op, len(payload)),
		}
	}
	return op, payload, err
}

func encodeResponse(v wire.Value) (Opcode, []byte, error) {
	switch val := v.(type) {
	case wire.Status:
		if val == wire.StatusPong {
			return OpPong, nil, nil
		}
		if val != wire.StatusOK {
			return 0, nil, &wire.InvalidArgumentError{Message: fmt.Sprintf("status %q has no binary encoding", string(val))}
		}
		return OpOK, nil, nil
	case wire.Error:
		return OpError, []byte(val), nil
	case wire.Bulk:
		return OpValue, []byte(val), nil
	case wire.Nil:
		return OpNil, nil, nil
	case wire.Integer:
		return OpInteger, binary.BigEndian.AppendUint64(nil, uint64(val)), nil
	case wire.Array:
		payload := binary.BigEndian.AppendUint32(nil, uint32(len(val)))
		for _, item := range val {
			b, ok := item.(wire.Bulk)
			if !ok {
				return 0, nil, &wire.InvalidArgumentError{Message: fmt.Sprintf("array element of kind %s has no binary encoding", item.Kind())}
			}
			payload = appendBytes(payload, b)
		}
		return OpArray, payload, nil
	default:
		return 0, nil, &wire.InvalidArgumentError{Message: fmt.Sprintf("value %T has no binary encoding", v)}
	}
}
