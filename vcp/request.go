package vcp

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/celrix/celrix-go/wire"
)

// EncodeCommand returns the opcode and payload of cmd.
//
// Payload layouts (lengths are big-endian u32):
//
//	PING                 (empty)
//	GET, DEL, EXISTS     [keyLen][key]
//	INCR, DECR           [keyLen][key]
//	INCRBY, DECRBY       [keyLen][key][delta: i64]
//	SET                  [keyLen][key][valLen][val][ttl: u64 seconds, 0 = none]
//	MSET                 [count]([keyLen][key][valLen][val])*
//	MDEL                 [count]([keyLen][key])*
//	KEYS                 (empty) | [patLen][pattern]
//	VECTOR_ADD           [keyLen][key][count][f32 × count]
//	VECTOR_SEARCH        [count][f32 × count][k: u32]
func EncodeCommand(cmd wire.Command) (Opcode, []byte, error) {
	return AppendCommand(nil, cmd)
}

// AppendCommand is EncodeCommand appending the payload to dst.
func AppendCommand(dst []byte, cmd wire.Command) (Opcode, []byte, error) {
	if err := wire.Validate(cmd); err != nil {
		return 0, dst, err
	}
	if n := payloadSize(cmd); n > wire.MaxLength {
		return 0, dst, &wire.InvalidArgumentError{
			Message: fmt.Sprintf("%s payload of %d bytes exceeds the frame limit", cmd.Name(), n),
		}
	}

	switch c := cmd.(type) {
	case wire.Ping:
		return OpPing, dst, nil
	case wire.Get:
		return OpGet, appendString(dst, c.Key), nil
	case wire.Del:
		return OpDel, appendString(dst, c.Key), nil
	case wire.Exists:
		return OpExists, appendString(dst, c.Key), nil
	case wire.Incr:
		return OpIncr, appendString(dst, c.Key), nil
	case wire.Decr:
		return OpDecr, appendString(dst, c.Key), nil
	case wire.IncrBy:
		dst = appendString(dst, c.Key)
		return OpIncrBy, binary.BigEndian.AppendUint64(dst, uint64(c.Delta)), nil
	case wire.DecrBy:
		dst = appendString(dst, c.Key)
		return OpDecrBy, binary.BigEndian.AppendUint64(dst, uint64(c.Delta)), nil
	case wire.Set:
		dst = appendString(dst, c.Key)
		dst = appendBytes(dst, c.Value)
		return OpSet, binary.BigEndian.AppendUint64(dst, c.TTLSeconds()), nil
	case wire.MSet:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(c.Pairs)))
		for _, p := range c.Pairs {
			dst = appendString(dst, p.Key)
			dst = appendBytes(dst, p.Value)
		}
		return OpMSet, dst, nil
	case wire.MDel:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(c.Keys)))
		for _, k := range c.Keys {
			dst = appendString(dst, k)
		}
		return OpMDel, dst, nil
	case wire.Keys:
		if c.Pattern == "" {
			return OpKeys, dst, nil
		}
		return OpKeys, appendString(dst, c.Pattern), nil
	case wire.VectorAdd:
		dst = appendString(dst, c.Key)
		return OpVectorAdd, appendVector(dst, c.Vector), nil
	case wire.VectorSearch:
		dst = appendVector(dst, c.Vector)
		return OpVectorSearch, binary.BigEndian.AppendUint32(dst, c.K), nil
	default:
		return 0, dst, &wire.InvalidArgumentError{Message: fmt.Sprintf("command %T has no binary encoding", cmd)}
	}
}

// payloadSize returns the length AppendCommand would append for cmd.
func payloadSize(cmd wire.Command) uint64 {
	field := func(n int) uint64 { return 4 + uint64(n) }

	switch c := cmd.(type) {
	case wire.Get:
		return field(len(c.Key))
	case wire.Del:
		return field(len(c.Key))
	case wire.Exists:
		return field(len(c.Key))
	case wire.Incr:
		return field(len(c.Key))
	case wire.Decr:
		return field(len(c.Key))
	case wire.IncrBy:
		return field(len(c.Key)) + 8
	case wire.DecrBy:
		return field(len(c.Key)) + 8
	case wire.Set:
		return field(len(c.Key)) + field(len(c.Value)) + 8
	case wire.MSet:
		n := uint64(4)
		for _, p := range c.Pairs {
			n += field(len(p.Key)) + field(len(p.Value))
		}
		return n
	case wire.MDel:
		n := uint64(4)
		for _, k := range c.Keys {
			n += field(len(k))
		}
		return n
	case wire.Keys:
		if c.Pattern == "" {
			return 0
		}
		return field(len(c.Pattern))
	case wire.VectorAdd:
		return field(len(c.Key)) + field(4*len(c.Vector))
	case wire.VectorSearch:
		return field(4*len(c.Vector)) + 4
	default:
		return 0
	}
}

// DecodeCommand parses a request payload. It is the inverse of EncodeCommand
// and is what a peer serving the protocol runs on every frame it receives.
func DecodeCommand(op Opcode, payload []byte) (wire.Command, error) {
	c := &cursor{buf: payload}

	var (
		cmd wire.Command
		err error
	)

	switch op {
	case OpPing:
		cmd = wire.Ping{}
	case OpGet:
		var key string
		key, err = c.string()
		cmd = wire.Get{Key: key}
	case OpDel:
		var key string
		key, err = c.string()
		cmd = wire.Del{Key: key}
	case OpExists:
		var key string
		key, err = c.string()
		cmd = wire.Exists{Key: key}
	case OpIncr:
		var key string
		key, err = c.string()
		cmd = wire.Incr{Key: key}
	case OpDecr:
		var key string
		key, err = c.string()
		cmd = wire.Decr{Key: key}
	case OpIncrBy, OpDecrBy:
		cmd, err = decodeDelta(op, c)
	case OpSet:
		cmd, err = decodeSet(c)
	case OpMSet:
		cmd, err = decodeMSet(c)
	case OpMDel:
		cmd, err = decodeMDel(c)
	case OpKeys:
		var pattern string
		if c.remaining() > 0 {
			pattern, err = c.string()
		}
		cmd = wire.Keys{Pattern: pattern}
	case OpVectorAdd:
		var key string
		var vec []float32
		if key, err = c.string(); err == nil {
			vec, err = c.vector()
		}
		cmd = wire.VectorAdd{Key: key, Vector: vec}
	case OpVectorSearch:
		var vec []float32
		var k uint32
		if vec, err = c.vector(); err == nil {
			k, err = c.uint32()
		}
		cmd = wire.VectorSearch{Vector: vec, K: k}
	default:
		return nil, &wire.UnknownOpcodeError{Opcode: byte(op)}
	}

	if err != nil {
		return nil, err
	}
	if err := c.done(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeDelta(op Opcode, c *cursor) (wire.Command, error) {
	key, err := c.string()
	if err != nil {
		return nil, err
	}
	delta, err := c.uint64()
	if err != nil {
		return nil, err
	}
	if op == OpIncrBy {
		return wire.IncrBy{Key: key, Delta: int64(delta)}, nil
	}
	return wire.DecrBy{Key: key, Delta: int64(delta)}, nil
}

func decodeSet(c *cursor) (wire.Command, error) {
	key, err := c.string()
	if err != nil {
		return nil, err
	}
	value, err := c.bytes()
	if err != nil {
		return nil, err
	}
	ttl, err := c.uint64()
	if err != nil {
		return nil, err
	}
	return wire.Set{Key: key, Value: value, TTL: time.Duration(ttl) * time.Second}, nil
}

func decodeMSet(c *cursor) (wire.Command, error) {
	count, err := c.uint32()
	if err != nil {
		return nil, err
	}
	// each pair needs at least its two length prefixes
	if uint64(count)*8 > uint64(c.remaining()) {
		return nil, &wire.PayloadTruncatedError{Offset: c.off, Need: int(count) * 8, Len: len(c.buf)}
	}
	pairs := make([]wire.KeyValue, count)
	for i := range pairs {
		if pairs[i].Key, err = c.string(); err != nil {
			return nil, err
		}
		if pairs[i].Value, err = c.bytes(); err != nil {
			return nil, err
		}
	}
	return wire.MSet{Pairs: pairs}, nil
}

func decodeMDel(c *cursor) (wire.Command, error) {
	count, err := c.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(c.remaining()) {
		return nil, &wire.PayloadTruncatedError{Offset: c.off, Need: int(count) * 4, Len: len(c.buf)}
	}
	keys := make([]string, count)
	for i := range keys {
		if keys[i], err = c.string(); err != nil {
			return nil, err
		}
	}
	return wire.MDel{Keys: keys}, nil
}
