package vcp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/celrix/celrix-go/wire"
)

func TestEncodeCommand_Layouts(t *testing.T) {
	u32 := func(n uint32) []byte { return binary.BigEndian.AppendUint32(nil, n) }
	u64 := func(n uint64) []byte { return binary.BigEndian.AppendUint64(nil, n) }
	cat := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

	tests := []struct {
		name    string
		cmd     wire.Command
		op      Opcode
		payload []byte
	}{
		{"ping", wire.Ping{}, OpPing, nil},
		{"get", wire.Get{Key: "key"}, OpGet, cat(u32(3), []byte("key"))},
		{"set no ttl", wire.Set{Key: "k", Value: []byte("vv")}, OpSet,
			cat(u32(1), []byte("k"), u32(2), []byte("vv"), u64(0))},
		{"set ttl rounds down", wire.Set{Key: "k", Value: []byte("v"), TTL: 90*time.Second + 900*time.Millisecond}, OpSet,
			cat(u32(1), []byte("k"), u32(1), []byte("v"), u64(90))},
		{"incrby negative", wire.IncrBy{Key: "n", Delta: -2}, OpIncrBy,
			cat(u32(1), []byte("n"), u64(math.MaxUint64-1))},
		{"mdel", wire.MDel{Keys: []string{"a", "bc"}}, OpMDel,
			cat(u32(2), u32(1), []byte("a"), u32(2), []byte("bc"))},
		{"keys all", wire.Keys{}, OpKeys, nil},
		{"keys pattern", wire.Keys{Pattern: "u*"}, OpKeys, cat(u32(2), []byte("u*"))},
		{"vector add", wire.VectorAdd{Key: "v", Vector: []float32{1, -2}}, OpVectorAdd,
			cat(u32(1), []byte("v"), u32(2), u32(math.Float32bits(1)), u32(math.Float32bits(-2)))},
		{"vector search", wire.VectorSearch{Vector: []float32{0.5}, K: 3}, OpVectorSearch,
			cat(u32(1), u32(math.Float32bits(0.5)), u32(3))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, payload, err := EncodeCommand(tt.cmd)
			require.NoError(t, err)
			require.Equal(t, tt.op, op)
			require.Equal(t, len(tt.payload), len(payload))
			if len(tt.payload) > 0 {
				require.Equal(t, tt.payload, payload)
			}
		})
	}
}

func TestVectorAddPayloadLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 127, 128, 1024, 2048} {
		key := "vec:key"
		_, payload, err := EncodeCommand(wire.VectorAdd{Key: key, Vector: make([]float32, n)})
		require.NoError(t, err)
		require.Len(t, payload, 4+len(key)+4+4*n, "n=%d", n)
		require.Equal(t, uint32(n), binary.BigEndian.Uint32(payload[4+len(key):]), "declared count, n=%d", n)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	commands := []wire.Command{
		wire.Ping{},
		wire.Get{Key: "k"},
		wire.Set{Key: "k", Value: []byte("value"), TTL: time.Hour},
		wire.Del{Key: "k"},
		wire.Exists{Key: "k"},
		wire.Incr{Key: "k"},
		wire.Decr{Key: "k"},
		wire.IncrBy{Key: "k", Delta: math.MinInt64},
		wire.DecrBy{Key: "k", Delta: math.MaxInt64},
		wire.MSet{Pairs: []wire.KeyValue{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}}},
		wire.MDel{Keys: []string{"a", "b", "c"}},
		wire.Keys{},
		wire.Keys{Pattern: "user:*"},
		wire.VectorAdd{Key: "v", Vector: []float32{float32(math.Inf(1)), 0, -0.25}},
		wire.VectorSearch{Vector: []float32{1, 2, 3}, K: 10},
	}

	for _, cmd := range commands {
		t.Run(cmd.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteRequest(&buf, 42, cmd))
			require.Equal(t, payloadSize(cmd), uint64(buf.Len()-HeaderSize))

			h, got, err := ReadRequest(&buf)
			require.NoError(t, err)
			require.Equal(t, uint64(42), h.RequestID)
			require.Equal(t, cmd, got)
			require.Zero(t, buf.Len())
		})
	}
}

func TestEncodeCommand_Invalid(t *testing.T) {
	_, _, err := EncodeCommand(wire.Get{})
	var kerr *wire.InvalidKeyError
	require.ErrorAs(t, err, &kerr)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	require.Error(t, WriteRequest(bw, 1, wire.MSet{}))
	require.Zero(t, bw.Buffered())
	require.Zero(t, buf.Len())
}

func TestEncodeCommand_PayloadLimit(t *testing.T) {
	// Pairs share one backing array, so the command is small in memory
	// while its encoding would exceed a u32 length.
	value := make([]byte, 1<<20)
	pairs := make([]wire.KeyValue, 4096)
	for i := range pairs {
		pairs[i] = wire.KeyValue{Key: "k", Value: value}
	}
	cmd := wire.MSet{Pairs: pairs}
	require.Greater(t, payloadSize(cmd), uint64(wire.MaxLength))

	_, _, err := EncodeCommand(cmd)
	var aerr *wire.InvalidArgumentError
	require.ErrorAs(t, err, &aerr)

	var buf bytes.Buffer
	require.ErrorAs(t, WriteRequest(&buf, 1, cmd), &aerr)
	require.Zero(t, buf.Len())
}

func TestDecodeCommand_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		op      Opcode
		payload []byte
		check   func(t *testing.T, err error)
	}{
		{"unknown opcode", Opcode(0x7f), nil, func(t *testing.T, err error) {
			var e *wire.UnknownOpcodeError
			require.ErrorAs(t, err, &e)
			require.Equal(t, byte(0x7f), e.Opcode)
		}},
		{"key length past end", OpGet, []byte{0, 0, 0, 9, 'a'}, func(t *testing.T, err error) {
			var e *wire.PayloadTruncatedError
			require.ErrorAs(t, err, &e)
		}},
		{"trailing bytes", OpPing, []byte{1}, func(t *testing.T, err error) {
			var e *wire.ParseError
			require.ErrorAs(t, err, &e)
		}},
		{"huge mset count", OpMSet, []byte{0xff, 0xff, 0xff, 0xff}, func(t *testing.T, err error) {
			var e *wire.PayloadTruncatedError
			require.ErrorAs(t, err, &e)
		}},
		{"huge vector", OpVectorSearch, []byte{0x40, 0, 0, 0, 1, 2, 3, 4}, func(t *testing.T, err error) {
			var e *wire.PayloadTruncatedError
			require.ErrorAs(t, err, &e)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.op, tt.payload)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	values := []wire.Value{
		wire.StatusOK,
		wire.StatusPong,
		wire.Error("ERR no such key"),
		wire.Bulk("hello"),
		wire.Bulk{},
		wire.Nil{},
		wire.Integer(0),
		wire.Integer(math.MinInt64),
		wire.Array{},
		wire.Array{wire.Bulk("a"), wire.Bulk{}, wire.Bulk("ccc")},
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResponse(&buf, 9, v))

			h, got, err := ReadResponse(&buf)
			require.NoError(t, err)
			require.True(t, h.Opcode.IsResponse())
			require.Equal(t, uint64(9), h.RequestID)
			require.Equal(t, v, got)
		})
	}
}

func TestEncodeResponse_Unencodable(t *testing.T) {
	for _, v := range []wire.Value{
		wire.Status("QUEUED"),
		wire.Array{wire.Integer(1)},
		wire.Array{wire.Array{}},
	} {
		_, _, err := EncodeResponse(v)
		var aerr *wire.InvalidArgumentError
		require.ErrorAs(t, err, &aerr, v.String())
	}
}

func TestDecodeResponse_Malformed(t *testing.T) {
	t.Run("nil with payload", func(t *testing.T) {
		_, err := DecodeResponse(OpNil, []byte{1})
		var e *wire.ParseError
		require.ErrorAs(t, err, &e)
	})

	t.Run("short integer", func(t *testing.T) {
		_, err := DecodeResponse(OpInteger, []byte{0, 0, 0, 1})
		var e *wire.ParseError
		require.ErrorAs(t, err, &e)
	})

	t.Run("request opcode", func(t *testing.T) {
		_, err := DecodeResponse(OpGet, nil)
		var e *wire.UnknownOpcodeError
		require.ErrorAs(t, err, &e)
	})

	t.Run("array element past end", func(t *testing.T) {
		payload := binary.BigEndian.AppendUint32(nil, 2)
		payload = appendString(payload, "ok")
		payload = binary.BigEndian.AppendUint32(payload, 100)
		payload = append(payload, "short"...)

		_, err := DecodeResponse(OpArray, payload)
		var e *wire.PayloadTruncatedError
		require.ErrorAs(t, err, &e)
	})

	t.Run("array count too large", func(t *testing.T) {
		_, err := DecodeResponse(OpArray, []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0})
		var e *wire.PayloadTruncatedError
		require.ErrorAs(t, err, &e)
	})

	t.Run("array trailing bytes", func(t *testing.T) {
		payload := binary.BigEndian.AppendUint32(nil, 1)
		payload = appendString(payload, "a")
		payload = append(payload, 0)

		_, err := DecodeResponse(OpArray, payload)
		var e *wire.ParseError
		require.ErrorAs(t, err, &e)
	})
}

func TestReadResponse_Truncated(t *testing.T) {
	frame := EncodeFrame(OpValue, []byte("hello world"), 3)

	_, v, err := ReadResponse(bytes.NewReader(frame[:len(frame)-4]))
	require.Nil(t, v)
	var terr *wire.FrameTruncatedError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, uint64(11), terr.Declared)
	require.Equal(t, uint64(7), terr.Received)
}

func FuzzDecodeResponse(f *testing.F) {
	for _, v := range []wire.Value{wire.StatusOK, wire.Bulk("x"), wire.Integer(7), wire.Array{wire.Bulk("a")}} {
		op, payload, _ := EncodeResponse(v)
		f.Add(byte(op), payload)
	}

	f.Fuzz(func(t *testing.T, op byte, payload []byte) {
		v, err := DecodeResponse(Opcode(op), payload)
		if err != nil {
			return
		}
		// anything that decodes must encode back to the same value
		op2, payload2, err := EncodeResponse(v)
		require.NoError(t, err)
		v2, err := DecodeResponse(op2, payload2)
		require.NoError(t, err)
		require.Equal(t, v, v2)
	})
}

func FuzzReadRequest(f *testing.F) {
	for _, cmd := range []wire.Command{wire.Ping{}, wire.Set{Key: "k", Value: []byte("v")}, wire.MDel{Keys: []string{"a"}}} {
		var buf bytes.Buffer
		_ = WriteRequest(&buf, 1, cmd)
		f.Add(buf.Bytes())
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _, _ = ReadRequest(bytes.NewReader(data))
	})
}
