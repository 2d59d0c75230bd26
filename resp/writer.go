package resp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/celrix/celrix-go/wire"
)

// Args returns the stringified argument list of cmd, command name first.
//
// Integers are base-10, floats use the shortest form that parses back to the
// same float32, and a non-zero TTL becomes "EX <seconds>".
func Args(cmd wire.Command) ([][]byte, error) {
	if err := wire.Validate(cmd); err != nil {
		return nil, err
	}

	args := [][]byte{[]byte(cmd.Name())}
	str := func(s string) { args = append(args, []byte(s)) }
	num := func(n int64) { args = append(args, strconv.AppendInt(nil, n, 10)) }

	switch c := cmd.(type) {
	case wire.Ping:
	case wire.Get:
		str(c.Key)
	case wire.Del:
		str(c.Key)
	case wire.Exists:
		str(c.Key)
	case wire.Incr:
		str(c.Key)
	case wire.Decr:
		str(c.Key)
	case wire.IncrBy:
		str(c.Key)
		num(c.Delta)
	case wire.DecrBy:
		str(c.Key)
		num(c.Delta)
	case wire.Set:
		str(c.Key)
		args = append(args, c.Value)
		if ttl := c.TTLSeconds(); ttl > 0 {
			str("EX")
			args = append(args, strconv.AppendUint(nil, ttl, 10))
		}
	case wire.MSet:
		for _, p := range c.Pairs {
			str(p.Key)
			args = append(args, p.Value)
		}
	case wire.MDel:
		for _, k := range c.Keys {
			str(k)
		}
	case wire.Keys:
		if c.Pattern != "" {
			str(c.Pattern)
		}
	case wire.VectorAdd:
		str(c.Key)
		args = appendFloats(args, c.Vector)
	case wire.VectorSearch:
		args = appendFloats(args, c.Vector)
		num(int64(c.K))
	default:
		return nil, &wire.InvalidArgumentError{Message: fmt.Sprintf("command %T has no text encoding", cmd)}
	}
	return args, nil
}

func appendFloats(args [][]byte, v []float32) [][]byte {
	for _, f := range v {
		args = append(args, strconv.AppendFloat(nil, float64(f), 'g', -1, 32))
	}
	return args
}

// AppendCommand appends the request form of cmd to dst:
//
//	*<argc>\r\n($<len>\r\n<arg>\r\n)*
func AppendCommand(dst []byte, cmd wire.Command) ([]byte, error) {
	args, err := Args(cmd)
	if err != nil {
		return dst, err
	}
	return AppendArgs(dst, args), nil
}

// AppendArgs appends an array of bulk strings to dst.
func AppendArgs(dst []byte, args [][]byte) []byte {
	dst = append(dst, PrefixArray)
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, CRLF...)
	for _, a := range args {
		dst = appendBulk(dst, a)
	}
	return dst
}

func appendBulk(dst, b []byte) []byte {
	dst = append(dst, PrefixBulk)
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, CRLF...)
	dst = append(dst, b...)
	return append(dst, CRLF...)
}

// WriteCommand writes cmd to w. A *bufio.Writer is flushed before returning.
// Validation errors are returned before anything is written.
func WriteCommand(w io.Writer, cmd wire.Command) error {
	buf, err := AppendCommand(nil, cmd)
	if err != nil {
		return err
	}
	return write(w, buf)
}

// AppendValue appends the response form of v to dst.
func AppendValue(dst []byte, v wire.Value) []byte {
	switch val := v.(type) {
	case wire.Status:
		dst = append(dst, PrefixStatus)
		dst = append(dst, string(val)...)
	case wire.Error:
		dst = append(dst, PrefixError)
		dst = append(dst, string(val)...)
	case wire.Integer:
		dst = append(dst, PrefixInteger)
		dst = strconv.AppendInt(dst, int64(val), 10)
	case wire.Bulk:
		return appendBulk(dst, val)
	case wire.Array:
		dst = append(dst, PrefixArray)
		dst = strconv.AppendInt(dst, int64(len(val)), 10)
		dst = append(dst, CRLF...)
		for _, item := range val {
			dst = AppendValue(dst, item)
		}
		return dst
	default:
		// wire.Nil
		dst = append(dst, "$-1"...)
	}
	return append(dst, CRLF...)
}

// WriteValue writes the response form of v to w.
func WriteValue(w io.Writer, v wire.Value) error {
	return write(w, AppendValue(nil, v))
}

func write(w io.Writer, buf []byte) error {
	if _, err := w.Write(buf); err != nil {
		return &wire.ConnectionError{Op: "write", Err: err}
	}
	if bw, ok := w.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			return &wire.ConnectionError{Op: "flush", Err: err}
		}
	}
	return nil
}
