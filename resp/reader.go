package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/celrix/celrix-go/wire"
)

var crlfBytes = []byte(CRLF)

// ReadValue reads one complete response from r, bounded by DefaultMaxDepth.
//
// Server errors ("-message") are returned as a wire.Error value, not as a Go
// error. Go errors mean the stream can no longer be trusted:
//   - wire.ErrConnectionClosed: no bytes where a line was expected
//   - *wire.FrameTruncatedError: the stream ended inside a line or a bulk body
//   - *wire.UnknownPrefixError: the line starts with an unknown type byte
//   - *wire.ParseError: malformed length or integer, nesting too deep
func ReadValue(r *bufio.Reader) (wire.Value, error) {
	return ReadValueDepth(r, DefaultMaxDepth)
}

// ReadValueDepth is ReadValue with an explicit nesting limit.
// maxDepth is the number of array levels accepted; 0 rejects every array.
func ReadValueDepth(r *bufio.Reader, maxDepth int) (wire.Value, error) {
	return readValue(r, 0, maxDepth)
}

func readValue(r *bufio.Reader, depth, maxDepth int) (wire.Value, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	if len(line) == 0 {
		return wire.Nil{}, nil
	}

	prefix, rest := line[0], line[1:]

	switch prefix {
	case PrefixStatus:
		return wire.Status(rest), nil

	case PrefixError:
		return wire.Error(rest), nil

	case PrefixInteger:
		n, err := strconv.ParseInt(string(rest), 10, 64)
		if err != nil {
			return nil, &wire.ParseError{Message: "invalid integer", Err: err}
		}
		return wire.Integer(n), nil

	case PrefixBulk:
		n, err := parseLength(rest)
		if err != nil {
			return nil, err
		}
		if n == nullLength {
			return wire.Nil{}, nil
		}
		return readBulkBody(r, n)

	case PrefixArray:
		n, err := parseLength(rest)
		if err != nil {
			return nil, err
		}
		if n == nullLength {
			return wire.Nil{}, nil
		}
		if depth >= maxDepth {
			return nil, &wire.ParseError{Message: fmt.Sprintf("array nesting exceeds %d levels", maxDepth)}
		}

		arr := make(wire.Array, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			item, err := readValue(r, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil

	default:
		return nil, &wire.UnknownPrefixError{Prefix: prefix}
	}
}

// readLine returns one line without its terminator.
// The slice is only valid until the next read on r.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Line exceeds the buffer, fall back to an allocating read.
		buf := append([]byte(nil), line...)
		var rest []byte
		rest, err = r.ReadBytes('\n')
		line = append(buf, rest...)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return nil, wire.ErrConnectionClosed
			}
			return nil, &wire.FrameTruncatedError{Declared: uint64(len(line)) + 1, Received: uint64(len(line))}
		}
		return nil, &wire.ConnectionError{Op: "read", Err: err}
	}

	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// parseLength parses a $ or * header: -1 for null, otherwise 0..MaxBulkLength.
func parseLength(b []byte) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, &wire.ParseError{Message: "invalid length", Err: err}
	}
	if n < nullLength || n > MaxBulkLength {
		return 0, &wire.ParseError{Message: fmt.Sprintf("length %d out of range", n)}
	}
	return n, nil
}

// bulkChunk bounds the up-front allocation for a bulk body, so a garbage
// length cannot allocate MaxBulkLength before the stream delivers it.
const bulkChunk = 64 << 10

// readBulkBody reads n body bytes plus the CRLF terminator.
func readBulkBody(r *bufio.Reader, n int) (wire.Value, error) {
	size := n + len(CRLF)

	var body []byte
	if size <= bulkChunk {
		body = make([]byte, size)
		got, err := io.ReadFull(r, body)
		if err != nil {
			return nil, bulkReadError(err, size, got)
		}
	} else {
		var buf bytes.Buffer
		buf.Grow(bulkChunk)
		got, err := io.CopyN(&buf, r, int64(size))
		if err != nil {
			return nil, bulkReadError(err, size, int(got))
		}
		body = buf.Bytes()
	}

	if !bytes.HasSuffix(body, crlfBytes) {
		return nil, &wire.ParseError{Message: "bulk body not terminated by CRLF"}
	}
	return wire.Bulk(body[:n]), nil
}

func bulkReadError(err error, declared, got int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &wire.FrameTruncatedError{Declared: uint64(declared), Received: uint64(got)}
	}
	return &wire.ConnectionError{Op: "read", Err: err}
}
