package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant of a decoded Value.
type Kind uint8

const (
	KindStatus Kind = iota + 1
	KindError
	KindInteger
	KindNil
	KindBulk
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindNil:
		return "nil"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one fully decoded response.
// Implemented by Status, Error, Integer, Nil, Bulk and Array.
type Value interface {
	Kind() Kind
	fmt.Stringer
}

// Status is a success marker with its status text ("OK", "PONG", ...).
type Status string

// Error is an error reported by the server.
type Error string

// Integer is a signed 64-bit integer reply.
type Integer int64

// Nil is the absent value. It is never the same as an empty Bulk.
type Nil struct{}

// Bulk is a length-prefixed byte string. Decoders never return a nil Bulk.
type Bulk []byte

// Array is an ordered sequence of values.
type Array []Value

// StatusOK is the status every successful write command answers with.
const StatusOK Status = "OK"

// StatusPong answers a Ping.
const StatusPong Status = "PONG"

func (Status) Kind() Kind  { return KindStatus }
func (Error) Kind() Kind   { return KindError }
func (Integer) Kind() Kind { return KindInteger }
func (Nil) Kind() Kind     { return KindNil }
func (Bulk) Kind() Kind    { return KindBulk }
func (Array) Kind() Kind   { return KindArray }

func (s Status) String() string  { return "+" + string(s) }
func (e Error) String() string   { return "-" + string(e) }
func (i Integer) String() string { return ":" + strconv.FormatInt(int64(i), 10) }
func (Nil) String() string       { return "(nil)" }
func (b Bulk) String() string    { return strconv.Quote(string(b)) }

func (a Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// IsOK reports whether v is the "OK" status.
// Any other status text is a valid response but not boolean success.
func IsOK(v Value) bool {
	s, ok := v.(Status)
	return ok && s == StatusOK
}
