package resp

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/celrix/celrix-go/wire"
)

// ReadCommand reads one request (an array of bulk strings) and parses it.
func ReadCommand(r *bufio.Reader) (wire.Command, error) {
	v, err := ReadValueDepth(r, 1)
	if err != nil {
		return nil, err
	}

	arr, ok := v.(wire.Array)
	if !ok || len(arr) == 0 {
		return nil, &wire.ParseError{Message: fmt.Sprintf("request must be a non-empty array, got %s", v.Kind())}
	}

	args := make([][]byte, len(arr))
	for i, item := range arr {
		b, ok := item.(wire.Bulk)
		if !ok {
			return nil, &wire.ParseError{Message: fmt.Sprintf("request argument %d is %s, want bulk", i, item.Kind())}
		}
		args[i] = b
	}
	return ParseCommand(args)
}

// ParseCommand is the inverse of Args. The command name is case-insensitive.
func ParseCommand(args [][]byte) (wire.Command, error) {
	if len(args) == 0 {
		return nil, &wire.ParseError{Message: "empty command"}
	}

	name := strings.ToUpper(string(args[0]))
	rest := args[1:]

	arity := func(n int) error {
		if len(rest) != n {
			return &wire.ParseError{Message: fmt.Sprintf("%s takes %d arguments, got %d", name, n, len(rest))}
		}
		return nil
	}

	switch name {
	case "PING":
		if err := arity(0); err != nil {
			return nil, err
		}
		return wire.Ping{}, nil

	case "GET", "DEL", "EXISTS", "INCR", "DECR":
		if err := arity(1); err != nil {
			return nil, err
		}
		key := string(rest[0])
		switch name {
		case "GET":
			return wire.Get{Key: key}, nil
		case "DEL":
			return wire.Del{Key: key}, nil
		case "EXISTS":
			return wire.Exists{Key: key}, nil
		case "INCR":
			return wire.Incr{Key: key}, nil
		default:
			return wire.Decr{Key: key}, nil
		}

	case "INCRBY", "DECRBY":
		if err := arity(2); err != nil {
			return nil, err
		}
		delta, err := parseInt(rest[1])
		if err != nil {
			return nil, err
		}
		if name == "INCRBY" {
			return wire.IncrBy{Key: string(rest[0]), Delta: delta}, nil
		}
		return wire.DecrBy{Key: string(rest[0]), Delta: delta}, nil

	case "SET":
		return parseSet(rest)

	case "MSET":
		if len(rest) == 0 || len(rest)%2 != 0 {
			return nil, &wire.ParseError{Message: "MSET takes key/value pairs"}
		}
		pairs := make([]wire.KeyValue, 0, len(rest)/2)
		for i := 0; i < len(rest); i += 2 {
			pairs = append(pairs, wire.KeyValue{Key: string(rest[i]), Value: rest[i+1]})
		}
		return wire.MSet{Pairs: pairs}, nil

	case "MDEL":
		if len(rest) == 0 {
			return nil, &wire.ParseError{Message: "MDEL takes at least one key"}
		}
		keys := make([]string, len(rest))
		for i, k := range rest {
			keys[i] = string(k)
		}
		return wire.MDel{Keys: keys}, nil

	case "KEYS":
		switch len(rest) {
		case 0:
			return wire.Keys{}, nil
		case 1:
			return wire.Keys{Pattern: string(rest[0])}, nil
		default:
			return nil, &wire.ParseError{Message: "KEYS takes at most one pattern"}
		}

	case "VADD":
		if len(rest) < 1 {
			return nil, &wire.ParseError{Message: "VADD takes a key and a vector"}
		}
		vec, err := parseFloats(rest[1:])
		if err != nil {
			return nil, err
		}
		return wire.VectorAdd{Key: string(rest[0]), Vector: vec}, nil

	case "VSEARCH":
		if len(rest) < 1 {
			return nil, &wire.ParseError{Message: "VSEARCH takes a vector and k"}
		}
		vec, err := parseFloats(rest[:len(rest)-1])
		if err != nil {
			return nil, err
		}
		k, err := strconv.ParseUint(string(rest[len(rest)-1]), 10, 32)
		if err != nil {
			return nil, &wire.ParseError{Message: "invalid k", Err: err}
		}
		return wire.VectorSearch{Vector: vec, K: uint32(k)}, nil

	default:
		return nil, &wire.ParseError{Message: "unknown command " + strconv.Quote(name)}
	}
}

func parseSet(rest [][]byte) (wire.Command, error) {
	switch len(rest) {
	case 2:
		return wire.Set{Key: string(rest[0]), Value: rest[1]}, nil
	case 4:
		if !strings.EqualFold(string(rest[2]), "EX") {
			return nil, &wire.ParseError{Message: "SET option must be EX"}
		}
		secs, err := strconv.ParseUint(string(rest[3]), 10, 63)
		if err != nil {
			return nil, &wire.ParseError{Message: "invalid TTL", Err: err}
		}
		return wire.Set{Key: string(rest[0]), Value: rest[1], TTL: time.Duration(secs) * time.Second}, nil
	default:
		return nil, &wire.ParseError{Message: "SET takes key, value and an optional EX seconds"}
	}
}

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, &wire.ParseError{Message: "invalid integer argument", Err: err}
	}
	return n, nil
}

func parseFloats(args [][]byte) ([]float32, error) {
	vec := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(string(a), 32)
		if err != nil {
			return nil, &wire.ParseError{Message: fmt.Sprintf("invalid vector component %d", i), Err: err}
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
