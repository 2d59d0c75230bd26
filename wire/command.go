package wire

import "time"

// Command is one request to the server.
// Implemented by the structs below, one per operation.
type Command interface {
	// Name is the command name used by the text protocol.
	Name() string
}

// KeyValue is one pair of an MSet.
type KeyValue struct {
	Key   string
	Value []byte
}

type (
	Ping struct{}

	Get struct {
		Key string
	}

	// Set stores Value under Key. A zero TTL means no expiry.
	// The TTL is sent in whole seconds.
	Set struct {
		Key   string
		Value []byte
		TTL   time.Duration
	}

	Del struct {
		Key string
	}

	Exists struct {
		Key string
	}

	MSet struct {
		Pairs []KeyValue
	}

	MDel struct {
		Keys []string
	}

	Incr struct {
		Key string
	}

	Decr struct {
		Key string
	}

	IncrBy struct {
		Key   string
		Delta int64
	}

	DecrBy struct {
		Key   string
		Delta int64
	}

	// Keys lists keys matching Pattern. An empty Pattern matches all keys.
	Keys struct {
		Pattern string
	}

	VectorAdd struct {
		Key    string
		Vector []float32
	}

	VectorSearch struct {
		Vector []float32
		K      uint32
	}
)

func (Ping) Name() string         { return "PING" }
func (Get) Name() string          { return "GET" }
func (Set) Name() string          { return "SET" }
func (Del) Name() string          { return "DEL" }
func (Exists) Name() string       { return "EXISTS" }
func (MSet) Name() string         { return "MSET" }
func (MDel) Name() string         { return "MDEL" }
func (Incr) Name() string         { return "INCR" }
func (Decr) Name() string         { return "DECR" }
func (IncrBy) Name() string       { return "INCRBY" }
func (DecrBy) Name() string       { return "DECRBY" }
func (Keys) Name() string         { return "KEYS" }
func (VectorAdd) Name() string    { return "VADD" }
func (VectorSearch) Name() string { return "VSEARCH" }

// TTLSeconds returns the TTL in whole seconds, as sent on the wire.
func (s Set) TTLSeconds() uint64 {
	if s.TTL <= 0 {
		return 0
	}
	return uint64(s.TTL / time.Second)
}

// ValidateKey rejects keys the server cannot address.
func ValidateKey(key string) error {
	if key == "" {
		return &InvalidKeyError{Message: "key is empty"}
	}
	if uint64(len(key)) > MaxLength {
		return &InvalidKeyError{Message: "key exceeds maximum length"}
	}
	return nil
}

// MaxLength is the largest length any length-prefixed field can declare.
const MaxLength = 1<<32 - 1

// CommandKeys returns the keys a command addresses, in argument order.
func CommandKeys(cmd Command) []string {
	switch c := cmd.(type) {
	case Get:
		return []string{c.Key}
	case Set:
		return []string{c.Key}
	case Del:
		return []string{c.Key}
	case Exists:
		return []string{c.Key}
	case Incr:
		return []string{c.Key}
	case Decr:
		return []string{c.Key}
	case IncrBy:
		return []string{c.Key}
	case DecrBy:
		return []string{c.Key}
	case VectorAdd:
		return []string{c.Key}
	case MDel:
		return c.Keys
	case MSet:
		keys := make([]string, len(c.Pairs))
		for i, p := range c.Pairs {
			keys[i] = p.Key
		}
		return keys
	default:
		return nil
	}
}

// Validate checks every key of cmd and the bounds of its variable-length fields.
func Validate(cmd Command) error {
	for _, key := range CommandKeys(cmd) {
		if err := ValidateKey(key); err != nil {
			return err
		}
	}
	switch c := cmd.(type) {
	case Set:
		if uint64(len(c.Value)) > MaxLength {
			return &InvalidArgumentError{Message: "value exceeds maximum length"}
		}
	case VectorAdd:
		if uint64(len(c.Vector)) > MaxLength/4 {
			return &InvalidArgumentError{Message: "vector too long"}
		}
	case VectorSearch:
		if uint64(len(c.Vector)) > MaxLength/4 {
			return &InvalidArgumentError{Message: "vector too long"}
		}
	case MDel:
		if len(c.Keys) == 0 {
			return &InvalidArgumentError{Message: "MDEL needs at least one key"}
		}
	case MSet:
		if len(c.Pairs) == 0 {
			return &InvalidArgumentError{Message: "MSET needs at least one pair"}
		}
	}
	return nil
}
