package celrix

import (
	"context"
	"time"

	"github.com/celrix/celrix-go/wire"
)

// NoTTL stores a key without expiration.
const NoTTL time.Duration = 0

// Querier is the key-value and vector surface shared by Client and ShardedClient.
type Querier interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	DecrBy(ctx context.Context, key string, delta int64) (int64, error)
	MSet(ctx context.Context, pairs ...wire.KeyValue) (bool, error)
	MDel(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	VectorAdd(ctx context.Context, key string, vector []float32) (bool, error)
	VectorSearch(ctx context.Context, vector []float32, k uint32) ([]string, error)
	Stats() ClientStats
	Close() error
}

// Client maps typed operations onto a Session and checks every response
// against the kinds the command allows.
//
// A server-reported error is returned as *wire.ServerError and leaves the
// session usable. A response of the wrong kind is returned as
// *wire.ProtocolViolationError and closes the session.
type Client struct {
	session *Session
	breaker CircuitBreaker // nil if not configured
	stats   *clientStatsCollector
}

var _ Querier = (*Client)(nil)

// Connect dials cfg.Addr() and returns a client on the new session.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	s, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(s, cfg), nil
}

// NewClient returns a client on an existing session. Only
// cfg.NewCircuitBreaker is used.
func NewClient(s *Session, cfg Config) *Client {
	c := &Client{
		session: s,
		stats:   newClientStatsCollector(),
	}
	if cfg.NewCircuitBreaker != nil {
		c.breaker = cfg.NewCircuitBreaker(s.Addr())
	}
	return c
}

// Session returns the underlying session.
func (c *Client) Session() *Session {
	return c.session
}

// Stats returns a snapshot of the client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Close closes the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// Ping checks that the server answers. Any status reply counts, PONG being
// the expected one.
func (c *Client) Ping(ctx context.Context) error {
	cmd := wire.Ping{}
	v, err := c.do(ctx, cmd)
	if err != nil {
		return err
	}
	if _, ok := v.(wire.Status); !ok {
		return c.violation(cmd, v)
	}
	return nil
}

// Set stores value under key. A non-zero ttl is sent in whole seconds.
// It returns true when the server acknowledged with OK.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.stats.recordSet()
	return c.status(ctx, wire.Set{Key: key, Value: value, TTL: ttl})
}

// Get returns the value of key and whether it exists. An empty value and a
// missing key are distinct.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	cmd := wire.Get{Key: key}
	v, err := c.do(ctx, cmd)
	if err != nil {
		return "", false, err
	}

	switch val := v.(type) {
	case wire.Bulk:
		c.stats.recordGet(true)
		return string(val), true, nil
	case wire.Nil:
		c.stats.recordGet(false)
		return "", false, nil
	default:
		return "", false, c.violation(cmd, v)
	}
}

// Del removes key and reports whether it existed.
func (c *Client) Del(ctx context.Context, key string) (bool, error) {
	c.stats.recordDelete()
	n, err := c.integer(ctx, wire.Del{Key: key})
	return n > 0, err
}

// Exists reports whether key exists.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.integer(ctx, wire.Exists{Key: key})
	return n > 0, err
}

// Incr adds one to the integer stored at key and returns the new value.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	c.stats.recordIncrement()
	return c.integer(ctx, wire.Incr{Key: key})
}

// Decr subtracts one from the integer stored at key and returns the new value.
func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	c.stats.recordIncrement()
	return c.integer(ctx, wire.Decr{Key: key})
}

// IncrBy adds delta to the integer stored at key and returns the new value.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	c.stats.recordIncrement()
	return c.integer(ctx, wire.IncrBy{Key: key, Delta: delta})
}

// DecrBy subtracts delta from the integer stored at key and returns the new value.
func (c *Client) DecrBy(ctx context.Context, key string, delta int64) (int64, error) {
	c.stats.recordIncrement()
	return c.integer(ctx, wire.DecrBy{Key: key, Delta: delta})
}

// MSet stores every pair in one command.
func (c *Client) MSet(ctx context.Context, pairs ...wire.KeyValue) (bool, error) {
	c.stats.recordSet()
	return c.status(ctx, wire.MSet{Pairs: pairs})
}

// MDel removes keys and returns how many existed.
func (c *Client) MDel(ctx context.Context, keys ...string) (int64, error) {
	c.stats.recordDelete()
	return c.integer(ctx, wire.MDel{Keys: keys})
}

// Keys returns the keys matching a glob pattern, every key when pattern is empty.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.strings(ctx, wire.Keys{Pattern: pattern})
}

// VectorAdd stores vector under key.
func (c *Client) VectorAdd(ctx context.Context, key string, vector []float32) (bool, error) {
	c.stats.recordVectorAdd()
	return c.status(ctx, wire.VectorAdd{Key: key, Vector: vector})
}

// VectorSearch returns the keys of at most k vectors nearest to vector, in
// the order the server ranked them.
func (c *Client) VectorSearch(ctx context.Context, vector []float32, k uint32) ([]string, error) {
	c.stats.recordVectorSearch()
	return c.strings(ctx, wire.VectorSearch{Vector: vector, K: k})
}

// do runs one exchange through the circuit breaker and raises server errors.
func (c *Client) do(ctx context.Context, cmd wire.Command) (wire.Value, error) {
	var (
		v   wire.Value
		err error
	)
	if c.breaker != nil {
		v, err = c.breaker.Execute(func() (wire.Value, error) {
			return c.session.Do(ctx, cmd)
		})
	} else {
		v, err = c.session.Do(ctx, cmd)
	}

	if err == nil {
		err = wire.AsError(v)
	}
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	return v, nil
}

// violation closes the session: the peer and the client disagree on the
// protocol, nothing it sends next can be trusted.
func (c *Client) violation(cmd wire.Command, v wire.Value) error {
	c.stats.recordError()
	err := &wire.ProtocolViolationError{Command: cmd.Name(), Got: v.Kind()}
	c.session.fail(cmd, err)
	return err
}

func (c *Client) status(ctx context.Context, cmd wire.Command) (bool, error) {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return false, err
	}
	if _, ok := v.(wire.Status); !ok {
		return false, c.violation(cmd, v)
	}
	return wire.IsOK(v), nil
}

func (c *Client) integer(ctx context.Context, cmd wire.Command) (int64, error) {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return 0, err
	}
	n, ok := v.(wire.Integer)
	if !ok {
		return 0, c.violation(cmd, v)
	}
	return int64(n), nil
}

// strings accepts an array of bulk strings; Nil is an empty result.
func (c *Client) strings(ctx context.Context, cmd wire.Command) ([]string, error) {
	v, err := c.do(ctx, cmd)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case wire.Nil:
		return []string{}, nil
	case wire.Array:
		out := make([]string, 0, len(val))
		for _, item := range val {
			b, ok := item.(wire.Bulk)
			if !ok {
				return nil, c.violation(cmd, item)
			}
			out = append(out, string(b))
		}
		return out, nil
	default:
		return nil, c.violation(cmd, v)
	}
}
