package celrix

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celrix/celrix-go/internal/testserver"
	"github.com/celrix/celrix-go/wire"
)

var protocols = []Protocol{ProtocolBinary, ProtocolText}

func serverConfig(srv *testserver.Server, p Protocol) Config {
	cfg := DefaultConfig()
	cfg.Host = srv.Host()
	cfg.Port = srv.Port()
	cfg.Protocol = p
	cfg.DialTimeout = time.Second
	return cfg
}

func connect(t *testing.T, srv *testserver.Server, p Protocol) *Client {
	t.Helper()
	c, err := Connect(context.Background(), serverConfig(srv, p))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_KeyValue(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			require.NoError(t, c.Ping(ctx))

			ok, err := c.Set(ctx, "user:1", []byte("alice"), NoTTL)
			require.NoError(t, err)
			require.True(t, ok)

			got, found, err := c.Get(ctx, "user:1")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "alice", got)

			_, found, err = c.Get(ctx, "user:2")
			require.NoError(t, err)
			require.False(t, found)

			exists, err := c.Exists(ctx, "user:1")
			require.NoError(t, err)
			require.True(t, exists)

			// DEL is answered with the number of keys removed, see
			// TestClient_DelAssumesIntegerReply.
			deleted, err := c.Del(ctx, "user:1")
			require.NoError(t, err)
			require.True(t, deleted)

			deleted, err = c.Del(ctx, "user:1")
			require.NoError(t, err)
			require.False(t, deleted)

			exists, err = c.Exists(ctx, "user:1")
			require.NoError(t, err)
			require.False(t, exists)
		})
	}
}

func TestClient_EmptyValueIsNotMissing(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			_, err := c.Set(ctx, "empty", nil, NoTTL)
			require.NoError(t, err)

			got, found, err := c.Get(ctx, "empty")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "", got)
		})
	}
}

func TestClient_BinaryValues(t *testing.T) {
	value := []byte("a\r\nb\x00c$3\r\n")
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			_, err := c.Set(ctx, "raw", value, NoTTL)
			require.NoError(t, err)

			got, _, err := c.Get(ctx, "raw")
			require.NoError(t, err)
			require.Equal(t, string(value), got)
		})
	}
}

func TestClient_Counters(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			n, err := c.Incr(ctx, "n")
			require.NoError(t, err)
			require.Equal(t, int64(1), n)

			n, err = c.IncrBy(ctx, "n", 41)
			require.NoError(t, err)
			require.Equal(t, int64(42), n)

			n, err = c.DecrBy(ctx, "n", 50)
			require.NoError(t, err)
			require.Equal(t, int64(-8), n)

			n, err = c.Decr(ctx, "n")
			require.NoError(t, err)
			require.Equal(t, int64(-9), n)

			_, err = c.Set(ctx, "s", []byte("abc"), NoTTL)
			require.NoError(t, err)

			_, err = c.Incr(ctx, "s")
			var serr *wire.ServerError
			require.ErrorAs(t, err, &serr)
			require.Equal(t, testserver.ErrNotInteger, serr.Message)
			require.False(t, c.Session().IsClosed())
		})
	}
}

func TestClient_MultiKey(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			ok, err := c.MSet(ctx,
				wire.KeyValue{Key: "a", Value: []byte("1")},
				wire.KeyValue{Key: "b", Value: []byte("2")},
				wire.KeyValue{Key: "c", Value: []byte("3")},
			)
			require.NoError(t, err)
			require.True(t, ok)

			keys, err := c.Keys(ctx, "")
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b", "c"}, keys)

			keys, err = c.Keys(ctx, "[ab]")
			require.NoError(t, err)
			require.Equal(t, []string{"a", "b"}, keys)

			keys, err = c.Keys(ctx, "nothing*")
			require.NoError(t, err)
			require.NotNil(t, keys)
			require.Empty(t, keys)

			n, err := c.MDel(ctx, "a", "c", "zz")
			require.NoError(t, err)
			require.Equal(t, int64(2), n)

			_, err = c.MDel(ctx)
			var aerr *wire.InvalidArgumentError
			require.ErrorAs(t, err, &aerr)
		})
	}
}

func TestClient_Vectors(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			vectors := map[string][]float32{
				"x":  {1, 0, 0},
				"y":  {0, 1, 0},
				"xy": {0.7, 0.7, 0},
				"2d": {1, 0},
			}
			for k, v := range vectors {
				ok, err := c.VectorAdd(ctx, k, v)
				require.NoError(t, err)
				require.True(t, ok)
			}

			got, err := c.VectorSearch(ctx, []float32{0.9, 0.1, 0}, 2)
			require.NoError(t, err)
			require.Equal(t, []string{"x", "xy"}, got)

			got, err = c.VectorSearch(ctx, []float32{0.1, 0.9, 0}, 10)
			require.NoError(t, err)
			require.Equal(t, []string{"y", "xy", "x"}, got)

			got, err = c.VectorSearch(ctx, []float32{0, 0, 0, 1}, 5)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestClient_VectorFullDimension(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)
			ctx := context.Background()

			vec := make([]float32, 1536)
			for i := range vec {
				vec[i] = 0.1
			}

			ok, err := c.VectorAdd(ctx, "v1", vec)
			require.NoError(t, err)
			require.True(t, ok)

			got, err := c.VectorSearch(ctx, vec, 1)
			require.NoError(t, err)
			require.Equal(t, []string{"v1"}, got)
		})
	}
}

// The server documents DEL as returning the number of removed keys; Del
// relies on that Integer reply and reports n > 0.
func TestClient_DelAssumesIntegerReply(t *testing.T) {
	tests := []struct {
		name  string
		reply wire.Value
		want  bool
	}{
		{"one removed", wire.Integer(1), true},
		{"several removed", wire.Integer(3), true},
		{"none removed", wire.Integer(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testserver.Start(t)
			srv.Handle(func(cmd wire.Command) wire.Value {
				if _, ok := cmd.(wire.Del); ok {
					return tt.reply
				}
				return nil
			})
			c := connect(t, srv, ProtocolBinary)

			deleted, err := c.Del(context.Background(), "k")
			require.NoError(t, err)
			require.Equal(t, tt.want, deleted)
		})
	}

	srv := testserver.Start(t)
	srv.Handle(func(wire.Command) wire.Value { return wire.StatusOK })
	c := connect(t, srv, ProtocolBinary)

	_, err := c.Del(context.Background(), "k")
	var perr *wire.ProtocolViolationError
	require.ErrorAs(t, err, &perr)
}

func TestClient_TTL(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			var now atomic.Int64
			now.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
			srv.Store().SetClock(func() time.Time { return time.Unix(0, now.Load()) })

			c := connect(t, srv, p)
			ctx := context.Background()

			_, err := c.Set(ctx, "session", []byte("token"), 10*time.Second)
			require.NoError(t, err)
			_, err = c.Set(ctx, "forever", []byte("x"), NoTTL)
			require.NoError(t, err)

			now.Add(int64(9 * time.Second))
			_, found, err := c.Get(ctx, "session")
			require.NoError(t, err)
			require.True(t, found)

			now.Add(int64(2 * time.Second))
			_, found, err = c.Get(ctx, "session")
			require.NoError(t, err)
			require.False(t, found)

			_, found, err = c.Get(ctx, "forever")
			require.NoError(t, err)
			require.True(t, found)
		})
	}
}

func TestClient_ServerErrorPropagation(t *testing.T) {
	const msg = "no such key"
	vec := []float32{1, 2}

	ops := map[string]func(ctx context.Context, c *Client) error{
		"PING":    func(ctx context.Context, c *Client) error { return c.Ping(ctx) },
		"GET":     func(ctx context.Context, c *Client) error { _, _, err := c.Get(ctx, "k"); return err },
		"SET":     func(ctx context.Context, c *Client) error { _, err := c.Set(ctx, "k", []byte("v"), NoTTL); return err },
		"DEL":     func(ctx context.Context, c *Client) error { _, err := c.Del(ctx, "k"); return err },
		"EXISTS":  func(ctx context.Context, c *Client) error { _, err := c.Exists(ctx, "k"); return err },
		"INCR":    func(ctx context.Context, c *Client) error { _, err := c.Incr(ctx, "k"); return err },
		"DECR":    func(ctx context.Context, c *Client) error { _, err := c.Decr(ctx, "k"); return err },
		"INCRBY":  func(ctx context.Context, c *Client) error { _, err := c.IncrBy(ctx, "k", 2); return err },
		"DECRBY":  func(ctx context.Context, c *Client) error { _, err := c.DecrBy(ctx, "k", 2); return err },
		"MSET":    func(ctx context.Context, c *Client) error { _, err := c.MSet(ctx, wire.KeyValue{Key: "k"}); return err },
		"MDEL":    func(ctx context.Context, c *Client) error { _, err := c.MDel(ctx, "k"); return err },
		"KEYS":    func(ctx context.Context, c *Client) error { _, err := c.Keys(ctx, "*"); return err },
		"VADD":    func(ctx context.Context, c *Client) error { _, err := c.VectorAdd(ctx, "k", vec); return err },
		"VSEARCH": func(ctx context.Context, c *Client) error { _, err := c.VectorSearch(ctx, vec, 1); return err },
	}

	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			srv.Handle(func(wire.Command) wire.Value { return wire.Error(msg) })
			c := connect(t, srv, p)

			for name, op := range ops {
				err := op(context.Background(), c)

				var serr *wire.ServerError
				require.ErrorAs(t, err, &serr, name)
				assert.Equal(t, msg, serr.Message, name)
				assert.False(t, wire.ShouldCloseConnection(err), name)
				require.False(t, c.Session().IsClosed(), name)
			}

			require.Equal(t, uint64(len(ops)), c.Stats().Errors)

			srv.Handle(nil)
			require.NoError(t, c.Ping(context.Background()))
		})
	}
}

func TestClient_InvalidKeyWritesNothing(t *testing.T) {
	srv := testserver.Start(t)
	c := connect(t, srv, ProtocolBinary)
	ctx := context.Background()

	_, _, err := c.Get(ctx, "")
	var kerr *wire.InvalidKeyError
	require.ErrorAs(t, err, &kerr)

	_, err = c.MSet(ctx, wire.KeyValue{Key: "ok"}, wire.KeyValue{Key: ""})
	require.ErrorAs(t, err, &kerr)

	require.Equal(t, uint64(0), srv.Commands())
	require.False(t, c.Session().IsClosed())
	require.NoError(t, c.Ping(ctx))
}

func TestClient_ProtocolViolation(t *testing.T) {
	tests := []struct {
		name  string
		reply wire.Value
		got   wire.Kind
		op    func(ctx context.Context, c *Client) error
	}{
		{"integer to GET", wire.Integer(1), wire.KindInteger, func(ctx context.Context, c *Client) error {
			_, _, err := c.Get(ctx, "k")
			return err
		}},
		{"bulk to SET", wire.Bulk("OK"), wire.KindBulk, func(ctx context.Context, c *Client) error {
			_, err := c.Set(ctx, "k", nil, NoTTL)
			return err
		}},
		{"status to DEL", wire.StatusOK, wire.KindStatus, func(ctx context.Context, c *Client) error {
			_, err := c.Del(ctx, "k")
			return err
		}},
		{"integer in KEYS array", wire.Array{wire.Bulk("a"), wire.Integer(2)}, wire.KindInteger, func(ctx context.Context, c *Client) error {
			_, err := c.Keys(ctx, "")
			return err
		}},
		{"bulk to VSEARCH", wire.Bulk("a"), wire.KindBulk, func(ctx context.Context, c *Client) error {
			_, err := c.VectorSearch(ctx, []float32{1}, 1)
			return err
		}},
		{"integer to PING", wire.Integer(0), wire.KindInteger, func(ctx context.Context, c *Client) error {
			return c.Ping(ctx)
		}},
	}

	for _, p := range protocols {
		for _, tt := range tests {
			t.Run(p.String()+"/"+tt.name, func(t *testing.T) {
				srv := testserver.Start(t)
				srv.Handle(func(wire.Command) wire.Value { return tt.reply })
				c := connect(t, srv, p)

				err := tt.op(context.Background(), c)
				var perr *wire.ProtocolViolationError
				require.ErrorAs(t, err, &perr)
				require.Equal(t, tt.got, perr.Got)
				require.True(t, c.Session().IsClosed())

				_, _, err = c.Get(context.Background(), "k")
				require.ErrorIs(t, err, wire.ErrSessionClosed)
			})
		}
	}
}

func TestClient_ConnectionDropped(t *testing.T) {
	srv := testserver.Start(t)
	c := connect(t, srv, ProtocolBinary)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	srv.DropConnections()

	err := c.Ping(ctx)
	require.Error(t, err)
	require.True(t, wire.ShouldCloseConnection(err))
	require.True(t, c.Session().IsClosed())
}

func TestClient_Timeout(t *testing.T) {
	srv := testserver.Start(t)
	release := make(chan struct{})
	srv.Handle(func(wire.Command) wire.Value {
		<-release
		return nil
	})
	t.Cleanup(func() { close(release) })

	c := connect(t, srv, ProtocolText)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Ping(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, c.Session().IsClosed())
}

func TestClient_Concurrent(t *testing.T) {
	for _, p := range protocols {
		t.Run(p.String(), func(t *testing.T) {
			srv := testserver.Start(t)
			c := connect(t, srv, p)

			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 50 {
						_, err := c.Incr(context.Background(), "hits")
						assert.NoError(t, err)
					}
				}()
			}
			wg.Wait()

			got, _, err := c.Get(context.Background(), "hits")
			require.NoError(t, err)
			require.Equal(t, "800", got)
		})
	}
}

func TestClient_Stats(t *testing.T) {
	srv := testserver.Start(t)
	c := connect(t, srv, ProtocolBinary)
	ctx := context.Background()

	_, _ = c.Set(ctx, "a", []byte("1"), NoTTL)
	_, _, _ = c.Get(ctx, "a")
	_, _, _ = c.Get(ctx, "missing")
	_, _ = c.Del(ctx, "a")
	_, _ = c.Incr(ctx, "n")
	_, _ = c.DecrBy(ctx, "n", 3)
	_, _ = c.VectorAdd(ctx, "v", []float32{1})
	_, _ = c.VectorSearch(ctx, []float32{1}, 1)

	srv.Handle(func(wire.Command) wire.Value { return wire.Error("boom") })
	_, _, _ = c.Get(ctx, "a")

	require.Equal(t, ClientStats{
		Gets:           2,
		GetHits:        1,
		Sets:           1,
		Deletes:        1,
		Increments:     2,
		VectorAdds:     1,
		VectorSearches: 1,
		Errors:         1,
	}, c.Stats())
}

func TestClient_CircuitBreaker(t *testing.T) {
	srv := testserver.Start(t)
	cfg := serverConfig(srv, ProtocolBinary)
	cfg.NewCircuitBreaker = NewGobreakerConfig(1, time.Minute, time.Minute)

	c, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	srv.Handle(func(wire.Command) wire.Value { return wire.Error("busy") })
	for range 5 {
		require.Error(t, c.Ping(ctx))
	}
	require.Equal(t, gobreaker.StateClosed, c.breaker.State(), "server errors do not trip")

	srv.Handle(nil)
	srv.DropConnections()
	for i := 0; c.breaker.State() == gobreaker.StateClosed; i++ {
		require.Less(t, i, 20)
		require.Error(t, c.Ping(ctx))
	}
	require.Equal(t, gobreaker.StateOpen, c.breaker.State())

	err = c.Ping(ctx)
	require.True(t, errors.Is(err, gobreaker.ErrOpenState))
}
