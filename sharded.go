package celrix

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/celrix/celrix-go/internal/shard"
	"github.com/celrix/celrix-go/wire"
)

// ShardedClient spreads keys over independent servers by jump hash.
//
// Single-key operations go to the owning shard. Multi-key writes are split
// per shard. Keys, VectorSearch and Ping query every shard concurrently.
// Shards never share a session.
type ShardedClient struct {
	shards []*Client
}

var _ Querier = (*ShardedClient)(nil)

// ConnectSharded connects one client per config. On failure the clients
// already connected are closed.
func ConnectSharded(ctx context.Context, cfgs ...Config) (*ShardedClient, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("celrix: no servers provided")
	}

	clients := make([]*Client, len(cfgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			c, err := Connect(gctx, cfg)
			if err != nil {
				return err
			}
			clients[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range clients {
			if c != nil {
				_ = c.Close()
			}
		}
		return nil, err
	}

	return NewShardedClient(clients...)
}

// NewShardedClient shards over existing clients. The order of clients is
// part of the key mapping.
func NewShardedClient(clients ...*Client) (*ShardedClient, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("celrix: no servers provided")
	}
	return &ShardedClient{shards: clients}, nil
}

// Shards returns the clients in shard order.
func (s *ShardedClient) Shards() []*Client {
	return s.shards
}

func (s *ShardedClient) shardFor(key string) *Client {
	return s.shards[shard.Pick(key, len(s.shards))]
}

func (s *ShardedClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.shardFor(key).Set(ctx, key, value, ttl)
}

func (s *ShardedClient) Get(ctx context.Context, key string) (string, bool, error) {
	return s.shardFor(key).Get(ctx, key)
}

func (s *ShardedClient) Del(ctx context.Context, key string) (bool, error) {
	return s.shardFor(key).Del(ctx, key)
}

func (s *ShardedClient) Exists(ctx context.Context, key string) (bool, error) {
	return s.shardFor(key).Exists(ctx, key)
}

func (s *ShardedClient) Incr(ctx context.Context, key string) (int64, error) {
	return s.shardFor(key).Incr(ctx, key)
}

func (s *ShardedClient) Decr(ctx context.Context, key string) (int64, error) {
	return s.shardFor(key).Decr(ctx, key)
}

func (s *ShardedClient) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.shardFor(key).IncrBy(ctx, key, delta)
}

func (s *ShardedClient) DecrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.shardFor(key).DecrBy(ctx, key, delta)
}

func (s *ShardedClient) VectorAdd(ctx context.Context, key string, vector []float32) (bool, error) {
	return s.shardFor(key).VectorAdd(ctx, key, vector)
}

// MSet splits pairs by shard and reports true only if every shard answered OK.
func (s *ShardedClient) MSet(ctx context.Context, pairs ...wire.KeyValue) (bool, error) {
	if len(pairs) == 0 {
		return false, &wire.InvalidArgumentError{Message: "MSET needs at least one pair"}
	}

	groups := make(map[int][]wire.KeyValue)
	for _, p := range pairs {
		if err := wire.ValidateKey(p.Key); err != nil {
			return false, err
		}
		i := shard.Pick(p.Key, len(s.shards))
		groups[i] = append(groups[i], p)
	}

	oks := make([]bool, len(s.shards))
	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			ok, err := s.shards[i].MSet(ctx, group...)
			oks[i] = ok
			return shardError(i, s.shards[i], err)
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for i := range groups {
		if !oks[i] {
			return false, nil
		}
	}
	return true, nil
}

// MDel splits keys by shard and returns the total count removed.
func (s *ShardedClient) MDel(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, &wire.InvalidArgumentError{Message: "MDEL needs at least one key"}
	}

	groups := make(map[int][]string)
	for _, k := range keys {
		if err := wire.ValidateKey(k); err != nil {
			return 0, err
		}
		i := shard.Pick(k, len(s.shards))
		groups[i] = append(groups[i], k)
	}

	counts := make([]int64, len(s.shards))
	var g errgroup.Group
	for i, group := range groups {
		g.Go(func() error {
			n, err := s.shards[i].MDel(ctx, group...)
			counts[i] = n
			return shardError(i, s.shards[i], err)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Keys queries every shard and returns the union, sorted.
func (s *ShardedClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	results, err := fanOut(ctx, s.shards, func(ctx context.Context, c *Client) ([]string, error) {
		return c.Keys(ctx, pattern)
	})
	if err != nil {
		return nil, err
	}

	keys := slices.Concat(results...)
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// VectorSearch queries every shard for k results and interleaves them by
// rank: every shard's best match first, then every second best, and so on.
// Shards return no scores.
func (s *ShardedClient) VectorSearch(ctx context.Context, vector []float32, k uint32) ([]string, error) {
	results, err := fanOut(ctx, s.shards, func(ctx context.Context, c *Client) ([]string, error) {
		return c.VectorSearch(ctx, vector, k)
	})
	if err != nil {
		return nil, err
	}
	return interleave(results, int(k)), nil
}

// Ping pings every shard.
func (s *ShardedClient) Ping(ctx context.Context) error {
	_, err := fanOut(ctx, s.shards, func(ctx context.Context, c *Client) (struct{}, error) {
		return struct{}{}, c.Ping(ctx)
	})
	return err
}

// Stats sums the statistics of every shard.
func (s *ShardedClient) Stats() ClientStats {
	var total ClientStats
	for _, c := range s.shards {
		total = total.add(c.Stats())
	}
	return total
}

// Close closes every shard and joins their errors.
func (s *ShardedClient) Close() error {
	var errs []error
	for _, c := range s.shards {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fanOut runs fn on every client concurrently and returns the first error.
// A failing shard does not cancel the others: interrupting an exchange
// closes its session, and a server error must leave sessions usable.
func fanOut[T any](ctx context.Context, clients []*Client, fn func(context.Context, *Client) (T, error)) ([]T, error) {
	results := make([]T, len(clients))
	var g errgroup.Group
	for i, c := range clients {
		g.Go(func() error {
			r, err := fn(ctx, c)
			if err != nil {
				return shardError(i, c, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func shardError(i int, c *Client, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("shard %d (%s): %w", i, c.Session().Addr(), err)
}

// interleave merges ranked lists round-robin, skipping duplicates, up to limit.
func interleave(lists [][]string, limit int) []string {
	total := 0
	for _, list := range lists {
		total += len(list)
	}
	limit = min(limit, total)

	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)

	for rank := 0; len(out) < limit; rank++ {
		progressed := false
		for _, list := range lists {
			if rank >= len(list) {
				continue
			}
			progressed = true
			if _, dup := seen[list[rank]]; dup {
				continue
			}
			seen[list[rank]] = struct{}{}
			out = append(out, list[rank])
			if len(out) == limit {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
