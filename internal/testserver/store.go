package testserver

import (
	"cmp"
	"math"
	"path"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/celrix/celrix-go/internal/coarsetime"
	"github.com/celrix/celrix-go/wire"
)

// Error messages returned by the store, matching the server's wording.
const (
	ErrNotInteger = "ERR value is not an integer or out of range"
	ErrOverflow   = "ERR increment or decrement would overflow"
	ErrBadPattern = "ERR invalid pattern"
)

type entry struct {
	value    []byte
	expireAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// Store is the in-memory state behind a Server: a key-value map with lazy
// TTL expiry and a separate vector map searched by cosine similarity.
type Store struct {
	data    *xsync.MapOf[string, entry]
	vectors *xsync.MapOf[string, []float32]

	clockMu sync.RWMutex
	now     func() time.Time
}

// NewStore returns an empty store using the coarse wall clock.
func NewStore() *Store {
	return &Store{
		data:    xsync.NewMapOf[string, entry](),
		vectors: xsync.NewMapOf[string, []float32](),
		now:     coarsetime.Now,
	}
}

// SetClock replaces the clock used for TTL expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = now
}

func (s *Store) clock() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.now()
}

// Len returns the number of live keys, vectors excluded.
func (s *Store) Len() int {
	now := s.clock()
	n := 0
	s.data.Range(func(_ string, e entry) bool {
		if !e.expired(now) {
			n++
		}
		return true
	})
	return n
}

// Exec applies cmd and returns the response the server would send.
func (s *Store) Exec(cmd wire.Command) wire.Value {
	switch c := cmd.(type) {
	case wire.Ping:
		return wire.StatusPong
	case wire.Get:
		return s.get(c.Key)
	case wire.Set:
		s.set(c.Key, c.Value, c.TTL)
		return wire.StatusOK
	case wire.Del:
		return wire.Integer(s.del(c.Key))
	case wire.Exists:
		if _, ok := s.load(c.Key); ok {
			return wire.Integer(1)
		}
		return wire.Integer(0)
	case wire.MSet:
		for _, p := range c.Pairs {
			s.set(p.Key, p.Value, 0)
		}
		return wire.StatusOK
	case wire.MDel:
		var n int64
		for _, k := range c.Keys {
			n += s.del(k)
		}
		return wire.Integer(n)
	case wire.Incr:
		return s.add(c.Key, 1)
	case wire.Decr:
		return s.add(c.Key, -1)
	case wire.IncrBy:
		return s.add(c.Key, c.Delta)
	case wire.DecrBy:
		if c.Delta == math.MinInt64 {
			return wire.Error(ErrOverflow)
		}
		return s.add(c.Key, -c.Delta)
	case wire.Keys:
		return s.keys(c.Pattern)
	case wire.VectorAdd:
		s.vectors.Store(c.Key, slices.Clone(c.Vector))
		return wire.StatusOK
	case wire.VectorSearch:
		return s.search(c.Vector, c.K)
	default:
		return wire.Error("ERR unknown command")
	}
}

// load returns a live entry, dropping it if it expired.
func (s *Store) load(key string) (entry, bool) {
	now := s.clock()
	var (
		found entry
		ok    bool
	)
	s.data.Compute(key, func(e entry, loaded bool) (entry, bool) {
		if !loaded || e.expired(now) {
			return e, true
		}
		found, ok = e, true
		return e, false
	})
	return found, ok
}

func (s *Store) get(key string) wire.Value {
	e, ok := s.load(key)
	if !ok {
		return wire.Nil{}
	}
	return wire.Bulk(slices.Clone(e.value))
}

func (s *Store) set(key string, value []byte, ttl time.Duration) {
	e := entry{value: slices.Clone(value)}
	if e.value == nil {
		e.value = []byte{}
	}
	if secs := (wire.Set{TTL: ttl}).TTLSeconds(); secs > 0 {
		e.expireAt = s.clock().Add(time.Duration(secs) * time.Second)
	}
	s.data.Store(key, e)
}

func (s *Store) del(key string) int64 {
	now := s.clock()
	var existed bool
	s.data.Compute(key, func(e entry, loaded bool) (entry, bool) {
		existed = loaded && !e.expired(now)
		return e, true
	})
	if existed {
		return 1
	}
	return 0
}

func (s *Store) add(key string, delta int64) wire.Value {
	now := s.clock()
	var result wire.Value
	s.data.Compute(key, func(e entry, loaded bool) (entry, bool) {
		var cur int64
		if loaded && !e.expired(now) {
			n, err := strconv.ParseInt(string(e.value), 10, 64)
			if err != nil {
				result = wire.Error(ErrNotInteger)
				return e, false
			}
			cur = n
		} else {
			e = entry{}
		}

		next := cur + delta
		if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
			result = wire.Error(ErrOverflow)
			return e, !loaded
		}

		result = wire.Integer(next)
		e.value = strconv.AppendInt(nil, next, 10)
		return e, false
	})
	return result
}

func (s *Store) keys(pattern string) wire.Value {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return wire.Error(ErrBadPattern)
	}

	now := s.clock()
	var names []string
	s.data.Range(func(k string, e entry) bool {
		if e.expired(now) {
			return true
		}
		if ok, _ := path.Match(pattern, k); ok {
			names = append(names, k)
		}
		return true
	})
	slices.Sort(names)

	arr := make(wire.Array, len(names))
	for i, k := range names {
		arr[i] = wire.Bulk(k)
	}
	return arr
}

type scored struct {
	key   string
	score float64
}

// search ranks stored vectors of the query's dimension by cosine
// similarity, best first, ties broken by key.
func (s *Store) search(query []float32, k uint32) wire.Value {
	var hits []scored
	s.vectors.Range(func(key string, v []float32) bool {
		if len(v) == len(query) {
			hits = append(hits, scored{key: key, score: cosine(query, v)})
		}
		return true
	})

	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	n := min(len(hits), int(k))
	arr := make(wire.Array, n)
	for i := range n {
		arr[i] = wire.Bulk(hits[i].key)
	}
	return arr
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
