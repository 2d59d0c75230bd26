package celrix

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: Gets, Sets, Deletes, Increments, VectorAdds, VectorSearches, Errors
//   - Counter: GetHits (derive hit rate as GetHits/Gets)
//
// Config.Metrics exports per-command series directly.
type ClientStats struct {
	Gets           uint64 // Total Get operations
	GetHits        uint64 // Get operations that found the key
	Sets           uint64 // Total Set and MSet operations
	Deletes        uint64 // Total Del and MDel operations
	Increments     uint64 // Total Incr, Decr, IncrBy and DecrBy operations
	VectorAdds     uint64 // Total VectorAdd operations
	VectorSearches uint64 // Total VectorSearch operations
	Errors         uint64 // Total errors across all operations
}

// add returns the field-wise sum of s and o.
func (s ClientStats) add(o ClientStats) ClientStats {
	return ClientStats{
		Gets:           s.Gets + o.Gets,
		GetHits:        s.GetHits + o.GetHits,
		Sets:           s.Sets + o.Sets,
		Deletes:        s.Deletes + o.Deletes,
		Increments:     s.Increments + o.Increments,
		VectorAdds:     s.VectorAdds + o.VectorAdds,
		VectorSearches: s.VectorSearches + o.VectorSearches,
		Errors:         s.Errors + o.Errors,
	}
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordGet(found bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if found {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *clientStatsCollector) recordSet() {
	atomic.AddUint64(&c.stats.Sets, 1)
}

func (c *clientStatsCollector) recordDelete() {
	atomic.AddUint64(&c.stats.Deletes, 1)
}

func (c *clientStatsCollector) recordIncrement() {
	atomic.AddUint64(&c.stats.Increments, 1)
}

func (c *clientStatsCollector) recordVectorAdd() {
	atomic.AddUint64(&c.stats.VectorAdds, 1)
}

func (c *clientStatsCollector) recordVectorSearch() {
	atomic.AddUint64(&c.stats.VectorSearches, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:           atomic.LoadUint64(&c.stats.Gets),
		GetHits:        atomic.LoadUint64(&c.stats.GetHits),
		Sets:           atomic.LoadUint64(&c.stats.Sets),
		Deletes:        atomic.LoadUint64(&c.stats.Deletes),
		Increments:     atomic.LoadUint64(&c.stats.Increments),
		VectorAdds:     atomic.LoadUint64(&c.stats.VectorAdds),
		VectorSearches: atomic.LoadUint64(&c.stats.VectorSearches),
		Errors:         atomic.LoadUint64(&c.stats.Errors),
	}
}

// sessionMetrics writes per-command series into a VictoriaMetrics set:
//
//	celrix_requests_total{command="GET",protocol="binary"}
//	celrix_request_errors_total{command="GET",protocol="binary"}
//	celrix_request_duration_seconds{command="GET",protocol="binary"}
//
// A nil *sessionMetrics records nothing.
type sessionMetrics struct {
	set      *metrics.Set
	protocol string
}

func newSessionMetrics(set *metrics.Set, p Protocol) *sessionMetrics {
	if set == nil {
		return nil
	}
	return &sessionMetrics{set: set, protocol: p.String()}
}

func (m *sessionMetrics) observe(command string, start time.Time, err error) {
	if m == nil {
		return
	}
	labels := fmt.Sprintf(`{command=%q,protocol=%q}`, command, m.protocol)
	m.set.GetOrCreateCounter("celrix_requests_total" + labels).Inc()
	if err != nil {
		m.set.GetOrCreateCounter("celrix_request_errors_total" + labels).Inc()
	}
	m.set.GetOrCreateHistogram("celrix_request_duration_seconds" + labels).Update(time.Since(start).Seconds())
}

func (m *sessionMetrics) sessionClosed() {
	if m == nil {
		return
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`celrix_sessions_closed_total{protocol=%q}`, m.protocol)).Inc()
}
