package celrix

import (
	"sync"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStatsCollector(t *testing.T) {
	c := newClientStatsCollector()

	// Initial stats should be zero
	require.Equal(t, ClientStats{}, c.snapshot())

	c.recordGet(true)
	c.recordGet(false)
	c.recordSet()
	c.recordDelete()
	c.recordIncrement()
	c.recordIncrement()
	c.recordVectorAdd()
	c.recordVectorSearch()
	c.recordError()

	assert.Equal(t, ClientStats{
		Gets:           2,
		GetHits:        1,
		Sets:           1,
		Deletes:        1,
		Increments:     2,
		VectorAdds:     1,
		VectorSearches: 1,
		Errors:         1,
	}, c.snapshot())
}

func TestClientStatsCollector_Concurrent(t *testing.T) {
	c := newClientStatsCollector()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				c.recordGet(true)
				c.recordError()
			}
		}()
	}
	wg.Wait()

	stats := c.snapshot()
	assert.Equal(t, uint64(8000), stats.Gets)
	assert.Equal(t, uint64(8000), stats.GetHits)
	assert.Equal(t, uint64(8000), stats.Errors)
}

func TestClientStats_Add(t *testing.T) {
	a := ClientStats{Gets: 1, GetHits: 1, Sets: 2, Errors: 3}
	b := ClientStats{Gets: 4, Deletes: 5, Increments: 6, VectorAdds: 7, VectorSearches: 8}

	assert.Equal(t, ClientStats{
		Gets:           5,
		GetHits:        1,
		Sets:           2,
		Deletes:        5,
		Increments:     6,
		VectorAdds:     7,
		VectorSearches: 8,
		Errors:         3,
	}, a.add(b))
}

func TestSessionMetrics_NilSet(t *testing.T) {
	m := newSessionMetrics(nil, ProtocolBinary)

	assert.NotPanics(t, func() {
		m.observe("GET", time.Now(), nil)
		m.sessionClosed()
	})
}

func TestSessionMetrics_Counts(t *testing.T) {
	set := metrics.NewSet()
	m := newSessionMetrics(set, ProtocolText)

	m.observe("INCR", time.Now(), nil)
	m.observe("INCR", time.Now(), nil)
	m.observe("INCR", time.Now(), assert.AnError)

	labels := `{command="INCR",protocol="text"}`
	assert.Equal(t, uint64(3), set.GetOrCreateCounter("celrix_requests_total"+labels).Get())
	assert.Equal(t, uint64(1), set.GetOrCreateCounter("celrix_request_errors_total"+labels).Get())
}
