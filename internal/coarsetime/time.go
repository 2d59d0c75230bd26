// Package coarsetime serves a wall clock refreshed on a fixed tick.
//
// The test server checks key expiry on every command; reading a cached
// timestamp keeps that path off time.Now.
package coarsetime

import (
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of Now.
const Resolution = 10 * time.Millisecond

var current atomic.Int64

func init() {
	current.Store(time.Now().UnixNano())

	go func() {
		t := time.NewTicker(Resolution)
		for tick := range t.C {
			current.Store(tick.UnixNano())
		}
	}()
}

// Now returns the last sampled wall clock time. It lags time.Now by at most
// Resolution plus scheduling delay.
func Now() time.Time {
	return time.Unix(0, current.Load())
}
