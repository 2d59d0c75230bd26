package celrix

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/celrix/celrix-go/wire"
)

// CircuitBreaker guards the exchanges of one client.
// *gobreaker.CircuitBreaker[wire.Value] satisfies it.
type CircuitBreaker interface {
	Execute(req func() (wire.Value, error)) (wire.Value, error)
	State() gobreaker.State
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[wire.Value])(nil)

// NewGobreakerConfig returns a function that creates circuit breakers for servers.
// This is a helper for common use cases.
//
// Errors that leave the session usable (server errors, rejected arguments)
// count as successes: the server answered.
func NewGobreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !wire.ShouldCloseConnection(err)
			},
		}
		return gobreaker.NewCircuitBreaker[wire.Value](settings)
	}
}
