package resilience

import (
	"time"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a circuit breaker around one upstream dependency
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Cooldown         time.Duration
	HalfOpenRequests uint32
}

// NewBreaker creates a breaker that opens after FailureThreshold consecutive failures
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[any] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return gobreaker.NewCircuitBreaker[any](settings)
}

// Execute runs fn through the breaker. A result returned together with an
// error is passed through, so partial results survive a failed call.
func Execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	value, _ := out.(T)
	return value, err
}

// IsOpen reports whether the breaker is rejecting calls
func IsOpen(cb *gobreaker.CircuitBreaker[any]) bool {
	return cb.State() == gobreaker.StateOpen
}
