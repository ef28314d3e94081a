// Package resilience provides fault tolerance patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	"referral_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes a circuit breaker around one dependency.
type BreakerConfig struct {
	Name                string
	MaxHalfOpenRequests uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state counter reset
	Timeout             time.Duration // open duration before half-open
	ConsecutiveFailures uint32        // trips after this many failures in a row

	// OnOpenChange is called with true when the breaker opens and false when
	// it closes again.
	OnOpenChange func(name string, open bool)
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxHalfOpenRequests: 1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewBreaker builds a gobreaker.CircuitBreaker that logs its transitions.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")

			if cfg.OnOpenChange != nil {
				cfg.OnOpenChange(name, to == gobreaker.StateOpen)
			}
		},
	})
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
