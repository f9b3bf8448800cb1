package llm

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/timmy/personashop/internal/config"
	"github.com/timmy/personashop/internal/logger"
	"github.com/timmy/personashop/internal/metrics"
)

// Breaker wraps a Provider with a circuit breaker. While open, calls fail
// immediately with gobreaker.ErrOpenState, which callers treat like any
// other provider failure.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[string]
}

var _ Provider = (*Breaker)(nil)

// NewBreaker wraps p. The breaker opens once at least cfg.MinRequests calls
// were seen in the current window and the failure ratio reaches cfg.FailureRatio.
func NewBreaker(p Provider, cfg config.BreakerConfig) *Breaker {
	name := "completion-" + p.Name()
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.GetDefault().
				WithField(logger.FieldProvider, name).
				Warnf("Circuit breaker state change: %s -> %s", from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Breaker{next: p, cb: cb}
}

// Name implements Provider.
func (b *Breaker) Name() string { return b.next.Name() }

// Complete implements Provider.
func (b *Breaker) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, systemPrompt, userPrompt, maxTokens, temperature)
	})
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
