package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/kinoapp/internal/metrics"
)

// BreakerClient guards a Client with a circuit breaker so a failing upstream
// does not slow every movie creation down to the client timeout.
type BreakerClient struct {
	next   Client
	cb     *gobreaker.CircuitBreaker[*Result]
	logger zerolog.Logger
}

// BreakerSettings tunes the breaker; zero values take the defaults below.
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit. Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open. Default 30s.
	OpenTimeout time.Duration
}

// NewBreakerClient wraps next. ErrNotFound counts as a successful call.
func NewBreakerClient(name string, next Client, settings BreakerSettings, logger zerolog.Logger) *BreakerClient {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	logger = logger.With().Str("component", "metadata").Str("breaker", name).Logger()

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerClient{next: next, cb: cb, logger: logger}
}

// Fetch calls the wrapped client unless the circuit is open.
func (b *BreakerClient) Fetch(ctx context.Context, title string) (*Result, error) {
	result, err := b.cb.Execute(func() (*Result, error) {
		return b.next.Fetch(ctx, title)
	})
	switch {
	case err == nil:
		metrics.MetadataLookupsTotal.WithLabelValues("hit").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.MetadataLookupsTotal.WithLabelValues("miss").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MetadataLookupsTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.MetadataLookupsTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

// State reports the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
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
