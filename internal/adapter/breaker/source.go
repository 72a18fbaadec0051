// Package breaker guards a measurement source with a circuit breaker so a
// failing backend fails fast instead of stalling every prediction.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/sony/gobreaker"
)

// Settings controls when the breaker opens and how long it stays open.
type Settings struct {
	Name        string
	MaxFailures int
	OpenTimeout time.Duration
}

// Source wraps a domain.MeasurementSource. Reads and location listings go
// through the breaker; Ping bypasses it so readiness reflects the backend.
type Source struct {
	inner   domain.MeasurementSource
	circuit *gobreaker.CircuitBreaker
}

// NewSource wraps inner with a breaker that opens after MaxFailures
// consecutive failures.
func NewSource(inner domain.MeasurementSource, s Settings, logger *slog.Logger, metrics *observability.Metrics) *Source {
	maxFailures := uint32(max(s.MaxFailures, 1))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("measurement source breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if to == gobreaker.StateOpen {
				metrics.SourceBreakerOpen.Set(1)
			} else {
				metrics.SourceBreakerOpen.Set(0)
			}
		},
	})
	return &Source{inner: inner, circuit: cb}
}

// Measurements reads through the breaker. While open it returns
// gobreaker.ErrOpenState without touching the backend.
func (s *Source) Measurements(ctx context.Context, locationID string) ([]domain.Measurement, error) {
	v, err := s.circuit.Execute(func() (any, error) {
		return s.inner.Measurements(ctx, locationID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Measurement), nil
}

// Locations lists locations through the breaker when the inner source supports it.
func (s *Source) Locations(ctx context.Context) ([]string, error) {
	lister, ok := s.inner.(domain.LocationLister)
	if !ok {
		return nil, nil
	}
	v, err := s.circuit.Execute(func() (any, error) {
		return lister.Locations(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Ping forwards to the inner source when it supports health checks.
func (s *Source) Ping(ctx context.Context) error {
	if p, ok := s.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State reports the current breaker state.
func (s *Source) State() gobreaker.State {
	return s.circuit.State()
}
