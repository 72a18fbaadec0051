// Package prediction serves noise predictions for one or many locations on top
// of a measurement source. Every batch is evaluated at a single instant.
package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Pinger is implemented by sources that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes a Service. Zero values fall back to sensible defaults.
type Options struct {
	Clock       clockwork.Clock
	Location    *time.Location
	Timeout     time.Duration
	Concurrency int
}

// Service evaluates trust tiers and predicted noise for locations.
type Service struct {
	source      domain.MeasurementSource
	clock       clockwork.Clock
	location    *time.Location
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewService creates a prediction service reading from src.
func NewService(src domain.MeasurementSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Service{
		source:      src,
		clock:       opts.Clock,
		location:    opts.Location,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Now returns the current evaluation instant in the configured timezone.
func (s *Service) Now() time.Time {
	return s.clock.Now().In(s.location)
}

// Predict evaluates one location. It never fails: problems surface as the
// ERROR tier.
func (s *Service) Predict(ctx context.Context, locationID string) domain.PredictionResult {
	return s.predictAt(ctx, locationID, s.Now())
}

// PredictMany evaluates locations concurrently at one shared instant. The
// output preserves input order and a failure for one location does not
// affect the others.
func (s *Service) PredictMany(ctx context.Context, locationIDs []string) []domain.LocationPrediction {
	now := s.Now()
	out := make([]domain.LocationPrediction, len(locationIDs))
	s.metrics.PredictionBatch.Observe(float64(len(locationIDs)))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range locationIDs {
		g.Go(func() error {
			out[i] = domain.LocationPrediction{
				LocationID:       id,
				EvaluatedAt:      now.UTC(),
				PredictionResult: s.predictAt(ctx, id, now),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// PredictAll evaluates every location the source knows about. Sources that
// cannot enumerate locations yield an empty slice.
func (s *Service) PredictAll(ctx context.Context) ([]domain.LocationPrediction, error) {
	lister, ok := s.source.(domain.LocationLister)
	if !ok {
		return nil, nil
	}
	ids, err := lister.Locations(ctx)
	if err != nil {
		return nil, err
	}
	return s.PredictMany(ctx, ids), nil
}

// CheckReadiness pings the backing store when it supports health checks.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.source == nil {
		return errors.New("measurement source not configured")
	}
	if p, ok := s.source.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) predictAt(ctx context.Context, locationID string, now time.Time) domain.PredictionResult {
	start := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := domain.Predict(ctx, s.source, locationID, now, s.logger)

	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	s.metrics.Predictions.WithLabelValues(string(result.TrustTier)).Inc()
	return result
}
