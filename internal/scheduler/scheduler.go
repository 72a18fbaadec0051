// Package scheduler periodically publishes prediction snapshots for every
// known location.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/go-co-op/gocron"
)

// Snapshotter evaluates every known location at one instant.
type Snapshotter interface {
	PredictAll(ctx context.Context) ([]domain.LocationPrediction, error)
}

// Publisher writes a snapshot to the sink.
type Publisher interface {
	Publish(ctx context.Context, predictions []domain.LocationPrediction) error
}

// Scheduler runs the snapshot job on a fixed interval.
type Scheduler struct {
	scheduler   *gocron.Scheduler
	snapshotter Snapshotter
	publisher   Publisher
	interval    time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Scheduler. The job timeout is capped at the interval.
func New(snapshotter Snapshotter, publisher Publisher, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:   s,
		snapshotter: snapshotter,
		publisher:   publisher,
		interval:    interval,
		timeout:     min(interval, time.Minute),
		logger:      logger,
		metrics:     metrics,
	}
}

// Start schedules the snapshot job and starts the underlying scheduler.
// A zero interval disables publishing.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("snapshot scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.RunOnce(jobCtx); err != nil {
			s.logger.Error("snapshot job failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule snapshot job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("snapshot scheduler started", "interval", s.interval)
	return nil
}

// RunOnce evaluates all locations and publishes the snapshot.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	predictions, err := s.snapshotter.PredictAll(ctx)
	if err != nil {
		return fmt.Errorf("predict all locations: %w", err)
	}
	if len(predictions) == 0 {
		s.logger.Debug("snapshot skipped, no locations")
		return nil
	}

	if err := s.publisher.Publish(ctx, predictions); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	s.metrics.SnapshotsPublished.Inc()
	s.logger.Info("snapshot published",
		"locations", len(predictions),
		"evaluated_at", predictions[0].EvaluatedAt,
	)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
