package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/noise-trust-service/internal/adapter/breaker"
	"github.com/couchcryptid/noise-trust-service/internal/adapter/clickhouse"
	httpadapter "github.com/couchcryptid/noise-trust-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/noise-trust-service/internal/adapter/kafka"
	"github.com/couchcryptid/noise-trust-service/internal/adapter/memory"
	mqttadapter "github.com/couchcryptid/noise-trust-service/internal/adapter/mqtt"
	"github.com/couchcryptid/noise-trust-service/internal/config"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/couchcryptid/noise-trust-service/internal/pipeline"
	"github.com/couchcryptid/noise-trust-service/internal/prediction"
	"github.com/couchcryptid/noise-trust-service/internal/scheduler"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// store is what every backend offers: reads, listings, and appends.
type store interface {
	domain.MeasurementSource
	domain.LocationLister
	domain.MeasurementLoader
}

// guardedStore reads through the breaker and writes to the backend directly.
type guardedStore struct {
	*breaker.Source
	domain.MeasurementLoader
}

// readiness is ready when every member is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

type ingest struct {
	name     string
	pipeline *pipeline.Pipeline
	closer   io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open measurement store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	source := breaker.NewSource(backend, breaker.Settings{
		Name:        "measurement-source",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger, metrics)

	svc := prediction.NewService(source, prediction.Options{
		Location:    cfg.PredictionLocation,
		Timeout:     cfg.PredictionTimeout,
		Concurrency: cfg.PredictionConcurrency,
	}, logger, metrics)

	ingests, err := buildIngests(cfg, backend, logger, metrics)
	if err != nil {
		logger.Error("failed to start ingest", "error", err)
		os.Exit(1)
	}

	ready := readiness{svc}
	for _, in := range ingests {
		ready = append(ready, in.pipeline)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, svc, guardedStore{Source: source, MeasurementLoader: backend}, logger)

	var writer *kafkaadapter.Writer
	var sched *scheduler.Scheduler
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sched = scheduler.New(svc, writer, cfg.SnapshotInterval, logger, metrics)
		if err := sched.Start(ctx); err != nil {
			logger.Error("failed to start snapshot scheduler", "error", err)
			os.Exit(1)
		}
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest pipelines.
	var wg sync.WaitGroup
	for _, in := range ingests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := in.pipeline.Run(ctx); err != nil {
				logger.Error("pipeline error", "transport", in.name, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	wg.Wait()
	for _, in := range ingests {
		if err := in.closer.Close(); err != nil {
			logger.Error("ingest close error", "transport", in.name, "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeBackend(); err != nil {
		logger.Error("measurement store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func() error, error) {
	switch cfg.StoreBackend {
	case config.StoreClickHouse:
		s, err := clickhouse.NewStore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		logger.Info("using in-memory measurement store")
		return memory.NewStore(), func() error { return nil }, nil
	}
}

func buildIngests(cfg *config.Config, loader domain.MeasurementLoader, logger *slog.Logger, metrics *observability.Metrics) ([]ingest, error) {
	transformer := pipeline.NewTransformer(logger)

	var out []ingest
	if cfg.KafkaEnabled {
		reader := kafkaadapter.NewReader(cfg, logger)
		out = append(out, ingest{
			name:     "kafka",
			pipeline: pipeline.New(reader, transformer, loader, logger.With("transport", "kafka"), metrics, cfg.BatchSize),
			closer:   reader,
		})
	}
	if cfg.MQTTEnabled {
		sub, err := mqttadapter.NewSubscriber(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("start mqtt ingest: %w", err)
		}
		out = append(out, ingest{
			name:     "mqtt",
			pipeline: pipeline.New(sub, transformer, loader, logger.With("transport", "mqtt"), metrics, cfg.BatchSize),
			closer:   sub,
		})
	}
	if !cfg.IngestEnabled() {
		logger.Info("ingest disabled, accepting measurements over HTTP only")
	}
	return out, nil
}
