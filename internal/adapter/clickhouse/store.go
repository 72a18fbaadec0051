// Package clickhouse persists noise measurements in ClickHouse.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/couchcryptid/noise-trust-service/internal/config"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS noise_measurements (
	measurement_id String,
	location_id    String,
	user_id        Nullable(String),
	db_value       Float64,
	measured_at    DateTime64(3, 'UTC')
) ENGINE = MergeTree()
ORDER BY (location_id, measured_at)`

const selectHistorySQL = `
SELECT db_value, measured_at
FROM noise_measurements
WHERE location_id = ?
ORDER BY measured_at DESC`

const selectLocationsSQL = `
SELECT DISTINCT location_id
FROM noise_measurements
ORDER BY location_id`

const insertSQL = `INSERT INTO noise_measurements (measurement_id, location_id, user_id, db_value, measured_at)`

// rowScanner is the subset of driver.Rows used to decode query results.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Store reads and appends measurement histories. It implements
// domain.MeasurementSource, domain.LocationLister, and domain.MeasurementLoader.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewStore opens a connection, verifies it, and creates the schema.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info("clickhouse store ready", "addr", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return s, nil
}

// InitSchema creates the measurements table if it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create noise_measurements table: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}
	return nil
}

// Measurements returns the location history freshest first.
func (s *Store) Measurements(ctx context.Context, locationID string) ([]domain.Measurement, error) {
	rows, err := s.conn.Query(ctx, selectHistorySQL, locationID)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	return scanMeasurements(rows)
}

// Locations lists every location with stored measurements.
func (s *Store) Locations(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, selectLocationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	return scanLocations(rows)
}

// AppendBatch inserts events in one native batch.
func (s *Store) AppendBatch(ctx context.Context, events []domain.MeasurementEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare measurement batch: %w", err)
	}
	for _, e := range events {
		if err := batch.Append(e.ID, e.LocationID, e.UserID, e.NoiseDB, e.MeasuredAt.UTC()); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append measurement %s: %w", e.ID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send measurement batch: %w", err)
	}
	s.logger.Debug("stored measurements", "count", len(events))
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func scanMeasurements(rows rowScanner) ([]domain.Measurement, error) {
	defer rows.Close()

	var ms []domain.Measurement
	for rows.Next() {
		var m domain.Measurement
		if err := rows.Scan(&m.Value, &m.MeasuredAt); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		m.MeasuredAt = m.MeasuredAt.UTC()
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return ms, nil
}

func scanLocations(rows rowScanner) ([]string, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return ids, nil
}
