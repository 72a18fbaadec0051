//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/adapter/clickhouse"
	"github.com/couchcryptid/noise-trust-service/internal/config"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/couchcryptid/noise-trust-service/internal/prediction"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClickHouseStore verifies schema creation, batch inserts, and that
// histories come back freshest first for the prediction service.
func TestClickHouseStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ep := startClickHouse(ctx, t)
	cfg := &config.Config{
		ClickHouseAddr:     ep.addr,
		ClickHouseDB:       ep.database,
		ClickHouseUser:     ep.user,
		ClickHousePassword: ep.password,
	}

	store, err := clickhouse.NewStore(ctx, cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Schema creation is idempotent.
	require.NoError(t, store.InitSchema(ctx))
	require.NoError(t, store.Ping(ctx))

	user := "u-1"
	events := []domain.MeasurementEvent{
		{ID: "m-1", LocationID: "cafe-1", NoiseDB: 50, MeasuredAt: evalAt.Add(-3 * time.Hour)},
		{ID: "m-2", LocationID: "cafe-1", UserID: &user, NoiseDB: 64.5, MeasuredAt: evalAt.Add(-15 * time.Minute)},
		{ID: "m-3", LocationID: "cafe-1", NoiseDB: 55, MeasuredAt: evalAt.Add(-26 * time.Hour)},
		{ID: "m-4", LocationID: "cafe-2", NoiseDB: 40, MeasuredAt: evalAt.Add(-5 * time.Hour)},
	}
	require.NoError(t, store.AppendBatch(ctx, events))

	ms, err := store.Measurements(ctx, "cafe-1")
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.InDelta(t, 64.5, ms[0].Value, 0)
	assert.True(t, ms[0].MeasuredAt.Equal(evalAt.Add(-15*time.Minute)))
	assert.InDelta(t, 55, ms[2].Value, 0)

	empty, err := store.Measurements(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	ids, err := store.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe-1", "cafe-2"}, ids)

	svc := prediction.NewService(store, prediction.Options{
		Clock: clockwork.NewFakeClockAt(evalAt),
	}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, svc.CheckReadiness(ctx))

	out := svc.PredictMany(ctx, []string{"cafe-1", "cafe-2", "cafe-3"})
	assert.Equal(t, domain.TierFreshData, out[0].TrustTier)
	assert.Equal(t, domain.TierLimitedData, out[1].TrustTier)
	assert.Equal(t, domain.TierNewCafe, out[2].TrustTier)
}
