//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/adapter/kafka"
	"github.com/couchcryptid/noise-trust-service/internal/adapter/memory"
	"github.com/couchcryptid/noise-trust-service/internal/config"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/couchcryptid/noise-trust-service/internal/pipeline"
	"github.com/couchcryptid/noise-trust-service/internal/prediction"
	"github.com/couchcryptid/noise-trust-service/internal/scheduler"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-measurements"
	testSinkTopic   = "test-predictions"
)

var evalAt = time.Date(2024, 4, 24, 15, 0, 0, 0, time.UTC)

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func measurementMessage(t *testing.T, loc string, db float64, at time.Time) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"locationId": loc,
		"noiseDb":    db,
		"timestamp":  at,
	})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(loc), Value: payload, Time: at}
}

// TestKafkaReader verifies that kafka.Reader extracts a measurement with its
// headers and a working commit callback.
func TestKafkaReader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	cfg := testConfig(broker, "test-reader")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte("cafe-1"),
		Value:   []byte(`{"noiseDb":52.5}`),
		Time:    evalAt,
		Headers: []kafkago.Header{{Key: domain.HeaderLocationID, Value: []byte("cafe-1")}},
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, testSourceTopic, raw.Topic)
	assert.Equal(t, "cafe-1", raw.Headers[domain.HeaderLocationID])
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	event, err := pipeline.NewTransformer(discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "cafe-1", event.LocationID)
	assert.InDelta(t, 52.5, event.NoiseDB, 0)
	assert.True(t, event.MeasuredAt.Equal(evalAt))
}

// TestIngestAndSnapshot wires the ingest pipeline and the snapshot job against
// real Kafka: measurements flow into the store, a poison pill is skipped, and
// the published snapshot carries the expected tiers and headers.
func TestIngestAndSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-ingest")

	// cafe-fresh: one reading 10 minutes ago. cafe-moderate: 25 older readings.
	msgs := []kafkago.Message{
		{Key: []byte("bad"), Value: []byte("not-json{{{"), Time: evalAt},
		measurementMessage(t, "cafe-fresh", 61, evalAt.Add(-10*time.Minute)),
	}
	for i := range 25 {
		msgs = append(msgs, measurementMessage(t, "cafe-moderate", 48, evalAt.Add(-time.Duration(i+1)*24*time.Hour)))
	}

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	store := memory.NewStore()
	metrics := observability.NewMetricsForTesting()

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger()), store, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	require.Eventually(t, func() bool { return store.Len() == 26 }, 60*time.Second, 200*time.Millisecond)
	require.NoError(t, p.CheckReadiness(ctx))

	pipelineCancel()
	require.NoError(t, <-errCh)

	svc := prediction.NewService(store, prediction.Options{
		Clock: clockwork.NewFakeClockAt(evalAt),
	}, discardLogger(), metrics)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, scheduler.New(svc, writer, time.Minute, discardLogger(), metrics).RunOnce(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := map[string]domain.LocationPrediction{}
	headers := map[string]map[string]string{}
	for len(got) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		var pred domain.LocationPrediction
		require.NoError(t, json.Unmarshal(msg.Value, &pred))
		assert.Equal(t, pred.LocationID, string(msg.Key))
		got[pred.LocationID] = pred

		h := map[string]string{}
		for _, kv := range msg.Headers {
			h[kv.Key] = string(kv.Value)
		}
		headers[pred.LocationID] = h
	}

	fresh := got["cafe-fresh"]
	assert.Equal(t, domain.TierFreshData, fresh.TrustTier)
	require.NotNil(t, fresh.MinutesAgo)
	assert.Equal(t, 10, *fresh.MinutesAgo)
	assert.Equal(t, "FRESH_DATA", headers["cafe-fresh"]["trust_tier"])
	assert.Equal(t, evalAt.Format(time.RFC3339), headers["cafe-fresh"]["evaluated_at"])

	moderate := got["cafe-moderate"]
	assert.Equal(t, domain.TierModerateConfidence, moderate.TrustTier)
	assert.Equal(t, 25, moderate.MeasurementCount)
	require.NotNil(t, moderate.NoiseDB)
	assert.InDelta(t, 48, *moderate.NoiseDB, 1e-9)
}
