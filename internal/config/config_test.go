package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "localhost:9000", cfg.ClickHouseAddr)
	assert.Equal(t, "quietspot", cfg.ClickHouseDB)
	assert.Equal(t, "default", cfg.ClickHouseUser)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "noise-measurements", cfg.KafkaSourceTopic)
	assert.Equal(t, "noise-predictions", cfg.KafkaSinkTopic)
	assert.Equal(t, "noise-trust", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.False(t, cfg.MQTTEnabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "noise/+/measurement", cfg.MQTTTopic)

	assert.Equal(t, 2*time.Second, cfg.PredictionTimeout)
	assert.Equal(t, 8, cfg.PredictionConcurrency)
	assert.Equal(t, time.UTC, cfg.PredictionLocation)
	assert.Equal(t, 15*time.Minute, cfg.SnapshotInterval)
	assert.Equal(t, 5, cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
	assert.False(t, cfg.IngestEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("STORE_BACKEND", "clickhouse")
	t.Setenv("CLICKHOUSE_ADDR", "ch:9000")
	t.Setenv("CLICKHOUSE_PASSWORD", "secret")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_TOPIC", "sensors/+/db")
	t.Setenv("PREDICTION_TIMEOUT", "750ms")
	t.Setenv("PREDICTION_CONCURRENCY", "16")
	t.Setenv("PREDICTION_TIMEZONE", "Asia/Jakarta")
	t.Setenv("SNAPSHOT_INTERVAL", "0s")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StoreClickHouse, cfg.StoreBackend)
	assert.Equal(t, "ch:9000", cfg.ClickHouseAddr)
	assert.Equal(t, "secret", cfg.ClickHousePassword)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, "sensors/+/db", cfg.MQTTTopic)
	assert.Equal(t, 750*time.Millisecond, cfg.PredictionTimeout)
	assert.Equal(t, 16, cfg.PredictionConcurrency)
	assert.Equal(t, "Asia/Jakarta", cfg.PredictionLocation.String())
	assert.Zero(t, cfg.SnapshotInterval)
	assert.Equal(t, 3, cfg.BreakerMaxFailures)
	assert.Equal(t, time.Minute, cfg.BreakerOpenTimeout)
	assert.True(t, cfg.IngestEnabled())
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"BATCH_SIZE", "0"},
		{"PREDICTION_TIMEOUT", "0s"},
		{"PREDICTION_TIMEOUT", "soon"},
		{"SNAPSHOT_INTERVAL", "-1m"},
		{"BREAKER_OPEN_TIMEOUT", "bad"},
		{"PREDICTION_CONCURRENCY", "0"},
		{"BREAKER_MAX_FAILURES", "many"},
		{"PREDICTION_TIMEZONE", "Mars/Olympus_Mons"},
		{"STORE_BACKEND", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate_KafkaTopicsRequiredWhenEnabled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.KafkaSinkTopic = ""
	require.NoError(t, cfg.validate(), "topics are not checked while Kafka is disabled")

	cfg.KafkaEnabled = true
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_SINK_TOPIC")
}

func TestValidate_MQTTTopicRequiredWhenEnabled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.MQTTEnabled = true
	cfg.MQTTTopic = ""
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_TOPIC")
}
