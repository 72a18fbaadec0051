package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // PREDICTION_TIMEZONE must resolve in minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory     = "memory"
	StoreClickHouse = "clickhouse"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StoreBackend       string
	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration

	// MQTT device ingest.
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// Prediction engine.
	PredictionTimeout     time.Duration
	PredictionConcurrency int
	PredictionLocation    *time.Location
	SnapshotInterval      time.Duration

	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	predictionTimeout, err := parsePositiveDuration("PREDICTION_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}

	snapshotInterval, err := parseDuration("SNAPSHOT_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	breakerOpenTimeout, err := parsePositiveDuration("BREAKER_OPEN_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("PREDICTION_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}

	maxFailures, err := parsePositiveInt("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("PREDICTION_TIMEZONE", "UTC")
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_TIMEZONE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreBackend:       sharedcfg.EnvOrDefault("STORE_BACKEND", StoreMemory),
		ClickHouseAddr:     sharedcfg.EnvOrDefault("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:       sharedcfg.EnvOrDefault("CLICKHOUSE_DB", "quietspot"),
		ClickHouseUser:     sharedcfg.EnvOrDefault("CLICKHOUSE_USER", "default"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "noise-measurements"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "noise-predictions"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "noise-trust"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MQTTEnabled:  os.Getenv("MQTT_ENABLED") == "true",
		MQTTBroker:   sharedcfg.EnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "noise-trust"),
		MQTTTopic:    sharedcfg.EnvOrDefault("MQTT_TOPIC", "noise/+/measurement"),

		PredictionTimeout:     predictionTimeout,
		PredictionConcurrency: concurrency,
		PredictionLocation:    location,
		SnapshotInterval:      snapshotInterval,

		BreakerMaxFailures: maxFailures,
		BreakerOpenTimeout: breakerOpenTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreClickHouse:
		if c.ClickHouseAddr == "" {
			return errors.New("CLICKHOUSE_ADDR is required when STORE_BACKEND is clickhouse")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if c.MQTTEnabled && c.MQTTTopic == "" {
		return errors.New("MQTT_TOPIC is required when MQTT_ENABLED is true")
	}
	return nil
}

// IngestEnabled reports whether any ingest transport is configured.
func (c *Config) IngestEnabled() bool {
	return c.KafkaEnabled || c.MQTTEnabled
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
