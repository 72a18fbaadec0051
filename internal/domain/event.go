package domain

import (
	"context"
	"time"
)

// Measurement is a single noise reading as seen by the trust engine.
type Measurement struct {
	Value      float64   `json:"noiseDb"`
	MeasuredAt time.Time `json:"timestamp"`
}

// MeasurementEvent is a stored noise reading together with its ownership data.
type MeasurementEvent struct {
	ID         string    `json:"id"`
	LocationID string    `json:"locationId"`
	UserID     *string   `json:"userId,omitempty"`
	NoiseDB    float64   `json:"noiseDb"`
	MeasuredAt time.Time `json:"timestamp"`
}

// Measurement strips the event down to what the trust engine consumes.
func (e MeasurementEvent) Measurement() Measurement {
	return Measurement{Value: e.NoiseDB, MeasuredAt: e.MeasuredAt}
}

// RawEvent represents an unprocessed message from an ingest transport
// (a Kafka record or an MQTT publish).
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form of a prediction snapshot destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
