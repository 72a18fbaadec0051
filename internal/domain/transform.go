package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidMeasurement wraps every validation failure of an ingest payload.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// HeaderLocationID carries the location id when the transport encodes it
// outside the payload, e.g. in an MQTT topic segment.
const HeaderLocationID = "location_id"

var validate = validator.New(validator.WithRequiredStructEnabled())

// measurementPayload is the wire shape accepted by every ingest transport.
// NoiseDB is a pointer so a missing value is distinguishable from 0 dB.
type measurementPayload struct {
	ID         string     `json:"id"`
	LocationID string     `json:"locationId" validate:"required,max=64"`
	UserID     *string    `json:"userId"`
	NoiseDB    *float64   `json:"noiseDb" validate:"required,gte=0,lte=200"`
	MeasuredAt *time.Time `json:"timestamp"`
}

// ParseRawEvent decodes and validates a transport message into a MeasurementEvent.
// The location id falls back to the HeaderLocationID header and the timestamp
// falls back to the message timestamp.
func ParseRawEvent(raw RawEvent) (MeasurementEvent, error) {
	return ParseMeasurement(raw.Value, raw.Headers[HeaderLocationID], raw.Timestamp)
}

// ParseMeasurement decodes and validates a JSON measurement payload.
// Missing ids get a fresh UUID; a missing timestamp becomes fallbackTime, or
// the package clock's now when fallbackTime is zero.
func ParseMeasurement(data []byte, fallbackLocation string, fallbackTime time.Time) (MeasurementEvent, error) {
	var p measurementPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return MeasurementEvent{}, fmt.Errorf("parse measurement: %w", err)
	}

	p.LocationID = strings.TrimSpace(p.LocationID)
	if p.LocationID == "" {
		p.LocationID = strings.TrimSpace(fallbackLocation)
	}

	if err := validate.Struct(p); err != nil {
		return MeasurementEvent{}, fmt.Errorf("%w: %w", ErrInvalidMeasurement, err)
	}
	if math.IsNaN(*p.NoiseDB) || math.IsInf(*p.NoiseDB, 0) {
		return MeasurementEvent{}, fmt.Errorf("%w: noiseDb is not finite", ErrInvalidMeasurement)
	}

	return MeasurementEvent{
		ID:         normalizeID(p.ID),
		LocationID: p.LocationID,
		UserID:     normalizeUserID(p.UserID),
		NoiseDB:    *p.NoiseDB,
		MeasuredAt: resolveMeasuredAt(p.MeasuredAt, fallbackTime),
	}, nil
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// normalizeUserID treats a blank user as a guest.
func normalizeUserID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func resolveMeasuredAt(ts *time.Time, fallback time.Time) time.Time {
	switch {
	case ts != nil && !ts.IsZero():
		return ts.UTC()
	case !fallback.IsZero():
		return fallback.UTC()
	default:
		return Now()
	}
}

// SerializePrediction marshals a location prediction into a sink message.
func SerializePrediction(p LocationPrediction) (OutputEvent, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return OutputEvent{
		Key:   []byte(p.LocationID),
		Value: data,
		Headers: map[string]string{
			"trust_tier":   string(p.TrustTier),
			"evaluated_at": p.EvaluatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
