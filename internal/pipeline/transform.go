package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
)

// MeasurementTransformer implements Transformer with the domain payload parser.
type MeasurementTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a MeasurementTransformer.
func NewTransformer(logger *slog.Logger) *MeasurementTransformer {
	return &MeasurementTransformer{logger: logger}
}

func (t *MeasurementTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.MeasurementEvent, error) {
	event, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.MeasurementEvent{}, err
	}
	t.logger.Debug("measurement accepted",
		"id", event.ID,
		"location_id", event.LocationID,
		"noise_db", event.NoiseDB,
	)
	return event, nil
}
