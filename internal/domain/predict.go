package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var errNoSource = errors.New("no measurement source configured")

// Predict reads a location's history and classifies it at now.
// Failures never escape: a read error, a malformed history, or a panic in the
// source all produce the ERROR tier (graceful degradation), so one bad
// location cannot spoil a listing.
func Predict(ctx context.Context, src MeasurementSource, locationID string, now time.Time, logger *slog.Logger) (result PredictionResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("prediction panicked",
				"location_id", locationID,
				"panic", r,
			)
			result = ErrorResult()
		}
	}()

	if src == nil {
		logger.Warn("read measurements failed", "location_id", locationID, "error", errNoSource)
		return ErrorResult()
	}

	ms, err := src.Measurements(ctx, locationID)
	if err != nil {
		logger.Warn("read measurements failed",
			"location_id", locationID,
			"error", err,
		)
		return ErrorResult()
	}

	result, err = Classify(ms, now)
	if err != nil {
		logger.Warn("classify measurements failed",
			"location_id", locationID,
			"measurements", len(ms),
			"error", err,
		)
		return ErrorResult()
	}
	return result
}
