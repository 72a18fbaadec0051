package domain

import "time"

// PredictionResult is the engine's answer for one location.
// NoiseDB is nil for NEW_CAFE and ERROR; MinutesAgo is set only for FRESH_DATA.
type PredictionResult struct {
	NoiseDB          *float64   `json:"noiseDb"`
	TrustTier        TrustTier  `json:"trustTier"`
	Confidence       Confidence `json:"confidence"`
	MeasurementCount int        `json:"measurementCount"`
	MinutesAgo       *int       `json:"minutesAgo,omitempty"`
}

// LocationPrediction pairs a result with the location and the instant it was computed for.
type LocationPrediction struct {
	LocationID  string    `json:"locationId"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
	PredictionResult
}

// newResult assembles a result for a tier, deriving the confidence label.
func newResult(tier TrustTier, noiseDB *float64, count int) PredictionResult {
	return PredictionResult{
		NoiseDB:          noiseDB,
		TrustTier:        tier,
		Confidence:       tier.Confidence(),
		MeasurementCount: count,
	}
}

// NewCafeResult is the result for a location without measurements.
func NewCafeResult() PredictionResult {
	return newResult(TierNewCafe, nil, 0)
}

// ErrorResult is the result for a location whose history could not be evaluated.
// The count is always zero, whatever was read before the failure.
func ErrorResult() PredictionResult {
	return newResult(TierError, nil, 0)
}

func freshResult(latest Measurement, count int, minutesAgo int) PredictionResult {
	r := newResult(TierFreshData, ptr(latest.Value), count)
	r.MinutesAgo = ptr(minutesAgo)
	return r
}

func ptr[T any](v T) *T {
	return &v
}
