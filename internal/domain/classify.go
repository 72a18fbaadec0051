package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedMeasurement is returned for readings the engine cannot score.
var ErrMalformedMeasurement = errors.New("malformed measurement")

// SelectTier picks the tier for a non-failing evaluation. freshestAge is
// ignored when count is zero.
func SelectTier(count int, freshestAge time.Duration) TrustTier {
	switch {
	case count == 0:
		return TierNewCafe
	case freshestAge < FreshnessWindow:
		return TierFreshData
	case count >= ConfidentMinSamples:
		return TierConfidentPrediction
	case count >= ModerateMinSamples:
		return TierModerateConfidence
	default:
		return TierLimitedData
	}
}

// Classify evaluates a freshest-first history at the given instant.
// It is a pure function of its arguments. On error the returned result is
// the ERROR tier.
func Classify(ms []Measurement, now time.Time) (PredictionResult, error) {
	if err := checkHistory(ms); err != nil {
		return ErrorResult(), err
	}

	count := len(ms)
	var age time.Duration
	if count > 0 {
		age = now.Sub(ms[0].MeasuredAt)
	}

	switch tier := SelectTier(count, age); tier {
	case TierNewCafe:
		return NewCafeResult(), nil
	case TierFreshData:
		return freshResult(ms[0], count, wholeMinutes(age)), nil
	case TierConfidentPrediction:
		return newResult(tier, ptr(weightedPrediction(ms, now, confidentWeight)), count), nil
	case TierModerateConfidence:
		return newResult(tier, ptr(weightedPrediction(ms, now, moderateWeight)), count), nil
	default:
		return newResult(tier, ptr(simpleAverage(ms)), count), nil
	}
}

func checkHistory(ms []Measurement) error {
	for i, m := range ms {
		if m.MeasuredAt.IsZero() {
			return fmt.Errorf("%w: reading %d has no timestamp", ErrMalformedMeasurement, i)
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return fmt.Errorf("%w: reading %d has non-finite value", ErrMalformedMeasurement, i)
		}
	}
	return nil
}

// wholeMinutes truncates an age to minutes; future timestamps report zero.
func wholeMinutes(age time.Duration) int {
	if age < 0 {
		return 0
	}
	return int(age / time.Minute)
}
