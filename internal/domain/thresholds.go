package domain

import "time"

// Trust policy thresholds. The values are part of the public contract of the
// predictions and are kept identical across releases.
const (
	// FreshnessWindow is the age under which the latest reading is reported as-is.
	FreshnessWindow = 60 * time.Minute

	// ConfidentMinSamples is the history size that unlocks the confident tier.
	ConfidentMinSamples = 40
	// ModerateMinSamples is the history size that unlocks the moderate tier.
	ModerateMinSamples = 20

	// RecencyCutoffDays drops readings older than this from weighted models
	// and from the first fallback step.
	RecencyCutoffDays = 30.0

	// ConfidentHourWindow is the maximum clock-hour distance in the confident tier.
	ConfidentHourWindow = 2
	// ConfidentDecayDays is the e-folding time of the confident tier weight.
	ConfidentDecayDays = 10.0
	// ConfidentBoostDays marks readings that get ConfidentBoostFactor on top of decay.
	ConfidentBoostDays   = 14.0
	ConfidentBoostFactor = 2.0

	// ModerateHourWindow is the maximum clock-hour distance in the moderate tier.
	ModerateHourWindow = 3
	// ModerateDecayDays is the time scale of the moderate tier's harmonic decay.
	ModerateDecayDays = 7.0
)
