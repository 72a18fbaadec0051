// Package domain models crowd-sourced noise measurements and the trust policy
// that turns a location's measurement history into a single noise prediction.
//
// # Measurements
//
// A measurement is a decibel reading taken by a user's phone or a fixed sensor
// at a location. Histories are supplied freshest first by a [MeasurementSource];
// the engine never re-sorts them and never writes them.
//
// # Trust Tiers
//
// Every evaluation assigns exactly one tier, first match wins:
//
//	NEW_CAFE              no measurements at all
//	FRESH_DATA            freshest reading is under 60 minutes old; reported as-is
//	CONFIDENT_PREDICTION  40+ readings; exponential decay, same day type, +/-2h
//	MODERATE_CONFIDENCE   20-39 readings; harmonic decay, +/-3h
//	LIMITED_DATA          1-19 readings; plain mean
//	ERROR                 the history could not be read or was malformed
//
// Confidence is derived one-to-one from the tier:
//
//	NEW_CAFE -> none, FRESH_DATA -> highest, CONFIDENT_PREDICTION -> high,
//	MODERATE_CONFIDENCE -> medium, LIMITED_DATA -> low, ERROR -> none
//
// # Temporal Weighting
//
// Both weighted models drop readings older than 30 days and readings whose
// clock hour is too far from the current one. Hours are compared in the
// location of the evaluation time, without wrapping around midnight
// (23:00 and 00:00 are 23 hours apart).
//
// Confident tier weight:
//
//	w = exp(-daysAgo / 10), doubled when daysAgo <= 14
//	weekday readings only vote on weekdays, weekend readings only on weekends
//
// Moderate tier weight:
//
//	w = 1 / (1 + daysAgo / 7)
//
// When no reading survives the filter, the model falls back to the plain mean
// of readings within 30 days, then to the plain mean of the whole history, so
// a non-empty history always yields a number.
//
// # Time
//
// "Now" is captured once per evaluation by the caller and passed to [Classify]
// and [Predict]; nothing in this package reads the wall clock while scoring.
package domain
