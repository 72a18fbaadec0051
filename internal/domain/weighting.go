package domain

import (
	"math"
	"time"
)

// accumulator is the running state of a weighted mean.
type accumulator struct {
	weightedSum float64
	totalWeight float64
}

func (a accumulator) add(value, weight float64) accumulator {
	return accumulator{
		weightedSum: a.weightedSum + value*weight,
		totalWeight: a.totalWeight + weight,
	}
}

// mean returns the weighted mean, or false when nothing carried weight.
func (a accumulator) mean() (float64, bool) {
	if a.totalWeight <= 0 {
		return 0, false
	}
	return a.weightedSum / a.totalWeight, true
}

// weightFunc returns a reading's weight relative to now, or false if the
// reading is filtered out.
type weightFunc func(m Measurement, now time.Time) (float64, bool)

// fold reduces the history to a weighted sum and total weight.
func fold(ms []Measurement, now time.Time, weigh weightFunc) accumulator {
	var acc accumulator
	for _, m := range ms {
		if w, ok := weigh(m, now); ok {
			acc = acc.add(m.Value, w)
		}
	}
	return acc
}

// confidentWeight is the exponential-decay model used for large histories.
func confidentWeight(m Measurement, now time.Time) (float64, bool) {
	days := daysAgo(m, now)
	if days > RecencyCutoffDays {
		return 0, false
	}
	if hourDistance(m, now) > ConfidentHourWindow {
		return 0, false
	}
	if isWeekend(m.MeasuredAt.In(now.Location())) != isWeekend(now) {
		return 0, false
	}
	w := math.Exp(-days / ConfidentDecayDays)
	if days <= ConfidentBoostDays {
		w *= ConfidentBoostFactor
	}
	return w, true
}

// moderateWeight is the harmonic-decay model used for mid-sized histories.
func moderateWeight(m Measurement, now time.Time) (float64, bool) {
	days := daysAgo(m, now)
	if days > RecencyCutoffDays {
		return 0, false
	}
	if hourDistance(m, now) > ModerateHourWindow {
		return 0, false
	}
	return 1 / (1 + days/ModerateDecayDays), true
}

func withinRecencyCutoff(m Measurement, now time.Time) (float64, bool) {
	return 1, daysAgo(m, now) <= RecencyCutoffDays
}

func unweighted(Measurement, time.Time) (float64, bool) {
	return 1, true
}

// weightedPrediction runs a model and walks the fallback ladder when the
// model's filter admits nothing: recent plain mean, then all-time plain mean.
// The history must not be empty.
func weightedPrediction(ms []Measurement, now time.Time, model weightFunc) float64 {
	for _, weigh := range []weightFunc{model, withinRecencyCutoff} {
		if v, ok := fold(ms, now, weigh).mean(); ok {
			return v
		}
	}
	return simpleAverage(ms)
}

// simpleAverage is the unweighted mean of the whole history.
func simpleAverage(ms []Measurement) float64 {
	v, _ := fold(ms, time.Time{}, unweighted).mean()
	return v
}

// daysAgo is the fractional age of a reading in days. Readings stamped in the
// future count as taken right now.
func daysAgo(m Measurement, now time.Time) float64 {
	age := now.Sub(m.MeasuredAt)
	if age < 0 {
		return 0
	}
	return float64(age) / float64(24*time.Hour)
}

// hourDistance compares clock hours in now's location, without wrapping midnight.
func hourDistance(m Measurement, now time.Time) int {
	d := now.Hour() - m.MeasuredAt.In(now.Location()).Hour()
	if d < 0 {
		return -d
	}
	return d
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
