package domain

import "context"

// MeasurementSource supplies measurement histories to the trust engine.
// Implementations must be safe for concurrent reads.
type MeasurementSource interface {
	// Measurements returns every reading for the location ordered by
	// MeasuredAt descending. An unknown location yields an empty slice.
	Measurements(ctx context.Context, locationID string) ([]Measurement, error)
}

// LocationLister enumerates the locations that have at least one measurement.
type LocationLister interface {
	Locations(ctx context.Context) ([]string, error)
}

// MeasurementLoader appends validated measurements to a store.
type MeasurementLoader interface {
	AppendBatch(ctx context.Context, events []MeasurementEvent) error
}
