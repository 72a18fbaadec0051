// Package memory provides an in-process measurement store for development,
// tests, and the replay tool.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/couchcryptid/noise-trust-service/internal/domain"
)

// Store keeps measurement histories per location, freshest first.
type Store struct {
	mu     sync.RWMutex
	byLoc  map[string][]domain.Measurement
	events int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byLoc: make(map[string][]domain.Measurement)}
}

// Seed replaces the history of a location. Input order does not matter.
func (s *Store) Seed(locationID string, ms []domain.Measurement) {
	cp := slices.Clone(ms)
	sortDesc(cp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events += len(cp) - len(s.byLoc[locationID])
	s.byLoc[locationID] = cp
}

// Measurements returns a copy of the location history ordered by MeasuredAt
// descending. Unknown locations yield an empty slice.
func (s *Store) Measurements(_ context.Context, locationID string) ([]domain.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byLoc[locationID]), nil
}

// Locations lists every location with at least one measurement, sorted.
func (s *Store) Locations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.byLoc))
	for id, ms := range s.byLoc {
		if len(ms) > 0 {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

// AppendBatch inserts each event into its location history, keeping the
// descending order.
func (s *Store) AppendBatch(ctx context.Context, events []domain.MeasurementEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		hist := s.byLoc[e.LocationID]
		m := e.Measurement()
		i := sort.Search(len(hist), func(i int) bool {
			return !hist[i].MeasuredAt.After(m.MeasuredAt)
		})
		hist = slices.Insert(hist, i, m)
		s.byLoc[e.LocationID] = hist
		s.events++
	}
	return nil
}

// Len returns the total number of stored measurements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

func sortDesc(ms []domain.Measurement) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].MeasuredAt.After(ms[j].MeasuredAt)
	})
}
