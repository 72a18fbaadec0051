// Package fixture generates and loads reproducible measurement histories
// covering every trust tier.
package fixture

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/adapter/memory"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
)

// Profile names the history shape generated for a location.
type Profile string

const (
	ProfileEmpty     Profile = "empty"
	ProfileFresh     Profile = "fresh"
	ProfileLimited   Profile = "limited"
	ProfileModerate  Profile = "moderate"
	ProfileConfident Profile = "confident"
)

// Profiles lists the shapes in the order they are assigned to locations.
var Profiles = []Profile{ProfileEmpty, ProfileFresh, ProfileLimited, ProfileModerate, ProfileConfident}

// Fixture is the on-disk document shared by genfixture and replay.
type Fixture struct {
	GeneratedAt time.Time  `json:"generatedAt"`
	Seed        uint64     `json:"seed"`
	Locations   []Location `json:"locations"`
}

// Location is one location history, freshest first.
type Location struct {
	LocationID   string               `json:"locationId"`
	Profile      Profile              `json:"profile"`
	Measurements []domain.Measurement `json:"measurements"`
}

// Generate builds n locations whose histories cycle through Profiles. The
// same seed and instant always yield the same fixture.
func Generate(n int, seed uint64, at time.Time) Fixture {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	at = at.UTC()

	f := Fixture{GeneratedAt: at, Seed: seed, Locations: make([]Location, 0, n)}
	for i := range n {
		p := Profiles[i%len(Profiles)]
		f.Locations = append(f.Locations, Location{
			LocationID:   fmt.Sprintf("cafe-%03d", i+1),
			Profile:      p,
			Measurements: history(rng, p, at),
		})
	}
	return f
}

func history(rng *rand.Rand, p Profile, at time.Time) []domain.Measurement {
	base := 40 + rng.Float64()*30

	var count int
	switch p {
	case ProfileEmpty:
		return []domain.Measurement{}
	case ProfileFresh:
		count = 1 + rng.IntN(30)
	case ProfileLimited:
		count = 1 + rng.IntN(domain.ModerateMinSamples-1)
	case ProfileModerate:
		count = domain.ModerateMinSamples + rng.IntN(domain.ConfidentMinSamples-domain.ModerateMinSamples)
	case ProfileConfident:
		count = domain.ConfidentMinSamples + rng.IntN(40)
	}

	ms := make([]domain.Measurement, 0, count)
	for range count {
		// At least two hours old so only the fresh profile is within the freshness window.
		age := 2*time.Hour + time.Duration(rng.Int64N(int64(45*24*time.Hour)))
		ts := at.Add(-age).Truncate(time.Minute)
		ms = append(ms, domain.Measurement{Value: level(rng, base, ts), MeasuredAt: ts})
	}
	if p == ProfileFresh {
		ts := at.Add(-time.Duration(1+rng.IntN(59)) * time.Minute)
		ms = append(ms, domain.Measurement{Value: level(rng, base, ts), MeasuredAt: ts})
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i].MeasuredAt.After(ms[j].MeasuredAt) })
	return ms
}

// level models a daytime peak around 13:00 plus jitter, clamped to 30..95 dB.
func level(rng *rand.Rand, base float64, ts time.Time) float64 {
	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	daily := 8 * math.Cos((hour-13)/24*2*math.Pi)
	v := base + daily + rng.NormFloat64()*3
	return math.Round(math.Min(95, math.Max(30, v))*10) / 10
}

// Write stores the fixture as indented JSON.
func Write(path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // fixture files are not secret
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// Load reads a fixture written by Write.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a CLI flag
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Seed loads every location into a memory store.
func (f Fixture) Seed(s *memory.Store) {
	for _, loc := range f.Locations {
		s.Seed(loc.LocationID, loc.Measurements)
	}
}

// LocationIDs returns the location ids in fixture order.
func (f Fixture) LocationIDs() []string {
	ids := make([]string, len(f.Locations))
	for i, loc := range f.Locations {
		ids[i] = loc.LocationID
	}
	return ids
}
