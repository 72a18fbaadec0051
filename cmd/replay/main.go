// Command replay evaluates every location in a fixture at a fixed instant and
// prints one JSON prediction per line, followed by a tier histogram on stderr.
//
// Usage:
//
//	go run ./cmd/replay \
//	  -fixture data/fixtures/locations.json \
//	  -at 2024-04-24T15:00:00Z \
//	  -tz Europe/Berlin
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/adapter/memory"
	"github.com/couchcryptid/noise-trust-service/internal/domain"
	"github.com/couchcryptid/noise-trust-service/internal/fixture"
	"github.com/couchcryptid/noise-trust-service/internal/observability"
	"github.com/couchcryptid/noise-trust-service/internal/prediction"
	"github.com/jonboulle/clockwork"
)

func main() {
	fixturePath := flag.String("fixture", "", "path to a fixture written by genfixture")
	atFlag := flag.String("at", "", "evaluation instant (RFC3339), defaults to the fixture's generatedAt")
	tz := flag.String("tz", "UTC", "IANA timezone used for hour-of-day and weekend matching")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixturePath, *atFlag, *tz, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath, atFlag, tz string, stdout, stderr io.Writer) int {
	f, err := fixture.Load(fixturePath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	at := f.GeneratedAt
	if atFlag != "" {
		at, err = time.Parse(time.RFC3339, atFlag)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: parse -at: %v\n", err)
			return 1
		}
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load timezone: %v\n", err)
		return 1
	}

	store := memory.NewStore()
	f.Seed(store)

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := prediction.NewService(store, prediction.Options{
		Clock:    clockwork.NewFakeClockAt(at),
		Location: loc,
	}, logger, observability.NewMetricsForTesting())

	results := svc.PredictMany(context.Background(), f.LocationIDs())

	enc := json.NewEncoder(stdout)
	histogram := make(map[domain.TrustTier]int)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(stderr, "FATAL: encode prediction: %v\n", err)
			return 1
		}
		histogram[r.TrustTier]++
	}

	fmt.Fprintf(stderr, "=== Tier histogram at %s (%d locations) ===\n", at.UTC().Format(time.RFC3339), len(results))
	for _, tier := range domain.AllTiers {
		fmt.Fprintf(stderr, "  %-22s %d\n", tier, histogram[tier])
	}
	if histogram[domain.TierError] > 0 {
		return 2
	}
	return 0
}
