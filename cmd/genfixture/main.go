// Command genfixture writes a reproducible JSON fixture of location
// measurement histories covering every trust tier. The replay command and the
// test suites consume it.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -out data/fixtures/locations.json \
//	  -locations 25 \
//	  -seed 42 \
//	  -at 2024-04-24T15:00:00Z
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/couchcryptid/noise-trust-service/internal/fixture"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON fixture")
	locations := flag.Int("locations", 25, "number of locations to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	atFlag := flag.String("at", "", "reference instant (RFC3339), defaults to now truncated to the hour")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *locations <= 0 {
		return fmt.Errorf("-locations must be positive")
	}

	at := time.Now().UTC().Truncate(time.Hour)
	if *atFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *atFlag)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		at = parsed
	}

	f := fixture.Generate(*locations, *seed, at)
	if err := fixture.Write(*out, f); err != nil {
		return err
	}

	counts := make(map[fixture.Profile]int)
	total := 0
	for _, loc := range f.Locations {
		counts[loc.Profile]++
		total += len(loc.Measurements)
	}
	for _, p := range fixture.Profiles {
		log.Printf("%s: %d locations", p, counts[p])
	}
	log.Printf("total: %d locations, %d measurements -> %s", len(f.Locations), total, *out)
	return nil
}
