// Command diag is a propagation smoke test: it parses a TLE file,
// propagates each object to now, and predicts passes over an observer.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sky/skytrack/internal/passes"
	"github.com/sky/skytrack/internal/sgp4"
	"github.com/sky/skytrack/internal/tle"
	"github.com/sky/skytrack/internal/transform"
	"github.com/sky/skytrack/internal/visibility"
)

func main() {
	var (
		file  = flag.String("file", "", "path to a TLE file (required)")
		lat   = flag.Float64("lat", 39.7392, "observer latitude in degrees")
		lon   = flag.Float64("lon", -104.9903, "observer longitude in degrees")
		alt   = flag.Float64("alt", 1609, "observer altitude in meters")
		count = flag.Int("count", 5, "number of objects to process")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: diag -file <tle-file> [-lat] [-lon] [-alt] [-count]")
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Println("ERROR reading TLE file:", err)
		os.Exit(1)
	}

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing TLE:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d element sets\n", len(entries))

	if *count < len(entries) {
		entries = entries[:*count]
	}

	obs := visibility.Observer{LatDeg: *lat, LonDeg: *lon, AltMeters: *alt}
	now := time.Now().UTC()
	fmt.Printf("Observer: %.4f°, %.4f°, %.0f m\nTime: %v\n\n", *lat, *lon, *alt, now)

	for _, e := range entries {
		model, err := sgp4.NewModel(&e)
		if err != nil {
			fmt.Printf("%s (%d): model error: %v\n", e.Name, e.CatalogNumber, err)
			continue
		}

		sv, err := model.PropagateTime(now)
		if err != nil {
			fmt.Printf("%s (%d): propagation error: %v\n", e.Name, e.CatalogNumber, err)
			continue
		}

		geo, err := transform.ECIToGeodeticAt(sv.Position.X, sv.Position.Y, sv.Position.Z, now)
		if err != nil {
			fmt.Printf("%s (%d): frame conversion error: %v\n", e.Name, e.CatalogNumber, err)
			continue
		}

		look := visibility.Compute(geo.LatDeg, geo.LonDeg, geo.AltKm, obs)
		fmt.Printf("%s (%d):\n", e.Name, e.CatalogNumber)
		fmt.Printf("  position: lat=%.4f° lon=%.4f° alt=%.1f km (deep_space=%v)\n",
			geo.LatDeg, geo.LonDeg, geo.AltKm, model.DeepSpace())
		if look.Valid {
			fmt.Printf("  look: el=%.1f° az=%.1f° range=%.0f km visible=%v\n",
				look.ElevationDeg, look.AzimuthDeg, look.RangeKm, look.Visible)
		}
	}

	fmt.Println("\nPass prediction (next 24h):")
	results := passes.Predict(context.Background(), passes.Request{
		Observer:     obs,
		Entries:      entries,
		Start:        now,
		Horizon:      24 * time.Hour,
		MinElevation: 1,
		MaxPasses:    10,
	})

	totalPasses := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  %d: ERROR %s\n", sat.CatalogNumber, sat.Error)
			continue
		}
		fmt.Printf("  %d: %d passes\n", sat.CatalogNumber, len(sat.Passes))
		totalPasses += len(sat.Passes)
		for j, p := range sat.Passes {
			fmt.Printf("    pass %d: start=%v maxEl=%.1f° dur=%.0f min\n",
				j, p.Start.Format(time.RFC3339), p.MaxElevationDeg, p.DurationMinutes)
		}
	}
	fmt.Printf("\nTotal passes found: %d\n", totalPasses)
}
