// Package passes predicts visibility windows of satellites over a ground
// observer.
//
// The scan runs at a fixed one-minute resolution with a two-state machine
// (outside a pass / inside a pass); boundary times are the sampled
// instants, so rise and set carry up to one sample interval of error.
// That is the intended precision for planning, not antenna steering.
package passes

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sky/skytrack/internal/sgp4"
	"github.com/sky/skytrack/internal/tle"
	"github.com/sky/skytrack/internal/transform"
	"github.com/sky/skytrack/internal/visibility"
)

// Step is the scan resolution.
const Step = time.Minute

// Pass is one complete visibility window. A window still open when the
// scan horizon ends is dropped, not truncated.
type Pass struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	MaxElevationDeg  float64   `json:"max_elevation_deg"`
	MaxElevationTime time.Time `json:"max_elevation_time"`
	StartAzimuthDeg  float64   `json:"start_azimuth_deg"`
	EndAzimuthDeg    float64   `json:"end_azimuth_deg"`
	DurationMinutes  float64   `json:"duration_minutes"`
}

// SatellitePasses holds the prediction outcome for one satellite.
type SatellitePasses struct {
	CatalogNumber int    `json:"catalog_number"`
	Passes        []Pass `json:"passes"`
	Error         string `json:"error,omitempty"`
}

// Request is a multi-satellite prediction request.
type Request struct {
	Observer     visibility.Observer
	Entries      []tle.ElementSet
	Start        time.Time
	Horizon      time.Duration
	MinElevation float64 // degrees; a pass is open while elevation >= this
	MaxPasses    int     // per satellite; <= 0 means unlimited
}

// Predict computes passes for every requested satellite. Each satellite is
// processed in its own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) []SatellitePasses {
	results := make([]SatellitePasses, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i := range req.Entries {
		wg.Add(1)
		go func(idx int, e *tle.ElementSet) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatellitePasses{
					CatalogNumber: e.CatalogNumber,
					Error:         "cancelled",
				}
				return
			}

			model, err := sgp4.NewModel(e)
			if err != nil {
				results[idx] = SatellitePasses{
					CatalogNumber: e.CatalogNumber,
					Error:         err.Error(),
				}
				return
			}
			passes, err := PredictOne(ctx, model, req.Observer, req.Start, req.Horizon, req.MinElevation, req.MaxPasses)
			if err != nil {
				results[idx] = SatellitePasses{
					CatalogNumber: e.CatalogNumber,
					Error:         err.Error(),
				}
				return
			}
			results[idx] = SatellitePasses{
				CatalogNumber: e.CatalogNumber,
				Passes:        passes,
			}
		}(i, &req.Entries[i])
	}

	wg.Wait()
	return results
}

// PredictOne scans one satellite over [start, start+horizon] at the fixed
// step. Sample failures inside the scan are skipped; if not a single
// sample succeeds, the scan as a whole errors.
func PredictOne(ctx context.Context, model *sgp4.Model, obs visibility.Observer, start time.Time, horizon time.Duration, minElevDeg float64, maxPasses int) ([]Pass, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("non-positive horizon")
	}
	end := start.Add(horizon)

	var (
		passes  []Pass
		current *Pass
		sampled int
		lastErr error
	)

	for t := start; !t.After(end); t = t.Add(Step) {
		if ctx.Err() != nil {
			return passes, ctx.Err()
		}

		res, err := lookAt(model, obs, t)
		if err != nil {
			lastErr = err
			continue
		}
		sampled++

		inside := res.ElevationDeg >= minElevDeg

		switch {
		case inside && current == nil:
			// Rising edge: open a pass at this sample.
			current = &Pass{
				Start:            t,
				MaxElevationDeg:  res.ElevationDeg,
				MaxElevationTime: t,
				StartAzimuthDeg:  res.AzimuthDeg,
			}
		case inside:
			if res.ElevationDeg > current.MaxElevationDeg {
				current.MaxElevationDeg = res.ElevationDeg
				current.MaxElevationTime = t
			}
			current.EndAzimuthDeg = res.AzimuthDeg
		case current != nil:
			// Falling edge: close at the previous above-threshold sample.
			current.End = t.Add(-Step)
			current.DurationMinutes = current.End.Sub(current.Start).Minutes()
			passes = append(passes, *current)
			current = nil
			if maxPasses > 0 && len(passes) >= maxPasses {
				return passes, nil
			}
		}
	}

	// A pass still open at the horizon is dropped: the caller asked about
	// this window, and a truncated pass would misreport its duration.

	if sampled == 0 {
		return nil, fmt.Errorf("pass scan produced no usable samples: %w", lastErr)
	}
	return passes, nil
}

// lookAt propagates and converts one sample to observer-relative geometry.
func lookAt(model *sgp4.Model, obs visibility.Observer, t time.Time) (visibility.Result, error) {
	sv, err := model.PropagateTime(t)
	if err != nil {
		return visibility.Result{}, err
	}
	geo, err := transform.ECIToGeodeticAt(sv.Position.X, sv.Position.Y, sv.Position.Z, t)
	if err != nil {
		return visibility.Result{}, err
	}
	res := visibility.Compute(geo.LatDeg, geo.LonDeg, geo.AltKm, obs)
	if !res.Valid {
		return visibility.Result{}, fmt.Errorf("look angle computation rejected non-finite input")
	}
	return res, nil
}
