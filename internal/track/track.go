// Package track samples a satellite's sub-point path over a time window.
package track

import (
	"fmt"
	"time"

	"github.com/sky/skytrack/internal/sgp4"
	"github.com/sky/skytrack/internal/transform"
)

// Point is one ground-track sample.
type Point struct {
	Time   time.Time `json:"time"`
	LatDeg float64   `json:"lat_deg"`
	LonDeg float64   `json:"lon_deg"`
	AltKm  float64   `json:"alt_km"`
}

// Sample propagates the model at start + k*step for the whole window and
// converts each state to a geodetic sub-point. Individual failed samples
// are dropped; the scan fails as a whole only when no sample at all could
// be produced. No caching: tracks are recomputed on request.
func Sample(model *sgp4.Model, start time.Time, window, step time.Duration) ([]Point, error) {
	if model == nil {
		return nil, fmt.Errorf("nil model")
	}
	if window <= 0 || step <= 0 {
		return nil, fmt.Errorf("non-positive window or step")
	}

	n := int(window/step) + 1
	points := make([]Point, 0, n)
	var lastErr error

	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * step)
		sv, err := model.PropagateTime(t)
		if err != nil {
			lastErr = err
			continue
		}
		geo, err := transform.ECIToGeodeticAt(sv.Position.X, sv.Position.Y, sv.Position.Z, t)
		if err != nil {
			lastErr = err
			continue
		}
		points = append(points, Point{
			Time:   t.UTC(),
			LatDeg: geo.LatDeg,
			LonDeg: geo.LonDeg,
			AltKm:  geo.AltKm,
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("ground track produced no usable samples: %w", lastErr)
	}
	return points, nil
}
