package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TestTEMEToECEF validates our TEME→ECEF transform against the go-satellite
// library's ECIToECEF function using the same GMST. Both use simplified
// GMST-only rotation (no nutation or polar motion), so they should agree
// to floating point precision.
func TestTEMEToECEF(t *testing.T) {
	tests := []struct {
		name string
		teme StateTEME
		time time.Time
	}{
		{
			// Vallado "Fundamentals of Astrodynamics" Example 3-15
			name: "Vallado example 3-15",
			teme: StateTEME{
				X: 5094.18016, Y: 6127.64465, Z: 6380.34453,
				VX: -4.746131487, VY: 0.786598499, VZ: 5.531931288,
			},
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		},
		{
			// Typical LEO satellite (roughly ISS-like orbit)
			name: "LEO equatorial",
			teme: StateTEME{
				X: 6778.0, Y: 0.0, Z: 0.0,
				VX: 0.0, VY: 7.5, VZ: 0.0,
			},
			time: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC),
		},
		{
			// Polar orbit
			name: "LEO polar",
			teme: StateTEME{
				X: 0.0, Y: 0.0, Z: 6978.0,
				VX: 7.4, VY: 0.0, VZ: 0.0,
			},
			time: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gmst := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			our := TEMEToECEFWithGMST(tt.teme, gmst)

			ref := satellite.ECIToECEF(
				satellite.Vector3{X: tt.teme.X, Y: tt.teme.Y, Z: tt.teme.Z},
				gmst,
			)

			// Tolerance: 1 millimeter in km units.
			const tolerance = 1e-6
			if math.Abs(our.X-ref.X) > tolerance ||
				math.Abs(our.Y-ref.Y) > tolerance ||
				math.Abs(our.Z-ref.Z) > tolerance {
				t.Errorf("position mismatch:\n  ours: [%.9f, %.9f, %.9f] km\n  ref:  [%.9f, %.9f, %.9f] km",
					our.X, our.Y, our.Z, ref.X, ref.Y, ref.Z)
			}

			if !ValidRadius(our.X, our.Y, our.Z) {
				t.Errorf("ECEF position failed radius check: [%.1f, %.1f, %.1f] km", our.X, our.Y, our.Z)
			}
		})
	}
}

// TestTEMEToECEFVelocity verifies the velocity transform includes the Earth
// rotation correction.
func TestTEMEToECEFVelocity(t *testing.T) {
	// Prograde equatorial satellite at longitude 0°.
	teme := StateTEME{
		X: 6778.0, Y: 0.0, Z: 0.0,
		VX: 0.0, VY: 7.5, VZ: 0.0,
	}
	gmst := 0.0 // GMST = 0 means TEME X-axis aligns with ECEF X-axis.

	ecef := TEMEToECEFWithGMST(teme, gmst)

	if math.Abs(ecef.X-6778.0) > 1e-9 {
		t.Errorf("X position: got %.6f, want 6778.0", ecef.X)
	}

	// Earth rotation at this radius: ω*R = 7.292115e-5 * 6778 ≈ 0.4943 km/s.
	// ECEF Y-velocity should be 7.5 - ω*R.
	expectedVY := 7.5 - OmegaEarth*6778.0
	if math.Abs(ecef.VY-expectedVY) > 1e-9 {
		t.Errorf("VY: got %.6f km/s, want %.6f km/s", ecef.VY, expectedVY)
	}
}

// TestValidRadius tests the position magnitude sanity check.
func TestValidRadius(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		valid   bool
	}{
		{"LEO", 6778, 0, 0, true},
		{"GEO", 42164, 0, 0, true},
		{"too low", 5000, 0, 0, false},
		{"too high", 70000, 0, 0, false},
		{"NaN", math.NaN(), 0, 0, false},
		{"Inf", math.Inf(1), 0, 0, false},
		{"zero", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidRadius(tt.x, tt.y, tt.z); got != tt.valid {
				t.Errorf("ValidRadius(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.valid)
			}
		})
	}
}
