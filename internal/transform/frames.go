// Package transform provides coordinate frame conversions for satellite
// positions.
//
// SGP4 outputs states in TEME (True Equator Mean Equinox). Ground-relative
// outputs need ECEF or geodetic coordinates, reached through a GMST-only
// Vallado-style rotation (TEME → PEF ≈ ECEF). This ignores polar motion and
// the equation of the equinoxes, which introduces ~50m of error at most.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// StateTEME is a satellite position and velocity in the TEME frame,
// in km and km/s.
type StateTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// StateECEF is a satellite position and velocity in the ECEF frame,
// in km and km/s.
type StateECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// TEMEToECEF transforms a TEME state to ECEF at the given UTC time.
func TEMEToECEF(teme StateTEME, t time.Time) StateECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle
// in radians. Useful when converting many satellites at the same instant:
// compute GMST once and share it.
//
// Position: r_ECEF = R3(θ) * r_TEME
// Velocity: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
func TEMEToECEFWithGMST(teme StateTEME, gmst float64) StateECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := teme.X*cosG + teme.Y*sinG
	y := -teme.X*sinG + teme.Y*cosG
	z := teme.Z

	vxRot := teme.VX*cosG + teme.VY*sinG
	vyRot := -teme.VX*sinG + teme.VY*cosG

	// ω × r_ECEF = [-ω*y, ω*x, 0]
	return StateECEF{
		X: x, Y: y, Z: z,
		VX: vxRot + OmegaEarth*y,
		VY: vyRot - OmegaEarth*x,
		VZ: teme.VZ,
	}
}

// ValidRadius reports whether a position magnitude in km is physically
// reasonable for an Earth-orbiting object: above the atmosphere floor and
// below a generous super-GEO ceiling.
func ValidRadius(x, y, z float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		return false
	}
	if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsInf(z, 0) {
		return false
	}
	mag := math.Sqrt(x*x + y*y + z*z)
	const minRadiusKm = 6200.0
	const maxRadiusKm = 60000.0
	return mag >= minRadiusKm && mag <= maxRadiusKm
}
