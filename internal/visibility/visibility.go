// Package visibility computes observer-relative range and look angles.
//
// Both the satellite and the observer are placed on a spherical Earth of
// radius 6371 km before the topocentric decomposition. The spherical model
// is a deliberate simplification: against the WGS-84 ellipsoid it shifts
// elevations by fractions of a degree, which is irrelevant for deciding
// whether an object is worth pointing an antenna at, and it keeps the
// per-tick cost of a large catalog trivial.
package visibility

import "math"

// EarthRadiusKm is the spherical Earth radius used throughout this package.
const EarthRadiusKm = 6371.0

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Result holds the observer-relative geometry for one satellite.
// When Valid is false the inputs were not finite and the remaining fields
// are meaningless; callers should log and skip rather than render it.
type Result struct {
	RangeKm      float64
	ElevationDeg float64
	AzimuthDeg   float64 // [0, 360), 0 = North, clockwise
	Visible      bool    // elevation strictly above the horizon
	Valid        bool
}

// Observer is a ground station location. Altitude is meters above the
// spherical sea level.
type Observer struct {
	LatDeg    float64
	LonDeg    float64
	AltMeters float64
}

// Compute returns the range, elevation and azimuth of a satellite at the
// given geodetic position as seen from obs. Visibility is a pure horizon
// test: Visible iff elevation > 0.
func Compute(satLatDeg, satLonDeg, satAltKm float64, obs Observer) Result {
	if !finite(satLatDeg) || !finite(satLonDeg) || !finite(satAltKm) ||
		!finite(obs.LatDeg) || !finite(obs.LonDeg) || !finite(obs.AltMeters) {
		return Result{}
	}

	sx, sy, sz := sphericalToCartesian(satLatDeg, satLonDeg, EarthRadiusKm+satAltKm)
	ox, oy, oz := sphericalToCartesian(obs.LatDeg, obs.LonDeg, EarthRadiusKm+obs.AltMeters/1000.0)

	rx := sx - ox
	ry := sy - oy
	rz := sz - oz
	rangeKm := math.Sqrt(rx*rx + ry*ry + rz*rz)
	if rangeKm == 0 {
		// Satellite exactly at the observer; direction is undefined.
		return Result{RangeKm: 0, ElevationDeg: 90, Visible: true, Valid: true}
	}

	sinLat := math.Sin(obs.LatDeg * deg2rad)
	cosLat := math.Cos(obs.LatDeg * deg2rad)
	sinLon := math.Sin(obs.LonDeg * deg2rad)
	cosLon := math.Cos(obs.LonDeg * deg2rad)

	// Rotate the range vector into the observer's SEZ frame.
	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	el := math.Asin(zenith/rangeKm) * rad2deg

	// North = -South, so azimuth measured clockwise from North is
	// atan2(east, -south).
	az := math.Atan2(east, -south) * rad2deg
	if az < 0 {
		az += 360.0
	}
	if az >= 360.0 {
		az -= 360.0
	}

	return Result{
		RangeKm:      rangeKm,
		ElevationDeg: el,
		AzimuthDeg:   az,
		Visible:      el > 0,
		Valid:        true,
	}
}

func sphericalToCartesian(latDeg, lonDeg, radiusKm float64) (x, y, z float64) {
	lat := latDeg * deg2rad
	lon := lonDeg * deg2rad
	cosLat := math.Cos(lat)
	x = radiusKm * cosLat * math.Cos(lon)
	y = radiusKm * cosLat * math.Sin(lon)
	z = radiusKm * math.Sin(lat)
	return x, y, z
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
