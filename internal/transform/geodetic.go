package transform

import (
	"fmt"
	"math"
	"time"
)

// WGS-84 ellipsoid, in km.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

const (
	rad2deg = 180.0 / math.Pi
	deg2rad = math.Pi / 180.0
)

// Geodetic is a WGS-84 ground-referenced position. Latitude is in
// [-90, 90] degrees, longitude in [-180, 180) degrees, altitude in km
// above the ellipsoid.
type Geodetic struct {
	LatDeg float64
	LonDeg float64
	AltKm  float64
}

// ConversionError reports a frame conversion that could not produce a
// finite result. The converter never substitutes clamped values.
type ConversionError struct {
	Detail string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("frame conversion failed: %s", e.Detail)
}

// ECIToGeodetic converts a TEME position in km to geodetic coordinates at
// the instant described by gmst (radians). Geodetic latitude is found by
// the iterative Bowring method, which converges in 2-3 iterations for
// Earth orbits.
func ECIToGeodetic(x, y, z, gmst float64) (Geodetic, error) {
	if !isFinite(x) || !isFinite(y) || !isFinite(z) || !isFinite(gmst) {
		return Geodetic{}, &ConversionError{Detail: "non-finite input position"}
	}

	ecef := TEMEToECEFWithGMST(StateTEME{X: x, Y: y, Z: z}, gmst)

	lon := math.Atan2(ecef.Y, ecef.X)
	p := math.Sqrt(ecef.X*ecef.X + ecef.Y*ecef.Y)

	lat := math.Atan2(ecef.Z, p*(1-wgs84E2))
	var n float64
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		next := math.Atan2(ecef.Z+wgs84E2*n*sinLat, p)
		if math.Abs(next-lat) < 1e-12 {
			lat = next
			break
		}
		lat = next
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(ecef.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	g := Geodetic{
		LatDeg: lat * rad2deg,
		LonDeg: wrapLonDeg(lon * rad2deg),
		AltKm:  alt,
	}
	if !isFinite(g.LatDeg) || !isFinite(g.LonDeg) || !isFinite(g.AltKm) {
		return Geodetic{}, &ConversionError{Detail: "non-finite geodetic result"}
	}
	return g, nil
}

// ECIToGeodeticAt converts a TEME position in km to geodetic coordinates
// at the wall-clock instant t.
func ECIToGeodeticAt(x, y, z float64, t time.Time) (Geodetic, error) {
	return ECIToGeodetic(x, y, z, GMST(t))
}

// GeodeticToECI is the inverse conversion: a ground-referenced position to
// TEME km at the instant described by gmst. Round-tripping through
// ECIToGeodetic reproduces the inputs to well under a meter.
func GeodeticToECI(g Geodetic, gmst float64) (x, y, z float64) {
	lat := g.LatDeg * deg2rad
	lonECI := g.LonDeg*deg2rad + gmst

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	x = (n + g.AltKm) * cosLat * math.Cos(lonECI)
	y = (n + g.AltKm) * cosLat * math.Sin(lonECI)
	z = (n*(1-wgs84E2) + g.AltKm) * sinLat
	return x, y, z
}

// wrapLonDeg normalizes a longitude to [-180, 180).
func wrapLonDeg(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon - 180.0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
