package tle

import "time"

// ElementSet is a fully decoded two-line element set. It is immutable after
// parsing: propagators derive their internal constants from a copy and never
// write back.
type ElementSet struct {
	CatalogNumber  int
	Classification byte
	IntlDesignator string
	Name           string

	Epoch time.Time

	// Mean motion and its first and second time derivatives, in the raw TLE
	// units: rev/day, rev/day^2 (already halved on the card), rev/day^3
	// (already divided by six on the card).
	MeanMotion     float64
	MeanMotionDot  float64
	MeanMotionDDot float64

	Bstar float64

	InclinationDeg float64
	RAANDeg        float64
	Eccentricity   float64
	ArgPerigeeDeg  float64
	MeanAnomalyDeg float64

	ElementNumber    int
	RevolutionNumber int

	// Raw card lines, kept for diagnostics and re-serialization.
	Line1 string
	Line2 string
}

// EpochRange is the minimum and maximum element epochs in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete set of element sets from one source fetch.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []ElementSet
}
