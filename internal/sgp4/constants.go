package sgp4

import "math"

// WGS-72 constant set, the reference frame the published SGP4/SDP4
// coefficients were fitted against. Mixing in WGS-84 values here would
// silently bias the drag and resonance terms.
const (
	earthRadiusKm = 6378.135
	xke           = 7.43669161e-2 // sqrt(GM) in (earth radii)^1.5 per minute
	ck2           = 5.413079e-4   // 0.5 * J2
	ck4           = 6.209887e-7   // -0.375 * J4
	j3Harmonic    = -2.53881e-6
	qoms2t        = 1.880279e-9
	sParam        = 1.012229 // 1 + 78km / earthRadiusKm

	minsPerDay  = 1440.0
	secsPerDay  = 86400.0
	twoThirds   = 2.0 / 3.0
	twoPi       = 2.0 * math.Pi
	deg2rad     = math.Pi / 180.0
	convergeEps = 1.0e-12

	// Orbits with a period of 225 minutes or more take the deep-space
	// branch; expressed against the recovered mean motion this is
	// twoPi/xnodp/minsPerDay >= deepSpaceThreshold.
	deepSpaceThreshold = 0.15625

	perigee156Km = 156.0
)

// Deep-space lunar/solar and resonance coefficients.
const (
	zns    = 1.19459e-5
	c1ss   = 2.9864797e-6
	zes    = 1.675e-2
	znl    = 1.5835218e-4
	c1l    = 4.7968065e-7
	zel    = 5.490e-2
	zsinis = 3.9785416e-1
	zsings = -9.8088458e-1
	zcosis = 9.1744867e-1
	zcosgs = 1.945905e-1
	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9
	thdt   = 4.3752691e-3
	q22    = 1.7891679e-6
	q31    = 2.1460748e-6
	q33    = 2.2123015e-7
	g22    = 5.7686396
	g32    = 9.5240898e-1
	g44    = 1.8014998
	g52    = 1.0508330
	g54    = 4.4108898
)
