// Package sgp4 implements the SGP4 and SDP4 analytic orbit models
// (Spacetrack Report #3 lineage). A Model is built once per element set
// and then queried for the ECI (TEME) state at arbitrary instants.
package sgp4

import (
	"math"
	"sync"
	"time"

	"github.com/sky/skytrack/internal/tle"
)

// Vec3 is a Cartesian triple in the TEME frame.
type Vec3 struct {
	X, Y, Z float64
}

// StateVector is the propagated satellite state: position in kilometers,
// velocity in kilometers per second, both TEME of date.
type StateVector struct {
	Position Vec3
	Velocity Vec3
}

// Model holds the derived constants for one element set. Position at a
// given instant is a pure function of the element set and that instant:
// repeated calls with the same time return identical vectors.
//
// A Model is safe for concurrent use. The deep-space branch carries a
// resonance integrator which is re-seeded from epoch on every call, so no
// call observes state left behind by another.
type Model struct {
	mu sync.Mutex

	catnum int
	epoch  time.Time

	// Element set converted to model units: radians and radians/minute.
	xno    float64 // mean motion
	eo     float64 // eccentricity
	xincl  float64 // inclination
	omegao float64 // argument of perigee
	xnodeo float64 // RAAN
	xmo    float64 // mean anomaly
	bstar  float64

	// Recovered (Brouwer) mean motion and semimajor axis.
	xnodp float64
	aodp  float64

	deep bool
	near *nearEarth
	ds   *deepSpace
}

// NewModel validates els and precomputes the branch-specific constants.
// Element sets outside the model's domain yield a *PropagationError with
// ReasonInvalidElements.
func NewModel(els *tle.ElementSet) (*Model, error) {
	if els == nil {
		return nil, &PropagationError{Reason: ReasonInvalidElements, Detail: "nil element set"}
	}
	m := &Model{
		catnum: els.CatalogNumber,
		epoch:  els.Epoch,
		xno:    els.MeanMotion * twoPi / minsPerDay,
		eo:     els.Eccentricity,
		xincl:  els.InclinationDeg * deg2rad,
		omegao: els.ArgPerigeeDeg * deg2rad,
		xnodeo: els.RAANDeg * deg2rad,
		xmo:    els.MeanAnomalyDeg * deg2rad,
		bstar:  els.Bstar,
	}

	switch {
	case m.eo < 0 || m.eo >= 1.0:
		return nil, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonInvalidElements,
			Detail: "eccentricity outside [0,1)"}
	case m.xno <= 0:
		return nil, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonInvalidElements,
			Detail: "non-positive mean motion"}
	case els.InclinationDeg < 0 || els.InclinationDeg > 180:
		return nil, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonInvalidElements,
			Detail: "inclination outside [0,180] degrees"}
	case m.epoch.IsZero():
		return nil, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonInvalidElements,
			Detail: "zero epoch"}
	}

	// Recover original mean motion and semimajor axis from the input
	// elements; the recovered period also selects the branch.
	a1 := math.Pow(xke/m.xno, twoThirds)
	cosio := math.Cos(m.xincl)
	x3thm1 := 3.0*cosio*cosio - 1.0
	betao2 := 1.0 - m.eo*m.eo
	betao := math.Sqrt(betao2)
	del1 := 1.5 * ck2 * x3thm1 / (a1 * a1 * betao * betao2)
	ao := a1 * (1.0 - del1*(0.5*twoThirds+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * ck2 * x3thm1 / (ao * ao * betao * betao2)
	m.xnodp = m.xno / (1.0 + delo)
	m.aodp = ao / (1.0 - delo)

	if !finite(m.xnodp) || !finite(m.aodp) || m.aodp <= 0 {
		return nil, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonInvalidElements,
			Detail: "mean motion recovery did not converge"}
	}

	m.deep = twoPi/m.xnodp/minsPerDay >= deepSpaceThreshold
	if m.deep {
		m.ds = newDeepSpace(m)
	} else {
		m.near = newNearEarth(m)
	}
	return m, nil
}

// Epoch returns the element set epoch the model was built from.
func (m *Model) Epoch() time.Time { return m.epoch }

// DeepSpace reports whether the model took the SDP4 branch.
func (m *Model) DeepSpace() bool { return m.deep }

// PropagateTime returns the state at the wall-clock instant t.
func (m *Model) PropagateTime(t time.Time) (StateVector, error) {
	return m.Propagate(t.Sub(m.epoch).Minutes())
}

// Propagate returns the state tsince minutes after the element epoch.
// Negative tsince propagates backwards.
func (m *Model) Propagate(tsince float64) (StateVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !finite(tsince) {
		return StateVector{}, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonDegenerate,
			Detail: "non-finite propagation time"}
	}
	if m.deep {
		return m.ds.propagate(tsince)
	}
	return m.near.propagate(tsince)
}

// fittedDragTerms adjusts the density constants for low perigees.
// Below 156 km the published S and QOMS2T values are replaced by fits
// anchored to the actual perigee height.
func fittedDragTerms(perigeeKm float64) (s4, qoms24 float64) {
	s4 = sParam
	qoms24 = qoms2t
	if perigeeKm < perigee156Km {
		if perigeeKm <= 98.0 {
			s4 = 20.0
		} else {
			s4 = perigeeKm - 78.0
		}
		qoms24 = math.Pow((120.0-s4)/earthRadiusKm, 4)
		s4 = s4/earthRadiusKm + 1.0
	}
	return s4, qoms24
}

// solveKepler iterates Kepler's equation in the (axn, ayn) long-period
// element form. Returns sin/cos of the converged eccentric anomaly.
func solveKepler(axn, ayn, capu float64) (sinEpw, cosEpw float64) {
	epw := capu
	for i := 0; i < 10; i++ {
		sinEpw = math.Sin(epw)
		cosEpw = math.Cos(epw)
		next := (capu-ayn*cosEpw+axn*sinEpw-epw)/(1.0-axn*cosEpw-ayn*sinEpw) + epw
		if math.Abs(next-epw) <= convergeEps {
			epw = next
			break
		}
		epw = next
	}
	return math.Sin(epw), math.Cos(epw)
}

// shortPeriodTerms carries the inclination-derived coefficients both
// branches feed into the short-period correction.
type shortPeriodTerms struct {
	x3thm1 float64
	x1mth2 float64
	x7thm1 float64
	cosio  float64
	sinio  float64
}

// finishOrbit applies the short-period periodics to the solved Kepler
// orbit and assembles the scaled ECI state. This is the common tail of
// both branches, and the place decay and degeneracy surface.
func finishOrbit(catnum int, a, axn, ayn, sinEpw, cosEpw, xnode, xinc, xn float64, sp shortPeriodTerms) (StateVector, error) {
	ecosE := axn*cosEpw + ayn*sinEpw
	esinE := axn*sinEpw - ayn*cosEpw
	elsq := axn*axn + ayn*ayn
	if elsq >= 1.0 {
		return StateVector{}, &PropagationError{CatalogNumber: catnum, Reason: ReasonDegenerate,
			Detail: "perturbed orbit no longer elliptical"}
	}
	pl := a * (1.0 - elsq)
	if pl < 0 {
		return StateVector{}, &PropagationError{CatalogNumber: catnum, Reason: ReasonDegenerate,
			Detail: "negative semi-latus rectum"}
	}

	r := a * (1.0 - ecosE)
	invR := 1.0 / r
	rdot := xke * math.Sqrt(a) * esinE * invR
	rfdot := xke * math.Sqrt(pl) * invR
	betal := math.Sqrt(1.0 - elsq)
	temp3 := 1.0 / (1.0 + betal)
	cosu := a * invR * (cosEpw - axn + ayn*esinE*temp3)
	sinu := a * invR * (sinEpw - ayn - axn*esinE*temp3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	invPl := 1.0 / pl
	t1 := ck2 * invPl
	t2 := t1 * invPl

	rk := r*(1.0-1.5*t2*betal*sp.x3thm1) + 0.5*t1*sp.x1mth2*cos2u
	if rk < 1.0 {
		return StateVector{}, &PropagationError{CatalogNumber: catnum, Reason: ReasonDecayed,
			Detail: "radius below Earth surface"}
	}
	uk := u - 0.25*t2*sp.x7thm1*sin2u
	xnodek := xnode + 1.5*t2*sp.cosio*sin2u
	xinck := xinc + 1.5*t2*sp.cosio*sp.sinio*cos2u
	rdotk := rdot - xn*t1*sp.x1mth2*sin2u
	rfdotk := rfdot + xn*t1*(sp.x1mth2*cos2u+1.5*sp.x3thm1)

	// Orientation vectors.
	sinuk := math.Sin(uk)
	cosuk := math.Cos(uk)
	sinik := math.Sin(xinck)
	cosik := math.Cos(xinck)
	sinnok := math.Sin(xnodek)
	cosnok := math.Cos(xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	ux := xmx*sinuk + cosnok*cosuk
	uy := xmy*sinuk + sinnok*cosuk
	uz := sinik * sinuk
	vx := xmx*cosuk - cosnok*sinuk
	vy := xmy*cosuk - sinnok*sinuk
	vz := sinik * cosuk

	// Scale from earth radii and radii/min to km and km/s.
	const velScale = earthRadiusKm * minsPerDay / secsPerDay
	sv := StateVector{
		Position: Vec3{rk * ux * earthRadiusKm, rk * uy * earthRadiusKm, rk * uz * earthRadiusKm},
		Velocity: Vec3{
			(rdotk*ux + rfdotk*vx) * velScale,
			(rdotk*uy + rfdotk*vy) * velScale,
			(rdotk*uz + rfdotk*vz) * velScale,
		},
	}
	if !finiteVec(sv.Position) || !finiteVec(sv.Velocity) {
		return StateVector{}, &PropagationError{CatalogNumber: catnum, Reason: ReasonDegenerate,
			Detail: "non-finite state vector"}
	}
	return sv, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v Vec3) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func mod2pi(v float64) float64 {
	v = math.Mod(v, twoPi)
	if v < 0 {
		v += twoPi
	}
	return v
}
