package sgp4

import "math"

// Resonance integrator step sizes, in minutes.
const (
	stepp = 720.0
	stepn = -720.0
	step2 = 259200.0
)

// deepSpace is the SDP4 branch for orbits with periods of 225 minutes or
// more. On top of the SGP4 secular terms it carries lunar and solar
// perturbations and, for 12-hour and geosynchronous orbits, a resonance
// integrator.
type deepSpace struct {
	m  *Model
	sp shortPeriodTerms

	// SGP4-common coefficients.
	c1     float64
	c4     float64
	t2cof  float64
	xnodcf float64
	xlcof  float64
	aycof  float64
	xmdot  float64
	omgdot float64
	xnodot float64

	// Deep-space geometry fixed at epoch.
	thgr   float64 // GMST at epoch
	xnq    float64
	xqncl  float64
	omegaq float64
	eq     float64
	zmol   float64
	zmos   float64

	// Combined lunar+solar secular rates.
	sse float64
	ssi float64
	ssl float64
	ssg float64
	ssh float64

	solar zTerms
	lunar zTerms

	resonance   bool
	synchronous bool

	// 12-hour geopotential resonance coefficients.
	d2201 float64
	d2211 float64
	d3210 float64
	d3222 float64
	d4410 float64
	d4422 float64
	d5220 float64
	d5232 float64
	d5421 float64
	d5433 float64

	// Synchronous resonance coefficients.
	del1  float64
	del2  float64
	del3  float64
	fasx2 float64
	fasx4 float64
	fasx6 float64

	xlamo float64
	xfact float64

	// Working state for one propagate call.
	xll    float64
	omgadf float64
	xnode  float64
	em     float64
	xinc   float64
	xn     float64
}

// zTerms holds the periodic and secular contributions of one third body
// (sun or moon).
type zTerms struct {
	se, si, sl, sgh, sh              float64
	ee2, e3, xi2, xi3, xl2, xl3, xl4 float64
	xgh2, xgh3, xgh4, xh2, xh3       float64
	zn, ze                           float64
}

func newDeepSpace(m *Model) *deepSpace {
	d := &deepSpace{m: m}

	cosio := math.Cos(m.xincl)
	sinio := math.Sin(m.xincl)
	theta2 := cosio * cosio
	d.sp = shortPeriodTerms{
		x3thm1: 3.0*theta2 - 1.0,
		x1mth2: 1.0 - theta2,
		x7thm1: 7.0*theta2 - 1.0,
		cosio:  cosio,
		sinio:  sinio,
	}

	eo := m.eo
	eosq := eo * eo
	betao2 := 1.0 - eosq
	betao := math.Sqrt(betao2)

	perigeeKm := (m.aodp*(1.0-eo) - 1.0) * earthRadiusKm
	s4, qoms24 := fittedDragTerms(perigeeKm)

	pinvsq := 1.0 / (m.aodp * m.aodp * betao2 * betao2)
	sing := math.Sin(m.omegao)
	cosg := math.Cos(m.omegao)
	tsi := 1.0 / (m.aodp - s4)
	eta := m.aodp * eo * tsi
	etasq := eta * eta
	eeta := eo * eta
	psisq := math.Abs(1.0 - etasq)
	coef := qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * m.xnodp * (m.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*ck2*tsi/psisq*d.sp.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	d.c1 = m.bstar * c2
	a3ovk2 := -j3Harmonic / ck2
	d.c4 = 2.0 * m.xnodp * coef1 * m.aodp * betao2 *
		(eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(m.aodp*psisq)*
				(-3.0*d.sp.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*d.sp.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*m.omegao)))

	theta4 := theta2 * theta2
	temp1 := 3.0 * ck2 * pinvsq * m.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * m.xnodp
	d.xmdot = m.xnodp + 0.5*temp1*betao*d.sp.x3thm1 +
		0.0625*temp2*betao*(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	d.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+395.0*theta4) +
		temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * cosio
	d.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-7.0*theta2))*cosio
	d.xnodcf = 3.5 * betao2 * xhdot1 * d.c1
	d.t2cof = 1.5 * d.c1
	d.xlcof = 0.125 * a3ovk2 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio)
	d.aycof = 0.25 * a3ovk2 * sinio

	d.xnq = m.xnodp
	d.xqncl = m.xincl
	d.omegaq = m.omegao
	d.eq = eo

	// Epoch sidereal time and days since 1900 Jan 0.5 drive the lunar
	// geometry. Reference: The 1992 Astronomical Almanac, page B6.
	jd := 2440587.5 + float64(m.epoch.UnixMilli())/86400000.0
	ds50 := jd - 2433281.5
	d.thgr = mod2pi(6.3003880987*ds50 + 1.72944494)

	day := ds50 + 18261.5
	xnodce := 4.5236020 - 9.2422029e-4*day
	stem := math.Sin(xnodce)
	ctem := math.Cos(xnodce)
	zcosil := 0.91375164 - 0.03568096*ctem
	zsinil := math.Sqrt(1.0 - zcosil*zcosil)
	zsinhl := 0.089683511 * stem / zsinil
	zcoshl := math.Sqrt(1.0 - zsinhl*zsinhl)
	c := 4.7199672 + 0.22997150*day
	gam := 5.8351514 + 0.0019443680*day
	d.zmol = mod2pi(c - gam)
	zx := 0.39785416 * stem / zsinil
	zy := zcoshl*ctem + 0.91744867*zsinhl*stem
	zx = math.Atan2(zx, zy)
	zx = gam + zx - xnodce
	zcosgl := math.Cos(zx)
	zsingl := math.Sin(zx)
	d.zmos = mod2pi(6.2565837 + 0.017201977*day)

	sinq := math.Sin(m.xnodeo)
	cosq := math.Cos(m.xnodeo)

	d.solar = d.thirdBodyTerms(eosq, betao, betao2, sing, cosg,
		zcosgs, zsings, zcosis, zsinis, cosq, sinq, c1ss, zns, zes)
	d.lunar = d.thirdBodyTerms(eosq, betao, betao2, sing, cosg,
		zcosgl, zsingl, zcosil, zsinil,
		zcoshl*cosq+zsinhl*sinq, sinq*zcoshl-cosq*zsinhl, c1l, znl, zel)

	d.sse = d.solar.se + d.lunar.se
	d.ssi = d.solar.si + d.lunar.si
	d.ssl = d.solar.sl + d.lunar.sl
	d.ssh = d.solar.sh/sinio + d.lunar.sh/sinio
	d.ssg = d.solar.sgh - cosio*(d.solar.sh/sinio) + d.lunar.sgh - cosio*(d.lunar.sh/sinio)

	// Geopotential resonance for 12-hour orbits, synchronous terms for
	// near-geostationary orbits.
	switch {
	case d.xnq > 0.0034906585 && d.xnq < 0.0052359877:
		d.initSynchronousResonance()
	case d.xnq >= 0.00826 && d.xnq <= 0.00924 && d.eq >= 0.5:
		d.initHalfDayResonance(eosq)
	}

	return d
}

// thirdBodyTerms evaluates the lunar-solar perturbation coefficients for
// one third body described by its orientation (zcosg..zsinh) and rates.
func (d *deepSpace) thirdBodyTerms(eosq, betao, betao2, sing, cosg,
	zcosg, zsing, zcosi, zsini, zcosh, zsinh, cc, zn, ze float64) zTerms {

	a1 := zcosg*zcosh + zsing*zcosi*zsinh
	a3 := -zsing*zcosh + zcosg*zcosi*zsinh
	a7 := -zcosg*zsinh + zsing*zcosi*zcosh
	a8 := zsing * zsini
	a9 := zsing*zsinh + zcosg*zcosi*zcosh
	a10 := zcosg * zsini
	a2 := d.sp.cosio*a7 + d.sp.sinio*a8
	a4 := d.sp.cosio*a9 + d.sp.sinio*a10
	a5 := -d.sp.sinio*a7 + d.sp.cosio*a8
	a6 := -d.sp.sinio*a9 + d.sp.cosio*a10

	x1 := a1*cosg + a2*sing
	x2 := a3*cosg + a4*sing
	x3 := -a1*sing + a2*cosg
	x4 := -a3*sing + a4*cosg
	x5 := a5 * sing
	x6 := a6 * sing
	x7 := a5 * cosg
	x8 := a6 * cosg

	z31 := 12.0*x1*x1 - 3.0*x3*x3
	z32 := 24.0*x1*x2 - 6.0*x3*x4
	z33 := 12.0*x2*x2 - 3.0*x4*x4
	z1 := 3.0*(a1*a1+a2*a2) + z31*eosq
	z2 := 6.0*(a1*a3+a2*a4) + z32*eosq
	z3 := 3.0*(a3*a3+a4*a4) + z33*eosq
	z11 := -6.0*a1*a5 + eosq*(-24.0*x1*x7-6.0*x3*x5)
	z12 := -6.0*(a1*a6+a3*a5) + eosq*(-24.0*(x2*x7+x1*x8)-6.0*(x3*x6+x4*x5))
	z13 := -6.0*a3*a6 + eosq*(-24.0*x2*x8-6.0*x4*x6)
	z21 := 6.0*a2*a5 + eosq*(24.0*x1*x5-6.0*x3*x7)
	z22 := 6.0*(a4*a5+a2*a6) + eosq*(24.0*(x2*x5+x1*x6)-6.0*(x4*x7+x3*x8))
	z23 := 6.0*a4*a6 + eosq*(24.0*x2*x6-6.0*x4*x8)
	z1 = z1 + z1 + betao2*z31
	z2 = z2 + z2 + betao2*z32
	z3 = z3 + z3 + betao2*z33

	s3 := cc / d.xnq
	s2 := -0.5 * s3 / betao
	s4 := s3 * betao
	s1 := -15.0 * d.eq * s4
	s5 := x1*x3 + x2*x4
	s6 := x2*x3 + x1*x4
	s7 := x2*x4 - x1*x3

	t := zTerms{
		se:  s1 * zn * s5,
		si:  s2 * zn * (z11 + z13),
		sl:  -zn * s3 * (z1 + z3 - 14.0 - 6.0*eosq),
		sgh: s4 * zn * (z31 + z33 - 6.0),
		sh:  -zn * s2 * (z21 + z23),
	}
	if d.xqncl < 5.2359877e-2 {
		t.sh = 0
	}

	t.ee2 = 2.0 * s1 * s6
	t.e3 = 2.0 * s1 * s7
	t.xi2 = 2.0 * s2 * z12
	t.xi3 = 2.0 * s2 * (z13 - z11)
	t.xl2 = -2.0 * s3 * z2
	t.xl3 = -2.0 * s3 * (z3 - z1)
	t.xl4 = -2.0 * s3 * (-21.0 - 9.0*eosq) * ze
	t.xgh2 = 2.0 * s4 * z32
	t.xgh3 = 2.0 * s4 * (z33 - z31)
	t.xgh4 = -18.0 * s4 * ze
	t.xh2 = -2.0 * s2 * z22
	t.xh3 = -2.0 * s2 * (z23 - z21)
	t.zn = zn
	t.ze = ze
	return t
}

func (d *deepSpace) initSynchronousResonance() {
	m := d.m
	d.resonance = true
	d.synchronous = true

	eosq := m.eo * m.eo
	aqnv := 1.0 / m.aodp
	g200 := 1.0 + eosq*(-2.5+0.8125*eosq)
	g310 := 1.0 + 2.0*eosq
	g300 := 1.0 + eosq*(-6.0+6.60937*eosq)
	f220 := 0.75 * (1.0 + d.sp.cosio) * (1.0 + d.sp.cosio)
	f311 := 0.9375*d.sp.sinio*d.sp.sinio*(1.0+3.0*d.sp.cosio) - 0.75*(1.0+d.sp.cosio)
	f330 := 1.0 + d.sp.cosio
	f330 = 1.875 * f330 * f330 * f330
	d.del1 = 3.0 * d.xnq * d.xnq * aqnv * aqnv
	d.del2 = 2.0 * d.del1 * f220 * g200 * q22
	d.del3 = 3.0 * d.del1 * f330 * g300 * q33 * aqnv
	d.del1 = d.del1 * f311 * g310 * q31 * aqnv
	d.fasx2 = 0.13130908
	d.fasx4 = 2.8843198
	d.fasx6 = 0.37448087
	d.xlamo = m.xmo + m.xnodeo + m.omegao - d.thgr
	bfact := d.xmdot + (d.omgdot + d.xnodot) - thdt
	bfact += d.ssl + d.ssg + d.ssh
	d.xfact = bfact - d.xnq
}

func (d *deepSpace) initHalfDayResonance(eosq float64) {
	m := d.m
	d.resonance = true

	eq := d.eq
	eoc := eq * eosq
	g201 := -0.306 - (eq-0.64)*0.440

	var g211, g310, g322, g410, g422, g520 float64
	if eq <= 0.65 {
		g211 = 3.616 - 13.247*eq + 16.290*eosq
		g310 = -19.302 + 117.390*eq - 228.419*eosq + 156.591*eoc
		g322 = -18.9068 + 109.7927*eq - 214.6334*eosq + 146.5816*eoc
		g410 = -41.122 + 242.694*eq - 471.094*eosq + 313.953*eoc
		g422 = -146.407 + 841.880*eq - 1629.014*eosq + 1083.435*eoc
		g520 = -532.114 + 3017.977*eq - 5740.0*eosq + 3708.276*eoc
	} else {
		g211 = -72.099 + 331.819*eq - 508.738*eosq + 266.724*eoc
		g310 = -346.844 + 1582.851*eq - 2415.925*eosq + 1246.113*eoc
		g322 = -342.585 + 1554.908*eq - 2366.899*eosq + 1215.972*eoc
		g410 = -1052.797 + 4758.686*eq - 7193.992*eosq + 3651.957*eoc
		g422 = -3581.69 + 16178.11*eq - 24462.77*eosq + 12422.52*eoc
		if eq <= 0.715 {
			g520 = 1464.74 - 4664.75*eq + 3763.64*eosq
		} else {
			g520 = -5149.66 + 29936.92*eq - 54087.36*eosq + 31324.56*eoc
		}
	}

	var g533, g521, g532 float64
	if eq < 0.7 {
		g533 = -919.2277 + 4988.61*eq - 9064.77*eosq + 5542.21*eoc
		g521 = -822.71072 + 4568.6173*eq - 8491.4146*eosq + 5337.524*eoc
		g532 = -853.666 + 4690.25*eq - 8624.77*eosq + 5341.4*eoc
	} else {
		g533 = -37995.78 + 161616.52*eq - 229838.2*eosq + 109377.94*eoc
		g521 = -51752.104 + 218913.95*eq - 309468.16*eosq + 146349.42*eoc
		g532 = -40023.88 + 170470.89*eq - 242699.48*eosq + 115605.82*eoc
	}

	sinio := d.sp.sinio
	cosio := d.sp.cosio
	theta2 := cosio * cosio
	sini2 := sinio * sinio
	f220 := 0.75 * (1.0 + 2.0*cosio + theta2)
	f221 := 1.5 * sini2
	f321 := 1.875 * sinio * (1.0 - 2.0*cosio - 3.0*theta2)
	f322 := -1.875 * sinio * (1.0 + 2.0*cosio - 3.0*theta2)
	f441 := 35.0 * sini2 * f220
	f442 := 39.3750 * sini2 * sini2
	f522 := 9.84375 * sinio * (sini2*(1.0-2.0*cosio-5.0*theta2) +
		0.33333333*(-2.0+4.0*cosio+6.0*theta2))
	f523 := sinio * (4.92187512*sini2*(-2.0-4.0*cosio+10.0*theta2) +
		6.56250012*(1.0+2.0*cosio-3.0*theta2))
	f542 := 29.53125 * sinio * (2.0 - 8.0*cosio + theta2*(-12.0+8.0*cosio+10.0*theta2))
	f543 := 29.53125 * sinio * (-2.0 - 8.0*cosio + theta2*(12.0+8.0*cosio-10.0*theta2))

	aqnv := 1.0 / m.aodp
	xno2 := d.xnq * d.xnq
	ainv2 := aqnv * aqnv
	temp1 := 3.0 * xno2 * ainv2
	temp := temp1 * root22
	d.d2201 = temp * f220 * g201
	d.d2211 = temp * f221 * g211
	temp1 *= aqnv
	temp = temp1 * root32
	d.d3210 = temp * f321 * g310
	d.d3222 = temp * f322 * g322
	temp1 *= aqnv
	temp = 2.0 * temp1 * root44
	d.d4410 = temp * f441 * g410
	d.d4422 = temp * f442 * g422
	temp1 *= aqnv
	temp = temp1 * root52
	d.d5220 = temp * f522 * g520
	d.d5232 = temp * f523 * g532
	temp = 2.0 * temp1 * root54
	d.d5421 = temp * f542 * g521
	d.d5433 = temp * f543 * g533

	d.xlamo = m.xmo + 2.0*m.xnodeo - 2.0*d.thgr
	bfact := d.xmdot + 2.0*d.xnodot - 2.0*thdt
	bfact += d.ssl + 2.0*d.ssh
	d.xfact = bfact - d.xnq
}

func (d *deepSpace) propagate(tsince float64) (StateVector, error) {
	m := d.m

	xmdf := m.xmo + d.xmdot*tsince
	tsq := tsince * tsince
	templ := d.t2cof * tsq
	d.xll = xmdf + m.xnodp*templ
	d.omgadf = m.omegao + d.omgdot*tsince
	xnoddf := m.xnodeo + d.xnodot*tsince
	d.xnode = xnoddf + d.xnodcf*tsq
	tempa := 1.0 - d.c1*tsince
	tempe := m.bstar * d.c4 * tsince
	d.xn = m.xnodp

	d.secular(tsince)

	a := math.Pow(xke/d.xn, twoThirds) * tempa * tempa
	d.em -= tempe

	d.periodics(tsince)

	if d.em >= 1.0 || d.em < -1e-3 {
		return StateVector{}, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonDegenerate,
			Detail: "perturbed eccentricity out of range"}
	}
	if d.em < 1e-6 {
		d.em = 1e-6
	}

	xl := d.xll + d.omgadf + d.xnode
	beta2 := 1.0 - d.em*d.em
	d.xn = xke / math.Pow(a, 1.5)

	// Long period periodics.
	axn := d.em * math.Cos(d.omgadf)
	temp := 1.0 / (a * beta2)
	xll := temp * d.xlcof * axn
	aynl := temp * d.aycof
	xlt := xl + xll
	ayn := d.em*math.Sin(d.omgadf) + aynl

	capu := mod2pi(xlt - d.xnode)
	sinEpw, cosEpw := solveKepler(axn, ayn, capu)

	return finishOrbit(m.catnum, a, axn, ayn, sinEpw, cosEpw, d.xnode, d.xinc, d.xn, d.sp)
}

// secular applies the deep-space secular rates and, for resonant orbits,
// runs the numerical integrator. The integrator is re-seeded from epoch on
// every call so the result depends only on tsince.
func (d *deepSpace) secular(tsince float64) {
	m := d.m

	d.xll += d.ssl * tsince
	d.omgadf += d.ssg * tsince
	d.xnode += d.ssh * tsince
	d.em = m.eo + d.sse*tsince
	d.xinc = m.xincl + d.ssi*tsince

	if d.xinc < 0 {
		d.xinc = -d.xinc
		d.xnode += math.Pi
		d.omgadf -= math.Pi
	}

	if !d.resonance {
		return
	}

	atime := 0.0
	xli := d.xlamo
	xni := d.xnq
	delt := stepp
	if tsince < 0 {
		delt = stepn
	}

	var ft, xndot, xnddt, xldot float64
	for {
		stepping := math.Abs(tsince-atime) >= stepp
		if !stepping {
			ft = tsince - atime
		}

		if d.synchronous {
			xndot = d.del1*math.Sin(xli-d.fasx2) +
				d.del2*math.Sin(2.0*(xli-d.fasx4)) +
				d.del3*math.Sin(3.0*(xli-d.fasx6))
			xnddt = d.del1*math.Cos(xli-d.fasx2) +
				2.0*d.del2*math.Cos(2.0*(xli-d.fasx4)) +
				3.0*d.del3*math.Cos(3.0*(xli-d.fasx6))
		} else {
			xomi := d.omegaq + d.omgdot*atime
			x2omi := xomi + xomi
			x2li := xli + xli
			xndot = d.d2201*math.Sin(x2omi+xli-g22) + d.d2211*math.Sin(xli-g22) +
				d.d3210*math.Sin(xomi+xli-g32) + d.d3222*math.Sin(-xomi+xli-g32) +
				d.d4410*math.Sin(x2omi+x2li-g44) + d.d4422*math.Sin(x2li-g44) +
				d.d5220*math.Sin(xomi+xli-g52) + d.d5232*math.Sin(-xomi+xli-g52) +
				d.d5421*math.Sin(xomi+x2li-g54) + d.d5433*math.Sin(-xomi+x2li-g54)
			xnddt = d.d2201*math.Cos(x2omi+xli-g22) + d.d2211*math.Cos(xli-g22) +
				d.d3210*math.Cos(xomi+xli-g32) + d.d3222*math.Cos(-xomi+xli-g32) +
				d.d5220*math.Cos(xomi+xli-g52) + d.d5232*math.Cos(-xomi+xli-g52) +
				2.0*(d.d4410*math.Cos(x2omi+x2li-g44)+d.d4422*math.Cos(x2li-g44)+
					d.d5421*math.Cos(xomi+x2li-g54)+d.d5433*math.Cos(-xomi+x2li-g54))
		}

		xldot = xni + d.xfact
		xnddt *= xldot

		if !stepping {
			break
		}
		xli += xldot*delt + xndot*step2
		xni += xndot*delt + xnddt*step2
		atime += delt
	}

	d.xn = xni + xndot*ft + xnddt*ft*ft*0.5
	xl := xli + xldot*ft + xndot*ft*ft*0.5
	temp := -d.xnode + d.thgr + tsince*thdt

	if d.synchronous {
		d.xll = xl - d.omgadf + temp
	} else {
		d.xll = xl + temp + temp
	}
}

// periodics applies the lunar-solar periodic perturbations, with the
// Lyddane modification below 0.2 rad inclination.
func (d *deepSpace) periodics(tsince float64) {
	sinis := math.Sin(d.xinc)
	cosis := math.Cos(d.xinc)

	ses, sis, sls, sghs, shs := bodyPeriodics(&d.solar, d.zmos, tsince)
	sel, sil, sll, sghl, sh1 := bodyPeriodics(&d.lunar, d.zmol, tsince)

	pe := ses + sel
	pinc := sis + sil
	pl := sls + sll
	pgh := sghs + sghl
	ph := shs + sh1

	d.xinc += pinc
	d.em += pe

	if d.xqncl >= 0.2 {
		// Apply periodics directly.
		ph /= d.sp.sinio
		pgh -= d.sp.cosio * ph
		d.omgadf += pgh
		d.xnode += ph
		d.xll += pl
		return
	}

	// Lyddane modification for low inclination.
	sinok := math.Sin(d.xnode)
	cosok := math.Cos(d.xnode)
	alfdp := sinis*sinok + ph*cosok + pinc*cosis*sinok
	betdp := sinis*cosok - ph*sinok + pinc*cosis*cosok
	d.xnode = mod2pi(d.xnode)
	xls := d.xll + d.omgadf + cosis*d.xnode
	xls += pl + pgh - pinc*d.xnode*sinis
	xnoh := d.xnode
	d.xnode = math.Atan2(alfdp, betdp)

	// Keep xnode on the same branch as before the atan2.
	if math.Abs(xnoh-d.xnode) > math.Pi {
		if d.xnode < xnoh {
			d.xnode += twoPi
		} else {
			d.xnode -= twoPi
		}
	}

	d.xll += pl
	d.omgadf = xls - d.xll - math.Cos(d.xinc)*d.xnode
}

// bodyPeriodics evaluates one third body's periodic contribution at
// tsince minutes from epoch.
func bodyPeriodics(t *zTerms, zm0, tsince float64) (se, si, sl, sgh, sh float64) {
	zm := zm0 + t.zn*tsince
	zf := zm + 2.0*t.ze*math.Sin(zm)
	sinzf := math.Sin(zf)
	f2 := 0.5*sinzf*sinzf - 0.25
	f3 := -0.5 * sinzf * math.Cos(zf)
	se = t.ee2*f2 + t.e3*f3
	si = t.xi2*f2 + t.xi3*f3
	sl = t.xl2*f2 + t.xl3*f3 + t.xl4*sinzf
	sgh = t.xgh2*f2 + t.xgh3*f3 + t.xgh4*sinzf
	sh = t.xh2*f2 + t.xh3*f3
	return
}
