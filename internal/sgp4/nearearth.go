package sgp4

import "math"

// nearEarth is the SGP4 branch for orbits with periods under 225 minutes.
// All coefficients are fixed at construction; propagate only reads them.
type nearEarth struct {
	m *Model

	sp shortPeriodTerms

	s4     float64
	qoms24 float64

	aycof  float64
	c1     float64
	c4     float64
	c5     float64
	d2     float64
	d3     float64
	d4     float64
	delmo  float64
	eta    float64
	omgcof float64
	omgdot float64
	sinmo  float64
	t2cof  float64
	t3cof  float64
	t4cof  float64
	t5cof  float64
	xlcof  float64
	xmcof  float64
	xmdot  float64
	xnodcf float64
	xnodot float64

	// Below 220 km perigee the equations are truncated to linear
	// variation in sqrt(a) and quadratic variation in mean anomaly.
	simple bool
}

func newNearEarth(m *Model) *nearEarth {
	n := &nearEarth{m: m}

	cosio := math.Cos(m.xincl)
	sinio := math.Sin(m.xincl)
	theta2 := cosio * cosio
	n.sp = shortPeriodTerms{
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

	n.simple = m.aodp*(1.0-eo) < 220.0/earthRadiusKm+1.0

	perigeeKm := (m.aodp*(1.0-eo) - 1.0) * earthRadiusKm
	n.s4, n.qoms24 = fittedDragTerms(perigeeKm)

	pinvsq := 1.0 / (m.aodp * m.aodp * betao2 * betao2)
	tsi := 1.0 / (m.aodp - n.s4)
	n.eta = m.aodp * eo * tsi
	etasq := n.eta * n.eta
	eeta := eo * n.eta
	psisq := math.Abs(1.0 - etasq)
	coef := n.qoms24 * math.Pow(tsi, 4)
	coef1 := coef / math.Pow(psisq, 3.5)
	c2 := coef1 * m.xnodp * (m.aodp*(1.0+1.5*etasq+eeta*(4.0+etasq)) +
		0.75*ck2*tsi/psisq*n.sp.x3thm1*(8.0+3.0*etasq*(8.0+etasq)))
	n.c1 = m.bstar * c2
	a3ovk2 := -j3Harmonic / ck2
	c3 := coef * tsi * a3ovk2 * m.xnodp * sinio / eo

	n.c4 = 2.0 * m.xnodp * coef1 * m.aodp * betao2 *
		(n.eta*(2.0+0.5*etasq) + eo*(0.5+2.0*etasq) -
			2.0*ck2*tsi/(m.aodp*psisq)*
				(-3.0*n.sp.x3thm1*(1.0-2.0*eeta+etasq*(1.5-0.5*eeta))+
					0.75*n.sp.x1mth2*(2.0*etasq-eeta*(1.0+etasq))*math.Cos(2.0*m.omegao)))
	n.c5 = 2.0 * coef1 * m.aodp * betao2 * (1.0 + 2.75*(etasq+eeta) + eeta*etasq)

	theta4 := theta2 * theta2
	temp1 := 3.0 * ck2 * pinvsq * m.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * m.xnodp
	n.xmdot = m.xnodp + 0.5*temp1*betao*n.sp.x3thm1 +
		0.0625*temp2*betao*(13.0-78.0*theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*theta2
	n.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*theta2+395.0*theta4) +
		temp3*(3.0-36.0*theta2+49.0*theta4)
	xhdot1 := -temp1 * cosio
	n.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*theta2)+2.0*temp3*(3.0-7.0*theta2))*cosio
	n.omgcof = m.bstar * c3 * math.Cos(m.omegao)
	n.xmcof = -twoThirds * coef * m.bstar / eeta
	n.xnodcf = 3.5 * betao2 * xhdot1 * n.c1
	n.t2cof = 1.5 * n.c1
	n.xlcof = 0.125 * a3ovk2 * sinio * (3.0 + 5.0*cosio) / (1.0 + cosio)
	n.aycof = 0.25 * a3ovk2 * sinio
	n.delmo = math.Pow(1.0+n.eta*math.Cos(m.xmo), 3)
	n.sinmo = math.Sin(m.xmo)

	if !n.simple {
		c1sq := n.c1 * n.c1
		n.d2 = 4.0 * m.aodp * tsi * c1sq
		temp := n.d2 * tsi * n.c1 / 3.0
		n.d3 = (17.0*m.aodp + n.s4) * temp
		n.d4 = 0.5 * temp * m.aodp * tsi * (221.0*m.aodp + 31.0*n.s4) * n.c1
		n.t3cof = n.d2 + 2.0*c1sq
		n.t4cof = 0.25 * (3.0*n.d3 + n.c1*(12.0*n.d2+10.0*c1sq))
		n.t5cof = 0.2 * (3.0*n.d4 + 12.0*n.c1*n.d3 + 6.0*n.d2*n.d2 + 15.0*c1sq*(2.0*n.d2+c1sq))
	}

	return n
}

func (n *nearEarth) propagate(tsince float64) (StateVector, error) {
	m := n.m

	// Secular gravity and atmospheric drag.
	xmdf := m.xmo + n.xmdot*tsince
	omgadf := m.omegao + n.omgdot*tsince
	xnoddf := m.xnodeo + n.xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := tsince * tsince
	xnode := xnoddf + n.xnodcf*tsq
	tempa := 1.0 - n.c1*tsince
	tempe := m.bstar * n.c4 * tsince
	templ := n.t2cof * tsq

	if !n.simple {
		delomg := n.omgcof * tsince
		delm := n.xmcof * (math.Pow(1.0+n.eta*math.Cos(xmdf), 3) - n.delmo)
		delta := delomg + delm
		xmp = xmdf + delta
		omega = omgadf - delta
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa -= n.d2*tsq + n.d3*tcube + n.d4*tfour
		tempe += m.bstar * n.c5 * (math.Sin(xmp) - n.sinmo)
		templ += n.t3cof*tcube + tfour*(n.t4cof+tsince*n.t5cof)
	}

	a := m.aodp * tempa * tempa
	e := m.eo - tempe
	if e >= 1.0 || e < -1e-3 {
		return StateVector{}, &PropagationError{CatalogNumber: m.catnum, Reason: ReasonDegenerate,
			Detail: "perturbed eccentricity out of range"}
	}
	if e < 1e-6 {
		e = 1e-6
	}
	xl := xmp + omega + xnode + m.xnodp*templ
	beta2 := 1.0 - e*e
	xn := xke / math.Pow(a, 1.5)

	// Long period periodics.
	axn := e * math.Cos(omega)
	temp := 1.0 / (a * beta2)
	xll := temp * n.xlcof * axn
	aynl := temp * n.aycof
	xlt := xl + xll
	ayn := e*math.Sin(omega) + aynl

	capu := mod2pi(xlt - xnode)
	sinEpw, cosEpw := solveKepler(axn, ayn, capu)

	return finishOrbit(m.catnum, a, axn, ayn, sinEpw, cosEpw, xnode, m.xincl, xn, n.sp)
}
