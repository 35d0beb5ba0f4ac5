// sim/micro.go
//
// "Microscopic" calculation predicting the expected number of days an
// infected person is infectious AND free under periodic surveillance testing.
//
//	T | time between surveillance tests
//	X | onset of infectiousness within a test interval
//	D | delay to isolate after testing positive
//	R | total length of the infectious period
//	N | index of the first surveillance test to return positive
//
// The infection begins at some point X uniformly distributed on [0,T], so the
// time between onset and the first surveillance test is T-X. Each test
// independently returns positive with probability equal to the test
// sensitivity, making N geometric. The free-and-infectious time is
// min(T-X + N*T + D, R), where the first case represents isolating the
// individual before the end of their infectious period.
//
// We pessimistically assume a person is infectious the entire time they are
// detectable and that the infection level remains constant.

package sim

import "math"

// conditionalDaysInfectious computes E[days infectious | the nth surveillance
// test is the first to return positive] (n is 0-indexed).
//
//	E[min(T-X + nT + D, R)]
//	  = nT + D + T * E[min(U, b)]  with U = (T-X)/T ~ Uniform(0,1)
//	                               and  b = (R-D-nT)/T
//
//	E[min(U, b)] = 0        if b <= 0
//	             = 1/2      if b > 1
//	             = b(1-b/2) otherwise
func conditionalDaysInfectious(n int, daysBetweenTests, isolationDelay, maxInfectiousDays float64) float64 {
	T := daysBetweenTests
	D := isolationDelay
	R := maxInfectiousDays

	if math.IsInf(T, 1) {
		return R
	}

	b := (R - D - float64(n)*T) / T
	var y float64
	switch {
	case b < 0:
		y = 0
	case b > 1:
		y = 0.5
	default:
		y = b * (1 - 0.5*b)
	}

	return D + float64(n)*T + T*y
}

// DaysInfectious returns the expected time someone is infectious and free.
//
// The number of surveillance tests N required for a person to test positive
// is geometric: P(N=n) = sensitivity * (1-sensitivity)^n, with the first
// test being n=0. The expectation sums conditionalDaysInfectious over n,
// with a tail correction: once D + nT >= R, every later term equals R
// exactly (the cap binds before isolation can help), so the remaining
// geometric mass contributes P(N>=n) * R.
//
// daysBetweenTests must be positive; pass math.Inf(1) for no surveillance
// testing. An infinite isolation delay likewise removes any surveillance
// benefit and returns maxInfectiousDays unchanged.
func DaysInfectious(daysBetweenTests, isolationDelay, sensitivity, maxInfectiousDays float64) float64 {
	T := daysBetweenTests
	D := isolationDelay
	R := maxInfectiousDays

	if math.IsInf(T, 1) || math.IsInf(D, 1) {
		return R
	}

	n := 0
	prob := 1.0 // P(N >= n)
	y := 0.0    // sum of P(N=n') * E[days infectious | N=n'] over n' < n
	for D+float64(n)*T < R {
		pn := sensitivity * math.Pow(1-sensitivity, float64(n))
		y += pn * conditionalDaysInfectious(n, T, D, R)
		prob -= pn
		n++
	}
	y += prob * R

	return y
}

// DaysInfectiousPerfectSensitivity is the closed form of DaysInfectious for a
// test with perfect sensitivity: the first test always catches the infection,
// so no geometric sum is needed.
func DaysInfectiousPerfectSensitivity(daysBetweenTests, isolationDelay, maxInfectiousDays float64) float64 {
	T := daysBetweenTests
	D := isolationDelay
	R := maxInfectiousDays

	if math.IsInf(T, 1) || math.IsInf(D, 1) {
		return R
	}

	b := (R - D) / T
	var y float64
	switch {
	case b < 0:
		y = 0
	case b > 1:
		y = 0.5
	default:
		y = b * (1 - 0.5*b)
	}

	return D + T*y
}
