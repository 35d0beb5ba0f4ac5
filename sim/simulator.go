// sim/simulator.go
//
// SIR-style generation-stepped simulation on a heterogeneous population.
// Infections last a single generation, after which people recover and are
// immune for the remainder of the simulation. Infections may be discovered
// immediately (symptomatic self-reporting or surveillance) or later (an
// asymptomatic test applied to the whole population).

package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// invariantTol is the floating tolerance for the D+H == I+R bookkeeping
// check at construction.
const invariantTol = 1e-9

// StepParams carries the per-generation parameters of the transition. Nil
// fields fall back to the simulator's stored baseline, so a Strategy loop can
// override only what changes at a period boundary.
type StepParams struct {
	InfectionRate          *mat.Dense // K x K; entry (i,j) is new infections in group j per infectious person in group i
	InfectionDiscoveryFrac []float64  // per group in [0,1]; fraction of new infections discovered immediately
	RecoveredDiscoveryFrac []float64  // per group in [0,1]; per-generation discovery rate of hidden recovered
	OutsideRate            []float64  // per group; exogenous infections per generation
}

// Sim maintains an SIR-style simulation over K flattened groups. S, I, R, D
// and H are (maxT+1) x K matrices indexed by [generation, group]: susceptible,
// infected, recovered, discovered and hidden. At every generation
// S+I+R is constant per group and D+H equals I+R elementwise.
type Sim struct {
	MaxT int // number of steps the simulation can take; matrices have MaxT+1 rows
	K    int // number of flattened groups

	S *mat.Dense
	I *mat.Dense
	R *mat.Dense
	D *mat.Dense
	H *mat.Dense

	baseline StepParams
	t        int
}

// Broadcast expands a scalar into a uniform per-group vector. Scalar-valued
// configuration is converted at the boundary so the core always works with
// vectors.
func Broadcast(x float64, k int) []float64 {
	v := make([]float64, k)
	for i := range v {
		v[i] = x
	}
	return v
}

// validateDiscoveryFrac checks a per-group discovery fraction vector.
func validateDiscoveryFrac(what string, frac []float64, k int) error {
	if len(frac) != k {
		return fmt.Errorf("%s has %d entries, want %d groups", what, len(frac), k)
	}
	for g, f := range frac {
		if f < 0 || f > 1 {
			return fmt.Errorf("%s[%d] = %f outside [0,1]", what, g, f)
		}
	}
	return nil
}

// checkVector validates a non-negative per-group vector.
func checkVector(what string, v []float64, k int) error {
	if len(v) != k {
		return fmt.Errorf("%s has %d entries, want %d groups", what, len(v), k)
	}
	for g, x := range v {
		if x < 0 {
			return fmt.Errorf("%s[%d] = %f is negative", what, g, x)
		}
	}
	return nil
}

// NewSim initializes a simulation from per-group S/I/R vectors. The initial
// discovered bucket is derived as infectionDiscoveryFrac of the infected plus
// all of the recovered; the complement of the infected becomes hidden. Use
// NewSimWithDH to supply the split explicitly (e.g. from arrival testing).
func NewSim(maxT int, s0, i0, r0 []float64, params StepParams) (*Sim, error) {
	k := len(s0)
	if err := validateBaseline(&params, k); err != nil {
		return nil, err
	}
	d0 := make([]float64, k)
	h0 := make([]float64, k)
	if len(i0) != k || len(r0) != k {
		return nil, fmt.Errorf("initial vectors disagree on group count: S=%d I=%d R=%d", k, len(i0), len(r0))
	}
	for g := 0; g < k; g++ {
		d0[g] = i0[g]*params.InfectionDiscoveryFrac[g] + r0[g]
		h0[g] = i0[g] * (1 - params.InfectionDiscoveryFrac[g])
	}
	return newSim(maxT, s0, i0, r0, d0, h0, params)
}

// NewSimWithDH initializes a simulation with an explicit discovered/hidden
// split, asserting D0+H0 matches I0+R0 within floating tolerance.
func NewSimWithDH(maxT int, s0, i0, r0, d0, h0 []float64, params StepParams) (*Sim, error) {
	k := len(s0)
	if err := validateBaseline(&params, k); err != nil {
		return nil, err
	}
	for g := 0; g < k; g++ {
		if g >= len(i0) || g >= len(r0) || g >= len(d0) || g >= len(h0) {
			return nil, fmt.Errorf("initial vectors disagree on group count")
		}
		if math.Abs((i0[g]+r0[g])-(d0[g]+h0[g])) > invariantTol {
			return nil, fmt.Errorf("group %d: D0+H0 = %f does not match I0+R0 = %f",
				g, d0[g]+h0[g], i0[g]+r0[g])
		}
	}
	return newSim(maxT, s0, i0, r0, d0, h0, params)
}

// validateBaseline checks the baseline step parameters against K groups.
func validateBaseline(params *StepParams, k int) error {
	if params.InfectionRate == nil {
		return fmt.Errorf("infection rate matrix is required")
	}
	r, c := params.InfectionRate.Dims()
	if r != k || c != k {
		return fmt.Errorf("infection rate matrix is %dx%d, want %dx%d", r, c, k, k)
	}
	if params.InfectionDiscoveryFrac == nil {
		params.InfectionDiscoveryFrac = Broadcast(1, k)
	}
	if params.RecoveredDiscoveryFrac == nil {
		params.RecoveredDiscoveryFrac = Broadcast(1, k)
	}
	if params.OutsideRate == nil {
		params.OutsideRate = make([]float64, k)
	}
	if err := validateDiscoveryFrac("infection discovery frac", params.InfectionDiscoveryFrac, k); err != nil {
		return err
	}
	if err := validateDiscoveryFrac("recovered discovery frac", params.RecoveredDiscoveryFrac, k); err != nil {
		return err
	}
	return checkVector("outside rate", params.OutsideRate, k)
}

func newSim(maxT int, s0, i0, r0, d0, h0 []float64, params StepParams) (*Sim, error) {
	if maxT < 1 {
		return nil, fmt.Errorf("maxT must be positive, got %d", maxT)
	}
	k := len(s0)
	if err := checkVector("initial susceptible", s0, k); err != nil {
		return nil, err
	}
	if err := checkVector("initial infected", i0, k); err != nil {
		return nil, err
	}
	if err := checkVector("initial recovered", r0, k); err != nil {
		return nil, err
	}
	if err := checkVector("initial discovered", d0, k); err != nil {
		return nil, err
	}
	if err := checkVector("initial hidden", h0, k); err != nil {
		return nil, err
	}

	s := &Sim{
		MaxT:     maxT,
		K:        k,
		S:        mat.NewDense(maxT+1, k, nil),
		I:        mat.NewDense(maxT+1, k, nil),
		R:        mat.NewDense(maxT+1, k, nil),
		D:        mat.NewDense(maxT+1, k, nil),
		H:        mat.NewDense(maxT+1, k, nil),
		baseline: params,
	}
	s.S.SetRow(0, s0)
	s.I.SetRow(0, i0)
	s.R.SetRow(0, r0)
	s.D.SetRow(0, d0)
	s.H.SetRow(0, h0)
	return s, nil
}

// Generation returns the current generation index, in [0, MaxT].
func (s *Sim) Generation() int {
	return s.t
}

// Step advances the simulation n generations using the baseline parameters.
func (s *Sim) Step(n int) error {
	return s.StepWith(n, StepParams{})
}

// StepWith advances the simulation n generations, overriding any non-nil
// fields of params for those generations. Infection rate, discovery
// fractions and outside rate may all change at period boundaries.
func (s *Sim) StepWith(n int, params StepParams) error {
	if n < 1 {
		return fmt.Errorf("step count must be positive, got %d", n)
	}

	infectionRate := s.baseline.InfectionRate
	if params.InfectionRate != nil {
		r, c := params.InfectionRate.Dims()
		if r != s.K || c != s.K {
			return fmt.Errorf("infection rate matrix is %dx%d, want %dx%d", r, c, s.K, s.K)
		}
		infectionRate = params.InfectionRate
	}
	infectionDiscoveryFrac := s.baseline.InfectionDiscoveryFrac
	if params.InfectionDiscoveryFrac != nil {
		if err := validateDiscoveryFrac("infection discovery frac", params.InfectionDiscoveryFrac, s.K); err != nil {
			return err
		}
		infectionDiscoveryFrac = params.InfectionDiscoveryFrac
	}
	recoveredDiscoveryFrac := s.baseline.RecoveredDiscoveryFrac
	if params.RecoveredDiscoveryFrac != nil {
		if err := validateDiscoveryFrac("recovered discovery frac", params.RecoveredDiscoveryFrac, s.K); err != nil {
			return err
		}
		recoveredDiscoveryFrac = params.RecoveredDiscoveryFrac
	}
	outsideRate := s.baseline.OutsideRate
	if params.OutsideRate != nil {
		if err := checkVector("outside rate", params.OutsideRate, s.K); err != nil {
			return err
		}
		outsideRate = params.OutsideRate
	}

	for i := 0; i < n; i++ {
		if err := s.stepOnce(infectionRate, infectionDiscoveryFrac, recoveredDiscoveryFrac, outsideRate); err != nil {
			return err
		}
	}
	return nil
}

// stepOnce advances one generation.
func (s *Sim) stepOnce(infectionRate *mat.Dense, infectionDiscoveryFrac, recoveredDiscoveryFrac, outsideRate []float64) error {
	t := s.t
	if t+1 > s.MaxT {
		return fmt.Errorf("simulation horizon exhausted: already at generation %d of %d", t, s.MaxT)
	}

	sRow := s.S.RawRowView(t)
	iRow := s.I.RawRowView(t)
	rRow := s.R.RawRowView(t)
	dRow := s.D.RawRowView(t)
	hRow := s.H.RawRowView(t)

	// Fraction susceptible per group; empty or depleted groups contribute 0
	// rather than NaN.
	fracSusceptible := make([]float64, s.K)
	for g := 0; g < s.K; g++ {
		total := sRow[g] + iRow[g] + rRow[g]
		if total != 0 {
			fracSusceptible[g] = sRow[g] / total
		}
	}

	// New infections from internal spread: row vector I[t] times the
	// infection rate matrix, i.e. infections landing in group j summed over
	// source groups.
	var spread mat.VecDense
	spread.MulVec(infectionRate.T(), mat.NewVecDense(s.K, iRow))

	sNext := s.S.RawRowView(t + 1)
	iNext := s.I.RawRowView(t + 1)
	rNext := s.R.RawRowView(t + 1)
	dNext := s.D.RawRowView(t + 1)
	hNext := s.H.RawRowView(t + 1)

	for g := 0; g < s.K; g++ {
		infected := spread.AtVec(g)*fracSusceptible[g] + fracSusceptible[g]*outsideRate[g]
		// Cannot infect more people than are currently susceptible.
		iNext[g] = math.Min(infected, sRow[g])

		sNext[g] = sRow[g] - iNext[g]
		rNext[g] = rRow[g] + iRow[g]

		// Discover some fraction of the hidden recovered carryover, then
		// split this generation's new infections the same way.
		dNext[g] = dRow[g] + hRow[g]*recoveredDiscoveryFrac[g]
		hNext[g] = hRow[g] * (1 - recoveredDiscoveryFrac[g])
		dNext[g] += iNext[g] * infectionDiscoveryFrac[g]
		hNext[g] += iNext[g] * (1 - infectionDiscoveryFrac[g])
	}

	s.t++
	return nil
}
