// sim/ensemble.go
//
// Scenario families and parallel ensembles. A ScenarioFamily pairs a nominal
// scenario with truncated-normal priors over uncertain parameters; sampling
// the family yields scenarios for confidence-interval reporting. Runs are
// independent, so the ensemble executes them on parallel workers with
// per-run derived seeds.

package sim

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Prior parameter names accepted by ScenarioFamily. Each names a scenario
// parameter whose sampled value is applied uniformly across meta-groups.
const (
	PriorInfectionsPerDay       = "infections_per_day_per_contact_unit"
	PriorOutsideRate            = "outside_rate"
	PriorSymptomaticRate        = "symptomatic_rate"
	PriorMaxInfectiousDays      = "max_infectious_days"
	PriorPctRecoveredDiscovered = "pct_recovered_discovered"
)

// TruncNormPrior is a normal distribution with mean Mu and standard
// deviation Std, truncated to [A, B].
type TruncNormPrior struct {
	Mu  float64
	Std float64
	A   float64
	B   float64
}

// Sample draws from the truncated normal by rejection. The explicit rand
// source keeps ensemble runs reproducible and parallel-safe; there is no
// package-global seeding.
func (p TruncNormPrior) Sample(rng *rand.Rand) float64 {
	if p.Std == 0 {
		return p.Mu
	}
	for {
		v := rng.NormFloat64()*p.Std + p.Mu
		if v >= p.A && v <= p.B {
			return v
		}
	}
}

// ScenarioFamily is a nominal scenario plus priors over its uncertain
// parameters.
type ScenarioFamily struct {
	Nominal *Scenario
	Priors  map[string]TruncNormPrior
}

// GetNominalScenario returns a copy of the scenario with every prior
// parameter pinned to its mean.
func (f *ScenarioFamily) GetNominalScenario() (*Scenario, error) {
	sc := f.Nominal.clone()
	for name, prior := range f.Priors {
		if err := applyPrior(sc, name, prior.Mu); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// GetSampledScenario returns a copy of the scenario with every prior
// parameter sampled from its truncated normal.
func (f *ScenarioFamily) GetSampledScenario(rng *rand.Rand) (*Scenario, error) {
	sc := f.Nominal.clone()
	for name, prior := range f.Priors {
		if err := applyPrior(sc, name, prior.Sample(rng)); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// applyPrior writes a sampled value into the named scenario parameter,
// broadcasting across meta-groups for vector parameters.
func applyPrior(sc *Scenario, name string, val float64) error {
	n := sc.Population.NumMetaGroups()
	switch name {
	case PriorInfectionsPerDay:
		sc.InfectionsPerDayPerContactUnit = Broadcast(val, n)
	case PriorOutsideRate:
		sc.OutsideRate = Broadcast(val, n)
	case PriorSymptomaticRate:
		sc.SymptomaticRate = val
	case PriorMaxInfectiousDays:
		sc.MaxInfectiousDays = val
	case PriorPctRecoveredDiscovered:
		sc.PctRecoveredDiscovered = Broadcast(val, n)
	default:
		return fmt.Errorf("unknown prior parameter %q", name)
	}
	return nil
}

// clone returns a copy of the scenario with its per-meta-group vectors
// duplicated, so a sampled scenario never mutates the nominal one. The
// population and test table are immutable and shared.
func (sc *Scenario) clone() *Scenario {
	dup := *sc
	dup.InfectionsPerDayPerContactUnit = append([]float64(nil), sc.InfectionsPerDayPerContactUnit...)
	dup.InitInfections = append([]float64(nil), sc.InitInfections...)
	dup.InitRecovered = append([]float64(nil), sc.InitRecovered...)
	dup.OutsideRate = append([]float64(nil), sc.OutsideRate...)
	dup.NoSurveillanceTestRate = append([]float64(nil), sc.NoSurveillanceTestRate...)
	dup.PctRecoveredDiscovered = append([]float64(nil), sc.PctRecoveredDiscovered...)
	dup.PctRecoveredDiscoveredArrival = append([]float64(nil), sc.PctRecoveredDiscoveredArrival...)
	dup.HospitalizationRates = append([]float64(nil), sc.HospitalizationRates...)
	return &dup
}

// StrategyFactory builds the strategy to apply to a sampled scenario.
// Strategies may depend on scenario parameters (e.g. regime frequencies
// chosen from the sampled test table), so the factory receives the scenario.
type StrategyFactory func(*Scenario) (*Strategy, error)

// EnsembleRun is the result of one sampled simulation run.
type EnsembleRun struct {
	ID         string // unique run identifier
	Label      string // deterministic run label ("run_0", "run_1", ...)
	Scenario   *Scenario
	Trajectory *Trajectory
}

// RunEnsemble samples n scenarios from the family, applies the factory's
// strategy to each, and runs the simulations on up to workers parallel
// goroutines. Runs share no mutable state and each consumes an RNG derived
// from the seed and its label, so results are independent of scheduling
// order. Any failed run aborts the ensemble.
func RunEnsemble(family *ScenarioFamily, factory StrategyFactory, n int, seed int64, workers int) ([]EnsembleRun, error) {
	if n < 1 {
		return nil, fmt.Errorf("ensemble size must be positive, got %d", n)
	}
	if workers < 1 {
		workers = 1
	}

	// Derive every run's RNG up front: PartitionedRNG is not thread-safe.
	prng := NewPartitionedRNG(NewEnsembleKey(seed))
	rngs := make([]*rand.Rand, n)
	for i := 0; i < n; i++ {
		rngs[i] = prng.ForRun(RunLabel(i))
	}

	runs := make([]EnsembleRun, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			label := RunLabel(i)
			scenario, err := family.GetSampledScenario(rngs[i])
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			strategy, err := factory(scenario)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			trajectory, err := scenario.ApplyStrategy(strategy)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			runs[i] = EnsembleRun{
				ID:         uuid.NewString(),
				Label:      label,
				Scenario:   scenario,
				Trajectory: trajectory,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Infof("ensemble complete: %d runs of strategy on %d meta-groups",
		n, family.Nominal.Population.NumMetaGroups())
	return runs, nil
}
