// sim/scenario.go
//
// A Scenario describes the population, the environment and the disease
// spread. Combining a scenario with a testing strategy runs a simulation,
// allowing multiple strategies to be compared on the same scenario.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Scenario bundles the epidemiological parameters a strategy is applied to.
// Per-meta-group vectors are ordered like Population.MetaGroups.
type Scenario struct {
	Population     *Population
	MaxT           int     // simulation horizon in generations
	GenerationTime float64 // days per generation

	// InfectionsPerDayPerContactUnit is the per-meta-group rate of secondary
	// infections per contact unit per day of infectiousness. Each period's
	// testing regime converts it into a per-generation rate through its
	// expected days infectious.
	InfectionsPerDayPerContactUnit []float64

	InitInfections []float64 // true active infections at t=0, per meta-group
	InitRecovered  []float64 // recovered at t=0, per meta-group
	OutsideRate    []float64 // exogenous infections per generation, per meta-group

	MaxInfectiousDays      float64
	SymptomaticRate        float64
	NoSurveillanceTestRate []float64 // ambient voluntary testing rate, per meta-group
	PctRecoveredDiscovered []float64 // fraction of initial recovered already known, per meta-group
	// PctRecoveredDiscoveredArrival is the fraction of initial recovered who
	// first learn their status from the arrival test, per meta-group. It
	// feeds arrival-discovered reporting, not the simulation state.
	PctRecoveredDiscoveredArrival []float64
	HospitalizationRates          []float64 // hospitalization rate among the infected, per meta-group

	// ArrivalPeriod is the number of generations over which arrival occurs;
	// 0 means no arrival period (and forbids arrival testing regimes).
	ArrivalPeriod int

	// InitWeight selects how meta-group initial counts are split across
	// contact-level groups. Empty defaults to WeightPopulation.
	InitWeight WeightPolicy

	Tests map[string]Test
}

// Validate checks the scenario's vector shapes and parameter ranges.
func (sc *Scenario) Validate() error {
	if sc.Population == nil {
		return fmt.Errorf("scenario: population is required")
	}
	if sc.MaxT < 1 {
		return fmt.Errorf("scenario: maxT must be positive, got %d", sc.MaxT)
	}
	if sc.GenerationTime <= 0 {
		return fmt.Errorf("scenario: generation time must be positive, got %f", sc.GenerationTime)
	}
	if sc.MaxInfectiousDays <= 0 {
		return fmt.Errorf("scenario: max infectious days must be positive, got %f", sc.MaxInfectiousDays)
	}
	if sc.SymptomaticRate < 0 || sc.SymptomaticRate > 1 {
		return fmt.Errorf("scenario: symptomatic rate %f outside [0,1]", sc.SymptomaticRate)
	}
	if sc.InitWeight == "" {
		sc.InitWeight = WeightPopulation
	}
	p := sc.Population
	if sc.PctRecoveredDiscoveredArrival == nil {
		sc.PctRecoveredDiscoveredArrival = make([]float64, p.NumMetaGroups())
	}
	for what, v := range map[string][]float64{
		"infections per day per contact unit": sc.InfectionsPerDayPerContactUnit,
		"initial infections":                  sc.InitInfections,
		"initial recovered":                   sc.InitRecovered,
		"outside rate":                        sc.OutsideRate,
		"no-surveillance test rate":           sc.NoSurveillanceTestRate,
		"pct recovered discovered":            sc.PctRecoveredDiscovered,
		"pct recovered discovered on arrival": sc.PctRecoveredDiscoveredArrival,
		"hospitalization rates":               sc.HospitalizationRates,
	} {
		if err := p.checkPerMetaGroup(what, v); err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
	}
	return nil
}

// ApplyStrategy runs the given strategy on this scenario and returns the
// resulting trajectory. The strategy's periods must exactly cover the
// scenario horizon, and an arrival testing regime requires an arrival
// period.
func (sc *Scenario) ApplyStrategy(strategy *Strategy) (*Trajectory, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if strategy.Horizon() != sc.MaxT {
		return nil, fmt.Errorf("strategy %q covers %d generations but the scenario horizon is %d",
			strategy.Name, strategy.Horizon(), sc.MaxT)
	}
	if sc.ArrivalPeriod == 0 && strategy.ArrivalRegime != nil {
		return nil, fmt.Errorf("strategy %q has an arrival testing regime but the scenario has no arrival period", strategy.Name)
	}

	population := sc.Population

	// Partition the true initial state by arrival testing outcomes.
	initInfections := strategy.GetInitialInfections(sc.InitInfections)
	initRecovered := strategy.GetInitialRecovered(sc.InitRecovered, sc.InitInfections)
	initDiscovered := strategy.GetInitialDiscovered(sc.InitRecovered, sc.PctRecoveredDiscovered, sc.InitInfections)
	initHidden := strategy.GetInitialHidden(sc.InitRecovered, sc.PctRecoveredDiscovered, sc.InitInfections)

	s0, i0, r0, d0, h0, err := population.GetInitSIRandDH(initInfections, initRecovered,
		initDiscovered, initHidden, sc.InitWeight)
	if err != nil {
		return nil, err
	}

	var simulation *Sim
	for i, periodLength := range strategy.PeriodLengths {
		regime := strategy.TestingRegimes[i]
		multiplier := strategy.TransmissionMultipliers[i]

		// The regime's expected days infectious converts the per-day contact
		// rate into a per-generation secondary infection rate.
		daysInfectious := regime.GetDaysInfectious(sc.MaxInfectiousDays)
		infectionsPerContactUnit := make([]float64, len(daysInfectious))
		for a := range infectionsPerContactUnit {
			infectionsPerContactUnit[a] = sc.InfectionsPerDayPerContactUnit[a] * daysInfectious[a] * multiplier
		}
		infectionRate, err := population.InfectionMatrix(infectionsPerContactUnit)
		if err != nil {
			return nil, err
		}

		infectionDiscoveryFrac, err := population.FlattenPerMetaGroup(
			regime.GetInfectionDiscoveryFrac(sc.SymptomaticRate))
		if err != nil {
			return nil, err
		}
		recoveredFracMG, err := regime.GetRecoveredDiscoveryFrac(sc.NoSurveillanceTestRate)
		if err != nil {
			return nil, err
		}
		recoveredDiscoveryFrac, err := population.FlattenPerMetaGroup(recoveredFracMG)
		if err != nil {
			return nil, err
		}
		outsideMG := make([]float64, len(sc.OutsideRate))
		for a := range outsideMG {
			outsideMG[a] = sc.OutsideRate[a] * multiplier
		}
		outsideRate, err := population.OutsideRate(outsideMG)
		if err != nil {
			return nil, err
		}

		params := StepParams{
			InfectionRate:          infectionRate,
			InfectionDiscoveryFrac: infectionDiscoveryFrac,
			RecoveredDiscoveryFrac: recoveredDiscoveryFrac,
			OutsideRate:            outsideRate,
		}

		if i == 0 {
			simulation, err = NewSimWithDH(sc.MaxT, s0, i0, r0, d0, h0, params)
			if err != nil {
				return nil, err
			}
		}

		logrus.Debugf("strategy %q period %d (%q): %d generations, multiplier %.3f",
			strategy.Name, i, regime.Name, periodLength, multiplier)
		if err := simulation.StepWith(periodLength, params); err != nil {
			return nil, err
		}
	}

	return NewTrajectory(sc, strategy, simulation, strategy.Name), nil
}
