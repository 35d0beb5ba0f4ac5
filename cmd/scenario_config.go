package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/epidemic-sim/epidemic-sim/sim"
)

// perMetaGroup accepts either a single scalar or a mapping from meta-group
// name to value. Scalars are broadcast to every meta-group here, at the
// config boundary, so the core only ever sees per-meta-group vectors.
type perMetaGroup struct {
	scalar *float64
	byName map[string]float64
}

func (p *perMetaGroup) UnmarshalYAML(value *yaml.Node) error {
	var scalar float64
	if err := value.Decode(&scalar); err == nil {
		p.scalar = &scalar
		return nil
	}
	return value.Decode(&p.byName)
}

// provided reports whether the YAML file carried a value for this field.
func (p *perMetaGroup) provided() bool {
	return p.scalar != nil || p.byName != nil
}

// vector resolves the value into meta-group order.
func (p *perMetaGroup) vector(order []string) ([]float64, error) {
	if p.scalar != nil {
		return sim.Broadcast(*p.scalar, len(order)), nil
	}
	out := make([]float64, len(order))
	for i, name := range order {
		v, ok := p.byName[name]
		if !ok {
			return nil, fmt.Errorf("missing value for meta-group %q", name)
		}
		out[i] = v
	}
	return out, nil
}

// TestConfig mirrors one entry of the scenario file's tests table.
type TestConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
	TestDelay   float64 `yaml:"test_delay"`
	Compliance  float64 `yaml:"compliance"`
}

// ScenarioConfig mirrors the scenario YAML file.
type ScenarioConfig struct {
	MaxT           int     `yaml:"max_T"`
	GenerationTime float64 `yaml:"generation_time"`

	MetaGroups             []string           `yaml:"meta_groups"`
	PopulationCounts       map[string]float64 `yaml:"population_counts"`
	PopParetoShapes        map[string]float64 `yaml:"pop_pareto_shapes"`
	PopParetoUBs           map[string]int     `yaml:"pop_pareto_ubs"`
	MetaGroupContactMatrix [][]float64        `yaml:"meta_group_contact_matrix"`

	InfectionsPerDayPerContactUnit perMetaGroup `yaml:"infections_per_day_per_contact_unit"`
	InitInfections                 perMetaGroup `yaml:"init_infections"`
	InitRecovered                  perMetaGroup `yaml:"init_recovered"`
	OutsideRate                    perMetaGroup `yaml:"outside_rate"`
	NoSurveillanceTestRate         perMetaGroup `yaml:"no_surveillance_test_rate"`
	PctRecoveredDiscovered         perMetaGroup `yaml:"pct_recovered_discovered"`
	PctRecoveredDiscoveredArrival  perMetaGroup `yaml:"pct_recovered_discovered_arrival"`
	HospitalizationRates           perMetaGroup `yaml:"hospitalization_rates"`

	MaxInfectiousDays float64               `yaml:"max_infectious_days"`
	SymptomaticRate   float64               `yaml:"symptomatic_rate"`
	ArrivalPeriod     int                   `yaml:"arrival_period"`
	InitWeight        string                `yaml:"init_weight"`
	Tests             map[string]TestConfig `yaml:"tests"`
}

// GetScenario loads and validates a scenario from a YAML file.
func GetScenario(path string) (*sim.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	return cfg.Build()
}

// Build bridges the YAML representation into a validated sim.Scenario.
func (cfg *ScenarioConfig) Build() (*sim.Scenario, error) {
	if len(cfg.MetaGroups) == 0 {
		return nil, fmt.Errorf("scenario config: meta_groups is empty")
	}

	metaGroups := make([]*sim.MetaGroup, len(cfg.MetaGroups))
	for i, name := range cfg.MetaGroups {
		pop, ok := cfg.PopulationCounts[name]
		if !ok {
			return nil, fmt.Errorf("scenario config: missing population count for %q", name)
		}
		shape, ok := cfg.PopParetoShapes[name]
		if !ok {
			return nil, fmt.Errorf("scenario config: missing pareto shape for %q", name)
		}
		ub, ok := cfg.PopParetoUBs[name]
		if !ok {
			return nil, fmt.Errorf("scenario config: missing pareto truncation point for %q", name)
		}
		mg, err := sim.NewMetaGroupFromTruncatedPareto(name, pop, shape, ub)
		if err != nil {
			return nil, err
		}
		metaGroups[i] = mg
	}

	mixing, err := denseFromRows(cfg.MetaGroupContactMatrix)
	if err != nil {
		return nil, fmt.Errorf("scenario config: meta_group_contact_matrix: %w", err)
	}
	population, err := sim.NewPopulation(metaGroups, mixing)
	if err != nil {
		return nil, err
	}

	tests := make(map[string]sim.Test, len(cfg.Tests))
	for name, tc := range cfg.Tests {
		t, err := sim.NewTest(name, tc.Sensitivity, tc.TestDelay, tc.Compliance)
		if err != nil {
			return nil, err
		}
		tests[name] = t
	}

	sc := &sim.Scenario{
		Population:        population,
		MaxT:              cfg.MaxT,
		GenerationTime:    cfg.GenerationTime,
		MaxInfectiousDays: cfg.MaxInfectiousDays,
		SymptomaticRate:   cfg.SymptomaticRate,
		ArrivalPeriod:     cfg.ArrivalPeriod,
		InitWeight:        sim.WeightPolicy(cfg.InitWeight),
		Tests:             tests,
	}
	for dst, src := range map[*[]float64]*perMetaGroup{
		&sc.InfectionsPerDayPerContactUnit: &cfg.InfectionsPerDayPerContactUnit,
		&sc.InitInfections:                 &cfg.InitInfections,
		&sc.InitRecovered:                  &cfg.InitRecovered,
		&sc.OutsideRate:                    &cfg.OutsideRate,
		&sc.NoSurveillanceTestRate:         &cfg.NoSurveillanceTestRate,
		&sc.PctRecoveredDiscovered:         &cfg.PctRecoveredDiscovered,
		&sc.HospitalizationRates:           &cfg.HospitalizationRates,
	} {
		v, err := src.vector(cfg.MetaGroups)
		if err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
		*dst = v
	}
	// Optional: scenarios without arrival testing omit it, and Validate
	// defaults the vector to zeros.
	if cfg.PctRecoveredDiscoveredArrival.provided() {
		v, err := cfg.PctRecoveredDiscoveredArrival.vector(cfg.MetaGroups)
		if err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
		sc.PctRecoveredDiscoveredArrival = v
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
