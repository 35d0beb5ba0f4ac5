package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/epidemic-sim/epidemic-sim/sim"
)

// TestingRegimeConfig mirrors one testing regime entry of the strategy file.
// test_type entries are keys into the scenario's tests table.
type TestingRegimeConfig struct {
	TestType     []string  `yaml:"test_type"`
	TestsPerWeek []float64 `yaml:"tests_per_week"`
	Discovery    string    `yaml:"discovery"` // optional no-surveillance discovery policy
}

// ArrivalTestingRegimeConfig mirrors one arrival testing regime entry.
type ArrivalTestingRegimeConfig struct {
	PreDepartureTestType []string `yaml:"pre_departure_test_type"`
	ArrivalTestType      []string `yaml:"arrival_test_type"`
}

// IsolationConfig mirrors a strategy's isolation-length distribution.
type IsolationConfig struct {
	Lengths []float64 `yaml:"lengths"`
	Props   []float64 `yaml:"props"`
}

// StrategyConfig mirrors one strategy entry of the strategy file.
type StrategyConfig struct {
	PeriodLengths           []int            `yaml:"period_lengths"`
	TestingRegimes          []string         `yaml:"testing_regimes"`
	TransmissionMultipliers []float64        `yaml:"transmission_multipliers"`
	ArrivalTestingRegime    string           `yaml:"arrival_testing_regime"`
	Isolation               *IsolationConfig `yaml:"isolation"`
}

// StrategiesConfig mirrors the strategy YAML file.
type StrategiesConfig struct {
	TestingRegimes        map[string]TestingRegimeConfig        `yaml:"testing_regimes"`
	ArrivalTestingRegimes map[string]ArrivalTestingRegimeConfig `yaml:"arrival_testing_regimes"`
	Strategies            map[string]StrategyConfig             `yaml:"strategies"`
}

// GetStrategies loads the strategy file and resolves its test references
// against the scenario's tests table.
func GetStrategies(path string, tests map[string]sim.Test) (map[string]*sim.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy config: %w", err)
	}
	var cfg StrategiesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing strategy config: %w", err)
	}
	return cfg.Build(tests)
}

// resolveTests maps test names to Test values.
func resolveTests(names []string, tests map[string]sim.Test) ([]sim.Test, error) {
	out := make([]sim.Test, len(names))
	for i, name := range names {
		t, ok := tests[name]
		if !ok {
			return nil, fmt.Errorf("unknown test %q", name)
		}
		out[i] = t
	}
	return out, nil
}

// Build bridges the YAML representation into validated sim.Strategy values.
func (cfg *StrategiesConfig) Build(tests map[string]sim.Test) (map[string]*sim.Strategy, error) {
	regimes := make(map[string]*sim.TestingRegime, len(cfg.TestingRegimes))
	for name, rc := range cfg.TestingRegimes {
		testTypes, err := resolveTests(rc.TestType, tests)
		if err != nil {
			return nil, fmt.Errorf("testing regime %q: %w", name, err)
		}
		regime, err := sim.NewTestingRegime(name, testTypes, rc.TestsPerWeek)
		if err != nil {
			return nil, err
		}
		if rc.Discovery != "" {
			policy := sim.DiscoveryPolicy(rc.Discovery)
			switch policy {
			case sim.DiscoverySymptomaticTimesSensitivity, sim.DiscoverySymptomatic:
				regime.Discovery = policy
			default:
				return nil, fmt.Errorf("testing regime %q: unknown discovery policy %q", name, rc.Discovery)
			}
		}
		regimes[name] = regime
	}

	arrivals := make(map[string]*sim.ArrivalTestingRegime, len(cfg.ArrivalTestingRegimes))
	for name, ac := range cfg.ArrivalTestingRegimes {
		pre, err := resolveTests(ac.PreDepartureTestType, tests)
		if err != nil {
			return nil, fmt.Errorf("arrival testing regime %q: %w", name, err)
		}
		arr, err := resolveTests(ac.ArrivalTestType, tests)
		if err != nil {
			return nil, fmt.Errorf("arrival testing regime %q: %w", name, err)
		}
		arrival, err := sim.NewArrivalTestingRegime(pre, arr)
		if err != nil {
			return nil, fmt.Errorf("arrival testing regime %q: %w", name, err)
		}
		arrivals[name] = arrival
	}

	strategies := make(map[string]*sim.Strategy, len(cfg.Strategies))
	for name, stc := range cfg.Strategies {
		stRegimes := make([]*sim.TestingRegime, len(stc.TestingRegimes))
		for i, rname := range stc.TestingRegimes {
			regime, ok := regimes[rname]
			if !ok {
				return nil, fmt.Errorf("strategy %q: unknown testing regime %q", name, rname)
			}
			stRegimes[i] = regime
		}
		var arrival *sim.ArrivalTestingRegime
		if stc.ArrivalTestingRegime != "" {
			a, ok := arrivals[stc.ArrivalTestingRegime]
			if !ok {
				return nil, fmt.Errorf("strategy %q: unknown arrival testing regime %q", name, stc.ArrivalTestingRegime)
			}
			arrival = a
		}
		var isolation *sim.IsolationDistribution
		if stc.Isolation != nil {
			isolation = &sim.IsolationDistribution{
				Lengths: stc.Isolation.Lengths,
				Props:   stc.Isolation.Props,
			}
		}
		strategy, err := sim.NewStrategy(name, stc.PeriodLengths, stRegimes,
			stc.TransmissionMultipliers, arrival, isolation)
		if err != nil {
			return nil, err
		}
		strategies[name] = strategy
	}
	return strategies, nil
}
