package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/epidemic-sim/epidemic-sim/sim"
)

// PriorConfig mirrors one entry of the prior YAML file: a truncated normal
// over a named scenario parameter.
type PriorConfig struct {
	Mu  float64 `yaml:"mu"`
	Std float64 `yaml:"std"`
	A   float64 `yaml:"a"`
	B   float64 `yaml:"b"`
}

// GetPriors loads a prior file into the form ScenarioFamily consumes.
func GetPriors(path string) (map[string]sim.TruncNormPrior, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prior config: %w", err)
	}
	var cfg map[string]PriorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing prior config: %w", err)
	}
	priors := make(map[string]sim.TruncNormPrior, len(cfg))
	for name, p := range cfg {
		if p.Std < 0 {
			return nil, fmt.Errorf("prior %q: negative std %f", name, p.Std)
		}
		if p.A > p.B {
			return nil, fmt.Errorf("prior %q: empty truncation interval [%f, %f]", name, p.A, p.B)
		}
		priors[name] = sim.TruncNormPrior{Mu: p.Mu, Std: p.Std, A: p.A, B: p.B}
	}
	return priors, nil
}
