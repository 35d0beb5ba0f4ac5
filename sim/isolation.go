// sim/isolation.go
//
// Isolation housing demand derived from discovered positives and an
// isolation-length distribution.

package sim

import (
	"fmt"
	"math"
)

// ComputeIsolated returns the number of people in isolation at each
// generation given the number of people newly discovered at each generation.
//
// The intermediate isolationFrac[i] is the fraction of people discovered i
// generations ago who still require isolation in the current generation. For
// example, if 80% of people require isolation for 5 days and 20% for 10
// days with a 4-day generation time, then
//
//	isolationFrac[0] = 1
//	isolationFrac[1] = 0.2*1 + 0.8*(5-4)/4 = 0.4
//	isolationFrac[2] = 0.2*(10-8)/4 = 0.1
//
// The isolated count is the convolution of newlyDiscovered with that kernel.
func ComputeIsolated(newlyDiscovered []float64, generationTime float64, iso *IsolationDistribution) ([]float64, error) {
	if generationTime <= 0 {
		return nil, fmt.Errorf("generation time must be positive, got %f", generationTime)
	}
	if iso == nil || len(iso.Lengths) == 0 {
		return nil, fmt.Errorf("isolation distribution is required")
	}
	if len(iso.Lengths) != len(iso.Props) {
		return nil, fmt.Errorf("isolation distribution has %d lengths but %d proportions", len(iso.Lengths), len(iso.Props))
	}

	isoLen := int(math.Ceil(iso.Lengths[len(iso.Lengths)-1] / generationTime))
	if isoLen < 1 {
		isoLen = 1
	}

	cut01 := func(s float64) float64 {
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	}

	isolationFrac := make([]float64, isoLen)
	isolationFrac[0] = 1
	for i := 1; i < isoLen; i++ {
		for j := range iso.Lengths {
			isolationFrac[i] += iso.Props[j] * cut01((iso.Lengths[j]-generationTime*float64(i))/generationTime)
		}
	}

	isolated := make([]float64, len(newlyDiscovered))
	for t := range newlyDiscovered {
		for i := 0; i < isoLen && i <= t; i++ {
			isolated[t] += isolationFrac[i] * newlyDiscovered[t-i]
		}
	}
	return isolated, nil
}

// Isolated returns the isolation demand over the trajectory using the
// strategy's isolation-length distribution. The demand includes people
// discovered by arrival testing (TotalDiscovered). The discovered series is
// cumulative, so it is differenced into per-generation new discoveries
// before convolving.
func (tr *Trajectory) Isolated(opts MetricOptions) ([]float64, error) {
	if tr.Strategy.Isolation == nil {
		return nil, fmt.Errorf("strategy %q has no isolation distribution", tr.Strategy.Name)
	}
	discovered, err := tr.TotalDiscovered(MetricOptions{MetaGroups: opts.MetaGroups})
	if err != nil {
		return nil, err
	}
	newlyDiscovered := make([]float64, len(discovered))
	newlyDiscovered[0] = discovered[0]
	for t := 1; t < len(discovered); t++ {
		newlyDiscovered[t] = discovered[t] - discovered[t-1]
	}
	return ComputeIsolated(newlyDiscovered, tr.Scenario.GenerationTime, tr.Strategy.Isolation)
}
