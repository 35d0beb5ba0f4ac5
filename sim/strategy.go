// sim/strategy.go
//
// A Strategy sequences testing regimes and transmission multipliers over
// named periods of the simulation horizon, and derives the initial
// discovered/hidden split from arrival testing outcomes.

package sim

import "fmt"

// IsolationDistribution describes how long discovered positives isolate.
// Props[i] is the probability that a positive isolates for Lengths[i] days.
type IsolationDistribution struct {
	Lengths []float64 // isolation lengths in days, ascending
	Props   []float64 // probabilities, summing to 1
}

// Strategy is a testing strategy: an optional arrival testing regime and a
// sequence of (testing regime, transmission multiplier, period length)
// tuples covering the simulation horizon.
type Strategy struct {
	Name                    string
	PeriodLengths           []int // generations per period
	TestingRegimes          []*TestingRegime
	TransmissionMultipliers []float64
	ArrivalRegime           *ArrivalTestingRegime
	Isolation               *IsolationDistribution

	pctPreDeparture []float64 // per meta-group; zeros when no arrival regime
	pctArrival      []float64
}

// NewStrategy validates and constructs a strategy. A nil
// transmissionMultipliers defaults every period to 1. The combined arrival
// discovery percentage (pre-departure + arrival) must not exceed 1 for any
// meta-group.
func NewStrategy(name string, periodLengths []int, regimes []*TestingRegime,
	transmissionMultipliers []float64, arrival *ArrivalTestingRegime,
	isolation *IsolationDistribution) (*Strategy, error) {

	if len(periodLengths) != len(regimes) {
		return nil, fmt.Errorf("strategy %q: %d period lengths but %d testing regimes", name, len(periodLengths), len(regimes))
	}
	if len(periodLengths) == 0 {
		return nil, fmt.Errorf("strategy %q: no periods", name)
	}
	for i, l := range periodLengths {
		if l < 1 {
			return nil, fmt.Errorf("strategy %q: period %d has non-positive length %d", name, i, l)
		}
	}
	if transmissionMultipliers == nil {
		transmissionMultipliers = make([]float64, len(periodLengths))
		for i := range transmissionMultipliers {
			transmissionMultipliers[i] = 1
		}
	}
	if len(transmissionMultipliers) != len(periodLengths) {
		return nil, fmt.Errorf("strategy %q: %d transmission multipliers but %d periods", name, len(transmissionMultipliers), len(periodLengths))
	}

	numMetaGroups := len(regimes[0].Tests)
	pctPre := make([]float64, numMetaGroups)
	pctArr := make([]float64, numMetaGroups)
	if arrival != nil {
		pctPre = arrival.PctDiscoveredInPreDeparture()
		pctArr = arrival.PctDiscoveredInArrivalTest()
		if len(pctPre) != numMetaGroups {
			return nil, fmt.Errorf("strategy %q: arrival regime covers %d meta-groups but testing regimes cover %d", name, len(pctPre), numMetaGroups)
		}
		for i := range pctPre {
			if pctPre[i]+pctArr[i] > 1 {
				return nil, fmt.Errorf("strategy %q: combined arrival discovery %f exceeds 1 for meta-group %d", name, pctPre[i]+pctArr[i], i)
			}
		}
	}

	return &Strategy{
		Name:                    name,
		PeriodLengths:           periodLengths,
		TestingRegimes:          regimes,
		TransmissionMultipliers: transmissionMultipliers,
		ArrivalRegime:           arrival,
		Isolation:               isolation,
		pctPreDeparture:         pctPre,
		pctArrival:              pctArr,
	}, nil
}

// Horizon returns the total number of generations covered by the strategy's
// periods.
func (s *Strategy) Horizon() int {
	total := 0
	for _, l := range s.PeriodLengths {
		total += l
	}
	return total
}

// NumPeriods returns the number of periods.
func (s *Strategy) NumPeriods() int {
	return len(s.PeriodLengths)
}

// pctDiscovered returns the combined per-meta-group fraction of active
// infections discovered across pre-departure and arrival testing.
func (s *Strategy) pctDiscovered() []float64 {
	ret := make([]float64, len(s.pctPreDeparture))
	for i := range ret {
		ret[i] = s.pctPreDeparture[i] + s.pctArrival[i]
	}
	return ret
}

// GetInitialInfections returns the active infections still circulating after
// arrival testing: the undiscovered remainder per meta-group.
func (s *Strategy) GetInitialInfections(activeInfections []float64) []float64 {
	pct := s.pctDiscovered()
	ret := make([]float64, len(activeInfections))
	for i, a := range activeInfections {
		ret[i] = (1 - pct[i]) * a
	}
	return ret
}

// GetInitialRecovered returns the initial recovered counts per meta-group.
// Active infections discovered during arrival are isolated and effectively
// removed from circulation, so they join the recovered bucket.
func (s *Strategy) GetInitialRecovered(recovered, activeInfections []float64) []float64 {
	pct := s.pctDiscovered()
	ret := make([]float64, len(recovered))
	for i := range ret {
		ret[i] = recovered[i] + pct[i]*activeInfections[i]
	}
	return ret
}

// GetInitialDiscovered returns the initial discovered counts per meta-group:
// arrival-discovered actives plus the already-known fraction of the
// recovered population.
func (s *Strategy) GetInitialDiscovered(recovered, pctRecoveredDiscovered, activeInfections []float64) []float64 {
	pct := s.pctDiscovered()
	ret := make([]float64, len(recovered))
	for i := range ret {
		ret[i] = pct[i]*activeInfections[i] + pctRecoveredDiscovered[i]*recovered[i]
	}
	return ret
}

// GetInitialHidden returns the initial hidden counts per meta-group:
// undiscovered actives plus the unknown fraction of the recovered
// population. Together with GetInitialDiscovered this partitions
// I0 + R0 exactly.
func (s *Strategy) GetInitialHidden(recovered, pctRecoveredDiscovered, activeInfections []float64) []float64 {
	pct := s.pctDiscovered()
	ret := make([]float64, len(recovered))
	for i := range ret {
		ret[i] = (1-pct[i])*activeInfections[i] + (1-pctRecoveredDiscovered[i])*recovered[i]
	}
	return ret
}

// GetArrivalDiscovered returns the number of people discovered during
// arrival testing per meta-group, including previously recovered people who
// first learn their status from the arrival test.
func (s *Strategy) GetArrivalDiscovered(recovered, activeInfections, pctRecoveredDiscoveredArrival []float64) []float64 {
	ret := make([]float64, len(recovered))
	for i := range ret {
		ret[i] = activeInfections[i]*s.pctArrival[i] + recovered[i]*pctRecoveredDiscoveredArrival[i]
	}
	return ret
}
