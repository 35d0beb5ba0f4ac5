// sim/testing.go
//
// Surveillance test definitions and testing regimes. A Test records the
// characteristics of a diagnostic test. A TestingRegime assigns a test and a
// testing frequency to each meta-group and derives the per-meta-group
// parameters the simulator consumes. An ArrivalTestingRegime models one-time
// pre-departure and arrival testing.

package sim

import (
	"fmt"
	"math"
)

// Test is an immutable record of a diagnostic test's characteristics.
type Test struct {
	Name        string
	Sensitivity float64 // probability of positive given infectious
	TestDelay   float64 // days between sample and result
	Compliance  float64 // fraction of assigned tests actually taken
}

// NewTest validates and constructs a Test.
func NewTest(name string, sensitivity, testDelay, compliance float64) (Test, error) {
	if sensitivity < 0 || sensitivity > 1 {
		return Test{}, fmt.Errorf("test %q: sensitivity %f outside [0,1]", name, sensitivity)
	}
	if testDelay < 0 {
		return Test{}, fmt.Errorf("test %q: negative test delay %f", name, testDelay)
	}
	if compliance < 0 || compliance > 1 {
		return Test{}, fmt.Errorf("test %q: compliance %f outside [0,1]", name, compliance)
	}
	return Test{Name: name, Sensitivity: sensitivity, TestDelay: testDelay, Compliance: compliance}, nil
}

// TrueSensitivity is the effective population-level detection rate:
// sensitivity discounted by compliance.
func (t Test) TrueSensitivity() float64 {
	return t.Sensitivity * t.Compliance
}

// DiscoveryPolicy names the formula used for the infection discovery
// fraction of meta-groups with no surveillance testing, where discovery
// comes only from symptomatic self-reporting.
type DiscoveryPolicy string

const (
	// DiscoverySymptomaticTimesSensitivity discounts the symptomatic rate by
	// the sensitivity of the test a self-reporting person would take.
	DiscoverySymptomaticTimesSensitivity DiscoveryPolicy = "symptomatic x sensitivity"
	// DiscoverySymptomatic uses the plain symptomatic rate.
	DiscoverySymptomatic DiscoveryPolicy = "symptomatic"
)

// TestingRegime assigns a surveillance test and a testing frequency (tests
// per week, 0 meaning no surveillance) to each meta-group. Its derived
// vectors are pure functions of the inputs.
type TestingRegime struct {
	Name         string
	Tests        []Test    // per meta-group
	TestsPerWeek []float64 // per meta-group; 0 = no surveillance
	// Discovery selects the no-surveillance infection-discovery formula.
	// Defaults to DiscoverySymptomaticTimesSensitivity.
	Discovery DiscoveryPolicy
}

// NewTestingRegime validates and constructs a testing regime.
func NewTestingRegime(name string, tests []Test, testsPerWeek []float64) (*TestingRegime, error) {
	if len(tests) != len(testsPerWeek) {
		return nil, fmt.Errorf("testing regime %q: %d tests but %d frequencies", name, len(tests), len(testsPerWeek))
	}
	if len(tests) == 0 {
		return nil, fmt.Errorf("testing regime %q: no meta-groups", name)
	}
	for i, f := range testsPerWeek {
		if f < 0 {
			return nil, fmt.Errorf("testing regime %q: negative test frequency %f for meta-group %d", name, f, i)
		}
	}
	return &TestingRegime{
		Name:         name,
		Tests:        tests,
		TestsPerWeek: testsPerWeek,
		Discovery:    DiscoverySymptomaticTimesSensitivity,
	}, nil
}

// daysBetweenTests converts a weekly frequency into a test interval in days.
func daysBetweenTests(testsPerWeek float64) float64 {
	if testsPerWeek == 0 {
		return math.Inf(1)
	}
	return 7 / testsPerWeek
}

// GetDaysInfectious returns the expected number of days a newly infected
// person in each meta-group remains infectious and free, given the
// meta-group's assigned test and frequency.
func (r *TestingRegime) GetDaysInfectious(maxInfectiousDays float64) []float64 {
	ret := make([]float64, len(r.Tests))
	for i, t := range r.Tests {
		ret[i] = DaysInfectious(daysBetweenTests(r.TestsPerWeek[i]), t.TestDelay, t.Sensitivity, maxInfectiousDays)
	}
	return ret
}

// GetInfectionDiscoveryFrac returns the fraction of new infections discovered
// in the generation they occur, per meta-group. Under surveillance the
// fraction is the test's true sensitivity; without surveillance it is
// governed by symptomatic self-reporting via the regime's DiscoveryPolicy.
func (r *TestingRegime) GetInfectionDiscoveryFrac(symptomaticRate float64) []float64 {
	ret := make([]float64, len(r.Tests))
	for i, t := range r.Tests {
		if r.TestsPerWeek[i] == 0 {
			if r.Discovery == DiscoverySymptomatic {
				ret[i] = symptomaticRate
			} else {
				ret[i] = symptomaticRate * t.Sensitivity
			}
		} else {
			ret[i] = t.TrueSensitivity()
		}
	}
	return ret
}

// GetRecoveredDiscoveryFrac returns the per-generation fraction of hidden
// recovered people who become discovered, per meta-group. Without
// surveillance this is the ambient voluntary testing rate; under
// surveillance it is the test's true sensitivity.
func (r *TestingRegime) GetRecoveredDiscoveryFrac(noSurveillanceTestRate []float64) ([]float64, error) {
	if len(noSurveillanceTestRate) != len(r.Tests) {
		return nil, fmt.Errorf("testing regime %q: %d no-surveillance test rates but %d meta-groups",
			r.Name, len(noSurveillanceTestRate), len(r.Tests))
	}
	ret := make([]float64, len(r.Tests))
	for i, t := range r.Tests {
		if r.TestsPerWeek[i] == 0 {
			ret[i] = noSurveillanceTestRate[i]
		} else {
			ret[i] = t.TrueSensitivity()
		}
	}
	return ret, nil
}

// ArrivalTestingRegime models one-time pre-departure and arrival testing,
// distinct from recurring surveillance. It reports what fraction of active
// infections are discovered in each phase, which drives isolation planning
// for arrival positives.
type ArrivalTestingRegime struct {
	PreDepartureTests []Test // per meta-group
	ArrivalTests      []Test // per meta-group
}

// NewArrivalTestingRegime validates and constructs an arrival testing regime.
func NewArrivalTestingRegime(preDeparture, arrival []Test) (*ArrivalTestingRegime, error) {
	if len(preDeparture) != len(arrival) {
		return nil, fmt.Errorf("arrival testing regime: %d pre-departure tests but %d arrival tests", len(preDeparture), len(arrival))
	}
	if len(preDeparture) == 0 {
		return nil, fmt.Errorf("arrival testing regime: no meta-groups")
	}
	return &ArrivalTestingRegime{PreDepartureTests: preDeparture, ArrivalTests: arrival}, nil
}

// PctDiscoveredInPreDeparture returns the fraction of active infections
// discovered by pre-departure testing, per meta-group.
func (a *ArrivalTestingRegime) PctDiscoveredInPreDeparture() []float64 {
	ret := make([]float64, len(a.PreDepartureTests))
	for i, t := range a.PreDepartureTests {
		ret[i] = t.TrueSensitivity()
	}
	return ret
}

// PctDiscoveredInArrivalTest returns the fraction of active infections
// discovered by the arrival test, per meta-group. The arrival test applies
// only to the remainder not already caught pre-departure.
func (a *ArrivalTestingRegime) PctDiscoveredInArrivalTest() []float64 {
	pre := a.PctDiscoveredInPreDeparture()
	ret := make([]float64, len(a.ArrivalTests))
	for i, t := range a.ArrivalTests {
		ret[i] = (1 - pre[i]) * t.TrueSensitivity()
	}
	return ret
}
