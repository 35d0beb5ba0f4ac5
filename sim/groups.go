// sim/groups.go
//
// Heterogeneous population manager. A MetaGroup describes a collection of
// people whose epidemiological parameters are similar but whose amount of
// social contact varies; it is subdivided into contact-level groups. A
// Population is an ordered collection of meta-groups together with a
// row-stochastic meta-group mixing matrix. Testing strategies are set at the
// granularity of meta-groups; the simulator operates on the flattened group
// space owned by the Population.

package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WeightPolicy selects how meta-group level initial counts are distributed
// across the contact-level groups within the meta-group.
type WeightPolicy string

const (
	// WeightPopulation makes each person equally likely to be infected.
	WeightPopulation WeightPolicy = "population"
	// WeightPopulationTimesContacts makes a person's probability of being
	// infected proportional to their amount of contact.
	WeightPopulationTimesContacts WeightPolicy = "population x contacts"
	// WeightMostSocial places all initial counts in the most social group.
	WeightMostSocial WeightPolicy = "most_social"
)

// rowStochasticTol is the tolerance for warning about mixing matrix rows
// that do not sum to 1.
const rowStochasticTol = 1e-9

// MetaGroup is a collection of contact-level groups. Within a meta-group the
// population is assumed well-mixed: group i's amount of interaction with
// group j is proportional to group j's share of the contact-weighted
// population and to group i's contact units.
type MetaGroup struct {
	Name         string
	Pop          []float64 // population count per contact-level group
	ContactUnits []float64 // strictly increasing contact units per group
}

// NewMetaGroup validates and constructs a meta-group.
func NewMetaGroup(name string, pop, contactUnits []float64) (*MetaGroup, error) {
	if len(pop) != len(contactUnits) {
		return nil, fmt.Errorf("meta-group %q: %d population counts but %d contact units", name, len(pop), len(contactUnits))
	}
	if len(pop) == 0 {
		return nil, fmt.Errorf("meta-group %q: no groups", name)
	}
	for i, p := range pop {
		if p < 0 {
			return nil, fmt.Errorf("meta-group %q: negative population %f in group %d", name, p, i)
		}
	}
	for i, c := range contactUnits {
		if c < 0 {
			return nil, fmt.Errorf("meta-group %q: negative contact units %f in group %d", name, c, i)
		}
		if i > 0 && c <= contactUnits[i-1] {
			return nil, fmt.Errorf("meta-group %q: contact units must be strictly increasing, got %f after %f", name, c, contactUnits[i-1])
		}
	}
	return &MetaGroup{Name: name, Pop: pop, ContactUnits: contactUnits}, nil
}

// NewMetaGroupFromTruncatedPareto constructs a meta-group whose population is
// split across contact levels 1..ub according to a truncated Pareto
// distribution with shape alpha.
func NewMetaGroupFromTruncatedPareto(name string, population, alpha float64, ub int) (*MetaGroup, error) {
	if ub < 1 {
		return nil, fmt.Errorf("meta-group %q: pareto truncation point must be >= 1, got %d", name, ub)
	}
	if population < 0 {
		return nil, fmt.Errorf("meta-group %q: negative population %f", name, population)
	}
	dist := distuv.Pareto{Xm: 1, Alpha: alpha}
	popFrac := make([]float64, ub)
	for k := 1; k <= ub; k++ {
		popFrac[k-1] = dist.Prob(float64(k))
	}
	total := floats.Sum(popFrac)
	pop := make([]float64, ub)
	contactUnits := make([]float64, ub)
	for k := 0; k < ub; k++ {
		pop[k] = population * popFrac[k] / total
		contactUnits[k] = float64(k + 1)
	}
	return NewMetaGroup(name, pop, contactUnits)
}

// K returns the number of contact-level groups in the meta-group.
func (mg *MetaGroup) K() int {
	return len(mg.Pop)
}

// TotalPop returns the total population of the meta-group.
func (mg *MetaGroup) TotalPop() float64 {
	return floats.Sum(mg.Pop)
}

// marginalContact returns each group's share of the meta-group's
// contact-weighted population.
func (mg *MetaGroup) marginalContact() []float64 {
	w := make([]float64, mg.K())
	for i := range w {
		w[i] = mg.Pop[i] * mg.ContactUnits[i]
	}
	total := floats.Sum(w)
	if total == 0 {
		return w
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// InfectionMatrix returns the infection matrix among this meta-group's own
// groups, assuming the meta-group is well-mixed. Entry (i,j) is the expected
// number of secondary infections an infectious person in group i creates in
// group j per generation.
func (mg *MetaGroup) InfectionMatrix(infectionsPerContactUnit float64) *mat.Dense {
	marginal := mg.marginalContact()
	k := mg.K()
	m := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			m.Set(i, j, infectionsPerContactUnit*mg.ContactUnits[i]*marginal[j])
		}
	}
	return m
}

// weights returns the normalized weight vector for the given policy.
func (mg *MetaGroup) weights(policy WeightPolicy) ([]float64, error) {
	w := make([]float64, mg.K())
	switch policy {
	case WeightPopulation:
		copy(w, mg.Pop)
	case WeightPopulationTimesContacts:
		for i := range w {
			w[i] = mg.Pop[i] * mg.ContactUnits[i]
		}
	case WeightMostSocial:
		w[mg.K()-1] = 1
	default:
		return nil, fmt.Errorf("unsupported weight policy %q", policy)
	}
	total := floats.Sum(w)
	if total == 0 {
		return nil, fmt.Errorf("meta-group %q: weight policy %q yields zero total weight", mg.Name, policy)
	}
	for i := range w {
		w[i] /= total
	}
	return w, nil
}

// GetInitSIR distributes meta-group level initial infection and recovered
// counts across the contact-level groups according to the weight policy.
// Susceptible counts are clamped at zero.
func (mg *MetaGroup) GetInitSIR(initInfections, initRecovered float64, policy WeightPolicy) (s0, i0, r0 []float64, err error) {
	w, err := mg.weights(policy)
	if err != nil {
		return nil, nil, nil, err
	}
	k := mg.K()
	s0 = make([]float64, k)
	i0 = make([]float64, k)
	r0 = make([]float64, k)
	for g := 0; g < k; g++ {
		i0[g] = initInfections * w[g]
		r0[g] = initRecovered * w[g]
		s0[g] = math.Max(mg.Pop[g]-r0[g]-i0[g], 0)
	}
	return s0, i0, r0, nil
}

// Population is an ordered collection of meta-groups plus a meta-group mixing
// matrix. The mixing matrix entry (a,b) is the conditional probability that a
// contact originating in meta-group a lands in meta-group b; rows must sum
// to 1. The Population owns the flattened group space: each meta-group is
// assigned a contiguous index range at construction and the mapping never
// changes afterwards.
type Population struct {
	metaGroups []*MetaGroup
	mixing     *mat.Dense
	offsets    []int // offsets[i] is the first flattened index of meta-group i; len = NumMetaGroups()+1
}

// NewPopulation validates the mixing matrix shape and builds the flattened
// index arena. Rows of the mixing matrix that do not sum to 1 produce a
// warning rather than an error.
func NewPopulation(metaGroups []*MetaGroup, mixing *mat.Dense) (*Population, error) {
	if len(metaGroups) == 0 {
		return nil, fmt.Errorf("population: no meta-groups")
	}
	r, c := mixing.Dims()
	if r != c {
		return nil, fmt.Errorf("population: mixing matrix must be square, got %dx%d", r, c)
	}
	if r != len(metaGroups) {
		return nil, fmt.Errorf("population: mixing matrix is %dx%d but there are %d meta-groups", r, c, len(metaGroups))
	}
	for a := 0; a < r; a++ {
		sum := 0.0
		for b := 0; b < c; b++ {
			sum += mixing.At(a, b)
		}
		if math.Abs(sum-1) > rowStochasticTol {
			logrus.Warnf("population: mixing matrix row %d (%s) sums to %f, expected 1", a, metaGroups[a].Name, sum)
		}
	}

	offsets := make([]int, len(metaGroups)+1)
	for i, mg := range metaGroups {
		offsets[i+1] = offsets[i] + mg.K()
	}
	return &Population{metaGroups: metaGroups, mixing: mixing, offsets: offsets}, nil
}

// K returns the total number of flattened contact-level groups.
func (p *Population) K() int {
	return p.offsets[len(p.metaGroups)]
}

// NumMetaGroups returns the number of meta-groups.
func (p *Population) NumMetaGroups() int {
	return len(p.metaGroups)
}

// MetaGroups returns the ordered meta-groups.
func (p *Population) MetaGroups() []*MetaGroup {
	return p.metaGroups
}

// MetaGroupNames returns the meta-group names in order.
func (p *Population) MetaGroupNames() []string {
	names := make([]string, len(p.metaGroups))
	for i, mg := range p.metaGroups {
		names[i] = mg.Name
	}
	return names
}

// GroupRange returns the half-open flattened index range [lo, hi) of the
// named meta-group.
func (p *Population) GroupRange(name string) (lo, hi int, err error) {
	for i, mg := range p.metaGroups {
		if mg.Name == name {
			return p.offsets[i], p.offsets[i+1], nil
		}
	}
	return 0, 0, fmt.Errorf("population: unknown meta-group %q", name)
}

// checkPerMetaGroup validates that a vector has one entry per meta-group.
func (p *Population) checkPerMetaGroup(what string, v []float64) error {
	if len(v) != len(p.metaGroups) {
		return fmt.Errorf("population: %s has %d entries but there are %d meta-groups", what, len(v), len(p.metaGroups))
	}
	return nil
}

// InfectionMatrix returns the K x K infection-rate matrix given a
// per-meta-group rate of secondary infections per contact unit. For a source
// group i in meta-group a and an exposed group j in meta-group b, the rate is
//
//	contactUnits[i] * infectionsPerContactUnit[a] * mixing[a,b] * q
//
// where q is group j's share of meta-group b's contact-weighted population.
// With a single meta-group and identity mixing this reduces exactly to the
// well-mixed MetaGroup.InfectionMatrix.
func (p *Population) InfectionMatrix(infectionsPerContactUnit []float64) (*mat.Dense, error) {
	if err := p.checkPerMetaGroup("infections per contact unit", infectionsPerContactUnit); err != nil {
		return nil, err
	}
	res := mat.NewDense(p.K(), p.K(), nil)
	for a, source := range p.metaGroups {
		for b, exposed := range p.metaGroups {
			marginal := exposed.marginalContact()
			for i := 0; i < source.K(); i++ {
				for j := 0; j < exposed.K(); j++ {
					rate := source.ContactUnits[i] * infectionsPerContactUnit[a] *
						p.mixing.At(a, b) * marginal[j]
					res.Set(p.offsets[a]+i, p.offsets[b]+j, rate)
				}
			}
		}
	}
	return res, nil
}

// OutsideRate distributes a per-meta-group exogenous infection rate across
// that meta-group's flattened groups in proportion to population share.
// Unlike internal spread, outside exposure is not contact-weighted.
func (p *Population) OutsideRate(rates []float64) ([]float64, error) {
	if err := p.checkPerMetaGroup("outside rates", rates); err != nil {
		return nil, err
	}
	res := make([]float64, p.K())
	for a, mg := range p.metaGroups {
		total := mg.TotalPop()
		if total == 0 {
			continue
		}
		for j := 0; j < mg.K(); j++ {
			res[p.offsets[a]+j] = rates[a] * mg.Pop[j] / total
		}
	}
	return res, nil
}

// FlattenPerMetaGroup broadcasts a per-meta-group vector to the flattened
// group space: every group inherits its meta-group's value. Used for
// discovery fractions, which are set at meta-group granularity.
func (p *Population) FlattenPerMetaGroup(vals []float64) ([]float64, error) {
	if err := p.checkPerMetaGroup("per-meta-group vector", vals); err != nil {
		return nil, err
	}
	res := make([]float64, p.K())
	for a, mg := range p.metaGroups {
		for j := 0; j < mg.K(); j++ {
			res[p.offsets[a]+j] = vals[a]
		}
	}
	return res, nil
}

// GetInitSIR distributes per-meta-group initial infection and recovered
// counts across the flattened group space according to the weight policy.
func (p *Population) GetInitSIR(initInfections, initRecovered []float64, policy WeightPolicy) (s0, i0, r0 []float64, err error) {
	if err := p.checkPerMetaGroup("initial infections", initInfections); err != nil {
		return nil, nil, nil, err
	}
	if err := p.checkPerMetaGroup("initial recovered", initRecovered); err != nil {
		return nil, nil, nil, err
	}
	s0 = make([]float64, 0, p.K())
	i0 = make([]float64, 0, p.K())
	r0 = make([]float64, 0, p.K())
	for a, mg := range p.metaGroups {
		s, i, r, err := mg.GetInitSIR(initInfections[a], initRecovered[a], policy)
		if err != nil {
			return nil, nil, nil, err
		}
		s0 = append(s0, s...)
		i0 = append(i0, i...)
		r0 = append(r0, r...)
	}
	return s0, i0, r0, nil
}

// GetInitSIRandDH additionally distributes per-meta-group initial discovered
// and hidden counts with the same weight vector used for infections, keeping
// all five initial vectors on a single partition of the population.
func (p *Population) GetInitSIRandDH(initInfections, initRecovered, initDiscovered, initHidden []float64, policy WeightPolicy) (s0, i0, r0, d0, h0 []float64, err error) {
	s0, i0, r0, err = p.GetInitSIR(initInfections, initRecovered, policy)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if err := p.checkPerMetaGroup("initial discovered", initDiscovered); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	if err := p.checkPerMetaGroup("initial hidden", initHidden); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	d0 = make([]float64, 0, p.K())
	h0 = make([]float64, 0, p.K())
	for a, mg := range p.metaGroups {
		w, err := mg.weights(policy)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		for _, wg := range w {
			d0 = append(d0, initDiscovered[a]*wg)
			h0 = append(h0, initHidden[a]*wg)
		}
	}
	return s0, i0, r0, d0, h0, nil
}
