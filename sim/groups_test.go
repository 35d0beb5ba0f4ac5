package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNewMetaGroup_Validation(t *testing.T) {
	_, err := NewMetaGroup("UG", []float64{10, 20}, []float64{1})
	assert.Error(t, err, "mismatched lengths must fail")

	_, err = NewMetaGroup("UG", []float64{10, -1}, []float64{1, 2})
	assert.Error(t, err, "negative population must fail")

	_, err = NewMetaGroup("UG", []float64{10, 20}, []float64{2, 2})
	assert.Error(t, err, "contact units must be strictly increasing")

	_, err = NewMetaGroup("UG", []float64{10, 20, 30}, []float64{0, 1, 2})
	assert.NoError(t, err, "a zero-contact first group is allowed")
}

func TestNewMetaGroupFromTruncatedPareto(t *testing.T) {
	mg, err := NewMetaGroupFromTruncatedPareto("UG", 6000, 1.5, 8)
	require.NoError(t, err)

	assert.Equal(t, 8, mg.K())
	assert.InDelta(t, 6000, mg.TotalPop(), 1e-9, "group populations must sum to the meta-group total")
	for k, c := range mg.ContactUnits {
		assert.Equal(t, float64(k+1), c)
	}
	// A Pareto split concentrates mass at low contact levels.
	for k := 1; k < mg.K(); k++ {
		assert.Less(t, mg.Pop[k], mg.Pop[k-1])
	}
}

func TestMetaGroupInfectionMatrix_WellMixed(t *testing.T) {
	mg, err := NewMetaGroup("UG", []float64{30, 30, 40}, []float64{1, 2, 3})
	require.NoError(t, err)

	m := mg.InfectionMatrix(2)

	// marginal contact = pop*contacts / sum(pop*contacts) = [30, 60, 120]/210
	total := 30.0*1 + 30*2 + 40*3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 2 * mg.ContactUnits[i] * (mg.Pop[j] * mg.ContactUnits[j] / total)
			assert.InDelta(t, want, m.At(i, j), 1e-12, "entry (%d,%d)", i, j)
		}
	}
}

func newTwoMetaGroupPopulation(t *testing.T) *Population {
	t.Helper()
	ug, err := NewMetaGroup("UG", []float64{60, 40}, []float64{1, 2})
	require.NoError(t, err)
	gr, err := NewMetaGroup("GR", []float64{50, 30, 20}, []float64{1, 2, 3})
	require.NoError(t, err)
	p, err := NewPopulation([]*MetaGroup{ug, gr},
		mat.NewDense(2, 2, []float64{0.8, 0.2, 0.3, 0.7}))
	require.NoError(t, err)
	return p
}

func TestNewPopulation_Validation(t *testing.T) {
	ug, err := NewMetaGroup("UG", []float64{60, 40}, []float64{1, 2})
	require.NoError(t, err)

	_, err = NewPopulation([]*MetaGroup{ug}, mat.NewDense(1, 2, []float64{0.5, 0.5}))
	assert.Error(t, err, "non-square mixing matrix must fail")

	_, err = NewPopulation([]*MetaGroup{ug}, mat.NewDense(2, 2, []float64{1, 0, 0, 1}))
	assert.Error(t, err, "mixing matrix size must match the number of meta-groups")

	_, err = NewPopulation(nil, mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err, "a population needs at least one meta-group")
}

func TestPopulation_GroupRangeAndK(t *testing.T) {
	p := newTwoMetaGroupPopulation(t)

	assert.Equal(t, 5, p.K())
	lo, hi, err := p.GroupRange("UG")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, []int{lo, hi})
	lo, hi, err = p.GroupRange("GR")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, []int{lo, hi})

	_, _, err = p.GroupRange("STAFF")
	assert.Error(t, err)
}

func TestPopulationInfectionMatrix_SingleMetaGroupReducesToWellMixed(t *testing.T) {
	mg, err := NewMetaGroup("UG", []float64{30, 30, 40}, []float64{1, 2, 3})
	require.NoError(t, err)
	p, err := NewPopulation([]*MetaGroup{mg}, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)

	got, err := p.InfectionMatrix([]float64{2})
	require.NoError(t, err)
	want := mg.InfectionMatrix(2)

	assert.True(t, mat.EqualApprox(want, got, 1e-12),
		"population with identity mixing must reproduce the well-mixed meta-group matrix")
}

func TestPopulationInfectionMatrix_CrossMetaGroupEntry(t *testing.T) {
	p := newTwoMetaGroupPopulation(t)

	m, err := p.InfectionMatrix([]float64{1.5, 0.5})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 5, c)

	// Source: UG group 1 (contact units 2). Exposed: GR group 2 (flattened
	// index 4). GR contact-weighted total = 50*1 + 30*2 + 20*3 = 170.
	want := 2.0 * 1.5 * 0.2 * (20.0 * 3 / 170.0)
	assert.InDelta(t, want, m.At(1, 4), 1e-12)

	_, err = p.InfectionMatrix([]float64{1.5})
	assert.Error(t, err, "per-meta-group vector of the wrong length must fail")
}

func TestPopulationOutsideRate_PopulationShare(t *testing.T) {
	p := newTwoMetaGroupPopulation(t)

	got, err := p.OutsideRate([]float64{10, 5})
	require.NoError(t, err)

	// Outside exposure is split by population share, not contact-weighted.
	want := []float64{10 * 0.6, 10 * 0.4, 5 * 0.5, 5 * 0.3, 5 * 0.2}
	assert.InDeltaSlice(t, want, got, 1e-12)

	_, err = p.OutsideRate([]float64{10})
	assert.Error(t, err)
}

func TestPopulationFlattenPerMetaGroup(t *testing.T) {
	p := newTwoMetaGroupPopulation(t)

	got, err := p.FlattenPerMetaGroup([]float64{0.25, 0.75})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.25, 0.75, 0.75, 0.75}, got)
}

func TestGetInitSIR_WeightPolicies(t *testing.T) {
	mg, err := NewMetaGroup("UG", []float64{60, 40}, []float64{1, 3})
	require.NoError(t, err)

	s0, i0, r0, err := mg.GetInitSIR(10, 20, WeightPopulation)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6, 4}, i0, 1e-12)
	assert.InDeltaSlice(t, []float64{12, 8}, r0, 1e-12)
	assert.InDeltaSlice(t, []float64{42, 28}, s0, 1e-12)

	// population x contacts: weights [60, 120]/180
	_, i0, _, err = mg.GetInitSIR(9, 0, WeightPopulationTimesContacts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 6}, i0, 1e-12)

	// most_social: everything lands in the highest-contact group
	_, i0, r0, err = mg.GetInitSIR(10, 20, WeightMostSocial)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 10}, i0, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 20}, r0, 1e-12)

	_, _, _, err = mg.GetInitSIR(10, 20, WeightPolicy("bogus"))
	assert.Error(t, err, "unknown weight policy must fail")
}

func TestGetInitSIR_SusceptibleClampedAtZero(t *testing.T) {
	mg, err := NewMetaGroup("UG", []float64{10, 10}, []float64{1, 2})
	require.NoError(t, err)

	s0, _, _, err := mg.GetInitSIR(30, 10, WeightPopulation)
	require.NoError(t, err)
	for g, s := range s0 {
		assert.GreaterOrEqual(t, s, 0.0, "S0[%d]", g)
	}
}

func TestGetInitSIRandDH_PartitionSums(t *testing.T) {
	p := newTwoMetaGroupPopulation(t)

	infections := []float64{4, 2}
	recovered := []float64{10, 5}
	discovered := []float64{12, 6}
	hidden := []float64{2, 1}

	s0, i0, r0, d0, h0, err := p.GetInitSIRandDH(infections, recovered, discovered, hidden, WeightPopulation)
	require.NoError(t, err)

	assert.Len(t, s0, p.K())
	assert.InDelta(t, 6, floats.Sum(i0), 1e-12)
	assert.InDelta(t, 15, floats.Sum(r0), 1e-12)
	assert.InDelta(t, 18, floats.Sum(d0), 1e-12)
	assert.InDelta(t, 3, floats.Sum(h0), 1e-12)
	// Discovery partition holds group by group.
	for g := 0; g < p.K(); g++ {
		assert.InDelta(t, i0[g]+r0[g], d0[g]+h0[g], 1e-12, "group %d", g)
	}
}
