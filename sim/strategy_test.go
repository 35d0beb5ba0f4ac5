package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRegime builds a uniform testing regime over numMetaGroups
// meta-groups for strategy construction in tests.
func newTestRegime(t *testing.T, numMetaGroups int, testsPerWeek float64) *TestingRegime {
	t.Helper()
	test, err := NewTest("pcr", 0.8, 1, 1)
	require.NoError(t, err)
	tests := make([]Test, numMetaGroups)
	freqs := make([]float64, numMetaGroups)
	for i := range tests {
		tests[i] = test
		freqs[i] = testsPerWeek
	}
	regime, err := NewTestingRegime("uniform", tests, freqs)
	require.NoError(t, err)
	return regime
}

func TestNewStrategy_Validation(t *testing.T) {
	regime := newTestRegime(t, 2, 1)

	_, err := NewStrategy("s", []int{5}, []*TestingRegime{regime, regime}, nil, nil, nil)
	assert.Error(t, err, "period count mismatch must fail")

	_, err = NewStrategy("s", nil, nil, nil, nil, nil)
	assert.Error(t, err, "a strategy needs at least one period")

	_, err = NewStrategy("s", []int{0}, []*TestingRegime{regime}, nil, nil, nil)
	assert.Error(t, err, "non-positive period length must fail")

	_, err = NewStrategy("s", []int{5}, []*TestingRegime{regime}, []float64{1, 1}, nil, nil)
	assert.Error(t, err, "multiplier count mismatch must fail")

	s, err := NewStrategy("s", []int{5, 15}, []*TestingRegime{regime, regime}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, s.Horizon())
	assert.Equal(t, 2, s.NumPeriods())
	assert.Equal(t, []float64{1, 1}, s.TransmissionMultipliers, "nil multipliers default to 1")
}

func TestNewStrategy_ArrivalDiscoveryExceedsOne(t *testing.T) {
	regime := newTestRegime(t, 1, 1)
	pre, err := NewTest("pre", 1, 0, 1)
	require.NoError(t, err)
	arr, err := NewTest("arrival", 1, 0, 1)
	require.NoError(t, err)
	arrival, err := NewArrivalTestingRegime([]Test{pre}, []Test{arr})
	require.NoError(t, err)

	// Perfect pre-departure catches everyone, arrival adds nothing, combined
	// discovery stays at exactly 1.
	_, err = NewStrategy("s", []int{5}, []*TestingRegime{regime}, nil, arrival, nil)
	assert.NoError(t, err)
}

func TestStrategy_ArrivalSplit(t *testing.T) {
	regime := newTestRegime(t, 3, 1)

	pre, err := NewTest("pre", 0.5, 0, 0.6)
	require.NoError(t, err)
	arr, err := NewTest("arrival", 0.8, 0, 0.7)
	require.NoError(t, err)
	arrival, err := NewArrivalTestingRegime([]Test{pre, pre, pre}, []Test{arr, arr, arr})
	require.NoError(t, err)

	s, err := NewStrategy("arrival", []int{20}, []*TestingRegime{regime}, nil, arrival, nil)
	require.NoError(t, err)

	active := []float64{1, 3, 2}
	recovered := []float64{10, 20, 30}
	pctRecDisc := []float64{0.5, 0.5, 0.5}

	// pre-departure catches 0.3, arrival catches (1-0.3)*0.56 = 0.392, so
	// 0.308 of each active infection stays in circulation.
	i0 := s.GetInitialInfections(active)
	assert.InDeltaSlice(t, []float64{0.308, 0.924, 0.616}, i0, 1e-12)

	r0 := s.GetInitialRecovered(recovered, active)
	assert.InDeltaSlice(t, []float64{10.692, 22.076, 31.384}, r0, 1e-12)

	d0 := s.GetInitialDiscovered(recovered, pctRecDisc, active)
	h0 := s.GetInitialHidden(recovered, pctRecDisc, active)
	for g := range active {
		// D0 + H0 must partition I0 + R0 exactly.
		assert.InDelta(t, active[g]+recovered[g], d0[g]+h0[g], 1e-12, "group %d", g)
	}

	arrived := s.GetArrivalDiscovered(recovered, active, []float64{0.1, 0.1, 0.1})
	assert.InDelta(t, 1*0.392+10*0.1, arrived[0], 1e-12)
}

func TestStrategy_NoArrivalRegimeLeavesStateUntouched(t *testing.T) {
	regime := newTestRegime(t, 2, 0)
	s, err := NewStrategy("no-arrival", []int{10}, []*TestingRegime{regime}, nil, nil, nil)
	require.NoError(t, err)

	active := []float64{2, 4}
	recovered := []float64{8, 6}

	assert.InDeltaSlice(t, active, s.GetInitialInfections(active), 1e-12)
	assert.InDeltaSlice(t, recovered, s.GetInitialRecovered(recovered, active), 1e-12)

	d0 := s.GetInitialDiscovered(recovered, []float64{0, 0}, active)
	assert.InDeltaSlice(t, []float64{0, 0}, d0, 1e-12)
	h0 := s.GetInitialHidden(recovered, []float64{0, 0}, active)
	assert.InDeltaSlice(t, []float64{10, 10}, h0, 1e-12)
}
