package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIsolated_Kernel(t *testing.T) {
	iso := &IsolationDistribution{Lengths: []float64{5, 10}, Props: []float64{0.8, 0.2}}

	// With a 4-day generation time the kernel is [1, 0.4, 0.1]: everyone
	// discovered this generation isolates, 0.2 + 0.8*(5-4)/4 of last
	// generation's discoveries remain, and 0.2*(10-8)/4 from two back.
	got, err := ComputeIsolated([]float64{10, 0, 0, 0}, 4, iso)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 4, 1, 0}, got, 1e-12)
}

func TestComputeIsolated_Convolution(t *testing.T) {
	iso := &IsolationDistribution{Lengths: []float64{5, 10}, Props: []float64{0.8, 0.2}}

	got, err := ComputeIsolated([]float64{10, 20, 5}, 4, iso)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 20 + 4, 5 + 8 + 1}, got, 1e-12)
}

func TestComputeIsolated_Validation(t *testing.T) {
	iso := &IsolationDistribution{Lengths: []float64{5}, Props: []float64{1}}

	_, err := ComputeIsolated([]float64{1}, 0, iso)
	assert.Error(t, err, "non-positive generation time must fail")

	_, err = ComputeIsolated([]float64{1}, 4, nil)
	assert.Error(t, err, "missing distribution must fail")

	_, err = ComputeIsolated([]float64{1}, 4, &IsolationDistribution{Lengths: []float64{5, 10}, Props: []float64{1}})
	assert.Error(t, err, "length/proportion mismatch must fail")
}

func TestTrajectoryIsolated(t *testing.T) {
	sc := newTestScenario(t)
	regime := newTestRegime(t, 2, 2)
	iso := &IsolationDistribution{Lengths: []float64{5, 10}, Props: []float64{0.8, 0.2}}
	strategy, err := NewStrategy("isolating", []int{10}, []*TestingRegime{regime}, nil, nil, iso)
	require.NoError(t, err)

	tr, err := sc.ApplyStrategy(strategy)
	require.NoError(t, err)

	isolated, err := tr.Isolated(MetricOptions{})
	require.NoError(t, err)
	require.Len(t, isolated, tr.T())

	// The discovered bucket is cumulative, so generation 0 of the isolation
	// series equals the initially discovered count.
	discovered, err := tr.BucketAggregate(BucketDiscovered, MetricOptions{})
	require.NoError(t, err)
	assert.InDelta(t, discovered[0], isolated[0], 1e-9)
	for gen, v := range isolated {
		assert.GreaterOrEqual(t, v, 0.0, "generation %d", gen)
	}
}

func TestTrajectoryIsolated_IncludesArrivalPositives(t *testing.T) {
	tr := newArrivalTrajectory(t)

	isolated, err := tr.Isolated(MetricOptions{})
	require.NoError(t, err)

	// Generation 0 of the isolation series equals everyone discovered so
	// far, including the first arrival-period slice of arrival positives.
	total, err := tr.TotalDiscovered(MetricOptions{})
	require.NoError(t, err)
	bucket, err := tr.BucketAggregate(BucketDiscovered, MetricOptions{})
	require.NoError(t, err)
	assert.InDelta(t, total[0], isolated[0], 1e-9)
	assert.Greater(t, total[0], bucket[0], "arrival positives must add isolation demand")
}

func TestTrajectoryIsolated_RequiresDistribution(t *testing.T) {
	tr := newTestTrajectory(t)
	_, err := tr.Isolated(MetricOptions{})
	assert.ErrorContains(t, err, "no isolation distribution")
}
