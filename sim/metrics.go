// sim/metrics.go
//
// Metric reductions over a fully run Trajectory: per-meta-group selection,
// aggregation, cumulative sums and population normalization of the
// simulation buckets, plus hospitalization estimates.

package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Bucket identifies one of the simulation's five state matrices.
type Bucket string

const (
	BucketSusceptible Bucket = "S"
	BucketInfected    Bucket = "I"
	BucketRecovered   Bucket = "R"
	BucketDiscovered  Bucket = "D"
	BucketHidden      Bucket = "H"
)

// MetricOptions controls a bucket reduction. A nil MetaGroups selects all
// meta-groups in population order.
type MetricOptions struct {
	MetaGroups []string
	Cumulative bool
	Normalize  bool // divide by the total population across all groups
}

// bucketMatrix returns the raw (T x K) matrix for a bucket.
func (tr *Trajectory) bucketMatrix(b Bucket) (*mat.Dense, error) {
	switch b {
	case BucketSusceptible:
		return tr.Sim.S, nil
	case BucketInfected:
		return tr.Sim.I, nil
	case BucketRecovered:
		return tr.Sim.R, nil
	case BucketDiscovered:
		return tr.Sim.D, nil
	case BucketHidden:
		return tr.Sim.H, nil
	default:
		return nil, fmt.Errorf("unknown bucket %q", b)
	}
}

// totalPop returns the total population across all groups at generation 0.
func (tr *Trajectory) totalPop() float64 {
	total := 0.0
	for g := 0; g < tr.Sim.K; g++ {
		total += tr.Sim.S.At(0, g) + tr.Sim.I.At(0, g) + tr.Sim.R.At(0, g)
	}
	return total
}

// selectedMetaGroups resolves the option's meta-group selection.
func (tr *Trajectory) selectedMetaGroups(opts MetricOptions) []string {
	if opts.MetaGroups != nil {
		return opts.MetaGroups
	}
	return tr.Scenario.Population.MetaGroupNames()
}

// BucketPerMetaGroup reduces a bucket to a T x M matrix, one column per
// selected meta-group, summing that meta-group's flattened groups.
func (tr *Trajectory) BucketPerMetaGroup(b Bucket, opts MetricOptions) (*mat.Dense, error) {
	raw, err := tr.bucketMatrix(b)
	if err != nil {
		return nil, err
	}
	names := tr.selectedMetaGroups(opts)
	T := tr.T()
	out := mat.NewDense(T, len(names), nil)
	for m, name := range names {
		lo, hi, err := tr.Scenario.Population.GroupRange(name)
		if err != nil {
			return nil, err
		}
		for t := 0; t < T; t++ {
			sum := 0.0
			for g := lo; g < hi; g++ {
				sum += raw.At(t, g)
			}
			out.Set(t, m, sum)
		}
	}
	tr.finishMetric(out, opts)
	return out, nil
}

// finishMetric applies the cumulative and normalize options to a reduced
// T x M matrix in place.
func (tr *Trajectory) finishMetric(out *mat.Dense, opts MetricOptions) {
	T, m := out.Dims()
	if opts.Cumulative {
		for j := 0; j < m; j++ {
			running := 0.0
			for t := 0; t < T; t++ {
				running += out.At(t, j)
				out.Set(t, j, running)
			}
		}
	}
	if opts.Normalize {
		total := tr.totalPop()
		if total > 0 {
			out.Scale(1/total, out)
		}
	}
}

// sumColumns collapses a T x M matrix into a length-T vector.
func sumColumns(perMG *mat.Dense) []float64 {
	T, m := perMG.Dims()
	out := make([]float64, T)
	for t := 0; t < T; t++ {
		for j := 0; j < m; j++ {
			out[t] += perMG.At(t, j)
		}
	}
	return out
}

// BucketAggregate reduces a bucket to a length-T vector, summing over the
// selected meta-groups.
func (tr *Trajectory) BucketAggregate(b Bucket, opts MetricOptions) ([]float64, error) {
	perMG, err := tr.BucketPerMetaGroup(b, opts)
	if err != nil {
		return nil, err
	}
	return sumColumns(perMG), nil
}

// arrivalDiscoveredTotals returns the total number of people discovered by
// arrival testing for each selected meta-group, or nil when the strategy has
// no arrival testing regime.
func (tr *Trajectory) arrivalDiscoveredTotals(names []string) ([]float64, error) {
	sc := tr.Scenario
	if tr.Strategy.ArrivalRegime == nil || sc.ArrivalPeriod == 0 {
		return nil, nil
	}
	all := tr.Strategy.GetArrivalDiscovered(sc.InitRecovered, sc.InitInfections,
		sc.PctRecoveredDiscoveredArrival)
	allNames := sc.Population.MetaGroupNames()
	out := make([]float64, len(names))
	for j, name := range names {
		found := false
		for a, n := range allNames {
			if n == name {
				out[j] = all[a]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown meta-group %q", name)
		}
	}
	return out, nil
}

// TotalDiscoveredPerMetaGroup returns the discovered bucket plus the people
// discovered by arrival testing, one column per selected meta-group. Arrival
// positives are spread uniformly over the scenario's arrival period; the
// discovered bucket is a running total, so their contribution accumulates
// over the first ArrivalPeriod generations and then stays in the count.
func (tr *Trajectory) TotalDiscoveredPerMetaGroup(opts MetricOptions) (*mat.Dense, error) {
	out, err := tr.BucketPerMetaGroup(BucketDiscovered, MetricOptions{MetaGroups: opts.MetaGroups})
	if err != nil {
		return nil, err
	}
	names := tr.selectedMetaGroups(opts)
	arrivals, err := tr.arrivalDiscoveredTotals(names)
	if err != nil {
		return nil, err
	}
	if arrivals != nil {
		T, _ := out.Dims()
		period := tr.Scenario.ArrivalPeriod
		for j := range names {
			perGeneration := arrivals[j] / float64(period)
			for t := 0; t < T; t++ {
				arrived := t + 1
				if arrived > period {
					arrived = period
				}
				out.Set(t, j, out.At(t, j)+perGeneration*float64(arrived))
			}
		}
	}
	tr.finishMetric(out, opts)
	return out, nil
}

// TotalDiscovered reduces TotalDiscoveredPerMetaGroup to a length-T vector,
// summing over the selected meta-groups.
func (tr *Trajectory) TotalDiscovered(opts MetricOptions) ([]float64, error) {
	perMG, err := tr.TotalDiscoveredPerMetaGroup(opts)
	if err != nil {
		return nil, err
	}
	return sumColumns(perMG), nil
}

// Hospitalizations applies the scenario's per-meta-group hospitalization
// rates to the infected bucket and sums over the selected meta-groups.
func (tr *Trajectory) Hospitalizations(opts MetricOptions) ([]float64, error) {
	perMG, err := tr.BucketPerMetaGroup(BucketInfected, opts)
	if err != nil {
		return nil, err
	}
	names := tr.selectedMetaGroups(opts)
	rates := make([]float64, len(names))
	allNames := tr.Scenario.Population.MetaGroupNames()
	for j, name := range names {
		found := false
		for a, n := range allNames {
			if n == name {
				rates[j] = tr.Scenario.HospitalizationRates[a]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown meta-group %q", name)
		}
	}
	T, m := perMG.Dims()
	out := make([]float64, T)
	for t := 0; t < T; t++ {
		for j := 0; j < m; j++ {
			out[t] += rates[j] * perMG.At(t, j)
		}
	}
	return out, nil
}
