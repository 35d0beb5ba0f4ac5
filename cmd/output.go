package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	sim "github.com/epidemic-sim/epidemic-sim/sim"
)

// trajectoryBuckets are the buckets written out for every run.
var trajectoryBuckets = []sim.Bucket{
	sim.BucketSusceptible,
	sim.BucketInfected,
	sim.BucketRecovered,
	sim.BucketDiscovered,
	sim.BucketHidden,
}

// WriteTrajectoryCSV writes one CSV per bucket: a generation column followed
// by one column per meta-group. Downstream tooling renders plots and
// summary tables from these files.
func WriteTrajectoryCSV(tr *sim.Trajectory, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	names := tr.Scenario.Population.MetaGroupNames()
	for _, bucket := range trajectoryBuckets {
		perMG, err := tr.BucketPerMetaGroup(bucket, sim.MetricOptions{})
		if err != nil {
			return err
		}
		fileName := filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", tr.Name, bucket))
		file, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("creating %s: %w", fileName, err)
		}
		w := csv.NewWriter(file)

		header := append([]string{"generation"}, names...)
		if err := w.Write(header); err != nil {
			file.Close()
			return fmt.Errorf("writing %s: %w", fileName, err)
		}
		T, m := perMG.Dims()
		for t := 0; t < T; t++ {
			row := make([]string, m+1)
			row[0] = strconv.Itoa(t)
			for j := 0; j < m; j++ {
				row[j+1] = strconv.FormatFloat(perMG.At(t, j), 'f', -1, 64)
			}
			if err := w.Write(row); err != nil {
				file.Close()
				return fmt.Errorf("writing %s: %w", fileName, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			file.Close()
			return fmt.Errorf("flushing %s: %w", fileName, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", fileName, err)
		}
		logrus.Debugf("wrote %s", fileName)
	}
	return nil
}

// WriteSummaryCSV writes a single summary file with aggregate infected,
// discovered, hospitalization and (when the strategy defines an isolation
// distribution) isolation columns.
func WriteSummaryCSV(tr *sim.Trajectory, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	infected, err := tr.BucketAggregate(sim.BucketInfected, sim.MetricOptions{})
	if err != nil {
		return err
	}
	discovered, err := tr.TotalDiscovered(sim.MetricOptions{})
	if err != nil {
		return err
	}
	hospitalizations, err := tr.Hospitalizations(sim.MetricOptions{})
	if err != nil {
		return err
	}
	var isolated []float64
	if tr.Strategy.Isolation != nil {
		isolated, err = tr.Isolated(sim.MetricOptions{})
		if err != nil {
			return err
		}
	}

	fileName := filepath.Join(outDir, fmt.Sprintf("%s_summary.csv", tr.Name))
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating %s: %w", fileName, err)
	}
	defer file.Close()
	w := csv.NewWriter(file)

	header := []string{"generation", "infected", "discovered", "hospitalizations"}
	if isolated != nil {
		header = append(header, "isolated")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	for t := range infected {
		row := []string{
			strconv.Itoa(t),
			strconv.FormatFloat(infected[t], 'f', -1, 64),
			strconv.FormatFloat(discovered[t], 'f', -1, 64),
			strconv.FormatFloat(hospitalizations[t], 'f', -1, 64),
		}
		if isolated != nil {
			row = append(row, strconv.FormatFloat(isolated[t], 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", fileName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", fileName, err)
	}
	logrus.Infof("wrote %s", fileName)
	return nil
}
