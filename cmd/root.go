package cmd

import (
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/epidemic-sim/epidemic-sim/sim"
)

var (
	// CLI flags
	scenarioFile  string // path to the scenario YAML
	strategyFile  string // path to the strategy YAML
	strategyNames []string
	outDir        string // directory for CSV output
	logLevel      string // log verbosity level
	priorFile     string // optional path to a prior YAML for ensemble sampling
	seed          int64  // master seed for ensemble sampling
	ensembleSize  int    // number of sampled runs per strategy (1 = nominal only)
	workers       int    // parallel workers for ensemble runs
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "epidemic-sim",
	Short: "Discrete-generation epidemic simulator for comparing testing strategies",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the epidemic simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioFile == "" || strategyFile == "" {
			logrus.Fatalf("Both --scenario and --strategy files are required. Exiting simulation.")
		}

		scenario, err := GetScenario(scenarioFile)
		if err != nil {
			logrus.Fatalf("Unable to load scenario: %v", err)
		}
		strategies, err := GetStrategies(strategyFile, scenario.Tests)
		if err != nil {
			logrus.Fatalf("Unable to load strategies: %v", err)
		}

		names := orderedStrategyNames(strategyNames, strategies)

		startTime := time.Now()
		for _, name := range names {
			strategy, ok := strategies[name]
			if !ok {
				logrus.Fatalf("Unknown strategy %q", name)
			}
			logrus.Infof("Running strategy %q: horizon=%d generations, %d meta-groups, K=%d groups",
				name, scenario.MaxT, scenario.Population.NumMetaGroups(), scenario.Population.K())

			if ensembleSize > 1 {
				runStrategyEnsemble(scenario, strategy)
				continue
			}

			trajectory, err := scenario.ApplyStrategy(strategy)
			if err != nil {
				logrus.Fatalf("Simulation failed for strategy %q: %v", name, err)
			}
			if err := WriteTrajectoryCSV(trajectory, outDir); err != nil {
				logrus.Fatalf("Writing trajectory output: %v", err)
			}
			if err := WriteSummaryCSV(trajectory, outDir); err != nil {
				logrus.Fatalf("Writing summary output: %v", err)
			}
		}
		logrus.Infof("Completed %d strategies in %v", len(names), time.Since(startTime))
	},
}

// orderedStrategyNames returns the requested strategy names, or every name in
// the strategy file sorted so repeated invocations run in the same order.
func orderedStrategyNames(requested []string, strategies map[string]*sim.Strategy) []string {
	if len(requested) > 0 {
		return requested
	}
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runStrategyEnsemble samples the scenario family ensembleSize times and
// writes one trajectory set per run. Without a prior file every run uses the
// nominal scenario.
func runStrategyEnsemble(scenario *sim.Scenario, strategy *sim.Strategy) {
	family := &sim.ScenarioFamily{Nominal: scenario}
	if priorFile != "" {
		priors, err := GetPriors(priorFile)
		if err != nil {
			logrus.Fatalf("Unable to load priors: %v", err)
		}
		family.Priors = priors
	}
	factory := func(*sim.Scenario) (*sim.Strategy, error) { return strategy, nil }
	runs, err := sim.RunEnsemble(family, factory, ensembleSize, seed, workers)
	if err != nil {
		logrus.Fatalf("Ensemble failed for strategy %q: %v", strategy.Name, err)
	}
	for _, run := range runs {
		run.Trajectory.Name = strategy.Name + "_" + run.Label
		if err := WriteTrajectoryCSV(run.Trajectory, outDir); err != nil {
			logrus.Fatalf("Writing trajectory output for %s: %v", run.Label, err)
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "Path to the scenario YAML file")
	runCmd.Flags().StringVar(&strategyFile, "strategy", "", "Path to the strategy YAML file")
	runCmd.Flags().StringSliceVar(&strategyNames, "name", nil, "Strategies to run (default: all in the strategy file)")
	runCmd.Flags().StringVar(&outDir, "out", "out", "Directory for CSV output")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&priorFile, "prior", "", "Path to a prior YAML file for ensemble sampling")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for ensemble sampling")
	runCmd.Flags().IntVar(&ensembleSize, "ensemble", 1, "Number of sampled runs per strategy")
	runCmd.Flags().IntVar(&workers, "workers", 4, "Parallel workers for ensemble runs")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
