// sim/trajectory.go

package sim

// Trajectory binds a fully run simulation to the scenario and strategy that
// produced it. Metric reductions (metrics.go, isolation.go) take a
// Trajectory as input.
type Trajectory struct {
	Scenario *Scenario
	Strategy *Strategy
	Sim      *Sim
	Name     string
}

// NewTrajectory constructs a trajectory. An empty name defaults to the
// strategy name.
func NewTrajectory(scenario *Scenario, strategy *Strategy, s *Sim, name string) *Trajectory {
	if name == "" {
		name = strategy.Name
	}
	return &Trajectory{Scenario: scenario, Strategy: strategy, Sim: s, Name: name}
}

// T returns the number of generations recorded, including generation 0.
func (tr *Trajectory) T() int {
	return tr.Sim.MaxT + 1
}
