// Package sim provides the core discrete-generation epidemic simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - groups.go: MetaGroup/Population contact model and the flattened infection-rate matrix
//   - micro.go: expected days infectious under periodic, imperfect surveillance testing
//   - simulator.go: the S/I/R/D/H generation stepper and its conservation invariants
//
// # Architecture
//
// A Population partitions people into meta-groups (e.g. undergraduates,
// staff), each subdivided into contact-level groups. The Population owns the
// flattened group space: every meta-group is assigned a fixed index range at
// construction time and all K-dimensional vectors and K x K matrices are
// indexed against that arena.
//
// Test, TestingRegime and ArrivalTestingRegime (testing.go) convert test
// characteristics (sensitivity, delay, compliance, frequency) into the
// per-meta-group parameters the simulator consumes: expected days infectious
// and discovery fractions. A Strategy (strategy.go) sequences testing regimes
// and transmission multipliers over named periods of the horizon.
//
// Scenario.ApplyStrategy (scenario.go) wires everything together: it derives
// initial conditions from arrival testing, rebuilds the infection-rate matrix
// at each period boundary, and steps the Sim through the full horizon,
// returning a Trajectory. Metric reductions over a Trajectory live in
// metrics.go and isolation.go. Ensembles of independent runs (ensemble.go)
// sample scenarios from a prior and execute in parallel with per-run derived
// seeds (rng.go).
package sim
