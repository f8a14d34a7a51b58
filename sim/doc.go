// Package sim provides the discrete-event engine that drives the NoC
// core: the Scheduler implementation the noc/* packages consume, the
// Simulator that owns the event loop and per-clock traffic/router
// stepping, and the Metrics the CLI reports at the end of a run.
//
// # Reading Guide
//
//   - event.go: the min-heap event queue, keyed by (scheduled_time,
//     insertion_sequence) for deterministic tie-breaking.
//   - simulator.go: the Simulator type (implements noc/clock.Scheduler),
//     the per-clock-tick driving loop over topology nodes and routers.
//   - metrics.go: aggregate per-run counters and their text report.
//   - config.go: grouped per-component config structs and scenario-file
//     loading.
package sim
