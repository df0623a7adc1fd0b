// Package sim provides the core discrete-event simulation engine for the
// closed-loop factory: a forward manufacturing line and a reverse
// remanufacturing line sharing stations, buffers, and labor.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - part.go: Part lifecycle (queued → granted → processing → forwarded)
//   - event.go: Event types that drive the simulation (Arrival, Completion,
//     Failure, Repair, Sample)
//   - engine.go: The event loop, source generation, and run bookkeeping
//
// # Architecture
//
// The engine is a single-threaded cooperative simulator over logical time.
// "Concurrency" is contention for ResourcePool capacity and buffer space
// among logically-simultaneous parts; all mutation happens synchronously
// inside event dispatch, so no locking exists anywhere. Waiting is
// expressed as explicit resume callbacks held by pools and buffers, never
// as goroutines.
//
//   - resource.go: two-tier (tier, arrival-order) capacity grants; the
//     reman-before-new rule at the merge station lives here, nowhere else
//   - buffer.go: bounded part queues with block/reject overflow policies
//   - station.go: the per-unit state machine, scrap draws, suspension
//   - ledger.go: cost/energy/air/labor accrual (pure observer)
//   - kpi.go: end-of-run KPI records, recomputed from state
//   - sim/trace/: the ordered event log, ground truth for every KPI
//
// Determinism: with a fixed seed and configuration, the event log and KPI
// records are bit-for-bit reproducible. Equal-timestamp events dispatch in
// scheduling order, and every stochastic draw comes from a per-subsystem
// partitioned RNG (rng.go).
package sim
