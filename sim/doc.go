// Package sim provides the discrete-event simulation kernel for a small
// assembly line: inspectors feed bounded buffers owned by workstations, and
// workstations assemble products from one unit of each input.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - buffer.go, workstation.go: bounded FIFOs and reserve-on-start assembly
//   - inspector.go, routing.go: hand-off and the three routing policies
//   - event.go, event_queue.go: the tagged event variant and the future event list
//   - simulator.go: the event loop, the blocked set and the release sweep
//
// # Architecture
//
// The engine owns an arena of inspectors and workstations addressed by
// InspectorID and WorkstationID. Workstations and inspectors never reach back
// into the engine: a hand-off that starts an assembly returns an
// AssemblyIntent and the engine schedules it.
//
// Everything outside the kernel lives in sub-packages:
//   - sim/trace/: routing-decision and blocking-interval recording
//   - sim/sink/: SnapshotSink implementations (CSV, Prometheus, Redis, SQL)
//   - sim/replication/: the replication driver and cross-run statistics
//
// # Determinism
//
// Every random draw comes from a PartitionedRNG stream named after the
// inspector or workstation that uses it. Events with equal times are ordered
// by kind (assembly-complete, inspection-complete, simulation-end) and then by
// insertion order, so a seed and a topology fully determine a run.
package sim
