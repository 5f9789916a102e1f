// Package occupancy implements the bed occupancy state machine.
//
// Every command is a pure transition over domain.State: Apply clones its
// input, mutates the clone and reports which persisted buckets changed. The
// package performs no I/O; storage, notification fan-out and rule
// enforcement live in internal/core.
package occupancy
