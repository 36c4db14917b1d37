// Package sink persists the per-event snapshots an engine emits.
//
// Every sink implements sim.SnapshotSink plus Close. Sinks are built per
// replication by the run driver and closed when the replication ends.
package sink

import (
	"errors"

	"github.com/inference-sim/assembly-sim/sim"
)

// Sink is a SnapshotSink that holds resources until Close.
type Sink interface {
	sim.SnapshotSink
	Close() error
}

// Multi fans each snapshot out to several sinks.
type Multi []Sink

// NewMulti drops nil entries.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Record implements sim.SnapshotSink. Every sink sees the snapshot even if
// an earlier one fails.
func (m Multi) Record(s sim.Snapshot) error {
	var errs []error
	for _, sk := range m {
		if err := sk.Record(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, sk := range m {
		if err := sk.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sink = Multi(nil)
