// Tracks end-of-run statistics: output and throughput per product, blocked
// time per inspector and utilization per workstation.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
)

// Metrics aggregates statistics about a run for final reporting.
// Maps are keyed by product / inspector / workstation name.
type Metrics struct {
	Seed            int64              `json:"seed"`
	EndTime         float64            `json:"end_time"`
	Clock           float64            `json:"clock"`
	EventsProcessed int                `json:"events_processed"`
	Products        map[string]int     `json:"products"`
	TotalProducts   int                `json:"total_products"`
	Throughput      map[string]float64 `json:"throughput"` // products per time unit
	BlockedTime     map[string]float64 `json:"blocked_time"`
	BlockedFraction map[string]float64 `json:"blocked_fraction"`
	Utilization     map[string]float64 `json:"utilization"` // busy time / elapsed
	Delivered       map[string]int     `json:"components_delivered"`
}

// Metrics computes statistics from the engine's current state. Intervals that
// are still open (blocked inspectors, busy stations) count up to the clock.
func (e *Engine) Metrics() *Metrics {
	m := &Metrics{
		Seed:            int64(e.rng.Key()),
		EndTime:         e.EndTime,
		Clock:           e.Clock,
		EventsProcessed: e.dispatched,
		Products:        make(map[string]int, len(ProductKinds)),
		Throughput:      make(map[string]float64, len(ProductKinds)),
		BlockedTime:     make(map[string]float64, len(e.inspectors)),
		BlockedFraction: make(map[string]float64, len(e.inspectors)),
		Utilization:     make(map[string]float64, len(e.workstations)),
		Delivered:       make(map[string]int, len(e.inspectors)),
	}
	elapsed := e.Clock
	for _, w := range e.workstations {
		m.Products[w.Product.String()] = e.outputs[w.Product]
		if elapsed > 0 {
			m.Utilization[w.Name] = w.BusyTime(e.Clock) / elapsed
		}
	}
	for p, n := range m.Products {
		m.TotalProducts += n
		if elapsed > 0 {
			m.Throughput[p] = float64(n) / elapsed
		}
	}
	for _, ins := range e.inspectors {
		bt := ins.BlockedTime(e.Clock)
		m.BlockedTime[ins.Name] = bt
		if elapsed > 0 {
			m.BlockedFraction[ins.Name] = bt / elapsed
		}
		m.Delivered[ins.Name] = ins.Delivered()
	}
	return m
}

// SaveResults writes a human-readable header followed by the metrics as
// indented JSON.
func (m *Metrics) SaveResults(w io.Writer) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}
	if _, err := fmt.Fprintf(w, "=== Simulation Metrics ===\n%s\n", data); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
