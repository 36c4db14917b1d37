// Package trace provides decision-trace recording for production-line analysis.
// The package does not import sim/; it stores plain data types.
package trace

// QueueDepth captures one candidate buffer's occupancy at decision time.
type QueueDepth struct {
	Station  string
	Length   int
	Capacity int
}

// RoutingRecord captures a single routing policy evaluation that led to a
// hand-off attempt. ChosenStation is empty when no destination could accept.
type RoutingRecord struct {
	Inspector     string
	Clock         float64
	Component     string
	Policy        string
	ChosenStation string
	Reason        string
	Depths        []QueueDepth // candidate buffers for Component, in declared order
}

// Delivered reports whether the decision resulted in a hand-off.
func (r RoutingRecord) Delivered() bool { return r.ChosenStation != "" }

// BlockingRecord captures one interval an inspector spent blocked.
// End is negative while the interval is still open.
type BlockingRecord struct {
	Inspector string
	Component string
	Start     float64
	End       float64
}

// Open reports whether the blocked interval has not been closed yet.
func (b BlockingRecord) Open() bool { return b.End < 0 }

// Duration returns End-Start, or 0 for an open interval.
func (b BlockingRecord) Duration() float64 {
	if b.Open() {
		return 0
	}
	return b.End - b.Start
}
