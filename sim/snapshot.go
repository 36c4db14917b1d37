package sim

// InspectorSample is one inspector's state in a Snapshot.
type InspectorSample struct {
	Name        string  `json:"name"`
	Holding     string  `json:"holding"`
	Blocked     bool    `json:"blocked"`
	BlockedTime float64 `json:"blocked_time"` // cumulative, including an open interval
}

// ProductCount is the cumulative output of one product kind.
type ProductCount struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// QueueSample is one buffer's occupancy.
type QueueSample struct {
	Station   string `json:"station"`
	Component string `json:"component"`
	Length    int    `json:"length"`
}

// StationSample is one workstation's busy flag.
type StationSample struct {
	Name string `json:"name"`
	Busy bool   `json:"busy"`
}

// Snapshot is the state handed to a SnapshotSink after each dispatch.
// Slices are in arena order so every snapshot of a run has the same shape.
type Snapshot struct {
	Seq        int               `json:"seq"`
	Clock      float64           `json:"clock"`
	Event      string            `json:"event"`
	Inspectors []InspectorSample `json:"inspectors"`
	Products   []ProductCount    `json:"products"`
	Queues     []QueueSample     `json:"queues"`
	Stations   []StationSample   `json:"stations"`
}

// TotalProducts sums the output of all product kinds.
func (s Snapshot) TotalProducts() int {
	total := 0
	for _, p := range s.Products {
		total += p.Count
	}
	return total
}

// SnapshotSink receives a snapshot after every event the engine dispatches.
// Persisting it is the sink's business.
type SnapshotSink interface {
	Record(Snapshot) error
}

// SinkFunc adapts a function to SnapshotSink.
type SinkFunc func(Snapshot) error

// Record implements SnapshotSink.
func (f SinkFunc) Record(s Snapshot) error { return f(s) }
