package sink

import "github.com/inference-sim/assembly-sim/sim"

func testSnapshot(seq int, clock float64, p1 int) sim.Snapshot {
	return sim.Snapshot{
		Seq:   seq,
		Clock: clock,
		Event: "assembly-complete(WS1)",
		Inspectors: []sim.InspectorSample{
			{Name: "IN1", Holding: "C1", Blocked: true, BlockedTime: 1.5},
		},
		Products: []sim.ProductCount{{Product: "P1", Count: p1}, {Product: "P2", Count: 0}},
		Queues:   []sim.QueueSample{{Station: "WS1", Component: "C1", Length: 2}},
		Stations: []sim.StationSample{{Name: "WS1", Busy: true}},
	}
}

type recordingSink struct {
	got    []sim.Snapshot
	err    error
	closed bool
}

func (r *recordingSink) Record(s sim.Snapshot) error {
	r.got = append(r.got, s)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return r.err
}
