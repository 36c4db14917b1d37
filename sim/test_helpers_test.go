package sim

import (
	"math/rand"
	"testing"
)

// newTestStation builds a workstation with capacity-2 buffers, rate 1 and
// FixedSampler, so every assembly takes exactly one time unit.
func newTestStation(id WorkstationID, name string, product ProductKind, inputs ...ComponentKind) *Workstation {
	return NewWorkstation(id, name, product, inputs, DefaultBufferCapacity, 1, int(id)+1,
		FixedSampler{}, rand.New(rand.NewSource(int64(id))))
}

// newTestInspector builds an inspector with rate 1 for each kind and FixedSampler.
func newTestInspector(name string, policy RoutingPolicy, kinds ...ComponentKind) *Inspector {
	rates := make(map[ComponentKind]float64, len(kinds))
	for _, k := range kinds {
		rates[k] = 1
	}
	return NewInspector(0, name, rates, nil, policy, FixedSampler{},
		rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2)))
}

// fill enqueues n units of kind into w's buffer directly, bypassing readiness.
func fill(t *testing.T, w *Workstation, kind ComponentKind, n int) {
	t.Helper()
	b, ok := w.Buffer(kind)
	if !ok {
		t.Fatalf("%s has no %s buffer", w.Name, kind)
	}
	for i := 0; i < n; i++ {
		if _, err := b.Enqueue(kind); err != nil {
			t.Fatalf("fill %s/%s: %v", w.Name, kind, err)
		}
	}
}

// testTopology is a one-inspector, one-station line used by engine tests.
func testTopology(policy string) Topology {
	return Topology{
		Version:        "1",
		EndTime:        50,
		BufferCapacity: 2,
		Workstations: []WorkstationSpec{
			{ID: "WS1", Product: "P1", Inputs: []string{"C1"}, Rate: 0.5, Priority: 1},
		},
		Inspectors: []InspectorSpec{
			{ID: "IN1", Policy: policy, Outputs: []string{"WS1"}, Rates: map[string]float64{"C1": 1}},
		},
	}
}
