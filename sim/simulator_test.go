package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/assembly-sim/sim/internal/testutil"
	"github.com/inference-sim/assembly-sim/sim/trace"
)

func mustEngine(t *testing.T, cfg EngineConfig) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestNewEngine_SchedulesInitialEvents(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology(), Seed: 42})

	assert.Equal(t, StateInitializing, e.State())
	assert.Equal(t, 3, e.Pending(), "one inspection per inspector plus the end")
	assert.Equal(t, 0.0, e.Clock)
	assert.Len(t, e.Inspectors(), 2)
	assert.Len(t, e.Workstations(), 3)

	ws3, err := e.WorkstationByName("WS3")
	require.NoError(t, err)
	assert.Equal(t, P3, ws3.Product)
	in2, err := e.InspectorByName("IN2")
	require.NoError(t, err)
	assert.Len(t, e.Candidates(in2.ID), 2)
}

func TestNewEngine_InvalidTopology(t *testing.T) {
	topo := DefaultTopology()
	topo.EndTime = -1
	_, err := NewEngine(EngineConfig{Topology: topo})
	assert.True(t, errors.Is(err, ErrInvalidTopology))
}

func TestEngine_LookupUnknownIDs(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology()})

	_, err := e.Inspector(7)
	assert.ErrorIs(t, err, ErrUnknownID)
	_, err = e.Workstation(-1)
	assert.ErrorIs(t, err, ErrUnknownID)
	_, err = e.InspectorByName("IN9")
	assert.ErrorIs(t, err, ErrUnknownID)
	_, err = e.WorkstationByName("WS9")
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestScheduleEvent_RejectsInvalidTimes(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology()})
	e.Clock = 10

	for _, at := range []float64{math.NaN(), -1, 9.999} {
		err := e.ScheduleEvent(at, InspectionComplete(0))
		assert.ErrorIs(t, err, ErrInvalidEventTime, "at=%v", at)
	}
	assert.NoError(t, e.ScheduleEvent(10, InspectionComplete(0)))
}

func TestEngine_FixedDelays_BlockAndReleaseTimeline(t *testing.T) {
	// GIVEN one inspector (1 time unit per component) feeding one station
	// (2 time units per product) with buffers of two
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	e := mustEngine(t, EngineConfig{Topology: testTopology("first-fit"), Sampler: FixedSampler{}, Trace: tr})

	// WHEN running to t=50
	require.NoError(t, e.Run())

	// THEN the station never idles after t=1 and the inspector blocks every
	// other time unit from t=6 on
	ins, _ := e.InspectorByName("IN1")
	ws, _ := e.WorkstationByName("WS1")
	assert.Equal(t, StateEnded, e.State())
	assert.Equal(t, 50.0, e.Clock)
	assert.Equal(t, 24, e.Output(P1))
	assert.Equal(t, 27, ins.Delivered())
	assert.Equal(t, 22.0, ins.BlockedTime(e.Clock))
	assert.True(t, ins.Blocked(), "blocked again at t=50")
	assert.Equal(t, []InspectorID{ins.ID}, e.BlockedInspectors())
	assert.Equal(t, 49.0, ws.BusyTime(e.Clock))

	sum := trace.Summarize(tr)
	assert.Equal(t, 23, sum.BlockingEpisodes)
	assert.Equal(t, 1, sum.OpenEpisodes)
	assert.Equal(t, 27, sum.DeliveredCount)
	assert.Equal(t, 23, sum.RefusedCount)
	assert.Equal(t, 1.0, sum.MaxBlockedInterval)
}

func TestEngine_StepAfterEnd_ReturnsFalse(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: testTopology(""), Sampler: FixedSampler{}})
	require.NoError(t, e.Run())
	n := e.Dispatched()

	more, err := e.Step()
	assert.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, n, e.Dispatched())
}

func TestEngine_SameSeed_SameTotals(t *testing.T) {
	run := func(seed int64) *Metrics {
		e := mustEngine(t, EngineConfig{Topology: DefaultTopology(), Seed: seed})
		require.NoError(t, e.Run())
		return e.Metrics()
	}

	a, b := run(42), run(42)
	assert.Equal(t, a, b)
	assert.Greater(t, a.TotalProducts, 0)

	c := run(43)
	assert.NotEqual(t, a.Products, c.Products)
}

func TestEngine_SnapshotInvariants(t *testing.T) {
	// GIVEN the reference line with exponential delays and a sink
	var e *Engine
	var clocks, totals []float64
	blocked := map[string][]float64{}
	sink := SinkFunc(func(s Snapshot) error {
		clocks = append(clocks, s.Clock)
		totals = append(totals, float64(s.TotalProducts()))
		for _, in := range s.Inspectors {
			testutil.AssertWithin(t, "blocked time "+in.Name, in.BlockedTime, 0, s.Clock)
			blocked[in.Name] = append(blocked[in.Name], in.BlockedTime)
		}
		for _, q := range s.Queues {
			if q.Length < 0 || q.Length > DefaultBufferCapacity {
				t.Errorf("t=%v %s/%s length %d out of bounds", s.Clock, q.Station, q.Component, q.Length)
			}
		}

		// every delivered unit is queued or consumed
		delivered, accounted := 0, 0
		for _, ins := range e.Inspectors() {
			delivered += ins.Delivered()
		}
		for _, w := range e.Workstations() {
			for _, k := range w.Inputs() {
				b, _ := w.Buffer(k)
				if b.Enqueued() != uint64(b.Len())+b.Dequeued() {
					t.Errorf("t=%v %s/%s: enqueued %d != len %d + dequeued %d",
						s.Clock, w.Name, k, b.Enqueued(), b.Len(), b.Dequeued())
				}
				accounted += int(b.Enqueued())
			}
			if w.Started() < w.Produced() || w.Started()-w.Produced() > 1 {
				t.Errorf("t=%v %s: started %d produced %d", s.Clock, w.Name, w.Started(), w.Produced())
			}
		}
		assert.Equal(t, delivered, accounted)
		return nil
	})
	e = mustEngine(t, EngineConfig{Topology: DefaultTopology(), Seed: 7, Sink: sink})

	// WHEN running
	require.NoError(t, e.Run())

	// THEN clock, output and blocked time never go backwards
	require.Equal(t, e.Dispatched(), len(clocks))
	testutil.AssertNonDecreasing(t, "clock", clocks)
	testutil.AssertNonDecreasing(t, "total products", totals)
	for name, xs := range blocked {
		testutil.AssertNonDecreasing(t, "blocked time "+name, xs)
	}
	assert.Equal(t, 1000.0, clocks[len(clocks)-1])
}

func TestEngine_SinkError_AbortsRun(t *testing.T) {
	boom := errors.New("disk full")
	sink := SinkFunc(func(Snapshot) error { return boom })
	e := mustEngine(t, EngineConfig{Topology: testTopology(""), Sink: sink})

	err := e.Run()
	assert.ErrorIs(t, err, boom)
}

// twoFeedTopology has IN1 and IN2 both feeding C1 into WS2, which also needs
// C2, so a filled C1 buffer stays full until a slot is freed by hand.
func twoFeedTopology(release ReleaseScope) Topology {
	return Topology{
		EndTime:        100,
		BufferCapacity: 2,
		Release:        release,
		Workstations: []WorkstationSpec{
			{ID: "WS2", Product: "P2", Inputs: []string{"C1", "C2"}, Rate: 1, Priority: 1},
		},
		Inspectors: []InspectorSpec{
			{ID: "IN1", Policy: "first-fit", Outputs: []string{"WS2"}, Rates: map[string]float64{"C1": 1}},
			{ID: "IN2", Policy: "first-fit", Outputs: []string{"WS2"}, Rates: map[string]float64{"C1": 1}},
		},
	}
}

func TestReleaseBlocked_FirstBlockedIsServedFirst(t *testing.T) {
	// GIVEN WS2's C1 buffer is full and IN2 blocked before IN1
	e := mustEngine(t, EngineConfig{Topology: twoFeedTopology(ReleaseAll), Sampler: FixedSampler{}})
	ws, _ := e.WorkstationByName("WS2")
	fill(t, ws, C1, 2)
	in1, _ := e.InspectorByName("IN1")
	in2, _ := e.InspectorByName("IN2")
	e.Clock = 3
	e.block(in2)
	e.block(in1)

	// WHEN one slot frees
	b, _ := ws.Buffer(C1)
	_, err := b.Dequeue()
	require.NoError(t, err)
	e.Clock = 4
	require.NoError(t, e.releaseBlocked([]WorkstationID{ws.ID}))

	// THEN IN2 takes it and IN1 keeps waiting
	assert.False(t, in2.Blocked())
	assert.Equal(t, 1.0, in2.BlockedTime(e.Clock))
	assert.True(t, in1.Blocked())
	assert.Equal(t, []InspectorID{in1.ID}, e.BlockedInspectors())
	assert.Equal(t, 2, b.Len())
}

func TestReleaseBlocked_NothingFreed_SetUnchanged(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: twoFeedTopology(ReleaseAll), Sampler: FixedSampler{}})
	ws, _ := e.WorkstationByName("WS2")
	fill(t, ws, C1, 2)
	in1, _ := e.InspectorByName("IN1")
	in2, _ := e.InspectorByName("IN2")
	e.block(in1)
	e.block(in2)

	require.NoError(t, e.releaseBlocked([]WorkstationID{ws.ID}))

	assert.Equal(t, []InspectorID{in1.ID, in2.ID}, e.BlockedInspectors())
}

func TestReleaseBlocked_MatchingScope_SkipsNonConsumers(t *testing.T) {
	topo := Topology{
		EndTime:        100,
		BufferCapacity: 2,
		Workstations: []WorkstationSpec{
			{ID: "WS1", Product: "P1", Inputs: []string{"C1"}, Rate: 1, Priority: 1},
			{ID: "WS2", Product: "P2", Inputs: []string{"C1", "C2"}, Rate: 1, Priority: 2},
		},
		Inspectors: []InspectorSpec{
			{ID: "IN1", Policy: "first-fit", Outputs: []string{"WS1"}, Rates: map[string]float64{"C1": 1}},
			{ID: "IN2", Policy: "first-fit", Outputs: []string{"WS2"}, Rates: map[string]float64{"C2": 1}},
		},
	}
	refusalsFor := func(scope ReleaseScope) int {
		topo.Release = scope
		tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		e := mustEngine(t, EngineConfig{Topology: topo, Sampler: FixedSampler{}, Trace: tr})
		ws1, _ := e.WorkstationByName("WS1")
		ws2, _ := e.WorkstationByName("WS2")
		fill(t, ws1, C1, 2)
		fill(t, ws2, C2, 2)
		in1, _ := e.InspectorByName("IN1")
		in2, _ := e.InspectorByName("IN2")
		e.block(in1)
		e.block(in2)

		b, _ := ws1.Buffer(C1)
		_, err := b.Dequeue()
		require.NoError(t, err)
		require.NoError(t, e.releaseBlocked([]WorkstationID{ws1.ID}))

		assert.False(t, in1.Blocked())
		assert.True(t, in2.Blocked())
		n := 0
		for _, r := range tr.Routings {
			if r.Inspector == "IN2" && !r.Delivered() {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, refusalsFor(ReleaseMatching), "only the initial block")
	assert.Greater(t, refusalsFor(ReleaseAll), 1)
}

func TestEngine_RoundRobin_FullTargetBlocksInspector(t *testing.T) {
	// GIVEN IN1 round-robins over WS1 and WS2, WS1 full and WS2 open
	topo := Topology{
		EndTime:        100,
		BufferCapacity: 2,
		Workstations: []WorkstationSpec{
			{ID: "WS1", Product: "P1", Inputs: []string{"C1"}, Rate: 1, Priority: 1},
			{ID: "WS2", Product: "P2", Inputs: []string{"C1", "C2"}, Rate: 1, Priority: 2},
		},
		Inspectors: []InspectorSpec{
			{ID: "IN1", Policy: "round-robin", Outputs: []string{"WS1", "WS2"}, Rates: map[string]float64{"C1": 1}},
		},
	}
	e := mustEngine(t, EngineConfig{Topology: topo, Sampler: FixedSampler{}})
	ws1, _ := e.WorkstationByName("WS1")
	fill(t, ws1, C1, 2)

	// WHEN the first inspection completes
	_, err := e.Step()
	require.NoError(t, err)

	// THEN the inspector is blocked rather than skipping to WS2
	in1, _ := e.InspectorByName("IN1")
	assert.True(t, in1.Blocked())
	ws2, _ := e.WorkstationByName("WS2")
	b, _ := ws2.Buffer(C1)
	assert.Equal(t, 0, b.Len())
}

func TestEngineState_String(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "ended", StateEnded.String())
}

func TestEngine_CandidatesFollowInspectorOutputs(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology()})
	for _, ins := range e.Inspectors() {
		cands := e.Candidates(ins.ID)
		require.Len(t, cands, len(ins.Candidates))
		for i, w := range cands {
			assert.Equal(t, ins.Candidates[i], w.ID)
		}
	}
}

func TestEngine_LastTransition_TracksHandoffAndBlocking(t *testing.T) {
	// GIVEN the fixed-delay one-station line: hand-offs at t=1..5,
	// IN1 blocks at t=6 and is released at t=7
	e := mustEngine(t, EngineConfig{Topology: testTopology("first-fit"), Sampler: FixedSampler{}})
	ins, _ := e.InspectorByName("IN1")
	step := func(n int) {
		for i := 0; i < n; i++ {
			_, err := e.Step()
			require.NoError(t, err)
		}
	}

	// WHEN the first inspection hands off
	step(1)
	// THEN the transition is stamped at t=1
	assert.Equal(t, 1.0, ins.LastTransition())
	assert.False(t, ins.Blocked())

	// WHEN the t=6 inspection finds the buffer full
	step(7)
	require.Equal(t, 6.0, e.Clock)
	assert.True(t, ins.Blocked())
	assert.Equal(t, 6.0, ins.LastTransition())
	assert.Equal(t, 6.0, ins.BlockedSince())

	// WHEN the t=7 assembly frees a slot
	step(1)
	assert.False(t, ins.Blocked())
	assert.Equal(t, 7.0, ins.LastTransition())
	assert.Equal(t, 1.0, ins.BlockedTime(e.Clock))
}
