package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/assembly-sim/sim/internal/testutil"
)

func TestMetrics_FixedTimeline(t *testing.T) {
	// GIVEN the one-station line with fixed delays run to t=50
	e := mustEngine(t, EngineConfig{Topology: testTopology("first-fit"), Seed: 9, Sampler: FixedSampler{}})
	require.NoError(t, e.Run())

	// WHEN computing metrics
	m := e.Metrics()

	// THEN counts and ratios follow the timeline
	assert.Equal(t, int64(9), m.Seed)
	assert.Equal(t, 24, m.Products["P1"])
	assert.Equal(t, 24, m.TotalProducts)
	testutil.AssertFloat64Equal(t, "throughput", 24.0/50, m.Throughput["P1"], 1e-12)
	testutil.AssertFloat64Equal(t, "blocked fraction", 22.0/50, m.BlockedFraction["IN1"], 1e-12)
	testutil.AssertFloat64Equal(t, "utilization", 49.0/50, m.Utilization["WS1"], 1e-12)
	assert.Equal(t, 27, m.Delivered["IN1"])
	assert.Equal(t, e.Dispatched(), m.EventsProcessed)
}

func TestMetrics_BeforeRun_NoDivisionByZero(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology()})
	m := e.Metrics()
	assert.Equal(t, 0, m.TotalProducts)
	assert.Empty(t, m.Throughput)
	assert.Empty(t, m.Utilization)
}

func TestMetrics_Bounds(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: DefaultTopology(), Seed: 42})
	require.NoError(t, e.Run())
	m := e.Metrics()

	for name, f := range m.BlockedFraction {
		testutil.AssertWithin(t, "blocked fraction "+name, f, 0, 1)
	}
	for name, u := range m.Utilization {
		testutil.AssertWithin(t, "utilization "+name, u, 0, 1)
	}
	total := 0
	for _, n := range m.Products {
		total += n
	}
	assert.Equal(t, total, m.TotalProducts)
}

func TestSaveResults_WritesHeaderAndJSON(t *testing.T) {
	e := mustEngine(t, EngineConfig{Topology: testTopology(""), Sampler: FixedSampler{}})
	require.NoError(t, e.Run())

	var buf bytes.Buffer
	require.NoError(t, e.Metrics().SaveResults(&buf))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "=== Simulation Metrics ===\n"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(out, "=== Simulation Metrics ===\n")), &decoded))
	assert.Contains(t, decoded, "throughput")
	assert.Contains(t, decoded, "blocked_time")
	assert.EqualValues(t, 24, decoded["total_products"])
}
