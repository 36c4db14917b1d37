package replication

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inference-sim/assembly-sim/sim"
	"github.com/inference-sim/assembly-sim/sim/internal/testutil"
)

func TestNewEstimate_KnownSample(t *testing.T) {
	// GIVEN 2, 4, 4, 4, 5, 5, 7, 9 (mean 5, sample variance 32/7)
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	est := NewEstimate(xs)

	assert.Equal(t, 8, est.N)
	testutil.AssertFloat64Equal(t, "mean", 5, est.Mean, 1e-12)
	testutil.AssertFloat64Equal(t, "stddev", math.Sqrt(32.0/7), est.StdDev, 1e-12)
	// t(0.975, 7) = 2.364624...
	testutil.AssertFloat64Equal(t, "half width", 2.3646242510*math.Sqrt(32.0/7)/math.Sqrt(8), est.HalfWidth, 1e-6)
	testutil.AssertFloat64Equal(t, "lower", est.Mean-est.HalfWidth, est.Lower(), 1e-12)
	testutil.AssertFloat64Equal(t, "upper", est.Mean+est.HalfWidth, est.Upper(), 1e-12)
}

func TestNewEstimate_SmallSamples(t *testing.T) {
	assert.Equal(t, Estimate{}, NewEstimate(nil))
	assert.Equal(t, Estimate{N: 1, Mean: 3}, NewEstimate([]float64{3}))
}

func TestSummarize_AggregatesPerName(t *testing.T) {
	mk := func(p1 int, blocked float64) Result {
		return Result{Metrics: &sim.Metrics{
			TotalProducts:   p1,
			Products:        map[string]int{"P1": p1},
			Throughput:      map[string]float64{"P1": float64(p1) / 100},
			BlockedFraction: map[string]float64{"IN1": blocked},
			Utilization:     map[string]float64{"WS1": 0.5},
		}}
	}

	s := Summarize([]Result{mk(10, 0.1), mk(20, 0.3)})

	assert.Equal(t, 2, s.Replications)
	testutil.AssertFloat64Equal(t, "total", 15, s.TotalProducts.Mean, 1e-12)
	testutil.AssertFloat64Equal(t, "throughput", 0.15, s.Throughput["P1"].Mean, 1e-12)
	testutil.AssertFloat64Equal(t, "blocked", 0.2, s.BlockedFraction["IN1"].Mean, 1e-12)
	assert.Equal(t, 0.0, s.Utilization["WS1"].StdDev)
	assert.Greater(t, s.TotalProducts.HalfWidth, 0.0)
	assert.Equal(t, []string{"P1"}, SortedKeys(s.Throughput))
}
