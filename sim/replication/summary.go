package replication

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence is the two-sided confidence level of Estimate.HalfWidth.
const Confidence = 0.95

// Estimate is a sample mean with its spread across replications.
type Estimate struct {
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`     // sample standard deviation
	HalfWidth float64 `json:"half_width"` // Student-t CI half-width; 0 when N < 2
}

// Lower and Upper bound the confidence interval.
func (e Estimate) Lower() float64 { return e.Mean - e.HalfWidth }
func (e Estimate) Upper() float64 { return e.Mean + e.HalfWidth }

// NewEstimate computes the mean, sample standard deviation and CI half-width of xs.
func NewEstimate(xs []float64) Estimate {
	est := Estimate{N: len(xs)}
	switch len(xs) {
	case 0:
		return est
	case 1:
		est.Mean = xs[0]
		return est
	}
	est.Mean, est.StdDev = stat.MeanStdDev(xs, nil)
	tq := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(xs) - 1)}.Quantile(1 - (1-Confidence)/2)
	est.HalfWidth = tq * est.StdDev / math.Sqrt(float64(len(xs)))
	return est
}

// Summary aggregates replication results. Map keys are product, inspector
// and workstation names.
type Summary struct {
	Replications    int                 `json:"replications"`
	TotalProducts   Estimate            `json:"total_products"`
	Throughput      map[string]Estimate `json:"throughput"`
	BlockedFraction map[string]Estimate `json:"blocked_fraction"`
	Utilization     map[string]Estimate `json:"utilization"`
}

// Summarize computes estimates across results.
func Summarize(results []Result) Summary {
	s := Summary{
		Replications:    len(results),
		Throughput:      make(map[string]Estimate),
		BlockedFraction: make(map[string]Estimate),
		Utilization:     make(map[string]Estimate),
	}
	totals := make([]float64, 0, len(results))
	throughput := map[string][]float64{}
	blocked := map[string][]float64{}
	util := map[string][]float64{}
	for _, r := range results {
		m := r.Metrics
		totals = append(totals, float64(m.TotalProducts))
		for p := range m.Products {
			throughput[p] = append(throughput[p], m.Throughput[p])
		}
		for name, f := range m.BlockedFraction {
			blocked[name] = append(blocked[name], f)
		}
		for name, u := range m.Utilization {
			util[name] = append(util[name], u)
		}
	}
	s.TotalProducts = NewEstimate(totals)
	for k, xs := range throughput {
		s.Throughput[k] = NewEstimate(xs)
	}
	for k, xs := range blocked {
		s.BlockedFraction[k] = NewEstimate(xs)
	}
	for k, xs := range util {
		s.Utilization[k] = NewEstimate(xs)
	}
	return s
}

// SortedKeys returns the keys of m in lexical order, for stable printing.
func SortedKeys(m map[string]Estimate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
