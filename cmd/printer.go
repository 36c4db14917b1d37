package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/inference-sim/assembly-sim/sim"
	"github.com/inference-sim/assembly-sim/sim/replication"
)

var (
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
	bold  = color.New(color.Bold)
)

func printEstimate(w io.Writer, label string, e replication.Estimate) {
	if e.N < 2 {
		fmt.Fprintf(w, "  %-14s %10.4f\n", label, e.Mean)
		return
	}
	fmt.Fprintf(w, "  %-14s %10.4f ± %.4f  [%.4f, %.4f]\n", label, e.Mean, e.HalfWidth, e.Lower(), e.Upper())
}

// printSummary writes the replication summary with 95% confidence intervals.
func printSummary(w io.Writer, s replication.Summary, results []replication.Result) {
	bold.Fprintf(w, "=== Replication Summary (%d run(s)) ===\n", s.Replications)
	for _, r := range results {
		fmt.Fprintf(w, "  #%d run=%s seed=%d products=%d\n", r.Index, r.RunID, r.Seed, r.Metrics.TotalProducts)
	}
	cyan.Fprintln(w, "Throughput (products / time unit)")
	for _, k := range replication.SortedKeys(s.Throughput) {
		printEstimate(w, k, s.Throughput[k])
	}
	cyan.Fprintln(w, "Inspector blocked fraction")
	for _, k := range replication.SortedKeys(s.BlockedFraction) {
		printEstimate(w, k, s.BlockedFraction[k])
	}
	cyan.Fprintln(w, "Workstation utilization")
	for _, k := range replication.SortedKeys(s.Utilization) {
		printEstimate(w, k, s.Utilization[k])
	}
	printEstimate(w, "total products", s.TotalProducts)
}

// printValid reports a topology that passed validation.
func printValid(w io.Writer, t sim.Topology) {
	green.Fprintf(w, "✓ topology valid: %d inspector(s), %d workstation(s), end time %v, release %s\n",
		len(t.Inspectors), len(t.Workstations), t.EndTime, t.Release)
	for _, ins := range t.Inspectors {
		fmt.Fprintf(w, "  %s (%s) -> %v\n", ins.ID, ins.Policy, ins.Outputs)
	}
}

type resultsFile struct {
	Results []replication.Result `json:"results"`
	Summary replication.Summary  `json:"summary"`
}

func writeResults(path string, results []replication.Result, summary replication.Summary) error {
	data, err := json.MarshalIndent(resultsFile{Results: results, Summary: summary}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
