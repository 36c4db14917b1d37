// Package replication runs independent replications of a production line and
// summarizes them with confidence intervals.
package replication

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/assembly-sim/sim"
	"github.com/inference-sim/assembly-sim/sim/sink"
	"github.com/inference-sim/assembly-sim/sim/trace"
)

// Replication identifies one run.
type Replication struct {
	Index int    `json:"index"`
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`
}

// SinkFactory builds the sink for one replication. A nil sink means the
// replication records nothing.
type SinkFactory func(rep Replication) (sink.Sink, error)

// Config describes a batch of replications.
type Config struct {
	Topology     sim.Topology
	Replications int              // <= 0 means 1
	Seed         int64            // master seed; per-run seeds are derived from it
	Sampler      sim.DelaySampler // nil = exponential
	Sinks        SinkFactory      // optional
	TraceLevel   trace.TraceLevel // "" or none disables tracing
	NewRunID     func() string    // nil = uuid.NewString
}

// Result is the outcome of one replication.
type Result struct {
	Replication
	Metrics *sim.Metrics        `json:"metrics"`
	Trace   *trace.TraceSummary `json:"trace,omitempty"`
}

// Seeds derives the per-replication seeds from master. Replication i always
// gets the same seed regardless of how many replications run.
func Seeds(master int64, n int) []int64 {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(master))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.ForSubsystem(sim.SubsystemReplication(i)).Int63()
	}
	return seeds
}

// Run executes the replications one after another. ctx is checked between
// replications; a cancelled context returns the results so far with ctx.Err().
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	n := cfg.Replications
	if n <= 0 {
		n = 1
	}
	newID := cfg.NewRunID
	if newID == nil {
		newID = uuid.NewString
	}
	results := make([]Result, 0, n)
	for i, seed := range Seeds(cfg.Seed, n) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		rep := Replication{Index: i, RunID: newID(), Seed: seed}
		res, err := runOne(cfg, rep)
		if err != nil {
			return results, fmt.Errorf("replication %d (run %s): %w", i, rep.RunID, err)
		}
		logrus.Infof("replication %d/%d run=%s seed=%d: %d products, %d events",
			i+1, n, rep.RunID, seed, res.Metrics.TotalProducts, res.Metrics.EventsProcessed)
		results = append(results, res)
	}
	return results, nil
}

func runOne(cfg Config, rep Replication) (res Result, err error) {
	var sk sink.Sink
	if cfg.Sinks != nil {
		if sk, err = cfg.Sinks(rep); err != nil {
			return res, fmt.Errorf("building sink: %w", err)
		}
	}
	if sk != nil {
		defer func() {
			if cerr := sk.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing sink: %w", cerr)
			}
		}()
	}

	var tr *trace.SimulationTrace
	if cfg.TraceLevel != "" && cfg.TraceLevel != trace.TraceLevelNone {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel})
	}
	ecfg := sim.EngineConfig{Topology: cfg.Topology, Seed: rep.Seed, Sampler: cfg.Sampler, Trace: tr}
	if sk != nil {
		ecfg.Sink = sk
	}
	e, err := sim.NewEngine(ecfg)
	if err != nil {
		return res, err
	}
	for {
		more, err := e.Step()
		if err != nil {
			return res, err
		}
		if !more {
			break
		}
	}

	res = Result{Replication: rep, Metrics: e.Metrics()}
	if tr != nil {
		res.Trace = trace.Summarize(tr)
	}
	return res, nil
}
