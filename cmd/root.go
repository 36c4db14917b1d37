package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/assembly-sim/sim"
	"github.com/inference-sim/assembly-sim/sim/replication"
	"github.com/inference-sim/assembly-sim/sim/sink"
	"github.com/inference-sim/assembly-sim/sim/trace"
)

var (
	// CLI flags for the run
	topologyPath string  // Topology YAML; empty = built-in reference line
	replications int     // Number of independent replications
	seed         int64   // Master seed; per-replication seeds derive from it
	endTime      float64 // Overrides the topology's end_time when set
	releaseScope string  // Which blocked inspectors a release sweep retries
	traceLevel   string  // Decision trace verbosity
	logLevel     string  // Log verbosity level

	// CLI flags for outputs
	csvDir       string // One CSV file per replication in this directory
	resultsPath  string // JSON file with per-replication metrics and the summary
	promTextfile string // Prometheus textfile written after the last replication
	redisAddr    string // Redis address for snapshot streams
	redisPrefix  string // Stream key prefix
	redisMaxLen  int64  // Approximate cap on stream length; 0 = unbounded
	sqlDSN       string // PostgreSQL DSN for the snapshot table
	sqlTable     string // Snapshot table name
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "assembly-sim",
	Short: "Discrete-event simulator for an inspection and assembly line",
}

// runCmd runs the replications configured by the CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the manufacturing line simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := runSimulation(ctx, cmd, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// validateCmd checks a topology file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a topology file",
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := loadTopology(topologyPath)
		if err != nil {
			return err
		}
		printValid(cmd.OutOrStdout(), topo)
		return nil
	},
}

func loadTopology(path string) (sim.Topology, error) {
	if path == "" {
		topo := sim.DefaultTopology()
		return topo, topo.Validate()
	}
	topo, err := sim.LoadTopology(path)
	if err != nil {
		return sim.Topology{}, err
	}
	if err := topo.Validate(); err != nil {
		return sim.Topology{}, fmt.Errorf("%s: %w", path, err)
	}
	return *topo, nil
}

// runSimulation applies flag overrides, runs the replications and writes
// every requested output.
func runSimulation(ctx context.Context, cmd *cobra.Command, out io.Writer) error {
	topo, err := loadTopology(topologyPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("end-time") {
		topo.EndTime = endTime
	}
	if cmd.Flags().Changed("release") {
		if !sim.IsValidReleaseScope(releaseScope) {
			return fmt.Errorf("invalid --release %q; valid: all, matching", releaseScope)
		}
		topo.Release = sim.ReleaseScope(releaseScope)
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return fmt.Errorf("invalid --trace %q; valid: none, decisions", traceLevel)
	}
	if err := topo.Validate(); err != nil {
		return err
	}

	outs, err := openOutputs(ctx, outputOptions{
		CSVDir:      csvDir,
		Prometheus:  promTextfile != "",
		RedisAddr:   redisAddr,
		RedisPrefix: redisPrefix,
		RedisMaxLen: redisMaxLen,
		SQLDSN:      sqlDSN,
		SQLTable:    sqlTable,
	})
	if err != nil {
		return err
	}
	defer warnOnClose("outputs", outs)

	logrus.Infof("Starting %d replication(s), seed=%d, end time=%v, release=%s",
		replications, seed, topo.EndTime, topo.Release)
	startTime := time.Now()

	results, err := replication.Run(ctx, replication.Config{
		Topology:     topo,
		Replications: replications,
		Seed:         seed,
		Sinks:        outs.Factory(),
		TraceLevel:   trace.TraceLevel(traceLevel),
	})
	if err != nil {
		return err
	}
	summary := replication.Summarize(results)
	logrus.Infof("Replications finished in %v", time.Since(startTime))

	if len(results) == 1 {
		if err := results[0].Metrics.SaveResults(out); err != nil {
			return err
		}
	}
	printSummary(out, summary, results)

	if resultsPath != "" {
		if err := writeResults(resultsPath, results, summary); err != nil {
			return err
		}
	}
	if promTextfile != "" {
		if err := sink.WriteTextfile(promTextfile, outs.Registry()); err != nil {
			return err
		}
	}
	return nil
}

// warnOnClose closes c and logs a failure; the run's own result stands.
func warnOnClose(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logrus.Warnf("closing %s: %v", what, err)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "Topology YAML file (default: built-in reference line)")
	runCmd.Flags().IntVar(&replications, "replications", 1, "Number of independent replications")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for all random streams")
	runCmd.Flags().Float64Var(&endTime, "end-time", 1000, "Simulation end time (overrides the topology)")
	runCmd.Flags().StringVar(&releaseScope, "release", "all", "Blocked inspectors retried on release (all, matching)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&csvDir, "csv-dir", "", "Write one per-event CSV file per replication into this directory")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "Write per-replication metrics and the summary as JSON")
	runCmd.Flags().StringVar(&promTextfile, "prom-textfile", "", "Write final Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Stream snapshots to Redis at this address")
	runCmd.Flags().StringVar(&redisPrefix, "redis-prefix", "assembly-sim", "Redis stream key prefix")
	runCmd.Flags().Int64Var(&redisMaxLen, "redis-maxlen", 0, "Approximate maximum Redis stream length (0 = unbounded)")
	runCmd.Flags().StringVar(&sqlDSN, "sql-dsn", "", "Store snapshots in PostgreSQL using this DSN")
	runCmd.Flags().StringVar(&sqlTable, "sql-table", "snapshots", "Snapshot table name")

	validateCmd.Flags().StringVar(&topologyPath, "topology", "", "Topology YAML file (default: built-in reference line)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
