package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/inference-sim/assembly-sim/sim"
)

// DefaultSQLBatchSize is the number of snapshots buffered per INSERT.
const DefaultSQLBatchSize = 256

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink buffers snapshots and writes them with a multi-row INSERT, one
// row per snapshot. Placeholders use the PostgreSQL $n style.
type SQLSink struct {
	ctx       context.Context
	db        *sql.DB
	table     string
	runID     string
	batchSize int
	pending   []sim.Snapshot
}

// NewSQLSink writes rows tagged with runID into table. batchSize <= 0 selects
// DefaultSQLBatchSize. ctx bounds every INSERT.
func NewSQLSink(ctx context.Context, db *sql.DB, table, runID string, batchSize int) (*SQLSink, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if batchSize <= 0 {
		batchSize = DefaultSQLBatchSize
	}
	return &SQLSink{ctx: ctx, db: db, table: table, runID: runID, batchSize: batchSize}, nil
}

func (s *SQLSink) Name() string { return "sql" }

// EnsureTable creates the snapshot table if it does not exist.
func (s *SQLSink) EnsureTable(ctx context.Context) error {
	q := "CREATE TABLE IF NOT EXISTS " + s.table + " (" +
		"run_id TEXT NOT NULL, seq INTEGER NOT NULL, clock DOUBLE PRECISION NOT NULL, " +
		"event TEXT NOT NULL, total_products INTEGER NOT NULL, snapshot JSONB NOT NULL, " +
		"PRIMARY KEY (run_id, seq))"
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// Record implements sim.SnapshotSink. Rows reach the database once a batch
// fills or on Close.
func (s *SQLSink) Record(snap sim.Snapshot) error {
	s.pending = append(s.pending, snap)
	if len(s.pending) >= s.batchSize {
		return s.Flush()
	}
	return nil
}

// Flush writes pending snapshots.
func (s *SQLSink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	err := s.writeBatch(s.pending)
	s.pending = s.pending[:0]
	return err
}

func (s *SQLSink) writeBatch(snaps []sim.Snapshot) error {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (run_id, seq, clock, event, total_products, snapshot) VALUES ")

	args := make([]any, 0, len(snaps)*6)
	for i, snap := range snaps {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot %d: %w", snap.Seq, err)
		}
		args = append(args, s.runID, snap.Seq, snap.Clock, snap.Event, snap.TotalProducts(), payload)
	}
	b.WriteString(" ON CONFLICT (run_id, seq) DO NOTHING")

	if _, err := s.db.ExecContext(s.ctx, b.String(), args...); err != nil {
		return fmt.Errorf("inserting %d snapshots into %s: %w", len(snaps), s.table, err)
	}
	return nil
}

// Close flushes pending rows. The database handle belongs to the caller.
func (s *SQLSink) Close() error { return s.Flush() }

var _ Sink = (*SQLSink)(nil)
