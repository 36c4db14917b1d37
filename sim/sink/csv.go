package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/inference-sim/assembly-sim/sim"
)

// CSVSink writes one row per dispatched event. The header is taken from the
// first snapshot: time, event, one blocked_<inspector> column per inspector,
// total_<product>, queue_<station>_<component> and busy_<station>.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	header bool
	width  int
}

// NewCSVSink writes to w. The caller keeps ownership of w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// CreateCSVFile creates (or truncates) path and writes to it. Close closes
// the file.
func CreateCSVFile(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating csv sink: %w", err)
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

func csvHeader(s sim.Snapshot) []string {
	cols := []string{"time", "event"}
	for _, in := range s.Inspectors {
		cols = append(cols, "blocked_"+in.Name)
	}
	for _, p := range s.Products {
		cols = append(cols, "total_"+p.Product)
	}
	for _, q := range s.Queues {
		cols = append(cols, "queue_"+q.Station+"_"+q.Component)
	}
	for _, st := range s.Stations {
		cols = append(cols, "busy_"+st.Name)
	}
	return cols
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Record implements sim.SnapshotSink.
func (c *CSVSink) Record(s sim.Snapshot) error {
	if !c.header {
		h := csvHeader(s)
		if err := c.w.Write(h); err != nil {
			return fmt.Errorf("csv header: %w", err)
		}
		c.header = true
		c.width = len(h)
	}
	row := make([]string, 0, c.width)
	row = append(row, formatFloat(s.Clock), s.Event)
	for _, in := range s.Inspectors {
		row = append(row, formatFloat(in.BlockedTime))
	}
	for _, p := range s.Products {
		row = append(row, strconv.Itoa(p.Count))
	}
	for _, q := range s.Queues {
		row = append(row, strconv.Itoa(q.Length))
	}
	for _, st := range s.Stations {
		row = append(row, strconv.FormatBool(st.Busy))
	}
	if len(row) != c.width {
		return fmt.Errorf("csv row at t=%v has %d columns, header has %d", s.Clock, len(row), c.width)
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("csv row at t=%v: %w", s.Clock, err)
	}
	return nil
}

// Close flushes buffered rows and closes the file if the sink owns one.
func (c *CSVSink) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Sink = (*CSVSink)(nil)
