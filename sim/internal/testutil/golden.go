package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one seeded run with its expected outcome.
type GoldenTestCase struct {
	Name     string        `json:"name"`
	Topology string        `json:"topology"` // "default" = sim.DefaultTopology
	Seed     int64         `json:"seed"`
	Metrics  GoldenMetrics `json:"metrics"`
}

// GoldenMetrics holds the expected end-of-run values.
type GoldenMetrics struct {
	// Exact match
	TotalProducts int            `json:"total_products"`
	Products      map[string]int `json:"products"`

	// Compared with relative tolerance; stored rounded to two decimals
	BlockedTime map[string]float64 `json:"blocked_time"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}
