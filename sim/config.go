package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ReleaseScope selects which blocked inspectors a release sweep reconsiders.
type ReleaseScope string

const (
	// ReleaseAll reconsiders every blocked inspector.
	ReleaseAll ReleaseScope = "all"
	// ReleaseMatching reconsiders only inspectors holding a kind the freed
	// station consumes.
	ReleaseMatching ReleaseScope = "matching"
)

var validReleaseScopes = map[ReleaseScope]bool{
	ReleaseAll:      true,
	ReleaseMatching: true,
	"":              true, // empty defaults to all
}

// IsValidReleaseScope returns true if scope is a recognized release scope.
func IsValidReleaseScope(scope string) bool { return validReleaseScopes[ReleaseScope(scope)] }

// Topology describes a production line. Loaded from YAML via LoadTopology.
type Topology struct {
	Version        string            `yaml:"version"`
	EndTime        float64           `yaml:"end_time"`
	BufferCapacity int               `yaml:"buffer_capacity,omitempty"` // 0 = DefaultBufferCapacity
	Release        ReleaseScope      `yaml:"release,omitempty"`
	Workstations   []WorkstationSpec `yaml:"workstations"`
	Inspectors     []InspectorSpec   `yaml:"inspectors"`
}

// WorkstationSpec configures one workstation.
type WorkstationSpec struct {
	ID       string   `yaml:"id"`
	Product  string   `yaml:"product"`
	Inputs   []string `yaml:"inputs"`
	Rate     float64  `yaml:"rate"`
	Priority int      `yaml:"priority,omitempty"` // lower wins shortest-queue ties
}

// InspectorSpec configures one inspector. The keys of Rates are the kinds it
// produces.
type InspectorSpec struct {
	ID      string             `yaml:"id"`
	Policy  string             `yaml:"policy"`
	Outputs []string           `yaml:"outputs"`
	Rates   map[string]float64 `yaml:"rates"`
}

// DefaultTopology returns the reference line: two inspectors, three
// workstations, buffers of two.
func DefaultTopology() Topology {
	return Topology{
		Version:        "1",
		EndTime:        1000,
		BufferCapacity: DefaultBufferCapacity,
		Release:        ReleaseAll,
		Workstations: []WorkstationSpec{
			{ID: "WS1", Product: "P1", Inputs: []string{"C1"}, Rate: 0.2172, Priority: 1},
			{ID: "WS2", Product: "P2", Inputs: []string{"C1", "C2"}, Rate: 0.09015, Priority: 2},
			{ID: "WS3", Product: "P3", Inputs: []string{"C1", "C3"}, Rate: 0.1137, Priority: 3},
		},
		Inspectors: []InspectorSpec{
			{ID: "IN1", Policy: "shortest-queue", Outputs: []string{"WS1", "WS2", "WS3"},
				Rates: map[string]float64{"C1": 0.0965}},
			{ID: "IN2", Policy: "first-fit", Outputs: []string{"WS2", "WS3"},
				Rates: map[string]float64{"C2": 0.0644, "C3": 0.0485}},
		},
	}
}

// LoadTopology reads a topology file with strict field checking: unknown keys
// are errors so typos do not silently fall back to defaults.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	return ParseTopology(data)
}

// ParseTopology decodes a YAML topology and fills defaults. It does not validate.
func ParseTopology(data []byte) (*Topology, error) {
	var t Topology
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if t.BufferCapacity == 0 {
		t.BufferCapacity = DefaultBufferCapacity
	}
	if t.Release == "" {
		t.Release = ReleaseAll
	}
	return &t, nil
}

// Validate checks that the topology can be built into an engine.
// All failures wrap ErrInvalidTopology; dangling station references also
// wrap ErrUnknownID.
func (t *Topology) Validate() error {
	if math.IsNaN(t.EndTime) || math.IsInf(t.EndTime, 0) || t.EndTime <= 0 {
		return fmt.Errorf("%w: end_time must be positive and finite, got %v", ErrInvalidTopology, t.EndTime)
	}
	if t.BufferCapacity < 0 {
		return fmt.Errorf("%w: buffer_capacity must be >= 1, got %d", ErrInvalidTopology, t.BufferCapacity)
	}
	if !validReleaseScopes[t.Release] {
		return fmt.Errorf("%w: unknown release scope %q; valid: all, matching", ErrInvalidTopology, t.Release)
	}
	if len(t.Workstations) == 0 {
		return fmt.Errorf("%w: at least one workstation required", ErrInvalidTopology)
	}
	if len(t.Inspectors) == 0 {
		return fmt.Errorf("%w: at least one inspector required", ErrInvalidTopology)
	}

	consumers := make(map[string]map[ComponentKind]bool, len(t.Workstations))
	for i, w := range t.Workstations {
		if w.ID == "" {
			return fmt.Errorf("%w: workstations[%d]: id required", ErrInvalidTopology, i)
		}
		if _, dup := consumers[w.ID]; dup {
			return fmt.Errorf("%w: duplicate workstation id %q", ErrInvalidTopology, w.ID)
		}
		if _, err := ParseProductKind(w.Product); err != nil {
			return fmt.Errorf("%w: workstation %s: %v", ErrInvalidTopology, w.ID, err)
		}
		if !(w.Rate > 0) {
			return fmt.Errorf("%w: workstation %s: rate must be positive, got %v", ErrInvalidTopology, w.ID, w.Rate)
		}
		if len(w.Inputs) == 0 {
			return fmt.Errorf("%w: workstation %s: at least one input required", ErrInvalidTopology, w.ID)
		}
		kinds := make(map[ComponentKind]bool, len(w.Inputs))
		for _, in := range w.Inputs {
			k, err := ParseComponentKind(in)
			if err != nil {
				return fmt.Errorf("%w: workstation %s: %v", ErrInvalidTopology, w.ID, err)
			}
			if kinds[k] {
				return fmt.Errorf("%w: workstation %s: duplicate input %s", ErrInvalidTopology, w.ID, k)
			}
			kinds[k] = true
		}
		consumers[w.ID] = kinds
	}

	seen := make(map[string]bool, len(t.Inspectors))
	for i, ins := range t.Inspectors {
		if ins.ID == "" {
			return fmt.Errorf("%w: inspectors[%d]: id required", ErrInvalidTopology, i)
		}
		if seen[ins.ID] {
			return fmt.Errorf("%w: duplicate inspector id %q", ErrInvalidTopology, ins.ID)
		}
		seen[ins.ID] = true
		if !IsValidRoutingPolicy(ins.Policy) {
			return fmt.Errorf("%w: inspector %s: unknown policy %q; valid: first-fit, naive, shortest-queue, round-robin",
				ErrInvalidTopology, ins.ID, ins.Policy)
		}
		if len(ins.Rates) == 0 {
			return fmt.Errorf("%w: inspector %s: at least one component rate required", ErrInvalidTopology, ins.ID)
		}
		if len(ins.Outputs) == 0 {
			return fmt.Errorf("%w: inspector %s: at least one output required", ErrInvalidTopology, ins.ID)
		}
		for _, out := range ins.Outputs {
			if _, ok := consumers[out]; !ok {
				return fmt.Errorf("%w: inspector %s: output %q: %w", ErrInvalidTopology, ins.ID, out, ErrUnknownID)
			}
		}
		for name, rate := range ins.Rates {
			k, err := ParseComponentKind(name)
			if err != nil {
				return fmt.Errorf("%w: inspector %s: %v", ErrInvalidTopology, ins.ID, err)
			}
			if !(rate > 0) {
				return fmt.Errorf("%w: inspector %s: rate for %s must be positive, got %v", ErrInvalidTopology, ins.ID, k, rate)
			}
			consumed := false
			for _, out := range ins.Outputs {
				consumed = consumed || consumers[out][k]
			}
			if !consumed {
				logrus.Warnf("inspector %s produces %s but none of its outputs consume it; it will block forever once it draws one", ins.ID, k)
			}
		}
	}
	return nil
}
