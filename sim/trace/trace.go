package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every routing decision and blocking interval.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a simulation run.
type SimulationTrace struct {
	Config   TraceConfig
	Routings []RoutingRecord
	Blocking []BlockingRecord

	open map[string]int // inspector -> index of its open BlockingRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Routings: make([]RoutingRecord, 0),
		Blocking: make([]BlockingRecord, 0),
		open:     make(map[string]int),
	}
}

// RecordRouting appends a routing decision record.
func (st *SimulationTrace) RecordRouting(record RoutingRecord) {
	st.Routings = append(st.Routings, record)
}

// RecordBlocked opens a blocking interval for inspector. A second call while
// the interval is open is ignored.
func (st *SimulationTrace) RecordBlocked(inspector, component string, clock float64) {
	if _, ok := st.open[inspector]; ok {
		return
	}
	st.open[inspector] = len(st.Blocking)
	st.Blocking = append(st.Blocking, BlockingRecord{
		Inspector: inspector,
		Component: component,
		Start:     clock,
		End:       -1,
	})
}

// RecordReleased closes the inspector's open blocking interval, if any.
func (st *SimulationTrace) RecordReleased(inspector string, clock float64) {
	idx, ok := st.open[inspector]
	if !ok {
		return
	}
	st.Blocking[idx].End = clock
	delete(st.open, inspector)
}
