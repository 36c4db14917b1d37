package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions      int
	DeliveredCount      int
	RefusedCount        int
	UniqueTargets       int
	TargetDistribution  map[string]int // station -> count of units delivered
	BlockingEpisodes    int
	OpenEpisodes        int
	MeanBlockedInterval float64 // over closed episodes
	MaxBlockedInterval  float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Routings)
	for _, r := range st.Routings {
		if r.Delivered() {
			summary.DeliveredCount++
			summary.TargetDistribution[r.ChosenStation]++
		} else {
			summary.RefusedCount++
		}
	}
	summary.UniqueTargets = len(summary.TargetDistribution)

	summary.BlockingEpisodes = len(st.Blocking)
	closed := 0
	total := 0.0
	for _, b := range st.Blocking {
		if b.Open() {
			summary.OpenEpisodes++
			continue
		}
		d := b.Duration()
		total += d
		closed++
		if d > summary.MaxBlockedInterval {
			summary.MaxBlockedInterval = d
		}
	}
	if closed > 0 {
		summary.MeanBlockedInterval = total / float64(closed)
	}

	return summary
}
