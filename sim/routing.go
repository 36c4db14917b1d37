package sim

import "fmt"

// RoutingDecision is the outcome of a routing policy evaluation.
type RoutingDecision struct {
	Target int    // index into the candidate list; -1 when no station can take the unit
	Reason string // human-readable explanation, recorded in decision traces
}

// None reports whether the decision found no destination.
func (d RoutingDecision) None() bool { return d.Target < 0 }

func noDestination(reason string) RoutingDecision {
	return RoutingDecision{Target: -1, Reason: reason}
}

// RoutingPolicy picks the workstation an inspector hands its unit to.
// Route must not change policy state: an inspector may ask whether it is
// blocked any number of times between hand-offs.
type RoutingPolicy interface {
	Route(kind ComponentKind, candidates []*Workstation) RoutingDecision
	Name() string
}

// deliveryObserver is implemented by policies that keep state across hand-offs.
type deliveryObserver interface {
	Delivered(kind ComponentKind, candidates []*Workstation, target int)
}

// FirstFit picks the first candidate, in declared order, that can accept.
type FirstFit struct{}

func (FirstFit) Name() string { return "first-fit" }

// Route implements RoutingPolicy for FirstFit.
func (FirstFit) Route(kind ComponentKind, candidates []*Workstation) RoutingDecision {
	for i, w := range candidates {
		if w.CanAccept(kind) {
			return RoutingDecision{Target: i, Reason: fmt.Sprintf("first-fit[%d]", i)}
		}
	}
	return noDestination("first-fit: no candidate has space")
}

// ShortestQueue picks the candidate whose buffer for the kind holds the fewest
// units. Ties go to the lower Priority, then to declared order. If the pick is
// full (every buffer is full) there is no destination.
type ShortestQueue struct{}

func (ShortestQueue) Name() string { return "shortest-queue" }

// Route implements RoutingPolicy for ShortestQueue.
func (ShortestQueue) Route(kind ComponentKind, candidates []*Workstation) RoutingDecision {
	best := -1
	bestLen := 0
	for i, w := range candidates {
		b, ok := w.Buffer(kind)
		if !ok {
			continue
		}
		if best < 0 || b.Len() < bestLen ||
			(b.Len() == bestLen && w.Priority < candidates[best].Priority) {
			best, bestLen = i, b.Len()
		}
	}
	if best < 0 {
		return noDestination(fmt.Sprintf("shortest-queue: no candidate consumes %s", kind))
	}
	if !candidates[best].CanAccept(kind) {
		return noDestination(fmt.Sprintf("shortest-queue: shortest queue %s is full", candidates[best].Name))
	}
	return RoutingDecision{
		Target: best,
		Reason: fmt.Sprintf("shortest-queue (len=%d, priority=%d)", bestLen, candidates[best].Priority),
	}
}

// RoundRobin cycles over the candidates that consume the held kind. When the
// current target is full the inspector waits for it; the cursor never skips
// ahead to another station. Each kind has its own cursor, moved one position
// per delivery of that kind.
type RoundRobin struct {
	cursor map[ComponentKind]int
}

func (*RoundRobin) Name() string { return "round-robin" }

// Route implements RoutingPolicy for RoundRobin.
func (rr *RoundRobin) Route(kind ComponentKind, candidates []*Workstation) RoutingDecision {
	eligible := eligibleFor(kind, candidates)
	if len(eligible) == 0 {
		return noDestination(fmt.Sprintf("round-robin: no candidate consumes %s", kind))
	}
	pos := rr.cursor[kind]
	target := eligible[pos%len(eligible)]
	if !candidates[target].CanAccept(kind) {
		return noDestination(fmt.Sprintf("round-robin[%s/%d]: %s is full", kind, pos, candidates[target].Name))
	}
	return RoutingDecision{Target: target, Reason: fmt.Sprintf("round-robin[%s/%d]", kind, pos)}
}

// Delivered advances kind's cursor past the station that just received a unit.
func (rr *RoundRobin) Delivered(kind ComponentKind, candidates []*Workstation, target int) {
	if rr.cursor == nil {
		rr.cursor = make(map[ComponentKind]int)
	}
	rr.cursor[kind]++
}

func eligibleFor(kind ComponentKind, candidates []*Workstation) []int {
	idx := make([]int, 0, len(candidates))
	for i, w := range candidates {
		if _, ok := w.Buffer(kind); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// validRoutingPolicies maps accepted policy names.
var validRoutingPolicies = map[string]bool{
	"":               true, // empty defaults to first-fit
	"first-fit":      true,
	"naive":          true,
	"shortest-queue": true,
	"round-robin":    true,
}

// IsValidRoutingPolicy returns true if name is a recognized routing policy.
func IsValidRoutingPolicy(name string) bool { return validRoutingPolicies[name] }

// NewRoutingPolicy creates a routing policy by name.
// Empty string and "naive" select first-fit.
// Panics on unrecognized names; validate with IsValidRoutingPolicy first.
func NewRoutingPolicy(name string) RoutingPolicy {
	if !IsValidRoutingPolicy(name) {
		panic(fmt.Sprintf("unknown routing policy %q", name))
	}
	switch name {
	case "", "first-fit", "naive":
		return FirstFit{}
	case "shortest-queue":
		return ShortestQueue{}
	case "round-robin":
		return &RoundRobin{}
	default:
		panic(fmt.Sprintf("unhandled routing policy %q", name))
	}
}
