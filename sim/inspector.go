package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// InspectorID is an index into the engine's inspector arena.
type InspectorID int

// Handoff reports what OutputComponent did.
type Handoff struct {
	Delivered bool
	Kind      ComponentKind   // the unit that was offered
	Station   WorkstationID   // valid when Delivered
	Decision  RoutingDecision // policy outcome, kept for tracing
	Assembly  *AssemblyIntent // non-nil when the hand-off started an assembly
}

// Inspector produces one component at a time and pushes it downstream.
// It always holds exactly one component between hand-offs.
type Inspector struct {
	ID         InspectorID
	Name       string
	Kinds      []ComponentKind // allowed kinds, sorted
	Candidates []WorkstationID // declared destination order
	Policy     RoutingPolicy
	Rates      map[ComponentKind]float64

	sampler   DelaySampler
	service   *rand.Rand
	selection *rand.Rand

	held           ComponentKind
	blockedTime    float64
	blockedSince   float64
	blocked        bool
	lastTransition float64
	delivered      int
}

// NewInspector creates an inspector and draws its first component.
// Panics if kinds is empty or a kind has no rate; topology validation
// rejects both earlier.
func NewInspector(id InspectorID, name string, rates map[ComponentKind]float64, candidates []WorkstationID,
	policy RoutingPolicy, sampler DelaySampler, service, selection *rand.Rand) *Inspector {
	if len(rates) == 0 {
		panic(fmt.Sprintf("NewInspector %s: no component kinds", name))
	}
	kinds := make([]ComponentKind, 0, len(rates))
	for k := range rates {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	ins := &Inspector{
		ID:         id,
		Name:       name,
		Kinds:      kinds,
		Candidates: append([]WorkstationID(nil), candidates...),
		Policy:     policy,
		Rates:      rates,
		sampler:    sampler,
		service:    service,
		selection:  selection,
	}
	ins.held = ins.ChooseInput()
	return ins
}

// Held returns the component currently held.
func (ins *Inspector) Held() ComponentKind { return ins.held }

// ChooseInput draws the next component uniformly from the allowed kinds.
func (ins *Inspector) ChooseInput() ComponentKind {
	if len(ins.Kinds) == 1 {
		return ins.Kinds[0]
	}
	return ins.Kinds[ins.selection.Intn(len(ins.Kinds))]
}

// NextCompletion returns base plus an inspection time for the held kind.
func (ins *Inspector) NextCompletion(base float64) float64 {
	return ins.GenerateCompletionTime(base, ins.held)
}

// GenerateCompletionTime returns base plus an inspection time drawn with the
// rate this inspector uses for kind.
func (ins *Inspector) GenerateCompletionTime(base float64, kind ComponentKind) float64 {
	rate, ok := ins.Rates[kind]
	if !ok {
		panic(fmt.Sprintf("inspector %s has no rate for %s", ins.Name, kind))
	}
	return base + ins.sampler.Delay(rate, ins.service)
}

// ChooseOutput evaluates the routing policy for the held component.
// candidates must be the resolved Candidates, in order. A nil station means
// no destination can take the unit right now.
func (ins *Inspector) ChooseOutput(candidates []*Workstation) (*Workstation, RoutingDecision) {
	d := ins.Policy.Route(ins.held, candidates)
	if d.None() {
		return nil, d
	}
	return candidates[d.Target], d
}

// IsBlocked reports whether no destination can take the held component.
// It has no side effects.
func (ins *Inspector) IsBlocked(candidates []*Workstation) bool {
	w, _ := ins.ChooseOutput(candidates)
	return w == nil
}

// OutputComponent hands the held component to the chosen station and draws a
// new one. With no destination it returns Delivered=false and keeps the unit.
// Errors come only from the station's buffers.
func (ins *Inspector) OutputComponent(candidates []*Workstation, now float64) (Handoff, error) {
	w, d := ins.ChooseOutput(candidates)
	h := Handoff{Kind: ins.held, Decision: d}
	if w == nil {
		return h, nil
	}
	intent, err := w.AcceptComponent(ins.held, now)
	if err != nil {
		return h, fmt.Errorf("inspector %s: %w", ins.Name, err)
	}
	if obs, ok := ins.Policy.(deliveryObserver); ok {
		obs.Delivered(ins.held, candidates, d.Target)
	}
	h.Delivered = true
	h.Station = w.ID
	h.Assembly = intent
	ins.delivered++
	ins.held = ins.ChooseInput()
	return h, nil
}

// markBlocked starts a blocked interval unless one is already open.
// Returns false if the inspector was already blocked.
func (ins *Inspector) markBlocked(now float64) bool {
	if ins.blocked {
		return false
	}
	ins.blocked = true
	ins.blockedSince = now
	return true
}

// markReleased closes the open blocked interval and returns its length.
func (ins *Inspector) markReleased(now float64) float64 {
	if !ins.blocked {
		return 0
	}
	d := now - ins.blockedSince
	ins.blockedTime += d
	ins.blocked = false
	return d
}

// Blocked reports whether the inspector is in the engine's blocked set.
func (ins *Inspector) Blocked() bool { return ins.blocked }

// BlockedSince returns when the open blocked interval began.
func (ins *Inspector) BlockedSince() float64 { return ins.blockedSince }

// BlockedTime returns the cumulative blocked time up to now, including an
// open interval.
func (ins *Inspector) BlockedTime(now float64) float64 {
	if ins.blocked {
		return ins.blockedTime + (now - ins.blockedSince)
	}
	return ins.blockedTime
}

// LastTransition returns the time of the inspector's last state change.
func (ins *Inspector) LastTransition() float64 { return ins.lastTransition }

// Delivered returns how many components this inspector has handed off.
func (ins *Inspector) Delivered() int { return ins.delivered }
