// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/assembly-sim/sim/trace"
)

// EngineState is the lifecycle of a run.
type EngineState int

const (
	StateInitializing EngineState = iota
	StateRunning
	StateEnded
)

func (s EngineState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("EngineState(%d)", int(s))
	}
}

// EngineConfig groups everything needed to build an Engine.
type EngineConfig struct {
	Topology Topology
	Seed     int64
	Sampler  DelaySampler           // nil = ExponentialSampler
	Sink     SnapshotSink           // optional; receives a snapshot after every dispatch
	Trace    *trace.SimulationTrace // optional; nil disables decision tracing
}

// Engine is the event-scheduling kernel. It owns the future event list and
// an arena of inspectors and workstations addressed by small integer ids.
// Handlers run to completion; nothing here is safe for concurrent use.
type Engine struct {
	Clock   float64
	EndTime float64

	state        EngineState
	queue        *EventQueue
	inspectors   []*Inspector
	workstations []*Workstation
	candidates   [][]*Workstation // per inspector, resolved Candidates
	blocked      []InspectorID    // blocked set, in the order inspectors blocked
	outputs      map[ProductKind]int
	release      ReleaseScope

	rng     *PartitionedRNG
	sampler DelaySampler
	sink    SnapshotSink
	trace   *trace.SimulationTrace

	dispatched int
}

// NewEngine validates the topology, builds the arena and schedules the
// initial events: one inspection-complete per inspector and the
// simulation-end at the topology's end time.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	topo := cfg.Topology
	if topo.BufferCapacity == 0 {
		topo.BufferCapacity = DefaultBufferCapacity
	}
	if topo.Release == "" {
		topo.Release = ReleaseAll
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	sampler := cfg.Sampler
	if sampler == nil {
		sampler = ExponentialSampler{}
	}

	e := &Engine{
		EndTime: topo.EndTime,
		state:   StateInitializing,
		queue:   NewEventQueue(),
		outputs: make(map[ProductKind]int, len(ProductKinds)),
		release: topo.Release,
		rng:     NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		sampler: sampler,
		sink:    cfg.Sink,
		trace:   cfg.Trace,
	}

	byName := make(map[string]WorkstationID, len(topo.Workstations))
	for i, spec := range topo.Workstations {
		id := WorkstationID(i)
		product, _ := ParseProductKind(spec.Product)
		inputs := make([]ComponentKind, 0, len(spec.Inputs))
		for _, in := range spec.Inputs {
			k, _ := ParseComponentKind(in)
			inputs = append(inputs, k)
		}
		w := NewWorkstation(id, spec.ID, product, inputs, topo.BufferCapacity, spec.Rate, spec.Priority,
			sampler, e.rng.ForSubsystem(SubsystemAssembly(spec.ID)))
		e.workstations = append(e.workstations, w)
		byName[spec.ID] = id
	}

	for i, spec := range topo.Inspectors {
		id := InspectorID(i)
		rates := make(map[ComponentKind]float64, len(spec.Rates))
		for name, r := range spec.Rates {
			k, _ := ParseComponentKind(name)
			rates[k] = r
		}
		outs := make([]WorkstationID, 0, len(spec.Outputs))
		for _, name := range spec.Outputs {
			outs = append(outs, byName[name])
		}
		ins := NewInspector(id, spec.ID, rates, outs, NewRoutingPolicy(spec.Policy), sampler,
			e.rng.ForSubsystem(SubsystemInspection(spec.ID)), e.rng.ForSubsystem(SubsystemSelection(spec.ID)))
		resolved := make([]*Workstation, 0, len(ins.Candidates))
		for _, wid := range ins.Candidates {
			resolved = append(resolved, e.workstations[wid])
		}
		e.inspectors = append(e.inspectors, ins)
		e.candidates = append(e.candidates, resolved)
	}

	for _, ins := range e.inspectors {
		if err := e.ScheduleEvent(ins.NextCompletion(0), InspectionComplete(ins.ID)); err != nil {
			return nil, err
		}
	}
	if err := e.ScheduleEvent(e.EndTime, SimulationEnd()); err != nil {
		return nil, err
	}
	return e, nil
}

// State returns the lifecycle state of the run.
func (e *Engine) State() EngineState { return e.state }

// Pending returns the number of events in the future event list.
func (e *Engine) Pending() int { return e.queue.Len() }

// Dispatched returns the number of events processed so far.
func (e *Engine) Dispatched() int { return e.dispatched }

// Inspectors returns the inspector arena. Callers must not mutate it.
func (e *Engine) Inspectors() []*Inspector { return e.inspectors }

// Workstations returns the workstation arena. Callers must not mutate it.
func (e *Engine) Workstations() []*Workstation { return e.workstations }

// Inspector looks up an inspector by id.
func (e *Engine) Inspector(id InspectorID) (*Inspector, error) {
	if id < 0 || int(id) >= len(e.inspectors) {
		return nil, fmt.Errorf("inspector %d: %w", id, ErrUnknownID)
	}
	return e.inspectors[id], nil
}

// Workstation looks up a workstation by id.
func (e *Engine) Workstation(id WorkstationID) (*Workstation, error) {
	if id < 0 || int(id) >= len(e.workstations) {
		return nil, fmt.Errorf("workstation %d: %w", id, ErrUnknownID)
	}
	return e.workstations[id], nil
}

// InspectorByName looks up an inspector by its configured id.
func (e *Engine) InspectorByName(name string) (*Inspector, error) {
	for _, ins := range e.inspectors {
		if ins.Name == name {
			return ins, nil
		}
	}
	return nil, fmt.Errorf("inspector %q: %w", name, ErrUnknownID)
}

// WorkstationByName looks up a workstation by its configured id.
func (e *Engine) WorkstationByName(name string) (*Workstation, error) {
	for _, w := range e.workstations {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("workstation %q: %w", name, ErrUnknownID)
}

// Candidates returns the resolved destination list of an inspector.
func (e *Engine) Candidates(id InspectorID) []*Workstation { return e.candidates[id] }

// BlockedInspectors returns the blocked set in blocking order.
func (e *Engine) BlockedInspectors() []InspectorID {
	return append([]InspectorID(nil), e.blocked...)
}

// Output returns the number of products of kind completed so far.
func (e *Engine) Output(kind ProductKind) int { return e.outputs[kind] }

// ScheduleEvent inserts an event into the future event list. Times that are
// NaN, negative or earlier than the clock are rejected.
func (e *Engine) ScheduleEvent(at float64, p Payload) error {
	if math.IsNaN(at) || at < 0 || at < e.Clock {
		return fmt.Errorf("schedule %s at %v (clock %v): %w", p.Kind, at, e.Clock, ErrInvalidEventTime)
	}
	e.queue.Schedule(at, p)
	return nil
}

// Step dispatches the next event. It returns false once the run has ended.
// Errors abort the run: they mean a broken topology or a logic bug.
func (e *Engine) Step() (bool, error) {
	if e.state == StateEnded {
		return false, nil
	}
	e.state = StateRunning

	ev, ok := e.queue.PopNext()
	if !ok {
		// simulation-end is scheduled at construction and never removed early
		return false, fmt.Errorf("future event list empty at clock %v before simulation end", e.Clock)
	}
	if ev.Time < e.Clock {
		panic(fmt.Sprintf("Clock went backwards: %v < %v", ev.Time, e.Clock))
	}
	e.Clock = ev.Time
	logrus.Debugf("[t=%010.4f] dispatch %s", e.Clock, ev)

	var label string
	var err error
	switch ev.Kind {
	case EventInspectionComplete:
		label, err = e.handleInspectionComplete(ev.Inspector)
	case EventAssemblyComplete:
		label, err = e.handleAssemblyComplete(ev.Workstation)
	case EventSimulationEnd:
		label = e.handleSimulationEnd()
	default:
		panic(fmt.Sprintf("unhandled event kind %v", ev.Kind))
	}
	if err != nil {
		return false, err
	}
	e.dispatched++

	if e.sink != nil {
		if err := e.sink.Record(e.Snapshot(label)); err != nil {
			return false, fmt.Errorf("recording snapshot at %v: %w", e.Clock, err)
		}
	}
	return e.state != StateEnded, nil
}

// Run steps until the simulation-end event has been dispatched.
func (e *Engine) Run() error {
	logrus.Infof("simulation start: %d inspectors, %d workstations, end time %v",
		len(e.inspectors), len(e.workstations), e.EndTime)
	for {
		more, err := e.Step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	logrus.Infof("simulation end at %v after %d events", e.Clock, e.dispatched)
	return nil
}

func (e *Engine) handleInspectionComplete(id InspectorID) (string, error) {
	ins, err := e.Inspector(id)
	if err != nil {
		return "", err
	}
	label := fmt.Sprintf("%s(%s)", EventInspectionComplete, ins.Name)
	cands := e.candidates[id]

	if ins.IsBlocked(cands) {
		e.block(ins)
		ins.lastTransition = e.Clock
		return label, nil
	}

	h, err := e.handoff(ins)
	if err != nil {
		return "", err
	}
	if !h.Delivered {
		panic(fmt.Sprintf("inspector %s not blocked but hand-off refused", ins.Name))
	}
	if err := e.scheduleInspection(ins); err != nil {
		return "", err
	}
	ins.lastTransition = e.Clock
	if h.Assembly != nil {
		// the reservation emptied slots in h.Station's buffers
		if err := e.releaseBlocked([]WorkstationID{h.Station}); err != nil {
			return "", err
		}
	}
	return label, nil
}

func (e *Engine) handleAssemblyComplete(id WorkstationID) (string, error) {
	w, err := e.Workstation(id)
	if err != nil {
		return "", err
	}
	label := fmt.Sprintf("%s(%s)", EventAssemblyComplete, w.Name)
	if intent := w.Assemble(e.Clock); intent != nil {
		if err := e.ScheduleEvent(intent.At, AssemblyComplete(intent.Station)); err != nil {
			return "", err
		}
	}
	e.outputs[w.Product]++
	logrus.Debugf("[t=%010.4f] %s assembled %s (total %d)", e.Clock, w.Name, w.Product, e.outputs[w.Product])

	if err := e.releaseBlocked([]WorkstationID{id}); err != nil {
		return "", err
	}
	return label, nil
}

func (e *Engine) handleSimulationEnd() string {
	e.state = StateEnded
	return EventSimulationEnd.String()
}

// handoff runs OutputComponent for ins and schedules any assembly it started.
func (e *Engine) handoff(ins *Inspector) (Handoff, error) {
	cands := e.candidates[ins.ID]
	var depths []trace.QueueDepth
	if e.trace != nil {
		depths = queueDepths(ins.Held(), cands)
	}
	h, err := ins.OutputComponent(cands, e.Clock)
	if err != nil {
		return h, err
	}
	if e.trace != nil {
		rec := trace.RoutingRecord{
			Inspector: ins.Name,
			Clock:     e.Clock,
			Component: h.Kind.String(),
			Policy:    ins.Policy.Name(),
			Reason:    h.Decision.Reason,
			Depths:    depths,
		}
		if h.Delivered {
			rec.ChosenStation = e.workstations[h.Station].Name
		}
		e.trace.RecordRouting(rec)
	}
	if h.Assembly != nil {
		if err := e.ScheduleEvent(h.Assembly.At, AssemblyComplete(h.Assembly.Station)); err != nil {
			return h, err
		}
	}
	return h, nil
}

func (e *Engine) block(ins *Inspector) {
	if !ins.markBlocked(e.Clock) {
		return
	}
	e.blocked = append(e.blocked, ins.ID)
	logrus.Debugf("[t=%010.4f] %s blocked holding %s", e.Clock, ins.Name, ins.Held())
	if e.trace != nil {
		e.trace.RecordRouting(trace.RoutingRecord{
			Inspector: ins.Name,
			Clock:     e.Clock,
			Component: ins.Held().String(),
			Policy:    ins.Policy.Name(),
			Reason:    ins.Policy.Route(ins.Held(), e.candidates[ins.ID]).Reason,
			Depths:    queueDepths(ins.Held(), e.candidates[ins.ID]),
		})
		e.trace.RecordBlocked(ins.Name, ins.Held().String(), e.Clock)
	}
}

// releaseBlocked offers every eligible blocked inspector a chance to hand off.
// The set is walked as a copy and rebuilt afterwards. A release that starts an
// assembly frees more slots, so the sweep repeats for the stations that
// reserved until a pass frees nothing or nobody is left blocked.
func (e *Engine) releaseBlocked(freed []WorkstationID) error {
	for len(freed) > 0 && len(e.blocked) > 0 {
		sweep := append([]InspectorID(nil), e.blocked...)
		remaining := make([]InspectorID, 0, len(sweep))
		var reserved []WorkstationID

		for _, id := range sweep {
			ins := e.inspectors[id]
			if e.release == ReleaseMatching && !e.consumedByAny(freed, ins.Held()) {
				remaining = append(remaining, id)
				continue
			}
			h, err := e.handoff(ins)
			if err != nil {
				return err
			}
			if !h.Delivered {
				remaining = append(remaining, id)
				continue
			}
			waited := ins.markReleased(e.Clock)
			logrus.Debugf("[t=%010.4f] %s released to %s after %.4f", e.Clock, ins.Name,
				e.workstations[h.Station].Name, waited)
			if e.trace != nil {
				e.trace.RecordReleased(ins.Name, e.Clock)
			}
			if err := e.scheduleInspection(ins); err != nil {
				return err
			}
			ins.lastTransition = e.Clock
			if h.Assembly != nil {
				reserved = append(reserved, h.Station)
			}
		}

		e.blocked = remaining
		freed = reserved
	}
	return nil
}

func (e *Engine) consumedByAny(stations []WorkstationID, kind ComponentKind) bool {
	for _, id := range stations {
		if _, ok := e.workstations[id].Buffer(kind); ok {
			return true
		}
	}
	return false
}

func (e *Engine) scheduleInspection(ins *Inspector) error {
	return e.ScheduleEvent(ins.NextCompletion(e.Clock), InspectionComplete(ins.ID))
}

func queueDepths(kind ComponentKind, cands []*Workstation) []trace.QueueDepth {
	depths := make([]trace.QueueDepth, 0, len(cands))
	for _, w := range cands {
		if b, ok := w.Buffer(kind); ok {
			depths = append(depths, trace.QueueDepth{Station: w.Name, Length: b.Len(), Capacity: b.Cap()})
		}
	}
	return depths
}

// Snapshot captures the current state for a sink. event labels the dispatch
// that produced it.
func (e *Engine) Snapshot(event string) Snapshot {
	s := Snapshot{
		Seq:        e.dispatched,
		Clock:      e.Clock,
		Event:      event,
		Inspectors: make([]InspectorSample, 0, len(e.inspectors)),
		Products:   make([]ProductCount, 0, len(ProductKinds)),
		Stations:   make([]StationSample, 0, len(e.workstations)),
	}
	for _, ins := range e.inspectors {
		s.Inspectors = append(s.Inspectors, InspectorSample{
			Name:        ins.Name,
			Holding:     ins.Held().String(),
			Blocked:     ins.Blocked(),
			BlockedTime: ins.BlockedTime(e.Clock),
		})
	}
	for _, p := range ProductKinds {
		s.Products = append(s.Products, ProductCount{Product: p.String(), Count: e.outputs[p]})
	}
	for _, w := range e.workstations {
		s.Stations = append(s.Stations, StationSample{Name: w.Name, Busy: w.IsBusy()})
		for _, k := range w.inputs {
			s.Queues = append(s.Queues, QueueSample{Station: w.Name, Component: k.String(), Length: w.buffers[k].Len()})
		}
	}
	return s
}
