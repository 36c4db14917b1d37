package sim

import (
	"fmt"
	"math/rand"
	"sort"
)

// WorkstationID is an index into the engine's workstation arena.
type WorkstationID int

// AssemblyIntent is a workstation's request to have an assembly-complete
// event scheduled. The workstation never touches the event list itself.
type AssemblyIntent struct {
	Station WorkstationID
	At      float64
}

// Workstation assembles one product from one unit of each input kind.
//
// Units are reserved (dequeued) when assembly starts, not when it finishes,
// so a second readiness check while busy can never double-schedule.
type Workstation struct {
	ID       WorkstationID
	Name     string
	Product  ProductKind
	Rate     float64 // service rate of the exponential assembly time
	Priority int     // lower wins shortest-queue ties

	inputs  []ComponentKind // sorted, one per buffer
	buffers map[ComponentKind]*Buffer

	sampler DelaySampler
	stream  *rand.Rand

	busy      bool
	busySince float64
	busyTime  float64
	started   int
	produced  int
}

// NewWorkstation creates an idle workstation owning one buffer per input kind.
func NewWorkstation(id WorkstationID, name string, product ProductKind, inputs []ComponentKind,
	capacity int, rate float64, priority int, sampler DelaySampler, stream *rand.Rand) *Workstation {
	w := &Workstation{
		ID:       id,
		Name:     name,
		Product:  product,
		Rate:     rate,
		Priority: priority,
		buffers:  make(map[ComponentKind]*Buffer, len(inputs)),
		sampler:  sampler,
		stream:   stream,
	}
	for _, k := range inputs {
		if _, dup := w.buffers[k]; dup {
			continue
		}
		w.buffers[k] = NewBuffer(k, capacity)
		w.inputs = append(w.inputs, k)
	}
	sort.Slice(w.inputs, func(i, j int) bool { return w.inputs[i] < w.inputs[j] })
	return w
}

// Inputs returns the component kinds this station consumes, sorted.
func (w *Workstation) Inputs() []ComponentKind {
	return append([]ComponentKind(nil), w.inputs...)
}

// Buffer returns the buffer for kind, or false if the station does not use it.
func (w *Workstation) Buffer(kind ComponentKind) (*Buffer, bool) {
	b, ok := w.buffers[kind]
	return b, ok
}

// CanAccept reports whether the station owns a non-full buffer for kind.
func (w *Workstation) CanAccept(kind ComponentKind) bool {
	b, ok := w.buffers[kind]
	return ok && !b.IsFull()
}

// AllComponentsReady reports whether every buffer holds at least one unit.
func (w *Workstation) AllComponentsReady() bool {
	for _, k := range w.inputs {
		if w.buffers[k].IsEmpty() {
			return false
		}
	}
	return true
}

// MissingComponents lists the input kinds whose buffers are empty.
func (w *Workstation) MissingComponents() []ComponentKind {
	var missing []ComponentKind
	for _, k := range w.inputs {
		if w.buffers[k].IsEmpty() {
			missing = append(missing, k)
		}
	}
	return missing
}

func (w *Workstation) IsBusy() bool { return w.busy }

// AcceptComponent puts a unit of kind into its buffer. If that completes a set
// of inputs and the station is idle, the set is reserved and an intent for the
// assembly-complete event is returned. A nil intent means nothing to schedule.
func (w *Workstation) AcceptComponent(kind ComponentKind, now float64) (*AssemblyIntent, error) {
	b, ok := w.buffers[kind]
	if !ok {
		return nil, fmt.Errorf("workstation %s has no %s buffer: %w", w.Name, kind, ErrKindMismatch)
	}
	if _, err := b.Enqueue(kind); err != nil {
		return nil, fmt.Errorf("workstation %s: %w", w.Name, err)
	}
	return w.tryStart(now)
}

// Assemble completes the running assembly. If the buffers were refilled while
// busy the next set is reserved straight away and its intent returned.
// Panics if the station is not busy.
func (w *Workstation) Assemble(now float64) *AssemblyIntent {
	if !w.busy {
		panic(fmt.Sprintf("Assemble called on idle workstation %s", w.Name))
	}
	w.busy = false
	w.busyTime += now - w.busySince
	w.produced++
	intent, err := w.tryStart(now)
	if err != nil {
		// tryStart only dequeues from buffers it has just seen non-empty.
		panic(fmt.Sprintf("workstation %s: %v", w.Name, err))
	}
	return intent
}

func (w *Workstation) tryStart(now float64) (*AssemblyIntent, error) {
	if w.busy || !w.AllComponentsReady() {
		return nil, nil
	}
	for _, k := range w.inputs {
		if _, err := w.buffers[k].Dequeue(); err != nil {
			return nil, fmt.Errorf("workstation %s reserve: %w", w.Name, err)
		}
	}
	w.busy = true
	w.busySince = now
	w.started++
	return &AssemblyIntent{
		Station: w.ID,
		At:      now + w.sampler.Delay(w.Rate, w.stream),
	}, nil
}

// BusyTime returns the cumulative busy time up to now, including a running assembly.
func (w *Workstation) BusyTime(now float64) float64 {
	if w.busy {
		return w.busyTime + (now - w.busySince)
	}
	return w.busyTime
}

// Produced returns the number of completed assemblies.
func (w *Workstation) Produced() int { return w.produced }

// Started returns the number of reservations made.
func (w *Workstation) Started() int { return w.started }
