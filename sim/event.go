package sim

import "fmt"

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventInspectionComplete EventKind = iota + 1
	EventAssemblyComplete
	EventSimulationEnd
)

func (k EventKind) String() string {
	switch k {
	case EventInspectionComplete:
		return "inspection-complete"
	case EventAssemblyComplete:
		return "assembly-complete"
	case EventSimulationEnd:
		return "simulation-end"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// eventKindPriority orders events that share a timestamp. Assembly
// completions run first so freed capacity is visible to inspections at the
// same instant; simulation-end runs last.
var eventKindPriority = map[EventKind]int{
	EventAssemblyComplete:   0,
	EventInspectionComplete: 1,
	EventSimulationEnd:      2,
}

// Payload says what happens when an event fires. Only the id matching Kind is
// meaningful.
type Payload struct {
	Kind        EventKind
	Inspector   InspectorID
	Workstation WorkstationID
}

// InspectionComplete builds the payload for inspector id finishing a component.
func InspectionComplete(id InspectorID) Payload {
	return Payload{Kind: EventInspectionComplete, Inspector: id}
}

// AssemblyComplete builds the payload for workstation id finishing a product.
func AssemblyComplete(id WorkstationID) Payload {
	return Payload{Kind: EventAssemblyComplete, Workstation: id}
}

// SimulationEnd builds the payload that stops the run.
func SimulationEnd() Payload {
	return Payload{Kind: EventSimulationEnd}
}

// Event is a scheduled payload. Seq is assigned by the queue on insertion and
// is the final tie-breaker.
type Event struct {
	Time float64
	Payload
	Seq uint64
}

func (e Event) String() string {
	switch e.Kind {
	case EventInspectionComplete:
		return fmt.Sprintf("%s(inspector=%d)@%.4f", e.Kind, e.Inspector, e.Time)
	case EventAssemblyComplete:
		return fmt.Sprintf("%s(workstation=%d)@%.4f", e.Kind, e.Workstation, e.Time)
	default:
		return fmt.Sprintf("%s@%.4f", e.Kind, e.Time)
	}
}
