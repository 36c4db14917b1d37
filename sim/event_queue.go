package sim

import "container/heap"

// EventQueue is the future event list: a binary heap with deterministic
// ordering. Order by: time -> kind priority -> insertion sequence.
type EventQueue struct {
	events  []Event
	nextSeq uint64
}

// NewEventQueue creates an empty future event list.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make([]Event, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *EventQueue) Len() int { return len(q.events) }

// Less implements heap.Interface with deterministic ordering
func (q *EventQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]

	// Primary: time (earlier first)
	if ei.Time != ej.Time {
		return ei.Time < ej.Time
	}

	// Secondary: kind priority (lower value first)
	pi, pj := eventKindPriority[ei.Kind], eventKindPriority[ej.Kind]
	if pi != pj {
		return pi < pj
	}

	// Tertiary: insertion order
	return ei.Seq < ej.Seq
}

// Swap implements heap.Interface
func (q *EventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

// Push implements heap.Interface. Use Schedule instead.
func (q *EventQueue) Push(x any) {
	q.events = append(q.events, x.(Event))
}

// Pop implements heap.Interface. Use PopNext instead.
func (q *EventQueue) Pop() any {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[0 : n-1]
	return item
}

// Schedule stamps the payload with the next sequence number and inserts it.
func (q *EventQueue) Schedule(at float64, p Payload) Event {
	q.nextSeq++
	e := Event{Time: at, Payload: p, Seq: q.nextSeq}
	heap.Push(q, e)
	return e
}

// PopNext removes and returns the earliest event.
func (q *EventQueue) PopNext() (Event, bool) {
	if q.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(q).(Event), true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if q.Len() == 0 {
		return Event{}, false
	}
	return q.events[0], true
}
