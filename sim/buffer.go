package sim

import "fmt"

// DefaultBufferCapacity is the capacity of every buffer in the reference line.
const DefaultBufferCapacity = 2

// Unit is one component sitting in a buffer. Serial is assigned on enqueue
// and increases by one per unit, so FIFO order is observable even though
// units of the same kind are interchangeable.
type Unit struct {
	Kind   ComponentKind
	Serial uint64
}

// Buffer is a fixed-capacity FIFO of a single component kind.
// It is owned by exactly one workstation.
type Buffer struct {
	kind     ComponentKind
	units    []Unit // ring storage, len == capacity
	head     int
	length   int
	enqueued uint64
	dequeued uint64
}

// NewBuffer creates an empty buffer. Panics if capacity < 1.
func NewBuffer(kind ComponentKind, capacity int) *Buffer {
	if capacity < 1 {
		panic(fmt.Sprintf("NewBuffer: capacity must be >= 1, got %d", capacity))
	}
	return &Buffer{
		kind:  kind,
		units: make([]Unit, capacity),
	}
}

// Enqueue appends a unit of kind. Fails with ErrKindMismatch if kind is not
// the buffer's kind and with ErrBufferFull if the buffer is at capacity.
func (b *Buffer) Enqueue(kind ComponentKind) (Unit, error) {
	if kind != b.kind {
		return Unit{}, fmt.Errorf("enqueue %s into %s buffer: %w", kind, b.kind, ErrKindMismatch)
	}
	if b.IsFull() {
		return Unit{}, fmt.Errorf("enqueue %s: %w", kind, ErrBufferFull)
	}
	u := Unit{Kind: kind, Serial: b.enqueued}
	b.units[(b.head+b.length)%len(b.units)] = u
	b.length++
	b.enqueued++
	return u, nil
}

// Dequeue removes and returns the oldest unit. Fails with ErrBufferEmpty.
func (b *Buffer) Dequeue() (Unit, error) {
	if b.IsEmpty() {
		return Unit{}, fmt.Errorf("dequeue %s: %w", b.kind, ErrBufferEmpty)
	}
	u := b.units[b.head]
	b.units[b.head] = Unit{}
	b.head = (b.head + 1) % len(b.units)
	b.length--
	b.dequeued++
	return u, nil
}

func (b *Buffer) Kind() ComponentKind { return b.kind }
func (b *Buffer) Len() int            { return b.length }
func (b *Buffer) Cap() int            { return len(b.units) }
func (b *Buffer) IsFull() bool        { return b.length == len(b.units) }
func (b *Buffer) IsEmpty() bool       { return b.length == 0 }

// Enqueued returns the number of units ever accepted.
func (b *Buffer) Enqueued() uint64 { return b.enqueued }

// Dequeued returns the number of units ever removed.
func (b *Buffer) Dequeued() uint64 { return b.dequeued }
