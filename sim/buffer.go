package sim

import (
	"fmt"

	"github.com/factory-sim/factory-sim/sim/trace"
)

// Buffer is an ordered queue of parts awaiting a station or awaiting merge.
// Occupancy never exceeds capacity; a part is in exactly one buffer or
// exactly one station at any instant. A buffer feeds at most one station
// (parallel machines live inside the Station, not in the topology).
type Buffer struct {
	Name     string
	Capacity int // 0 = unbounded
	Policy   OverflowPolicy

	parts []*Part
	Peak  int

	// Rejected counts parts destroyed here under the reject policy
	// (arrivals into a full entry buffer, or completed parts with a full
	// downstream buffer).
	Rejected int64

	// consumer is the station pulling from this buffer; nil for a terminal
	// buffer such as an unmerged reman inventory.
	consumer *Station

	// spaceWaiters are retries from blocked upstream producers, FIFO.
	// Each closure performs exactly one put when space is guaranteed.
	spaceWaiters []func(now int64)
}

// NewBuffer creates a buffer from its configuration.
func NewBuffer(cfg BufferConfig) *Buffer {
	return &Buffer{Name: cfg.Name, Capacity: cfg.Capacity, Policy: cfg.Policy}
}

// Len returns the current occupancy.
func (b *Buffer) Len() int {
	return len(b.parts)
}

// Full reports whether the buffer is at capacity.
func (b *Buffer) Full() bool {
	return b.Capacity > 0 && len(b.parts) >= b.Capacity
}

// Put places a part into the buffer and notifies the consuming station.
// Returns false if the buffer is full; the caller applies the overflow
// policy. Never call Put on a full buffer from a space waiter — space is
// guaranteed when the waiter runs.
func (b *Buffer) Put(e *Engine, part *Part, now int64) bool {
	if b.Full() {
		return false
	}
	b.parts = append(b.parts, part)
	if len(b.parts) > b.Peak {
		b.Peak = len(b.parts)
	}
	part.State = PartQueued
	part.Location = b.Name
	e.Log.Append(trace.Record{Time: now, Node: b.Name, Kind: trace.KindEnqueue, PartID: part.ID, PartKind: string(part.Kind)})

	if b.consumer != nil {
		b.consumer.requestSlot(e, part, b, now)
	}
	return true
}

// Remove transfers a part out of the buffer (ownership moves to the caller)
// and wakes one blocked producer per freed slot.
func (b *Buffer) Remove(e *Engine, part *Part, now int64) {
	for i, p := range b.parts {
		if p == part {
			b.parts = append(b.parts[:i], b.parts[i+1:]...)
			b.notifySpace(now)
			return
		}
	}
	panic(fmt.Sprintf("Buffer %s: removing part %s that is not present", b.Name, part.ID))
}

// AwaitSpace registers a producer retry to run once space is available.
func (b *Buffer) AwaitSpace(fn func(now int64)) {
	b.spaceWaiters = append(b.spaceWaiters, fn)
}

// notifySpace runs queued producer retries while space remains.
func (b *Buffer) notifySpace(now int64) {
	for len(b.spaceWaiters) > 0 && !b.Full() {
		fn := b.spaceWaiters[0]
		b.spaceWaiters = b.spaceWaiters[1:]
		fn(now)
	}
}

// Parts returns the buffer contents for inspection. Callers must not mutate
// the returned slice.
func (b *Buffer) Parts() []*Part {
	return b.parts
}
