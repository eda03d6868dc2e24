package sim

import "container/heap"

// EventHeap is a priority queue over scheduled events with deterministic
// ordering: timestamp first, insertion sequence second. Two events scheduled
// for the same tick fire in submission order.
type EventHeap struct {
	entries []*EventHandle
}

// NewEventHeap creates an empty event heap.
func NewEventHeap() *EventHeap {
	h := &EventHeap{entries: make([]*EventHandle, 0)}
	heap.Init(h)
	return h
}

func (h *EventHeap) Len() int { return len(h.entries) }

func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.entries[i].event, h.entries[j].event
	if ei.Timestamp() != ej.Timestamp() {
		return ei.Timestamp() < ej.Timestamp()
	}
	return ei.Seq() < ej.Seq()
}

func (h *EventHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *EventHeap) Push(x any) {
	h.entries = append(h.entries, x.(*EventHandle))
}

func (h *EventHeap) Pop() any {
	old := h.entries
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.entries = old[0 : n-1]
	return item
}

// Schedule adds an event and returns its cancellation handle.
func (h *EventHeap) Schedule(e Event) *EventHandle {
	handle := &EventHandle{event: e}
	heap.Push(h, handle)
	return handle
}

// PopNext removes and returns the next live event, discarding cancelled
// entries. Returns nil when the heap is exhausted.
func (h *EventHeap) PopNext() Event {
	for h.Len() > 0 {
		handle := heap.Pop(h).(*EventHandle)
		if handle.canceled {
			continue
		}
		handle.fired = true
		return handle.event
	}
	return nil
}

// Peek returns the next live event without removing it.
func (h *EventHeap) Peek() Event {
	for h.Len() > 0 {
		if h.entries[0].canceled {
			heap.Pop(h)
			continue
		}
		return h.entries[0].event
	}
	return nil
}
