package sim

import (
	"container/heap"
	"sync"
)

// EventQueue orders events by time. Events with the same time come out in
// the order they were pushed, which keeps runs reproducible.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// EventQueueImpl is a heap-based EventQueue that is safe for concurrent use.
type EventQueueImpl struct {
	lock   sync.Mutex
	events eventHeap
	pushed uint64
}

// NewEventQueue creates an empty EventQueueImpl.
func NewEventQueue() *EventQueueImpl {
	return &EventQueueImpl{}
}

// Push adds an event.
func (q *EventQueueImpl) Push(evt Event) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.pushed++
	heap.Push(&q.events, queuedEvent{evt: evt, order: q.pushed})
}

// Pop removes and returns the earliest event.
func (q *EventQueueImpl) Pop() Event {
	q.lock.Lock()
	defer q.lock.Unlock()

	return heap.Pop(&q.events).(queuedEvent).evt
}

// Len returns the number of queued events.
func (q *EventQueueImpl) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.events)
}

// Peek returns the earliest event without removing it.
func (q *EventQueueImpl) Peek() Event {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.events[0].evt
}

type queuedEvent struct {
	evt   Event
	order uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if ti, tj := h[i].evt.Time(), h[j].evt.Time(); ti != tj {
		return ti < tj
	}

	return h[i].order < h[j].order
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(queuedEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]

	return last
}
