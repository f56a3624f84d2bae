package event

import "sync"

// Queue is an unbounded FIFO of pending events.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	head   int
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends ev to the queue and signals Notify.
func (q *Queue) Push(ev Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return nil, false
	}

	ev := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	switch {
	case q.head == len(q.items):
		// Reuse the backing array once drained.
		q.items = q.items[:0]
		q.head = 0
	case q.head > len(q.items)/2:
		// Compact once consumed slots outnumber pending ones.
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return ev, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Notify returns a channel that receives after a Push. A single receive may
// cover several pushes, so receivers drain with Pop until it reports false.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}
