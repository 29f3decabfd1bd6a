package queue

import (
	"math"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Unbounded is the capacity used to open the valve on shutdown.
const Unbounded = math.MaxInt

// entry is either a value or the end-of-stream marker.
type entry[T any] struct {
	value T
	end   bool
}

// Bounded is a blocking FIFO queue holding at most Cap() entries.
// It is safe for any number of concurrent producers and consumers; each
// pushed entry is popped by exactly one consumer.
type Bounded[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items    *linkedlistqueue.Queue
	capacity int
	ends     int
	// queuedEnds counts end markers currently in items.
	queuedEnds int
}

// NewBounded creates a queue with the given capacity. Capacities below 1 are
// raised to 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Bounded[T]{
		items:    linkedlistqueue.New(),
		capacity: capacity,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends v, blocking while the queue is full.
func (q *Bounded[T]) Push(v T) {
	q.push(entry[T]{value: v})
}

// PushEnd appends the end-of-stream marker, blocking while the queue is full.
// Push it once per consumer that has to observe it.
func (q *Bounded[T]) PushEnd() {
	q.push(entry[T]{end: true})
}

func (q *Bounded[T]) push(e entry[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Size() >= q.capacity {
		q.notFull.Wait()
	}
	q.items.Enqueue(e)
	if e.end {
		q.ends++
		q.queuedEnds++
	}
	q.notEmpty.Signal()
}

// Pop removes and returns the head, blocking while the queue is empty.
// ok is false when the head was the end-of-stream marker.
func (q *Bounded[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Empty() {
		q.notEmpty.Wait()
	}
	head, _ := q.items.Dequeue()
	q.notFull.Signal()

	e := head.(entry[T])
	if e.end {
		q.queuedEnds--
		return v, false
	}
	return e.value, true
}

// SetCapacity raises the capacity ceiling to n and wakes every blocked
// producer. The ceiling never decreases: values at or below the current
// capacity are ignored.
func (q *Bounded[T]) SetCapacity(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= q.capacity {
		return
	}
	q.capacity = n
	q.notFull.Broadcast()
}

// Len returns the number of queued entries, end markers included.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Items returns the number of queued values, end markers excluded.
func (q *Bounded[T]) Items() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size() - q.queuedEnds
}

// Cap returns the current capacity ceiling.
func (q *Bounded[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// EndsPushed returns how many end-of-stream markers have been pushed so far.
func (q *Bounded[T]) EndsPushed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ends
}
