package boundedchannel

import (
	"errors"
	"sync"
)

// ErrClosedChannel is returned when enqueueing into (or closing) a channel
// that is already closed. Sending after close is a logic defect in the
// orchestration code, not a recoverable condition.
var ErrClosedChannel = errors.New("bounded channel is closed")

// ErrNegativeCapacity is returned by New for a capacity below zero.
var ErrNegativeCapacity = errors.New("capacity must be non-negative")

// BoundedChannel is a fixed-capacity FIFO queue shared between concurrent
// producers and consumers. Enqueue blocks while the buffer is full, Dequeue
// blocks while it is empty, and Close transitions the channel one-way into
// its closed state: blocked enqueuers fail, blocked dequeuers drain the
// remaining items and then observe end-of-stream.
//
// A capacity of zero gives rendezvous semantics: Enqueue returns only after
// a consumer has taken the item.
type BoundedChannel[T any] struct {
	buffer   []T
	capacity int
	size     int
	head     int
	tail     int
	closed   bool
	mutex    sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	enqueued  int64
	dequeued  int64
	highWater int
}

// Stats is a snapshot of channel counters.
type Stats struct {
	Enqueued  int64 // total items accepted by Enqueue
	Dequeued  int64 // total items handed out by Dequeue
	Buffered  int   // items currently in the buffer
	HighWater int   // maximum buffered count ever observed
	Closed    bool
}

// New creates an open, empty bounded channel with the given capacity.
func New[T any](capacity int) (*BoundedChannel[T], error) {
	if capacity < 0 {
		return nil, ErrNegativeCapacity
	}
	slots := capacity
	if slots == 0 {
		// Rendezvous still needs one slot to hand the item through.
		slots = 1
	}
	bc := &BoundedChannel[T]{
		buffer:   make([]T, slots),
		capacity: capacity,
	}
	bc.notFull = sync.NewCond(&bc.mutex)
	bc.notEmpty = sync.NewCond(&bc.mutex)
	return bc, nil
}

// Enqueue appends item to the tail, blocking while the channel is full.
// It returns ErrClosedChannel if the channel is closed at the time of the
// call or becomes closed while waiting for space.
func (bc *BoundedChannel[T]) Enqueue(item T) error {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	// Wait while the buffer is full and the channel is still open.
	for bc.size == len(bc.buffer) && !bc.closed {
		bc.notFull.Wait()
	}
	if bc.closed {
		return ErrClosedChannel
	}

	bc.buffer[bc.tail] = item
	bc.tail = (bc.tail + 1) % len(bc.buffer)
	bc.size++
	bc.enqueued++
	if bc.size > bc.highWater {
		bc.highWater = bc.size
	}
	bc.notEmpty.Signal()

	if bc.capacity == 0 {
		// Rendezvous: do not return until a consumer took the item. A close
		// while waiting still counts as success, the deposited item will be
		// drained.
		for bc.size > 0 && !bc.closed {
			bc.notFull.Wait()
		}
	}
	return nil
}

// Dequeue removes and returns the head item, blocking while the channel is
// empty and open. It returns (zero, false) once the channel is closed and
// drained; this end-of-stream signal is not an error.
func (bc *BoundedChannel[T]) Dequeue() (T, bool) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	// Wait while the buffer is empty and the channel is still open.
	for bc.size == 0 && !bc.closed {
		bc.notEmpty.Wait()
	}
	var zero T
	if bc.size == 0 {
		return zero, false
	}

	item := bc.buffer[bc.head]
	bc.buffer[bc.head] = zero
	bc.head = (bc.head + 1) % len(bc.buffer)
	bc.size--
	bc.dequeued++
	if bc.capacity == 0 {
		// Both the depositing producer and any producer waiting for the slot
		// block on notFull; wake them all.
		bc.notFull.Broadcast()
	} else {
		bc.notFull.Signal()
	}
	return item, true
}

// Close transitions the channel from open to closed. The transition is
// one-way; a second call is a misuse and returns ErrClosedChannel. All
// blocked and future Enqueue calls fail immediately, all blocked and future
// Dequeue calls drain the buffer and then observe end-of-stream.
func (bc *BoundedChannel[T]) Close() error {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if bc.closed {
		return ErrClosedChannel
	}
	bc.closed = true
	bc.notFull.Broadcast()
	bc.notEmpty.Broadcast()
	return nil
}

// Len returns the current number of buffered items.
func (bc *BoundedChannel[T]) Len() int {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	return bc.size
}

// Cap returns the configured capacity (0 for a rendezvous channel).
func (bc *BoundedChannel[T]) Cap() int {
	return bc.capacity
}

// Closed reports whether Close has been called.
func (bc *BoundedChannel[T]) Closed() bool {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	return bc.closed
}

// Stats returns a snapshot of the channel counters.
func (bc *BoundedChannel[T]) Stats() Stats {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	return Stats{
		Enqueued:  bc.enqueued,
		Dequeued:  bc.dequeued,
		Buffered:  bc.size,
		HighWater: bc.highWater,
		Closed:    bc.closed,
	}
}
