// Package queue provides the fixed-capacity byte ring that sits between the
// serial receive side and the line assembler.
//
// A Queue is single-producer/single-consumer. The producer goroutine may only
// call Write; the consumer goroutine may only call Read, Wait and Empty. Each
// side owns exactly one index:
//
//   - the producer stores the data slot, then publishes it with an atomic
//     store of head;
//   - the consumer loads head atomically before reading a slot, and releases
//     the slot with an atomic store of tail.
//
// Adding a second producer or consumer requires real locking.
package queue

import (
	"context"
	"errors"

	"go.uber.org/atomic"
)

// ErrFull is returned by Write when no free slot is left. The byte is dropped.
var ErrFull = errors.New("queue full")

// Queue is a circular byte buffer. One slot is always kept unused so that
// head == tail means empty, which leaves Cap()-1 bytes of usable space.
type Queue struct {
	data []byte
	head atomic.Uint32 // next write slot, producer only
	tail atomic.Uint32 // next read slot, consumer only

	// ready holds at most one pending wake-up for the consumer.
	ready chan struct{}
}

// New creates a Queue with the given capacity. Capacities below 2 are raised
// to 2 so that at least one byte can be stored.
func New(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}
	return &Queue{
		data:  make([]byte, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Write appends b. It never blocks.
func (q *Queue) Write(b byte) error {
	head := q.head.Load()
	next := (head + 1) % uint32(len(q.data))
	if next == q.tail.Load() {
		return ErrFull
	}
	q.data[head] = b
	q.head.Store(next)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Read removes and returns the oldest byte. ok is false if the queue is empty.
func (q *Queue) Read() (b byte, ok bool) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return 0, false
	}
	b = q.data[tail]
	q.data[tail] = 0
	q.tail.Store((tail + 1) % uint32(len(q.data)))
	return b, true
}

// Empty reports whether no unread byte remains.
func (q *Queue) Empty() bool {
	return q.tail.Load() == q.head.Load()
}

// Len returns the number of unread bytes.
func (q *Queue) Len() int {
	head, tail := q.head.Load(), q.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return len(q.data) - int(tail-head)
}

// Cap returns the allocated capacity. Usable space is Cap()-1.
func (q *Queue) Cap() int {
	return len(q.data)
}

// Wait blocks until at least one byte can be read or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	for q.Empty() {
		select {
		case <-q.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
