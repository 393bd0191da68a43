// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 net-ur-plot contributors

package motion

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push once the end-of-stream marker is queued
var ErrQueueClosed = errors.New("command queue closed")

// Queue is an unbounded FIFO of entries between one producer (the path
// source) and one consumer (the robot channel).
//
// Push never blocks. Pop blocks until an entry is available. Close appends
// the single end-of-stream marker; after that Push fails, so the marker is
// always the last entry.
type Queue struct {
	mu     sync.Mutex
	items  []Entry
	head   int
	closed bool

	// ready holds at most one wakeup token for a blocked Pop
	ready chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Push appends a waypoint to the queue
func (q *Queue) Push(w Waypoint) error {
	return q.put(WaypointEntry(w))
}

// Close appends the end-of-stream marker. Calling Close more than once is a no-op.
func (q *Queue) Close() {
	_ = q.put(EndEntry())
}

func (q *Queue) put(e Entry) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if e.IsEnd() {
		q.closed = true
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest entry, blocking while the queue is empty.
// It returns ctx.Err() if the context is done first.
func (q *Queue) Pop(ctx context.Context) (Entry, error) {
	for {
		if e, ok := q.tryPop(); ok {
			return e, nil
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
	}
}

func (q *Queue) tryPop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return Entry{}, false
	}

	e := q.items[q.head]
	q.items[q.head] = Entry{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}

	return e, true
}

// Len returns the number of entries waiting, including the end marker
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Closed reports whether the end-of-stream marker has been queued
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
