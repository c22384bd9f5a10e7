// Package broker fans values out to in-process subscribers.
package broker

import "sync"

// Broker delivers each published value to every subscriber without ever
// blocking the publisher. A subscriber whose buffer is full misses the value.
// With a buffer of one and struct{} values this is a coalescing change
// signal: a slow reader loses only duplicate wake-ups.
type Broker[T any] struct {
	buf int

	mu   sync.Mutex
	subs map[chan T]struct{}
}

// New creates a Broker whose subscriber channels hold buf values. A buf
// below one is raised to one.
func New[T any](buf int) *Broker[T] {
	if buf < 1 {
		buf = 1
	}
	return &Broker[T]{buf: buf, subs: make(map[chan T]struct{})}
}

// Subscribe returns a receive channel and a func that stops delivery. The
// channel is never closed.
func (b *Broker[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.buf)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

// Publish offers v to every subscriber and returns how many were full.
func (b *Broker[T]) Publish(v T) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			dropped++
		}
	}
	return dropped
}

// Len reports the number of subscribers.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
