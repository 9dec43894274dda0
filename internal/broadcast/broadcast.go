// Package broadcast provides typed, multi-consumer, bounded change
// notification channels. Producers never block: when a subscriber's buffer
// is full the oldest buffered event is dropped to make room.
package broadcast

import "sync"

// Broadcaster fans values out to any number of subscribers.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[int]chan T
	next     int
	capacity int
	closed   bool
}

// New creates a broadcaster whose subscriber channels buffer up to capacity
// values.
func New[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster[T]{subs: make(map[int]chan T), capacity: capacity}
}

// Subscribe returns a receive channel and a cancel function. The channel is
// closed when the subscription is cancelled or the broadcaster closes.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	ch := make(chan T, b.capacity)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Send delivers v to every subscriber without blocking. Absent consumers
// lose their oldest buffered value instead of stalling the producer.
func (b *Broadcaster[T]) Send(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		for {
			select {
			case ch <- v:
			default:
				// Full buffer: drop the oldest value and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close closes every subscriber channel. Further Sends are no-ops.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
