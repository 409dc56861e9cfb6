package memory

import "sync"

// Subscription is a handle for cancelling a subscription.
type Subscription interface {
	Unsubscribe()
}

// Bus is a typed, synchronous publish/subscribe channel. Handlers run on
// the publisher's goroutine in registration order.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*handle[T]
}

type handle[T any] struct {
	id  uint64
	fn  func(T)
	bus *Bus[T]
}

// Unsubscribe removes the handler from the bus.
func (h *handle[T]) Unsubscribe() {
	h.bus.remove(h.id)
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn until the returned subscription is cancelled.
func (b *Bus[T]) Subscribe(fn func(T)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	h := &handle[T]{id: b.nextID, fn: fn, bus: b}
	b.subs = append(b.subs, h)
	return h
}

// Publish delivers v to every current subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	subs := make([]*handle[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, h := range subs {
		h.fn(v)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Clear drops every subscriber.
func (b *Bus[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, h := range b.subs {
		if h.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
