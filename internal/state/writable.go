// Package state holds the observable stores the client keeps in memory:
// the session, the post feed, transient notifications and the theme.
//
// Stores are plain values owned by whoever builds them (see New); there are
// no package-level singletons. Every store follows the same contract:
//
//   - Subscribe delivers the current value immediately, then every later value.
//   - A mutation replaces the value, then notifies subscribers synchronously in
//     registration order.
//   - A mutation made from inside a subscriber is queued and delivered after the
//     current round, so every subscriber sees values in mutation order.
//   - After unsubscribe, queued notifications for that subscriber are dropped.
package state

import (
	"sync"
	"sync/atomic"
)

// Readable is an observable value.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscription[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// round is one queued notification: the value and the subscribers present
// when the mutation happened.
type round[T any] struct {
	value T
	subs  []*subscription[T]
}

// Writable is a mutable observable value. The zero value is not usable; use NewWritable.
type Writable[T any] struct {
	mu       sync.Mutex
	value    T
	subs     []*subscription[T]
	queue    []round[T]
	draining bool
}

// NewWritable returns a store holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	w.enqueueLocked(v)
	w.drain()
}

// Update replaces the value with fn(current) and notifies subscribers.
// fn runs under the store lock and must not call back into the store.
func (w *Writable[T]) Update(fn func(T) T) {
	w.mu.Lock()
	w.value = fn(w.value)
	w.enqueueLocked(w.value)
	w.drain()
}

// Subscribe registers fn, calls it with the current value and returns a
// function that unregisters it.
func (w *Writable[T]) Subscribe(fn func(T)) func() {
	sub := &subscription[T]{fn: fn}
	sub.active.Store(true)

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	current := w.value
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			w.mu.Lock()
			defer w.mu.Unlock()
			for i, s := range w.subs {
				if s == sub {
					w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (w *Writable[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func (w *Writable[T]) enqueueLocked(v T) {
	subs := make([]*subscription[T], len(w.subs))
	copy(subs, w.subs)
	w.queue = append(w.queue, round[T]{value: v, subs: subs})
}

// drain is entered with w.mu held and returns with it released. Only one
// caller delivers at a time; others leave their round in the queue.
func (w *Writable[T]) drain() {
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	for len(w.queue) > 0 {
		r := w.queue[0]
		w.queue[0] = round[T]{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		for _, s := range r.subs {
			if s.active.Load() {
				s.fn(r.value)
			}
		}

		w.mu.Lock()
	}
	w.queue = nil
	w.draining = false
	w.mu.Unlock()
}

// Derived is a read-only view computed from a parent store. It holds no
// state of its own and recomputes on every parent notification.
type Derived[P, T any] struct {
	parent Readable[P]
	fn     func(P) T
}

// Derive builds a Derived view of parent.
func Derive[P, T any](parent Readable[P], fn func(P) T) *Derived[P, T] {
	return &Derived[P, T]{parent: parent, fn: fn}
}

// Get returns fn applied to the parent's current value.
func (d *Derived[P, T]) Get() T {
	return d.fn(d.parent.Get())
}

// Subscribe observes the derived value.
func (d *Derived[P, T]) Subscribe(fn func(T)) func() {
	return d.parent.Subscribe(func(p P) {
		fn(d.fn(p))
	})
}
