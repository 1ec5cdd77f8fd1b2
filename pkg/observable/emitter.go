// Package observable provides a small typed event emitter.
//
// Listeners are called synchronously, in subscription order, from the
// goroutine that calls Emit. Emit calls are serialized, so a listener never
// runs concurrently with itself. A listener must not call Emit on the
// emitter that is notifying it.
//
// Subscribe returns an unsubscribe function. It is idempotent and safe to
// call from inside a listener. Once it returns, the listener is not called for
// any Emit that starts afterwards; an Emit already in progress in another
// goroutine may still deliver its event.
package observable

import "sync"

// Listener receives emitted values.
type Listener[T any] func(T)

type subscription[T any] struct {
	id int
	fn Listener[T]
}

// Emitter fans values out to subscribed listeners. The zero value is ready for use.
type Emitter[T any] struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	nextID int
	subs   []subscription[T]
}

// Subscribe registers fn and returns its unsubscribe function.
func (e *Emitter[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription[T]{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers v to every listener subscribed when the call starts.
func (e *Emitter[T]) Emit(v T) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	for _, s := range e.snapshot() {
		if e.subscribed(s.id) {
			s.fn(v)
		}
	}
}

// Len returns the number of active listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Emitter[T]) snapshot() []subscription[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := make([]subscription[T], len(e.subs))
	copy(subs, e.subs)
	return subs
}

func (e *Emitter[T]) subscribed(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subs {
		if s.id == id {
			return true
		}
	}
	return false
}
