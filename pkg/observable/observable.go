// Package observable provides small value containers that notify subscribers
// when their content changes. Writable containers back the form state; derived
// containers compute read-only views (validity, dirtiness) from them.
package observable

import (
	"reflect"
	"sync"

	"github.com/google/go-cmp/cmp"
)

// Readable is a container supporting a one-shot synchronous read and change
// subscriptions.
type Readable[T any] interface {
	// Get returns the current value.
	Get() T
	// Subscribe calls fn with the current value and again after every
	// change. The returned function removes the subscription; calling it
	// more than once is safe.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is a Readable that callers may replace or update.
type Writable[T any] interface {
	Readable[T]
	Set(value T)
	Update(fn func(T) T)
}

// hub stores a value and hands it to subscribers. Only one goroutine delivers
// at a time and it always delivers the latest value, so the last value a
// subscriber sees is the value Get returns once writes stop. Writers that find
// a delivery in progress return at once and leave theirs to the deliverer.
type hub[T any] struct {
	mu         sync.Mutex
	value      T
	subs       map[uint64]func(T)
	nextID     uint64
	changed    bool
	fresh      []uint64
	delivering bool
}

func newHub[T any](initial T) *hub[T] {
	return &hub[T]{value: initial, subs: make(map[uint64]func(T))}
}

func (h *hub[T]) get() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// store replaces the value with the result of fn, which runs under the lock.
// fn reports whether anything changed.
func (h *hub[T]) store(fn func(current T) (T, bool)) {
	h.mu.Lock()
	next, changed := fn(h.value)
	if !changed {
		h.mu.Unlock()
		return
	}
	h.value = next
	h.changed = true
	start := h.claimLocked()
	h.mu.Unlock()

	if start {
		h.drain()
	}
}

func (h *hub[T]) subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.fresh = append(h.fresh, id)
	start := h.claimLocked()
	h.mu.Unlock()

	if start {
		h.drain()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// claimLocked makes the caller the deliverer unless one is already running.
func (h *hub[T]) claimLocked() bool {
	if h.delivering {
		return false
	}
	h.delivering = true
	return true
}

func (h *hub[T]) drain() {
	finished := false
	defer func() {
		// a panicking subscriber must not leave delivery claimed
		if !finished {
			h.mu.Lock()
			h.delivering = false
			h.mu.Unlock()
		}
	}()

	for {
		h.mu.Lock()
		var targets []func(T)
		switch {
		case h.changed:
			h.changed = false
			h.fresh = nil
			targets = make([]func(T), 0, len(h.subs))
			for _, fn := range h.subs {
				targets = append(targets, fn)
			}
		case len(h.fresh) > 0:
			for _, id := range h.fresh {
				if fn, ok := h.subs[id]; ok {
					targets = append(targets, fn)
				}
			}
			h.fresh = nil
		default:
			h.delivering = false
			finished = true
			h.mu.Unlock()
			return
		}
		value := h.value
		h.mu.Unlock()

		for _, fn := range targets {
			fn(value)
		}
	}
}

// Value is the default Writable implementation. The zero value is not usable;
// construct with NewValue.
type Value[T any] struct {
	h *hub[T]
}

var _ Writable[int] = (*Value[int])(nil)

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{h: newHub(initial)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	return v.h.get()
}

// Set replaces the value and notifies subscribers.
func (v *Value[T]) Set(value T) {
	v.h.store(func(T) (T, bool) { return value, true })
}

// Update applies fn to the current value and stores the result. The read and
// the write happen under the same lock so concurrent updates never interleave.
func (v *Value[T]) Update(fn func(T) T) {
	v.h.store(func(current T) (T, bool) { return fn(current), true })
}

// Subscribe registers fn and calls it with the current value, then again
// after every change. When another goroutine is delivering, that goroutine
// makes the first call.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	return v.h.subscribe(fn)
}

// Dependency is anything a Derived container can watch. Every Readable
// satisfies it through Watch.
type Dependency interface {
	watch(onChange func()) (stop func())
}

// Watch adapts a Readable into a Dependency.
func Watch[T any](r Readable[T]) Dependency {
	return readableDep[T]{r: r}
}

type readableDep[T any] struct {
	r Readable[T]
}

// The first call made by Subscribe recomputes too; an unchanged result is not
// delivered, and a change that raced the subscription is not lost.
func (d readableDep[T]) watch(onChange func()) func() {
	return d.r.Subscribe(func(T) { onChange() })
}

// Derived is a read-only container whose value is recomputed whenever one of
// its dependencies changes. Subscribers are only notified when the recomputed
// value differs from the previous one.
type Derived[T any] struct {
	compute func() T
	h       *hub[T]

	mu    sync.Mutex
	stops []func()
}

var _ Readable[int] = (*Derived[int])(nil)

// Derive builds a Derived container from compute. compute is evaluated once
// immediately and again after every change of any dependency.
func Derive[T any](compute func() T, deps ...Dependency) *Derived[T] {
	d := &Derived[T]{
		compute: compute,
		h:       newHub(compute()),
	}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		stop := dep.watch(d.recompute)
		d.mu.Lock()
		d.stops = append(d.stops, stop)
		d.mu.Unlock()
	}
	return d
}

// Get returns the current derived value.
func (d *Derived[T]) Get() T {
	return d.h.get()
}

// Subscribe registers fn and calls it with the current value, then again
// after every change.
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.h.subscribe(fn)
}

// Close detaches the container from its dependencies. The last computed value
// stays readable.
func (d *Derived[T]) Close() {
	d.mu.Lock()
	stops := d.stops
	d.stops = nil
	d.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

func (d *Derived[T]) recompute() {
	d.h.store(func(current T) (T, bool) {
		next := d.compute()
		if equal(current, next) {
			return current, false
		}
		return next, true
	})
}

// equal compares structurally, including unexported struct fields, so derived
// values of any shape can be checked for change.
func equal(a, b any) bool {
	return cmp.Equal(a, b, cmp.Exporter(func(reflect.Type) bool { return true }))
}
