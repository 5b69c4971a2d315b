// Package names assigns small positive integer names to live objects.
//
// A Registry maps Name -> *T. Entries are back-references used for lookup
// only; the registry never owns the objects it names.
//
// Names are handed out from a rolling hint: each allocation returns the
// smallest free name at or above the hint and then advances the hint by one.
// When the hint passes the maximum it rolls over to 1, because 0 means
// "unnamed" and is never assigned.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The lock is held only for the
// single map operation of each call.
package names

import (
	"errors"
	"math"
	"slices"
	"sync"
)

// Name identifies a live object. 0 is invalid.
type Name uint32

// MaxName is the largest name a default Registry assigns.
const MaxName Name = math.MaxInt32

var (
	// ErrExhausted indicates every name in [1, max] is in use.
	ErrExhausted = errors.New("names: no free name")
	// ErrNilObject indicates an attempt to name a nil object.
	ErrNilObject = errors.New("names: nil object")
)

// Registry assigns and reclaims names for *T.
type Registry[T any] struct {
	mu      *sync.RWMutex
	entries map[Name]*T
	next    Name
	max     Name
	wraps   uint64
}

// Option configures a Registry.
type Option func(*config)

type config struct {
	mu  *sync.RWMutex
	max Name
}

// WithLock makes the registry use mu instead of a private lock.
func WithLock(mu *sync.RWMutex) Option {
	return func(c *config) { c.mu = mu }
}

// WithMaxName caps the names the registry assigns. Values of 0 select MaxName.
func WithMaxName(max Name) Option {
	return func(c *config) { c.max = max }
}

// New returns an empty registry.
func New[T any](opts ...Option) *Registry[T] {
	c := config{max: MaxName}
	for _, o := range opts {
		o(&c)
	}
	if c.mu == nil {
		c.mu = new(sync.RWMutex)
	}
	if c.max == 0 || c.max > MaxName {
		c.max = MaxName
	}
	return &Registry[T]{
		mu:      c.mu,
		entries: make(map[Name]*T),
		next:    1,
		max:     c.max,
	}
}

// Allocate registers obj and returns its new name.
func (r *Registry[T]) Allocate(obj *T) (Name, error) {
	return r.AllocateFunc(obj, nil)
}

// AllocateFunc is Allocate, but calls bind with the new name under the
// registry lock, before any lookup can reach obj.
func (r *Registry[T]) AllocateFunc(obj *T, bind func(Name)) (Name, error) {
	if obj == nil {
		return 0, ErrNilObject
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= int(r.max) {
		return 0, ErrExhausted
	}

	// Deal with the name roll-over. 0 is an invalid name.
	if r.next == 0 || r.next > r.max {
		r.next = 1
		r.wraps++
	}
	hint := r.next
	r.next++

	name := hint
	for {
		if _, used := r.entries[name]; !used {
			break
		}
		name++
		if name > r.max {
			name = 1
		}
	}
	if bind != nil {
		bind(name)
	}
	r.entries[name] = obj
	return name, nil
}

// Release removes name and returns it, or 0 when name was not registered.
func (r *Registry[T]) Release(name Name) Name {
	if name == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return 0
	}
	delete(r.entries, name)
	return name
}

// ReleaseIf removes name only while it still maps to obj. It returns the
// released name or 0.
func (r *Registry[T]) ReleaseIf(name Name, obj *T) Name {
	if name == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[name]; !ok || cur != obj {
		return 0
	}
	delete(r.entries, name)
	return name
}

// Lookup returns the object registered under name. It does not transfer
// ownership: the object may be released as soon as the call returns.
func (r *Registry[T]) Lookup(name Name) (*T, bool) {
	if name == 0 {
		return nil, false
	}
	r.mu.RLock()
	obj, ok := r.entries[name]
	r.mu.RUnlock()
	return obj, ok
}

// Len returns the number of live names.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Wraps returns how many times the name hint rolled over.
func (r *Registry[T]) Wraps() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wraps
}

// Range calls fn for every entry in ascending name order while holding the
// read lock. fn must not call back into the registry's writers. Iteration
// stops when fn returns false.
func (r *Registry[T]) Range(fn func(Name, *T) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.sortedLocked() {
		if !fn(n, r.entries[n]) {
			return
		}
	}
}

// Drain removes every entry and returns what was registered.
func (r *Registry[T]) Drain() map[Name]*T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = make(map[Name]*T)
	return out
}

func (r *Registry[T]) sortedLocked() []Name {
	out := make([]Name, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
