package core

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/aparte/internal/event"
)

// Component is a protocol handling unit registered with the core.
//
// Init is called once at startup in registration order. OnEvent is called for
// every event, in registration order, and must not block: work that needs to
// wait is handed to the connection manager with Core.Send or deferred with
// Core.Schedule.
type Component interface {
	// Name returns a short human readable name used in logs.
	Name() string

	// Init prepares the component. An error aborts startup.
	Init(c *Core) error

	// OnEvent handles one event. Failures stay local to the component.
	OnEvent(c *Core, ev event.Event)
}

// Release ends a borrow. Calling it more than once is a no-op.
type Release func()

type entry struct {
	comp    Component
	typ     reflect.Type
	readers int
	writer  bool
}

// Registry is the ordered set of components with borrow tracking.
//
// A component can be borrowed shared (any number of readers) or exclusive
// (one writer, no readers). The dispatcher holds each component exclusively
// while delivering an event to it, so a handler that borrows itself gets
// ErrBorrowConflict instead of an aliased reference.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	byType  map[reflect.Type]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]*entry)}
}

// Add appends comp. Only one component per concrete type is allowed.
func (r *Registry) Add(comp Component) error {
	if comp == nil {
		return ErrNilComponent
	}
	typ := reflect.TypeOf(comp)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byType[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, typ)
	}
	e := &entry{comp: comp, typ: typ}
	r.entries = append(r.entries, e)
	r.byType[typ] = e
	return nil
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Names returns component names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.comp.Name()
	}
	return names
}

// snapshot returns the entries in registration order.
func (r *Registry) snapshot() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) lookup(typ reflect.Type) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byType[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, typ)
	}
	return e, nil
}

// acquire takes a borrow on e.
func (r *Registry) acquire(e *entry, exclusive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.writer || (exclusive && e.readers > 0) {
		return fmt.Errorf("%w: %s", ErrBorrowConflict, e.comp.Name())
	}
	if exclusive {
		e.writer = true
	} else {
		e.readers++
	}
	return nil
}

// releaser returns an idempotent Release for a borrow on e.
func (r *Registry) releaser(e *entry, exclusive bool) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if exclusive {
				e.writer = false
			} else if e.readers > 0 {
				e.readers--
			}
		})
	}
}

func borrow[T Component](r *Registry, exclusive bool) (T, Release, error) {
	var zero T
	e, err := r.lookup(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, func() {}, err
	}
	if err := r.acquire(e, exclusive); err != nil {
		return zero, func() {}, err
	}
	comp, ok := e.comp.(T)
	if !ok {
		r.releaser(e, exclusive)()
		return zero, func() {}, fmt.Errorf("%w: %s", ErrComponentNotFound, e.typ)
	}
	return comp, r.releaser(e, exclusive), nil
}

// Get borrows the registered component of concrete type T for reading.
// The returned Release must be called when done.
func Get[T Component](c *Core) (T, Release, error) {
	return borrow[T](c.registry, false)
}

// GetMut borrows the registered component of concrete type T exclusively.
// The returned Release must be called when done.
func GetMut[T Component](c *Core) (T, Release, error) {
	return borrow[T](c.registry, true)
}
