// Package buffer implements the bijective mapping between controller-
// assigned buffer identifiers and file paths, owned by the Wrapper and
// mutated only from the goroutine that pumps the protocol engine.
package buffer

import "sync"

// Registry holds the live buffer entries, indexed both by id and by path,
// plus insertion order for cyclic traversal.
type Registry struct {
	mu sync.Mutex

	byID   map[uint64]string
	byPath map[string]uint64
	order  []uint64 // insertion order of currently-live ids

	nextID uint64

	subscribers []Subscriber
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[uint64]string),
		byPath: make(map[string]uint64),
	}
}

// AllocateID returns a fresh bufferId. Ids are never reused within the
// registry's lifetime, even across Clear.
func (r *Registry) AllocateID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// Add registers id for path. If path is already known, Add is idempotent:
// it returns the existing id without re-inserting and without firing
// Created.
func (r *Registry) Add(id uint64, path string) uint64 {
	r.mu.Lock()
	if existing, ok := r.byPath[path]; ok {
		r.mu.Unlock()
		return existing
	}
	r.byID[id] = path
	r.byPath[path] = id
	r.order = append(r.order, id)
	r.mu.Unlock()

	r.notify(Created{ID: id, Path: path})
	return id
}

// RemoveByID removes the entry for id, firing Deleted. Returns
// ErrUnknownID if no such entry exists.
func (r *Registry) RemoveByID(id uint64) error {
	r.mu.Lock()
	path, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownID
	}
	delete(r.byID, id)
	delete(r.byPath, path)
	r.order = removeFromOrder(r.order, id)
	r.mu.Unlock()

	r.notify(Deleted{ID: id, Path: path})
	return nil
}

func removeFromOrder(order []uint64, id uint64) []uint64 {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// PathOf returns the path registered for id.
func (r *Registry) PathOf(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.byID[id]
	return path, ok
}

// IDOf returns the id registered for path.
func (r *Registry) IDOf(path string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[path]
	return id, ok
}

// HasID reports whether id is currently registered.
func (r *Registry) HasID(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// HasPath reports whether path is currently registered.
func (r *Registry) HasPath(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPath[path]
	return ok
}

// FirstID returns the oldest live entry's id, in insertion order.
func (r *Registry) FirstID() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return 0, false
	}
	return r.order[0], true
}

// NextIDAfter returns the id that follows id in insertion order, cycling
// back to the first after the last. Fails with ErrUnknownID if id is not
// registered, which also covers an empty registry.
func (r *Registry) NextIDAfter(id uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.order {
		if v == id {
			return r.order[(i+1)%len(r.order)], nil
		}
	}
	return 0, ErrUnknownID
}

// Clear empties the registry without resetting the id allocator.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[uint64]string)
	r.byPath = make(map[string]uint64)
	r.order = nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Subscribe registers callback to receive Created/Deleted/Hotkey/KeyCommand
// events, invoked synchronously in registration order.
func (r *Registry) Subscribe(callback Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, callback)
}

// Notify fans out an event (such as Hotkey or KeyCommand) to every
// subscriber, in registration order. Add and RemoveByID call this
// internally for Created/Deleted; the Wrapper calls it directly for
// editor-originated key events.
func (r *Registry) Notify(evt Event) {
	r.notify(evt)
}

func (r *Registry) notify(evt Event) {
	r.mu.Lock()
	subs := make([]Subscriber, len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	for _, s := range subs {
		s(evt)
	}
}
