package model

import (
	"slices"
	"sync"
)

// Registry is a name-keyed table guarded by a read-write lock.
// Writers are serialized; readers never observe a partially applied write.
type Registry[T any] struct {
	entries map[string]T
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: map[string]T{},
	}
}

// Set stores value under name, replacing any previous value.
func (r *Registry[T]) Set(name string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = value
}

// Get returns the value stored under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.entries[name]
	return value, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
