package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages named provider factories sharing one config type.
type Registry[C any, T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[C, T]
}

// NewRegistry creates a new empty Registry.
func NewRegistry[C any, T Provider]() *Registry[C, T] {
	return &Registry[C, T]{factories: make(map[string]Factory[C, T])}
}

// RegisterFactory registers a named factory, replacing any previous one.
func (r *Registry[C, T]) RegisterFactory(name string, factory Factory[C, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates a provider using the named factory and config.
func (r *Registry[C, T]) Create(name string, cfg C) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider factory %q not registered (available: %v)", name, r.List())
	}
	return factory(cfg)
}

// Has reports whether a factory is registered under name.
func (r *Registry[C, T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns sorted names of all registered factories.
func (r *Registry[C, T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
