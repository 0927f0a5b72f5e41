package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named provider instances.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	instances map[string]T
}

// NewRegistry creates a new empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{instances: make(map[string]T)}
}

// Register adds p under p.Name(). Registering the same name twice is an error.
func (r *Registry[T]) Register(p T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.instances[name] = p
	return nil
}

// Replace registers p under p.Name(), overwriting any existing entry.
// Used to swap in a middleware-wrapped instance.
func (r *Registry[T]) Replace(p T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Resolve returns the providers for names in the given order.
func (r *Registry[T]) Resolve(names ...string) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(names))
	for _, name := range names {
		inst, ok := r.instances[name]
		if !ok {
			return nil, fmt.Errorf("provider %q not registered", name)
		}
		out = append(out, inst)
	}
	return out, nil
}

// Names returns the sorted names of all registered providers.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
