// Package registry provides an explicit name registry for debouncer
// instances. Hosts that want to address a debouncer by name create a
// Registry and wire it in; there is no implicit global state.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/michalmuskala/debounce/debouncer"
)

var ErrAlreadyRegistered = errors.New("registry: name already registered")

type Registry struct {
	entries map[string]*debouncer.Debouncer
	mu      sync.RWMutex
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*debouncer.Debouncer),
	}
}

// Register binds name to d. Registering an already bound name fails
// with ErrAlreadyRegistered; the existing binding is untouched.
func (r *Registry) Register(name string, d *debouncer.Debouncer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return errors.Wrap(ErrAlreadyRegistered, name)
	}

	r.entries[name] = d
	return nil
}

func (r *Registry) Lookup(name string) (*debouncer.Debouncer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.entries[name]
	return d, ok
}

// Unregister removes the binding for name, if any. It does not stop the
// debouncer; lifecycle stays with whoever created it.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
