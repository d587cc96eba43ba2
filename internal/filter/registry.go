package filter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds the declared filters of every host together with the named
// collection operations those filters may use as scopes. A registry is built
// once at startup and shared by reference.
type Registry[C Collection[C]] struct {
	mu     sync.RWMutex
	scopes map[string]QueryFunc[C]
	hosts  map[string][]*Spec[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C Collection[C]]() *Registry[C] {
	return &Registry[C]{
		scopes: make(map[string]QueryFunc[C]),
		hosts:  make(map[string][]*Spec[C]),
	}
}

// RegisterScope adds a named collection operation that declarations can
// reference with [WithScope]. Existing entries for the same name are
// overwritten; specs declared earlier keep the function they resolved.
func (r *Registry[C]) RegisterScope(name string, fn QueryFunc[C]) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("registering scope: %w", ErrEmptyName)
	}

	if fn == nil {
		return fmt.Errorf("registering scope %q: nil function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.scopes[name] = fn

	return nil
}

// Scope returns the operation registered under name.
func (r *Registry[C]) Scope(name string) (QueryFunc[C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.scopes[name]

	return fn, ok
}

// Scopes returns the sorted list of registered scope names.
func (r *Registry[C]) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.scopes)
}

// Declare appends one plain equality filter per name to host, in order.
// Either all names are appended or none.
func (r *Registry[C]) Declare(host string, names ...string) error {
	specs := make([]*Spec[C], 0, len(names))

	for _, name := range names {
		s, err := newSpec[C](name, nil)
		if err != nil {
			return fmt.Errorf("declaring filters for %q: %w", host, err)
		}

		specs = append(specs, s)
	}

	r.append(host, specs...)

	return nil
}

// DeclareFilter appends a single filter with options to host. A scope given
// by name is resolved against the registered scopes now, so a typo fails at
// declaration rather than on the first request.
func (r *Registry[C]) DeclareFilter(host, name string, opts ...SpecOption[C]) error {
	s, err := newSpec(name, r.Scope, opts...)
	if err != nil {
		return fmt.Errorf("declaring filters for %q: %w", host, err)
	}

	r.append(host, s)

	return nil
}

// Add appends already-built specs to host.
func (r *Registry[C]) Add(host string, specs ...*Spec[C]) {
	r.append(host, specs...)
}

// List returns a copy of the specs declared for host in declaration order.
// The host entry is created empty on first access.
func (r *Registry[C]) List(host string) []*Spec[C] {
	r.mu.Lock()
	defer r.mu.Unlock()

	specs, ok := r.hosts[host]
	if !ok {
		r.hosts[host] = []*Spec[C]{}
		return []*Spec[C]{}
	}

	out := make([]*Spec[C], len(specs))
	copy(out, specs)

	return out
}

// Hosts returns the sorted list of known host keys.
func (r *Registry[C]) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.hosts)
}

func (r *Registry[C]) append(host string, specs ...*Spec[C]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hosts[host] = append(r.hosts[host], specs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
