package output

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps format names to encoders, enabling pluggable output
// formats for the apply and serve commands.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]EncodeFunc
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[string]EncodeFunc),
	}
}

// Register adds an encoder under the given format name.
// Existing entries for the same name are overwritten.
func (r *Registry) Register(name string, fn EncodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.encoders[name] = fn
}

// Encoder returns the encoder for the given format, or an error if not found.
func (r *Registry) Encoder(name string) (EncodeFunc, error) {
	r.mu.RLock()
	fn, ok := r.encoders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, r.AvailableFormats())
	}

	return fn, nil
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	formats := r.Formats()
	if len(formats) == 0 {
		return "none"
	}

	return strings.Join(formats, ", ")
}

// DefaultRegistry returns a registry pre-populated with the built-in
// formats: yaml, json, ndjson.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("yaml", SerializeYAML)
	r.Register("json", SerializeJSON)
	r.Register("ndjson", SerializeNDJSON)

	return r
}
