package filter

import (
	"reflect"
	"strings"

	"github.com/huandu/xstrings"
)

// Host is the per-request object the engine filters on behalf of. It
// identifies its filter declarations, exposes named parameter sources, and
// owns the named collection slots the engine reads and writes.
type Host[C any] interface {
	// FilterHost returns the registry key of the host's declarations. It is
	// also the default collection slot name.
	FilterHost() string
	// ParamSource returns the named parameter mapping.
	ParamSource(name string) (Params, bool)
	// LoadSlot returns the collection stored in the named slot.
	LoadSlot(name string) (C, bool)
	// StoreSlot replaces the collection stored in the named slot.
	StoreSlot(name string, collection C)
}

// Request is a ready-made Host. Embed it in a handler type, or use it
// directly for one request.
type Request[C any] struct {
	host    string
	sources map[string]Params
	slots   map[string]C
}

// NewRequest creates a request for host with params registered as the
// default parameter source.
func NewRequest[C any](host string, params Params) *Request[C] {
	r := &Request[C]{
		host:    host,
		sources: make(map[string]Params),
		slots:   make(map[string]C),
	}

	if params != nil {
		r.sources[DefaultParamSource] = params
	}

	return r
}

// FilterHost implements Host.
func (r *Request[C]) FilterHost() string { return r.host }

// SetParamSource registers an additional named parameter source.
func (r *Request[C]) SetParamSource(name string, params Params) {
	r.sources[name] = params
}

// ParamSource implements Host.
func (r *Request[C]) ParamSource(name string) (Params, bool) {
	p, ok := r.sources[name]
	return p, ok
}

// LoadSlot implements Host.
func (r *Request[C]) LoadSlot(name string) (C, bool) {
	c, ok := r.slots[name]
	return c, ok
}

// StoreSlot implements Host.
func (r *Request[C]) StoreSlot(name string, collection C) {
	r.slots[name] = collection
}

// Collection returns the collection stored in the host's default slot.
func (r *Request[C]) Collection() (C, bool) {
	return r.LoadSlot(r.host)
}

// SetCollection stores collection in the host's default slot.
func (r *Request[C]) SetCollection(collection C) {
	r.StoreSlot(r.host, collection)
}

// hostSuffixes are stripped from type names by HostName.
var hostSuffixes = []string{"Handler", "Controller"}

// HostName derives a conventional host key from the type of v: pointer
// indirections are dropped, a trailing "Handler" or "Controller" is
// removed, and the rest is snake-cased. *AdminUsersHandler becomes
// "admin_users".
func HostName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}

	for _, suffix := range hostSuffixes {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != "" && trimmed != name {
			name = trimmed
			break
		}
	}

	return xstrings.ToSnakeCase(name)
}
