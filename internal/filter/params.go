package filter

import "net/url"

// DefaultParamSource is the parameter source name [Engine.ApplyAll] reads
// when no [From] option is given.
const DefaultParamSource = "params"

// Params is a read-only flat mapping from parameter name to value.
type Params interface {
	// Get returns the value stored under name and whether it was present.
	Get(name string) (any, bool)
}

// Values is a Params backed by a plain map.
type Values map[string]any

// Get implements Params.
func (v Values) Get(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

// URLParams adapts url.Values to Params. A key with a single value yields a
// string; a key repeated in the query yields a []string.
type URLParams url.Values

// Get implements Params.
func (p URLParams) Get(name string) (any, bool) {
	vals, ok := p[name]
	if !ok {
		return nil, false
	}

	if len(vals) == 1 {
		return vals[0], true
	}

	out := make([]string, len(vals))
	copy(out, vals)

	return out, true
}
