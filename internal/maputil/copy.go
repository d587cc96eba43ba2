// Package maputil provides deep-copy and path lookup helpers for the
// schemaless records filterman filters.
package maputil

import "strings"

// DeepCopyMap performs a deep copy of a map[string]any. Nested maps and
// slices are copied; scalar values are shared.
func DeepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}

	return dst
}

// DeepCopySlice performs a deep copy of a []any.
func DeepCopySlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, v := range src {
		dst[i] = deepCopyValue(v)
	}

	return dst
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopyMap(val)
	case []any:
		return DeepCopySlice(val)
	default:
		return v
	}
}

// Lookup resolves a dotted path such as "address.city" in m. A key that
// itself contains dots is matched before the path is split.
func Lookup(m map[string]any, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	current := m

	for i, p := range parts {
		v, ok := current[p]
		if !ok {
			return nil, false
		}

		if i == len(parts)-1 {
			return v, true
		}

		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}

		current = next
	}

	return nil, false
}
