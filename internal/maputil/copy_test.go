package maputil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivked85/filterman/internal/maputil"
)

func TestDeepCopyMap(t *testing.T) {
	src := map[string]any{
		"name": "widget",
		"qty":  int64(42),
		"meta": map[string]any{
			"owner": "ops",
			"tags":  []any{"a", "b"},
		},
	}

	dst := maputil.DeepCopyMap(src)
	assert.Equal(t, src, dst)

	dst["meta"].(map[string]any)["owner"] = "dev"
	dst["meta"].(map[string]any)["tags"].([]any)[0] = "z"

	assert.Equal(t, "ops", src["meta"].(map[string]any)["owner"])
	assert.Equal(t, "a", src["meta"].(map[string]any)["tags"].([]any)[0])
}

func TestDeepCopy_Nil(t *testing.T) {
	assert.Nil(t, maputil.DeepCopyMap(nil))
	assert.Nil(t, maputil.DeepCopySlice(nil))
}

func TestDeepCopySlice(t *testing.T) {
	src := []any{"a", map[string]any{"k": "v"}, []any{1}}

	dst := maputil.DeepCopySlice(src)
	assert.Equal(t, src, dst)

	dst[1].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", src[1].(map[string]any)["k"])
}

func TestLookup(t *testing.T) {
	m := map[string]any{
		"status":  "active",
		"address": map[string]any{"city": "Berlin"},
		"a.b":     "literal",
	}

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"status", "active", true},
		{"address.city", "Berlin", true},
		{"a.b", "literal", true},
		{"address.zip", nil, false},
		{"status.x", nil, false},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := maputil.Lookup(m, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
