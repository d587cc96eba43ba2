package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type label string

func TestIsBlank(t *testing.T) {
	var nilPtr *int
	zero := 0

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"spaces", "   ", true},
		{"tabs and newlines", "\t\n", true},
		{"string", "active", false},
		{"padded string", " active ", false},
		{"false", false, true},
		{"true", true, false},
		{"zero int", 0, false},
		{"float", 1.5, false},
		{"empty []string", []string{}, true},
		{"[]string", []string{"a"}, false},
		{"empty []any", []any{}, true},
		{"empty map", map[string]any{}, true},
		{"map", map[string]any{"a": 1}, false},
		{"empty []int", []int{}, true},
		{"empty array", [0]int{}, true},
		{"nil pointer", nilPtr, true},
		{"pointer", &zero, false},
		{"blank named string", label(" "), true},
		{"named string", label("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlank(tt.value))
		})
	}
}
