package yamlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"empty", "", 0},
		{"json list", `[{"name": "a"}, {"name": "b"}]`, 1},
		{"single doc", "- name: a\n- name: b\n", 1},
		{"two docs", "- name: a\n---\n- name: b\n", 2},
		{"leading separator", "---\nname: a\n", 1},
		{"trailing separator", "name: a\n---\n", 1},
		{"separator with trailing spaces", "name: a\n---   \nname: b\n", 2},
		{"empty doc between separators", "name: a\n---\n\n---\nname: b\n", 2},
		{"dashes inside a value", "name: \"---\"\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := SplitDocuments([]byte(tt.data))
			assert.Len(t, docs, tt.want)
		})
	}
}

func TestSplitDocuments_Content(t *testing.T) {
	docs := SplitDocuments([]byte("name: a\n---\nname: b\n"))
	assert.Len(t, docs, 2)
	assert.Contains(t, string(docs[0]), "name: a")
	assert.Contains(t, string(docs[1]), "name: b")
	assert.NotContains(t, string(docs[1]), "---")
}
