package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SerializeOptions configures the record encoders.
type SerializeOptions struct {
	// OmitNull drops fields whose value is nil.
	OmitNull bool
	// Indent is the number of spaces per indentation level (default: 2).
	Indent int
}

// DefaultSerializeOptions returns sensible defaults.
func DefaultSerializeOptions() SerializeOptions {
	return SerializeOptions{Indent: 2}
}

// EncodeFunc renders a list of records.
type EncodeFunc func(rows []map[string]any, opts SerializeOptions) ([]byte, error)

// SerializeYAML renders rows as a YAML sequence with sorted keys.
func SerializeYAML(rows []map[string]any, opts SerializeOptions) ([]byte, error) {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(opts.Indent)

	if err := enc.Encode(prepare(rows, opts)); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// SerializeJSON renders rows as an indented JSON array.
func SerializeJSON(rows []map[string]any, opts SerializeOptions) ([]byte, error) {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}

	b, err := json.MarshalIndent(prepare(rows, opts), "", strings.Repeat(" ", opts.Indent))
	if err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return append(b, '\n'), nil
}

// SerializeNDJSON renders one compact JSON object per line.
func SerializeNDJSON(rows []map[string]any, opts SerializeOptions) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)

	for i, row := range prepare(rows, opts) {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("serializing record %d: %w", i, err)
		}
	}

	return buf.Bytes(), nil
}

// prepare returns a non-nil copy of rows, without nil fields when
// requested.
func prepare(rows []map[string]any, opts SerializeOptions) []map[string]any {
	out := make([]map[string]any, 0, len(rows))

	for _, row := range rows {
		if opts.OmitNull {
			row = dropNulls(row)
		}

		out = append(out, row)
	}

	return out
}

func dropNulls(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))

	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any:
			result[k] = dropNulls(val)
		default:
			result[k] = v
		}
	}

	return result
}
