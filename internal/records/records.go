// Package records implements an in-memory, immutable collection of
// schemaless records that satisfies [filter.Collection].
package records

import (
	"context"
	"fmt"
	"os"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/maputil"
	"github.com/ivked85/filterman/internal/predicate"
	"github.com/ivked85/filterman/internal/yamlutil"
)

// Record is a single schemaless row.
type Record map[string]any

// Lookup resolves a possibly dotted field path.
func (r Record) Lookup(field string) (any, bool) {
	return maputil.Lookup(r, field)
}

// Set is an immutable ordered collection of records. Every narrowing
// operation returns a new Set sharing the underlying records.
type Set struct {
	rows []Record
}

// New creates a set from rows.
func New(rows ...Record) Set {
	out := make([]Record, len(rows))
	copy(out, rows)

	return Set{rows: out}
}

// Len returns the number of records.
func (s Set) Len() int { return len(s.rows) }

// Records returns deep copies of the records in order.
func (s Set) Records() []Record {
	out := make([]Record, len(s.rows))
	for i, r := range s.rows {
		out[i] = maputil.DeepCopyMap(r)
	}

	return out
}

// Maps returns the records as plain maps, for serialization.
func (s Set) Maps() []map[string]any {
	out := make([]map[string]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = maputil.DeepCopyMap(r)
	}

	return out
}

// Where narrows the set to records whose field equals value. A list value
// matches any of its elements.
func (s Set) Where(field string, value any) (Set, error) {
	return s.Match(field, predicate.OpEq, value)
}

// Match narrows the set to records whose field satisfies op against value.
// For predicate.OpSelector the field is ignored and value is a label
// selector evaluated against the whole record.
func (s Set) Match(field string, op predicate.Op, value any) (Set, error) {
	return s.MatchAny([]string{field}, op, value)
}

// MatchAny narrows the set to records where at least one of fields
// satisfies op against value.
func (s Set) MatchAny(fields []string, op predicate.Op, value any) (Set, error) {
	m, err := predicate.Compile(op, value)
	if err != nil {
		return Set{}, err
	}

	if op == predicate.OpSelector {
		return s.Select(func(r Record) bool { return m(map[string]any(r)) }), nil
	}

	return s.Select(func(r Record) bool {
		for _, f := range fields {
			if v, ok := r.Lookup(f); ok && m(v) {
				return true
			}
		}

		return false
	}), nil
}

// Select narrows the set to records for which keep returns true.
func (s Set) Select(keep func(Record) bool) Set {
	out := make([]Record, 0, len(s.rows))

	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}

	return Set{rows: out}
}

// Decode parses JSON or YAML records. The input is a list of objects, or a
// YAML stream whose documents are each a list or a single object.
func Decode(data []byte) (Set, error) {
	var rows []Record

	for d, doc := range yamlutil.SplitDocuments(data) {
		var v any
		if err := sigsyaml.Unmarshal(doc, &v); err != nil {
			return Set{}, fmt.Errorf("decoding records: document %d: %w", d, err)
		}

		switch val := v.(type) {
		case nil:
		case map[string]any:
			rows = append(rows, Record(val))
		case []any:
			for i, item := range val {
				m, ok := item.(map[string]any)
				if !ok {
					return Set{}, fmt.Errorf("decoding records: document %d: item %d is not an object", d, i)
				}

				rows = append(rows, Record(m))
			}
		default:
			return Set{}, fmt.Errorf("decoding records: document %d is not a list or an object", d)
		}
	}

	return Set{rows: rows}, nil
}

// Load reads and decodes a records file.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return Set{}, fmt.Errorf("reading records %q: %w", path, err)
	}

	s, err := Decode(data)
	if err != nil {
		return Set{}, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// ScopeFunc returns a named operation that matches field with op.
func ScopeFunc(field string, op predicate.Op) filter.QueryFunc[Set] {
	return func(_ context.Context, s Set, value any) (Set, error) {
		return s.Match(field, op, value)
	}
}

// QueryFunc returns a custom query that matches any of fields with op.
func QueryFunc(fields []string, op predicate.Op) filter.QueryFunc[Set] {
	fields = append([]string(nil), fields...)

	return func(_ context.Context, s Set, value any) (Set, error) {
		return s.MatchAny(fields, op, value)
	}
}

var _ filter.Collection[Set] = Set{}
