// Package predicate implements the comparison operators shared by the
// collection types: equality, ordering, substring, semantic version
// constraints and label selectors.
package predicate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cast"
	"k8s.io/apimachinery/pkg/labels"
)

// Op is a comparison operator.
type Op string

// Supported operators.
const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpPrefix   Op = "prefix"
	OpSemver   Op = "semver"
	OpSelector Op = "selector"
)

var allOps = []Op{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpContains, OpPrefix, OpSemver, OpSelector}

// Ops returns every supported operator.
func Ops() []Op {
	return append([]Op(nil), allOps...)
}

// ParseOp validates s as an operator. An empty string means OpEq.
func ParseOp(s string) (Op, error) {
	if s == "" {
		return OpEq, nil
	}

	for _, op := range allOps {
		if string(op) == strings.ToLower(s) {
			return op, nil
		}
	}

	return "", fmt.Errorf("unknown operator %q", s)
}

// Matcher reports whether a field value satisfies a compiled predicate. For
// OpSelector the argument is the whole record as map[string]any.
type Matcher func(field any) bool

// Compile builds a Matcher for op with the given parameter. Invalid
// semver constraints and label selectors are reported here, once per
// parameter rather than once per row.
func Compile(op Op, param any) (Matcher, error) {
	switch op {
	case OpEq:
		if list, ok := AsList(param); ok {
			return func(f any) bool { return member(f, list) }, nil
		}

		return func(f any) bool { return Equal(f, param) }, nil
	case OpNe:
		if list, ok := AsList(param); ok {
			return func(f any) bool { return !member(f, list) }, nil
		}

		return func(f any) bool { return !Equal(f, param) }, nil
	case OpIn:
		list := List(param)
		return func(f any) bool { return member(f, list) }, nil
	case OpGt, OpGte, OpLt, OpLte:
		return func(f any) bool { return ordered(op, f, param) }, nil
	case OpContains:
		needle := strings.ToLower(cast.ToString(param))
		return func(f any) bool {
			return f != nil && strings.Contains(strings.ToLower(cast.ToString(f)), needle)
		}, nil
	case OpPrefix:
		needle := strings.ToLower(cast.ToString(param))
		return func(f any) bool {
			return f != nil && strings.HasPrefix(strings.ToLower(cast.ToString(f)), needle)
		}, nil
	case OpSemver:
		c, err := semver.NewConstraint(cast.ToString(param))
		if err != nil {
			return nil, fmt.Errorf("invalid version constraint %q: %w", cast.ToString(param), err)
		}

		return func(f any) bool {
			v, err := semver.NewVersion(cast.ToString(f))
			if err != nil {
				return false
			}

			return c.Check(v)
		}, nil
	case OpSelector:
		sel, err := labels.Parse(cast.ToString(param))
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", cast.ToString(param), err)
		}

		return func(f any) bool {
			record, ok := f.(map[string]any)
			if !ok {
				return false
			}

			return sel.Matches(LabelSet(record))
		}, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

// Equal compares a and b deeply, falling back to their string forms so that
// a JSON number 30 equals the request parameter "30".
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	if a == nil || b == nil {
		return false
	}

	as, err := cast.ToStringE(a)
	if err != nil {
		return false
	}

	bs, err := cast.ToStringE(b)
	if err != nil {
		return false
	}

	return as == bs
}

// List converts param into a list of candidate values. Slices are used
// as-is and strings are split on commas.
func List(param any) []any {
	if list, ok := AsList(param); ok {
		return list
	}

	if s, ok := param.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))

		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}

		return out
	}

	return []any{param}
}

// LabelSet renders the scalar top-level fields of record as label values.
// Nested maps and lists are skipped.
func LabelSet(record map[string]any) labels.Set {
	set := make(labels.Set, len(record))

	for k, v := range record {
		s, err := cast.ToStringE(v)
		if err != nil || v == nil {
			continue
		}

		set[k] = s
	}

	return set
}

// Compare orders a against b: numerically when both convert to float64,
// otherwise by string form. ok is false when either side is nil.
func Compare(a, b any) (c int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}

	af, errA := cast.ToFloat64E(a)
	bf, errB := cast.ToFloat64E(b)

	if errA == nil && errB == nil {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	return strings.Compare(cast.ToString(a), cast.ToString(b)), true
}

func ordered(op Op, field, param any) bool {
	c, ok := Compare(field, param)
	if !ok {
		return false
	}

	switch op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	default:
		return c <= 0
	}
}

func member(field any, list []any) bool {
	for _, v := range list {
		if Equal(field, v) {
			return true
		}
	}

	return false
}

// AsList reports v as a list when it is a slice or array of any element
// type. Strings are not lists.
func AsList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}

		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}
