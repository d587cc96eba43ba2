package filter

import (
	"context"
	"fmt"
	"strings"
)

// Spec is an immutable, named filtering rule. The name is both the parameter
// key the spec reads and the field it narrows on when no scope or query is
// configured.
type Spec[C Collection[C]] struct {
	name      string
	scopeName string
	scope     QueryFunc[C]
	query     QueryFunc[C]
}

// SpecOption configures a Spec at construction time.
type SpecOption[C Collection[C]] func(*Spec[C])

// WithScope names a registered collection operation. The name is resolved
// when the spec is declared through [Registry.DeclareFilter].
func WithScope[C Collection[C]](name string) SpecOption[C] {
	return func(s *Spec[C]) {
		s.scopeName = name
	}
}

// WithScopeFunc names a collection operation and supplies it directly, for
// specs built outside a registry.
func WithScopeFunc[C Collection[C]](name string, fn QueryFunc[C]) SpecOption[C] {
	return func(s *Spec[C]) {
		s.scopeName = name
		s.scope = fn
	}
}

// WithQuery supplies a custom narrowing function.
func WithQuery[C Collection[C]](fn QueryFunc[C]) SpecOption[C] {
	return func(s *Spec[C]) {
		s.query = fn
	}
}

// NewSpec builds a spec. A scope given by name only must be resolvable, so
// NewSpec rejects WithScope without a function; use [Registry.DeclareFilter]
// to resolve scope names against registered operations.
func NewSpec[C Collection[C]](name string, opts ...SpecOption[C]) (*Spec[C], error) {
	return newSpec(name, nil, opts...)
}

// newSpec builds a spec and resolves a bare scope name through lookup.
func newSpec[C Collection[C]](name string, lookup func(string) (QueryFunc[C], bool), opts ...SpecOption[C]) (*Spec[C], error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	s := &Spec[C]{name: name}
	for _, opt := range opts {
		opt(s)
	}

	if s.scopeName != "" && s.scope == nil {
		var ok bool
		if lookup != nil {
			s.scope, ok = lookup(s.scopeName)
		}

		if !ok {
			return nil, fmt.Errorf("filter %q: %w %q", name, ErrUnknownScope, s.scopeName)
		}
	}

	return s, nil
}

// Name returns the parameter key and default field name.
func (s *Spec[C]) Name() string { return s.name }

// ScopeName returns the configured scope name, or "" when none is set.
func (s *Spec[C]) ScopeName() string { return s.scopeName }

// HasQuery reports whether a custom query is configured.
func (s *Spec[C]) HasQuery() bool { return s.query != nil }

// Strategy reports the branch Apply takes for params without running it.
func (s *Spec[C]) Strategy(params Params) Strategy {
	_, strategy := s.lookup(params)
	return strategy
}

// Apply narrows collection using the spec's parameter from params. A missing
// or blank parameter returns collection unchanged. Errors from the scope,
// query or Where call are returned as-is.
func (s *Spec[C]) Apply(ctx context.Context, collection C, params Params) (C, error) {
	out, _, err := s.apply(ctx, collection, params)
	return out, err
}

func (s *Spec[C]) apply(ctx context.Context, collection C, params Params) (C, Strategy, error) {
	value, strategy := s.lookup(params)

	var (
		out C
		err error
	)

	switch strategy {
	case StrategyScope:
		out, err = s.scope(ctx, collection, value)
	case StrategyQuery:
		out, err = s.query(ctx, collection, value)
	case StrategyWhere:
		out, err = collection.Where(s.name, value)
	default:
		return collection, StrategySkip, nil
	}

	return out, strategy, err
}

// lookup returns the parameter value and the branch it selects.
func (s *Spec[C]) lookup(params Params) (any, Strategy) {
	if params == nil {
		return nil, StrategySkip
	}

	value, ok := params.Get(s.name)
	if !ok || IsBlank(value) {
		return nil, StrategySkip
	}

	switch {
	case s.scope != nil:
		return value, StrategyScope
	case s.query != nil:
		return value, StrategyQuery
	default:
		return value, StrategyWhere
	}
}

// String implements fmt.Stringer.
func (s *Spec[C]) String() string {
	switch {
	case s.scopeName != "" && s.query != nil:
		return fmt.Sprintf("%s (scope=%s, query)", s.name, s.scopeName)
	case s.scopeName != "":
		return fmt.Sprintf("%s (scope=%s)", s.name, s.scopeName)
	case s.query != nil:
		return fmt.Sprintf("%s (query)", s.name)
	default:
		return s.name
	}
}
