// Package declare binds a parsed declaration file to filter registries for
// the supported collection types.
package declare

import (
	"fmt"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/predicate"
	"github.com/ivked85/filterman/internal/records"
	"github.com/ivked85/filterman/internal/sqlquery"
)

// Backend turns declared scopes and queries into collection operations.
type Backend[C filter.Collection[C]] struct {
	// Name identifies the backend in error messages.
	Name string

	// Scope builds a named operation narrowing field with op.
	Scope func(field string, op predicate.Op) filter.QueryFunc[C]

	// Query builds a custom query over fields with op.
	Query func(fields []string, op predicate.Op) filter.QueryFunc[C]

	// Check rejects declarations the backend cannot evaluate. Optional.
	Check func(fields []string, op predicate.Op) error
}

// RecordsBackend evaluates declarations against in-memory record sets.
var RecordsBackend = Backend[records.Set]{
	Name:  "records",
	Scope: records.ScopeFunc,
	Query: records.QueryFunc,
}

// SQLBackend evaluates declarations by narrowing SQL queries.
var SQLBackend = Backend[sqlquery.Query]{
	Name:  "sql",
	Scope: sqlquery.ScopeFunc,
	Query: sqlquery.QueryFunc,
	Check: func(fields []string, op predicate.Op) error {
		if !sqlquery.Supports(op) {
			return fmt.Errorf("%w: %q", sqlquery.ErrUnsupportedOp, op)
		}

		for _, f := range fields {
			if !sqlquery.ValidIdentifier(f) {
				return fmt.Errorf("invalid column name %q", f)
			}
		}

		return nil
	},
}

// Records builds a registry over record sets from d.
func Records(d *config.Declarations) (*filter.Registry[records.Set], error) {
	return Build(d, RecordsBackend)
}

// SQL builds a registry over SQL queries from d.
func SQL(d *config.Declarations) (*filter.Registry[sqlquery.Query], error) {
	return Build(d, SQLBackend)
}

// Build registers every scope of d, then declares each host's filters in
// file order.
func Build[C filter.Collection[C]](d *config.Declarations, b Backend[C]) (*filter.Registry[C], error) {
	r := filter.NewRegistry[C]()

	for name, s := range d.Scopes {
		op, err := predicate.ParseOp(s.Op)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", name, err)
		}

		var fields []string
		if s.Field != "" {
			fields = []string{s.Field}
		}

		if err := check(b, fields, op); err != nil {
			return nil, fmt.Errorf("scope %q: %w", name, err)
		}

		if err := r.RegisterScope(name, b.Scope(s.Field, op)); err != nil {
			return nil, err
		}
	}

	queries := make(map[string]filter.QueryFunc[C], len(d.Queries))

	for name, q := range d.Queries {
		op, err := predicate.ParseOp(q.Op)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}

		if err := check(b, q.Fields, op); err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}

		queries[name] = b.Query(q.Fields, op)
	}

	for _, host := range d.HostNames() {
		// Touch the host so that a declared host without filters is listed.
		r.List(host)

		for _, f := range d.Hosts[host].Filters {
			var opts []filter.SpecOption[C]

			if f.Scope != "" {
				opts = append(opts, filter.WithScope[C](f.Scope))
			}

			if f.Query != "" {
				fn, ok := queries[f.Query]
				if !ok {
					return nil, fmt.Errorf("host %q: filter %q: unknown query %q", host, f.Name, f.Query)
				}

				opts = append(opts, filter.WithQuery(fn))
			}

			if err := r.DeclareFilter(host, f.Name, opts...); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

func check[C filter.Collection[C]](b Backend[C], fields []string, op predicate.Op) error {
	if b.Check == nil {
		return nil
	}

	if err := b.Check(fields, op); err != nil {
		return fmt.Errorf("%s backend: %w", b.Name, err)
	}

	return nil
}
