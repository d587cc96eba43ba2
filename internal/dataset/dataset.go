// Package dataset runs declared filters against a concrete data source,
// either an in-memory record set or a SQLite table.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/records"
	"github.com/ivked85/filterman/internal/sqlquery"
)

var (
	// ErrUnknownHost is returned for hosts without declarations.
	ErrUnknownHost = errors.New("unknown host")

	// ErrBackend wraps failures of the underlying store, as opposed to
	// filter errors caused by parameter values.
	ErrBackend = errors.New("backend failure")
)

// Result is the outcome of one filter run.
type Result struct {
	Host    string
	Total   int
	Records records.Set
}

// Step describes one filter during an explained run.
type Step struct {
	Filter   string          `json:"filter"`
	Strategy filter.Strategy `json:"strategy"`
	Count    int             `json:"count"`
	Query    string          `json:"query,omitempty"`
}

// Dataset applies a host's filters to its data.
type Dataset interface {
	// Hosts lists the declared hosts.
	Hosts() []string
	// Apply runs every filter of host with params.
	Apply(ctx context.Context, host string, params filter.Params) (*Result, error)
	// Explain runs the filters one at a time and reports each step.
	Explain(ctx context.Context, host string, params filter.Params) ([]Step, error)
}

// run stores base in a request slot, lets the engine narrow it and reads
// the result back.
func run[C filter.Collection[C]](ctx context.Context, e *filter.Engine[C], host string, base C, params filter.Params) (C, error) {
	req := filter.NewRequest[C](host, params)
	req.SetCollection(base)

	if err := e.ApplyAll(ctx, req); err != nil {
		var zero C
		return zero, err
	}

	out, _ := req.Collection()

	return out, nil
}

func declared[C filter.Collection[C]](r *filter.Registry[C], host string) error {
	if !slices.Contains(r.Hosts(), host) {
		return fmt.Errorf("%w %q", ErrUnknownHost, host)
	}

	return nil
}

// Records filters an in-memory record set.
type Records struct {
	engine *filter.Engine[records.Set]
	data   records.Set
}

// NewRecords creates a dataset over data.
func NewRecords(engine *filter.Engine[records.Set], data records.Set) *Records {
	return &Records{engine: engine, data: data}
}

// Hosts implements Dataset.
func (d *Records) Hosts() []string { return d.engine.Registry().Hosts() }

// Apply implements Dataset.
func (d *Records) Apply(ctx context.Context, host string, params filter.Params) (*Result, error) {
	if err := declared(d.engine.Registry(), host); err != nil {
		return nil, err
	}

	out, err := run(ctx, d.engine, host, d.data, params)
	if err != nil {
		return nil, err
	}

	return &Result{Host: host, Total: d.data.Len(), Records: out}, nil
}

// Explain implements Dataset.
func (d *Records) Explain(ctx context.Context, host string, params filter.Params) ([]Step, error) {
	if err := declared(d.engine.Registry(), host); err != nil {
		return nil, err
	}

	cur := d.data
	steps := make([]Step, 0)

	for _, s := range d.engine.Registry().List(host) {
		next, err := s.Apply(ctx, cur, params)
		if err != nil {
			return steps, fmt.Errorf("filter %q: %w", s.Name(), err)
		}

		cur = next
		steps = append(steps, Step{Filter: s.Name(), Strategy: s.Strategy(params), Count: cur.Len()})
	}

	return steps, nil
}

// SQL filters rows of a SQLite table.
type SQL struct {
	engine *filter.Engine[sqlquery.Query]
	db     *sql.DB
	table  string
}

// NewSQL creates a dataset over db. When table is empty each host queries
// the table of the same name.
func NewSQL(engine *filter.Engine[sqlquery.Query], db *sql.DB, table string) *SQL {
	return &SQL{engine: engine, db: db, table: table}
}

// Hosts implements Dataset.
func (d *SQL) Hosts() []string { return d.engine.Registry().Hosts() }

func (d *SQL) base(host string) (sqlquery.Query, error) {
	table := d.table
	if table == "" {
		table = host
	}

	return sqlquery.From(table)
}

func (d *SQL) rows(ctx context.Context, q sqlquery.Query) (records.Set, error) {
	set, err := q.Rows(ctx, d.db)
	if err != nil {
		return records.Set{}, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return set, nil
}

func (d *SQL) count(ctx context.Context, q sqlquery.Query) (int, error) {
	n, err := q.Count(ctx, d.db)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	return n, nil
}

// Apply implements Dataset.
func (d *SQL) Apply(ctx context.Context, host string, params filter.Params) (*Result, error) {
	if err := declared(d.engine.Registry(), host); err != nil {
		return nil, err
	}

	base, err := d.base(host)
	if err != nil {
		return nil, err
	}

	total, err := d.count(ctx, base)
	if err != nil {
		return nil, err
	}

	q, err := run(ctx, d.engine, host, base, params)
	if err != nil {
		return nil, err
	}

	out, err := d.rows(ctx, q)
	if err != nil {
		return nil, err
	}

	return &Result{Host: host, Total: total, Records: out}, nil
}

// Explain implements Dataset. Each step carries the SQL it ran.
func (d *SQL) Explain(ctx context.Context, host string, params filter.Params) ([]Step, error) {
	if err := declared(d.engine.Registry(), host); err != nil {
		return nil, err
	}

	cur, err := d.base(host)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0)

	for _, s := range d.engine.Registry().List(host) {
		next, err := s.Apply(ctx, cur, params)
		if err != nil {
			return steps, fmt.Errorf("filter %q: %w", s.Name(), err)
		}

		cur = next

		n, err := d.count(ctx, cur)
		if err != nil {
			return steps, err
		}

		steps = append(steps, Step{Filter: s.Name(), Strategy: s.Strategy(params), Count: n, Query: cur.String()})
	}

	return steps, nil
}

var (
	_ Dataset = (*Records)(nil)
	_ Dataset = (*SQL)(nil)
)
