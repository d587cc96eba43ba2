package dataset

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/declare"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/records"
	"github.com/ivked85/filterman/internal/sqlquery"
)

const decls = `
scopes:
  min_age: {field: age, op: gte}
queries:
  search: {op: contains, fields: [name]}
hosts:
  users:
    filters:
      - status
      - {name: age, scope: min_age}
      - {name: q, query: search}
`

func sample() records.Set {
	return records.New(
		records.Record{"name": "Alice", "status": "active", "age": float64(34)},
		records.Record{"name": "Bob", "status": "inactive", "age": float64(19)},
		records.Record{"name": "Carol", "status": "active", "age": float64(27)},
	)
}

func declarations(t *testing.T) *config.Declarations {
	t.Helper()

	d, err := config.ParseDeclarations([]byte(decls))
	require.NoError(t, err)

	return d
}

func newRecords(t *testing.T) *Records {
	t.Helper()

	r, err := declare.Records(declarations(t))
	require.NoError(t, err)

	return NewRecords(filter.NewEngine(r), sample())
}

func newSQL(t *testing.T) *SQL {
	t.Helper()

	ctx := context.Background()

	db, err := sqlquery.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlquery.Seed(ctx, db, "users", sample()))

	r, err := declare.SQL(declarations(t))
	require.NoError(t, err)

	return NewSQL(filter.NewEngine(r), db, "")
}

func names(s records.Set) []string {
	out := make([]string, 0, s.Len())
	for _, r := range s.Records() {
		out = append(out, r["name"].(string))
	}

	return out
}

func TestApply(t *testing.T) {
	for name, ds := range map[string]Dataset{"records": newRecords(t), "sql": newSQL(t)} {
		t.Run(name, func(t *testing.T) {
			res, err := ds.Apply(context.Background(), "users", filter.Values{"status": "active", "age": "30"})
			require.NoError(t, err)

			assert.Equal(t, "users", res.Host)
			assert.Equal(t, 3, res.Total)
			assert.Equal(t, []string{"Alice"}, names(res.Records))
		})
	}
}

func TestApply_UnknownHost(t *testing.T) {
	for name, ds := range map[string]Dataset{"records": newRecords(t), "sql": newSQL(t)} {
		t.Run(name, func(t *testing.T) {
			_, err := ds.Apply(context.Background(), "orders", filter.Values{})
			require.ErrorIs(t, err, ErrUnknownHost)

			assert.Equal(t, []string{"users"}, ds.Hosts(), "lookup does not declare the host")
		})
	}
}

func TestExplain_Records(t *testing.T) {
	steps, err := newRecords(t).Explain(context.Background(), "users", filter.Values{"status": "active", "q": "car"})
	require.NoError(t, err)

	assert.Equal(t, []Step{
		{Filter: "status", Strategy: filter.StrategyWhere, Count: 2},
		{Filter: "age", Strategy: filter.StrategySkip, Count: 2},
		{Filter: "q", Strategy: filter.StrategyQuery, Count: 1},
	}, steps)
}

func TestExplain_SQL(t *testing.T) {
	steps, err := newSQL(t).Explain(context.Background(), "users", filter.Values{"age": "20"})
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, filter.StrategySkip, steps[0].Strategy)
	assert.Equal(t, 3, steps[0].Count)
	assert.Equal(t, filter.StrategyScope, steps[1].Strategy)
	assert.Equal(t, 2, steps[1].Count)
	assert.Equal(t, `SELECT * FROM "users" WHERE "age" >= ?`, steps[1].Query)
}

func TestApply_BooleanFieldAgrees(t *testing.T) {
	ctx := context.Background()

	d, err := config.ParseDeclarations([]byte("hosts:\n  flags:\n    filters: [active]\n"))
	require.NoError(t, err)

	data := records.New(
		records.Record{"name": "a", "active": true},
		records.Record{"name": "b", "active": false},
	)

	rr, err := declare.Records(d)
	require.NoError(t, err)

	db, err := sqlquery.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlquery.Seed(ctx, db, "flags", data))

	sr, err := declare.SQL(d)
	require.NoError(t, err)

	backends := map[string]Dataset{
		"records": NewRecords(filter.NewEngine(rr), data),
		"sql":     NewSQL(filter.NewEngine(sr), db, ""),
	}

	tests := []struct {
		name   string
		params filter.Params
		want   []string
	}{
		{"query string true", filter.URLParams(url.Values{"active": {"true"}}), []string{"a"}},
		{"query string false", filter.URLParams(url.Values{"active": {"false"}}), []string{"b"}},
		{"go bool", filter.Values{"active": true}, []string{"a"}},
	}

	for name, ds := range backends {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				res, err := ds.Apply(ctx, "flags", tt.params)
				require.NoError(t, err)
				assert.Equal(t, 2, res.Total)
				assert.Equal(t, tt.want, names(res.Records))
			})
		}
	}
}

func TestSQL_MissingTable(t *testing.T) {
	ds := newSQL(t)
	ds.table = "missing"

	_, err := ds.Apply(context.Background(), "users", filter.Values{})
	assert.ErrorIs(t, err, ErrBackend)
}

func TestApply_FilterError(t *testing.T) {
	r := filter.NewRegistry[records.Set]()
	require.NoError(t, r.RegisterScope("v", records.ScopeFunc("version", "semver")))
	require.NoError(t, r.DeclareFilter("apps", "v", filter.WithScope[records.Set]("v")))

	ds := NewRecords(filter.NewEngine(r), sample())

	_, err := ds.Apply(context.Background(), "apps", filter.Values{"v": ">= banana"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackend)
}
