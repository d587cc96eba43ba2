package sqlquery

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/predicate"
	"github.com/ivked85/filterman/internal/records"
)

func mustFrom(t *testing.T, table string) Query {
	t.Helper()

	q, err := From(table)
	require.NoError(t, err)

	return q
}

func TestFrom_InvalidTable(t *testing.T) {
	_, err := From("users; DROP TABLE x")
	assert.ErrorContains(t, err, "invalid table name")
}

func TestSQL(t *testing.T) {
	base := mustFrom(t, "users")

	tests := []struct {
		name     string
		build    func(Query) (Query, error)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "bare",
			build:   func(q Query) (Query, error) { return q, nil },
			wantSQL: `SELECT * FROM "users"`,
		},
		{
			name:     "where",
			build:    func(q Query) (Query, error) { return q.Where("status", "active") },
			wantSQL:  `SELECT * FROM "users" WHERE "status" = ?`,
			wantArgs: []any{"active"},
		},
		{
			name:     "where list",
			build:    func(q Query) (Query, error) { return q.Where("role", []string{"a", "b"}) },
			wantSQL:  `SELECT * FROM "users" WHERE "role" IN (?, ?)`,
			wantArgs: []any{"a", "b"},
		},
		{
			name:     "ne list",
			build:    func(q Query) (Query, error) { return q.WhereOp("role", predicate.OpNe, []any{"a"}) },
			wantSQL:  `SELECT * FROM "users" WHERE "role" NOT IN (?)`,
			wantArgs: []any{"a"},
		},
		{
			name:     "in csv",
			build:    func(q Query) (Query, error) { return q.WhereOp("role", predicate.OpIn, "a,b") },
			wantSQL:  `SELECT * FROM "users" WHERE "role" IN (?, ?)`,
			wantArgs: []any{"a", "b"},
		},
		{
			name:    "empty in",
			build:   func(q Query) (Query, error) { return q.WhereOp("role", predicate.OpIn, []string{}) },
			wantSQL: `SELECT * FROM "users" WHERE 1 = 0`,
		},
		{
			name: "cumulative with order and limit",
			build: func(q Query) (Query, error) {
				q, err := q.WhereOp("age", predicate.OpGte, "18")
				if err != nil {
					return q, err
				}

				q, err = q.OrderBy("-age")
				if err != nil {
					return q, err
				}

				return q.Limit(5), nil
			},
			wantSQL:  `SELECT * FROM "users" WHERE "age" >= ? ORDER BY "age" DESC LIMIT 5`,
			wantArgs: []any{"18"},
		},
		{
			name:     "int slice is a list",
			build:    func(q Query) (Query, error) { return q.Where("age", []int{19, 34}) },
			wantSQL:  `SELECT * FROM "users" WHERE "age" IN (?, ?)`,
			wantArgs: []any{19, 34},
		},
		{
			name:     "bool binds as text",
			build:    func(q Query) (Query, error) { return q.Where("active", true) },
			wantSQL:  `SELECT * FROM "users" WHERE "active" = ?`,
			wantArgs: []any{"true"},
		},
		{
			name:     "contains escapes wildcards",
			build:    func(q Query) (Query, error) { return q.WhereOp("name", predicate.OpContains, "50%_off") },
			wantSQL:  `SELECT * FROM "users" WHERE "name" LIKE ? ESCAPE '\'`,
			wantArgs: []any{`%50\%\_off%`},
		},
		{
			name: "where any",
			build: func(q Query) (Query, error) {
				return q.WhereAny([]string{"name", "email"}, predicate.OpPrefix, "al")
			},
			wantSQL:  `SELECT * FROM "users" WHERE ("name" LIKE ? ESCAPE '\' OR "email" LIKE ? ESCAPE '\')`,
			wantArgs: []any{"al%", "al%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.build(base)
			require.NoError(t, err)

			gotSQL, gotArgs := q.SQL()
			if diff := cmp.Diff(tt.wantSQL, gotSQL); diff != "" {
				t.Errorf("SQL mismatch (-want +got):\n%s", diff)
			}

			if diff := cmp.Diff(tt.wantArgs, gotArgs); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuery_Immutable(t *testing.T) {
	base := mustFrom(t, "users")

	a, err := base.Where("status", "active")
	require.NoError(t, err)

	b, err := base.Where("status", "inactive")
	require.NoError(t, err)

	_, err = a.Where("role", "admin")
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "users"`, base.String())
	assert.Equal(t, `SELECT * FROM "users" WHERE "status" = ?`, a.String())
	assert.Equal(t, `SELECT * FROM "users" WHERE "status" = ?`, b.String())
}

func TestQuery_Errors(t *testing.T) {
	q := mustFrom(t, "users")

	_, err := q.Where("bad column", "x")
	assert.ErrorContains(t, err, "invalid column name")

	_, err = q.WhereOp("version", predicate.OpSemver, "^1")
	assert.ErrorIs(t, err, ErrUnsupportedOp)

	_, err = q.WhereAny(nil, predicate.OpEq, "x")
	assert.Error(t, err)

	_, err = q.OrderBy("-")
	assert.ErrorContains(t, err, "invalid column name")
}

// ---------------------------------------------------------------------------
// SQLite round trip
// ---------------------------------------------------------------------------

func openSeeded(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	set := records.New(
		records.Record{"name": "Alice", "role": "admin", "status": "active", "age": float64(34)},
		records.Record{"name": "Bob", "role": "user", "status": "inactive", "age": float64(19)},
		records.Record{"name": "Carol", "role": "user", "status": "active", "age": float64(27),
			"tags": []any{"x"}},
	)
	require.NoError(t, Seed(ctx, db, "users", set))

	return db
}

func names(s records.Set) []string {
	out := make([]string, 0, s.Len())
	for _, r := range s.Records() {
		out = append(out, r["name"].(string))
	}

	return out
}

func TestRows(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	q := mustFrom(t, "users")
	q, err := q.Where("status", "active")
	require.NoError(t, err)
	q, err = q.OrderBy("name")
	require.NoError(t, err)

	got, err := q.Rows(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol"}, names(got))

	alice := got.Records()[0]
	assert.Equal(t, int64(34), alice["age"])
	assert.Nil(t, alice["tags"])
	assert.Equal(t, `["x"]`, got.Records()[1]["tags"])
}

func TestRows_NumericAffinity(t *testing.T) {
	db := openSeeded(t)

	q, err := mustFrom(t, "users").WhereOp("age", predicate.OpGt, "20")
	require.NoError(t, err)
	q, err = q.OrderBy("age")
	require.NoError(t, err)

	got, err := q.Rows(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Alice"}, names(got))
}

func TestRows_BooleanColumn(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	set := records.New(
		records.Record{"name": "a", "active": true},
		records.Record{"name": "b", "active": false},
	)
	require.NoError(t, Seed(ctx, db, "flags", set))

	for _, v := range []any{"true", true} {
		q, err := mustFrom(t, "flags").Where("active", v)
		require.NoError(t, err)

		got, err := q.Rows(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, names(got))
	}
}

func TestCount(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	n, err := mustFrom(t, "users").Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	q, err := mustFrom(t, "users").Where("status", "active")
	require.NoError(t, err)
	q, err = q.OrderBy("name")
	require.NoError(t, err)

	n, err = q.Limit(1).Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "order and limit are ignored")

	_, err = mustFrom(t, "missing").Count(ctx, db)
	assert.ErrorContains(t, err, "counting missing")
}

func TestRows_UnknownTable(t *testing.T) {
	db := openSeeded(t)

	_, err := mustFrom(t, "missing").Rows(context.Background(), db)
	assert.ErrorContains(t, err, "querying missing")
}

func TestSeed_Errors(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	assert.ErrorContains(t, Seed(ctx, db, "bad table", records.New()), "invalid table name")
	assert.ErrorContains(t, Seed(ctx, db, "empty", records.New()), "no columns found")
	assert.ErrorContains(t,
		Seed(ctx, db, "t", records.New(records.Record{"bad col": 1})),
		"invalid column name")
}

func TestColumnTypes(t *testing.T) {
	got := columnTypes([]records.Record{
		{"a": float64(1), "b": 1.5, "c": "x", "d": true, "e": nil, "f": float64(2)},
		{"a": float64(2), "b": float64(2), "c": float64(3), "f": 2.5},
	})

	want := map[string]string{"a": "INTEGER", "b": "REAL", "c": "TEXT", "d": "TEXT", "e": "TEXT", "f": "REAL"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("column types mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_NarrowsQuery(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	r := filter.NewRegistry[Query]()
	require.NoError(t, r.RegisterScope("min_age", ScopeFunc("age", predicate.OpGte)))
	require.NoError(t, r.Declare("users", "status"))
	require.NoError(t, r.DeclareFilter("users", "age", filter.WithScope[Query]("min_age")))
	require.NoError(t, r.DeclareFilter("users", "q", filter.WithQuery(QueryFunc([]string{"name", "role"}, predicate.OpContains))))

	e := filter.NewEngine(r)

	q, err := mustFrom(t, "users").OrderBy("name")
	require.NoError(t, err)

	narrowed, err := e.Apply(ctx, "users", q, filter.Values{"status": "active", "age": "30", "q": ""})
	require.NoError(t, err)

	sqlText, args := narrowed.SQL()
	assert.Equal(t, `SELECT * FROM "users" WHERE "status" = ? AND "age" >= ? ORDER BY "name" ASC`, sqlText)
	assert.Equal(t, []any{"active", "30"}, args)

	got, err := narrowed.Rows(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names(got))
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(predicate.OpContains))
	assert.False(t, Supports(predicate.OpSemver))
	assert.False(t, Supports(predicate.OpSelector))
}

func TestSeed_ReplacesTable(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, db, "users", records.New(records.Record{"name": "Dave"})))

	got, err := mustFrom(t, "users").Rows(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dave"}, names(got))
}
