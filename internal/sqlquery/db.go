package sqlquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/ivked85/filterman/internal/records"
)

// DriverName is the database/sql driver used by Open.
const DriverName = "sqlite"

// Open opens a SQLite database and verifies the connection. The pool is
// limited to one connection so that ":memory:" databases are shared.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", dsn, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database %q: %w", dsn, err)
	}

	return db, nil
}

// Count returns the number of rows matching q, ignoring order and limit.
func (q Query) Count(ctx context.Context, db *sql.DB) (int, error) {
	c := q
	c.orderBy = nil
	c.limit = 0

	stmt, args := c.SQL()
	stmt = "SELECT COUNT(*)" + strings.TrimPrefix(stmt, "SELECT *")

	var n int
	if err := db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", q.table, err)
	}

	return n, nil
}

// Rows executes q and returns the matching rows as records. TEXT and BLOB
// columns are returned as strings.
func (q Query) Rows(ctx context.Context, db *sql.DB) (records.Set, error) {
	stmt, args := q.SQL()

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return records.Set{}, fmt.Errorf("querying %s: %w", q.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return records.Set{}, fmt.Errorf("reading columns: %w", err)
	}

	var out []records.Record

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return records.Set{}, fmt.Errorf("scanning row: %w", err)
		}

		rec := make(records.Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = vals[i]
			}
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return records.Set{}, fmt.Errorf("iterating rows: %w", err)
	}

	return records.New(out...), nil
}

// Seed replaces table with the records of set, inferring the column types.
// Nested values are stored as JSON text and booleans as "true" or "false",
// so they compare equal to request parameters.
func Seed(ctx context.Context, db *sql.DB, table string, set records.Set) error {
	if !ValidIdentifier(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	rows := set.Records()
	cols := columnTypes(rows)

	if len(cols) == 0 {
		return fmt.Errorf("seeding %s: no columns found", table)
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		if !ValidIdentifier(name) {
			return fmt.Errorf("seeding %s: invalid column name %q", table, name)
		}

		names = append(names, name)
	}

	sort.Strings(names)

	defs := make([]string, len(names))
	quoted := make([]string, len(names))

	for i, n := range names {
		defs[i] = quote(n) + " " + cols[n]
		quoted[i] = quote(n)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seeding %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return fmt.Errorf("dropping table %s: %w", table, err)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))

	for _, r := range rows {
		args := make([]any, len(names))

		for i, n := range names {
			v, err := storable(r[n])
			if err != nil {
				return fmt.Errorf("seeding %s.%s: %w", table, n, err)
			}

			args[i] = v
		}

		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seeding %s: %w", table, err)
	}

	return nil
}

// columnTypes infers a SQLite type per key: INTEGER when every value is a
// whole number, REAL for other numbers, TEXT otherwise.
func columnTypes(rows []records.Record) map[string]string {
	types := make(map[string]string)

	for _, r := range rows {
		for k, v := range r {
			types[k] = widen(types[k], sqlType(v))
		}
	}

	for k, t := range types {
		if t == "" {
			types[k] = "TEXT"
		}
	}

	return types
}

func sqlType(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int, int32, int64:
		return "INTEGER"
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return "INTEGER"
		}

		return "REAL"
	case float32:
		return "REAL"
	default:
		return "TEXT"
	}
}

func widen(current, next string) string {
	switch {
	case current == "":
		return next
	case next == "" || current == next:
		return current
	case current == "TEXT" || next == "TEXT":
		return "TEXT"
	default:
		return "REAL"
	}
}

func storable(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		return string(b), nil
	default:
		return v, nil
	}
}
