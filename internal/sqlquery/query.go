// Package sqlquery implements an immutable SELECT builder over a single
// table that satisfies [filter.Collection], so request filters can narrow a
// SQL query instead of an in-memory set.
package sqlquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/predicate"
)

// ErrUnsupportedOp is returned for operators that have no SQL rendering.
var ErrUnsupportedOp = errors.New("operator not supported in SQL")

// identPattern restricts table and column names. Identifiers are also
// double-quoted when rendered.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name may be used as a table or column.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Supports reports whether op has a SQL rendering.
func Supports(op predicate.Op) bool {
	switch op {
	case predicate.OpSemver, predicate.OpSelector:
		return false
	default:
		return true
	}
}

func quote(name string) string {
	return `"` + name + `"`
}

type clause struct {
	sql  string
	args []any
}

// Query is an immutable SELECT statement. Every builder method returns a
// new Query and leaves the receiver untouched.
type Query struct {
	table   string
	where   []clause
	orderBy []string
	limit   int
}

// From starts a query over table.
func From(table string) (Query, error) {
	if !ValidIdentifier(table) {
		return Query{}, fmt.Errorf("invalid table name %q", table)
	}

	return Query{table: table}, nil
}

// Table returns the queried table.
func (q Query) Table() string { return q.table }

func (q Query) withClause(c clause) Query {
	out := q
	out.where = append(append([]clause(nil), q.where...), c)

	return out
}

// Where narrows the query to rows whose field equals value. A list value
// renders as IN.
func (q Query) Where(field string, value any) (Query, error) {
	return q.WhereOp(field, predicate.OpEq, value)
}

// WhereOp narrows the query to rows whose field satisfies op.
func (q Query) WhereOp(field string, op predicate.Op, value any) (Query, error) {
	c, err := render(field, op, value)
	if err != nil {
		return Query{}, err
	}

	return q.withClause(c), nil
}

// WhereAny narrows the query to rows where any of fields satisfies op.
func (q Query) WhereAny(fields []string, op predicate.Op, value any) (Query, error) {
	if len(fields) == 0 {
		return Query{}, errors.New("at least one field is required")
	}

	parts := make([]string, 0, len(fields))

	var args []any

	for _, f := range fields {
		c, err := render(f, op, value)
		if err != nil {
			return Query{}, err
		}

		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}

	if len(parts) == 1 {
		return q.withClause(clause{sql: parts[0], args: args}), nil
	}

	return q.withClause(clause{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}), nil
}

// OrderBy appends an ordering column. A leading "-" sorts descending.
func (q Query) OrderBy(column string) (Query, error) {
	dir := "ASC"
	if strings.HasPrefix(column, "-") {
		dir = "DESC"
		column = column[1:]
	}

	if !ValidIdentifier(column) {
		return Query{}, fmt.Errorf("invalid column name %q", column)
	}

	out := q
	out.orderBy = append(append([]string(nil), q.orderBy...), quote(column)+" "+dir)

	return out, nil
}

// Limit caps the number of returned rows. Zero means no limit.
func (q Query) Limit(n int) Query {
	out := q
	out.limit = n

	return out
}

// SQL renders the statement and its positional arguments.
func (q Query) SQL() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	b.WriteString("SELECT * FROM ")
	b.WriteString(quote(q.table))

	for i, c := range q.where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}

		b.WriteString(c.sql)
		args = append(args, c.args...)
	}

	if len(q.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orderBy, ", "))
	}

	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}

	return b.String(), args
}

// String implements fmt.Stringer.
func (q Query) String() string {
	s, _ := q.SQL()
	return s
}

func render(field string, op predicate.Op, value any) (clause, error) {
	if !ValidIdentifier(field) {
		return clause{}, fmt.Errorf("invalid column name %q", field)
	}

	col := quote(field)

	switch op {
	case predicate.OpEq, predicate.OpNe, predicate.OpIn:
		list, isList := listValue(op, value)
		if !isList {
			sym := "="
			if op == predicate.OpNe {
				sym = "<>"
			}

			return clause{sql: col + " " + sym + " ?", args: []any{bindable(value)}}, nil
		}

		if len(list) == 0 {
			if op == predicate.OpNe {
				return clause{sql: "1 = 1"}, nil
			}

			return clause{sql: "1 = 0"}, nil
		}

		kw := "IN"
		if op == predicate.OpNe {
			kw = "NOT IN"
		}

		for i, v := range list {
			list[i] = bindable(v)
		}

		marks := strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ")

		return clause{sql: fmt.Sprintf("%s %s (%s)", col, kw, marks), args: list}, nil
	case predicate.OpGt:
		return clause{sql: col + " > ?", args: []any{bindable(value)}}, nil
	case predicate.OpGte:
		return clause{sql: col + " >= ?", args: []any{bindable(value)}}, nil
	case predicate.OpLt:
		return clause{sql: col + " < ?", args: []any{bindable(value)}}, nil
	case predicate.OpLte:
		return clause{sql: col + " <= ?", args: []any{bindable(value)}}, nil
	case predicate.OpContains:
		return clause{sql: col + ` LIKE ? ESCAPE '\'`, args: []any{"%" + escapeLike(cast.ToString(value)) + "%"}}, nil
	case predicate.OpPrefix:
		return clause{sql: col + ` LIKE ? ESCAPE '\'`, args: []any{escapeLike(cast.ToString(value)) + "%"}}, nil
	default:
		return clause{}, fmt.Errorf("%w: %q", ErrUnsupportedOp, op)
	}
}

// listValue reports the IN list for value. OpIn always renders a list;
// eq and ne only do so for slice values.
func listValue(op predicate.Op, value any) ([]any, bool) {
	if op == predicate.OpIn {
		return append([]any(nil), predicate.List(value)...), true
	}

	list, ok := predicate.AsList(value)

	return append([]any(nil), list...), ok
}

// bindable converts a parameter to the form its column stores. Booleans
// are stored as "true" and "false".
func bindable(v any) any {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}

	return v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ScopeFunc returns a named operation that narrows field with op.
func ScopeFunc(field string, op predicate.Op) filter.QueryFunc[Query] {
	return func(_ context.Context, q Query, value any) (Query, error) {
		return q.WhereOp(field, op, value)
	}
}

// QueryFunc returns a custom query that narrows any of fields with op.
func QueryFunc(fields []string, op predicate.Op) filter.QueryFunc[Query] {
	fields = append([]string(nil), fields...)

	return func(_ context.Context, q Query, value any) (Query, error) {
		return q.WhereAny(fields, op, value)
	}
}

var _ filter.Collection[Query] = Query{}
