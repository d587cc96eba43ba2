package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Test collection
// ---------------------------------------------------------------------------

type row map[string]string

// table is a minimal Collection used across the package tests. Every
// operation returns a fresh table and records its call in the shared log.
type table struct {
	rows []row
	log  *[]string
}

func newTable(rows ...row) table {
	return table{rows: rows, log: &[]string{}}
}

func (t table) with(rows []row, call string) table {
	*t.log = append(*t.log, call)
	return table{rows: rows, log: t.log}
}

func (t table) Where(field string, value any) (table, error) {
	want := fmt.Sprint(value)
	out := []row{}

	for _, r := range t.rows {
		if r[field] == want {
			out = append(out, r)
		}
	}

	return t.with(out, "where:"+field+"="+want), nil
}

func (t table) admins(value any) table {
	out := []row{}

	for _, r := range t.rows {
		if r["role"] == "admin" {
			out = append(out, r)
		}
	}

	return t.with(out, fmt.Sprintf("admins:%v", value))
}

func (t table) textSearch(value any) table {
	needle := strings.ToLower(fmt.Sprint(value))
	out := []row{}

	for _, r := range t.rows {
		if strings.Contains(strings.ToLower(r["name"]), needle) {
			out = append(out, r)
		}
	}

	return t.with(out, fmt.Sprintf("search:%v", value))
}

func (t table) calls() []string {
	return append([]string(nil), *t.log...)
}

func adminsScope(_ context.Context, t table, value any) (table, error) {
	return t.admins(value), nil
}

func searchQuery(_ context.Context, t table, value any) (table, error) {
	return t.textSearch(value), nil
}

var errBoom = errors.New("boom")

func failingQuery(_ context.Context, _ table, _ any) (table, error) {
	return table{}, errBoom
}

func sampleTable() table {
	return newTable(
		row{"name": "Widget", "status": "active", "role": "admin"},
		row{"name": "Gadget", "status": "inactive", "role": "user"},
		row{"name": "Widget Pro", "status": "active", "role": "user"},
	)
}

func names(t table) []string {
	out := make([]string, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r["name"])
	}

	return out
}
