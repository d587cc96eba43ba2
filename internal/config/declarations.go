package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/ivked85/filterman/internal/predicate"
	"github.com/ivked85/filterman/internal/version"
)

// Declarations describes the named operations and per-host filters loaded
// from a filter declaration file.
type Declarations struct {
	// Requires is an optional semver constraint on the filterman version.
	Requires string `json:"requires,omitempty"`

	// Scopes are named operations keyed by scope name.
	Scopes map[string]ScopeDecl `json:"scopes,omitempty"`

	// Queries are reusable custom queries keyed by name.
	Queries map[string]QueryDecl `json:"queries,omitempty"`

	// Hosts holds the ordered filter list of every host.
	Hosts map[string]HostDecl `json:"hosts,omitempty"`
}

// ScopeDecl narrows Field with Op. Field may be empty for selector scopes.
type ScopeDecl struct {
	Field string `json:"field,omitempty"`
	Op    string `json:"op,omitempty"`
}

// QueryDecl matches when any of Fields satisfies Op.
type QueryDecl struct {
	Op     string   `json:"op,omitempty"`
	Fields []string `json:"fields"`
}

// HostDecl lists the filters of one host in declaration order.
type HostDecl struct {
	Filters []FilterDecl `json:"filters"`
}

// FilterDecl declares one filter. In YAML it is either a bare name or an
// object with name, scope and query keys.
type FilterDecl struct {
	Name  string `json:"name"`
	Scope string `json:"scope,omitempty"`
	Query string `json:"query,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (f *FilterDecl) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}

		*f = FilterDecl{Name: name}

		return nil
	}

	type plain FilterDecl

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*f = FilterDecl(p)

	return nil
}

// fieldPattern validates dotted field paths such as "address.city".
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ParseDeclarations parses and validates a declaration file.
func ParseDeclarations(data []byte) (*Declarations, error) {
	var d Declarations

	if err := sigsyaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("parsing filter declarations: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadDeclarations reads and parses the declaration file at path.
func LoadDeclarations(path string) (*Declarations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading filter declarations: %w", err)
	}

	d, err := ParseDeclarations(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

// Validate checks names, references, operators and the version constraint.
func (d *Declarations) Validate() error {
	if err := d.CheckVersion(version.GetInfo()); err != nil {
		return err
	}

	var errs []error

	for _, name := range sortedNames(d.Scopes) {
		s := d.Scopes[name]

		op, err := predicate.ParseOp(s.Op)
		if err != nil {
			errs = append(errs, fmt.Errorf("scopes[%s]: %w", name, err))
			continue
		}

		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, errors.New("scopes: name must not be empty"))
		case op == predicate.OpSelector && s.Field != "":
			errs = append(errs, fmt.Errorf("scopes[%s]: selector scopes take no field", name))
		case op != predicate.OpSelector && !fieldPattern.MatchString(s.Field):
			errs = append(errs, fmt.Errorf("scopes[%s]: invalid field %q", name, s.Field))
		}
	}

	for _, name := range sortedNames(d.Queries) {
		q := d.Queries[name]

		op, err := predicate.ParseOp(q.Op)
		if err != nil {
			errs = append(errs, fmt.Errorf("queries[%s]: %w", name, err))
			continue
		}

		if op == predicate.OpSelector {
			errs = append(errs, fmt.Errorf("queries[%s]: selector is only valid for scopes", name))
		}

		if len(q.Fields) == 0 {
			errs = append(errs, fmt.Errorf("queries[%s]: at least one field is required", name))
		}

		for _, f := range q.Fields {
			if !fieldPattern.MatchString(f) {
				errs = append(errs, fmt.Errorf("queries[%s]: invalid field %q", name, f))
			}
		}
	}

	for _, host := range sortedNames(d.Hosts) {
		if strings.TrimSpace(host) == "" {
			errs = append(errs, errors.New("hosts: name must not be empty"))
			continue
		}

		for i, f := range d.Hosts[host].Filters {
			prefix := fmt.Sprintf("hosts[%s].filters[%d]", host, i)

			if strings.TrimSpace(f.Name) == "" {
				errs = append(errs, fmt.Errorf("%s: name must not be empty", prefix))
			}

			if f.Scope != "" {
				if _, ok := d.Scopes[f.Scope]; !ok {
					errs = append(errs, fmt.Errorf("%s: unknown scope %q", prefix, f.Scope))
				}
			}

			if f.Query != "" {
				if _, ok := d.Queries[f.Query]; !ok {
					errs = append(errs, fmt.Errorf("%s: unknown query %q", prefix, f.Query))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// CheckVersion reports whether the running version satisfies Requires.
// Development builds with a non-semver version always pass.
func (d *Declarations) CheckVersion(info version.Info) error {
	if d.Requires == "" {
		return nil
	}

	c, err := semver.NewConstraint(d.Requires)
	if err != nil {
		return fmt.Errorf("requires: invalid constraint %q: %w", d.Requires, err)
	}

	v, err := info.Semver()
	if err != nil {
		return nil
	}

	if !c.Check(v) {
		return fmt.Errorf("requires %q, running filterman %s", d.Requires, info.Version)
	}

	return nil
}

// HostNames returns the declared hosts, sorted.
func (d *Declarations) HostNames() []string {
	return sortedNames(d.Hosts)
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
