// Package filterman provides a public Go API for declaring request filters
// and applying them to collections.
//
// The generic types re-export the filter engine so that any type
// implementing [Collection] can be narrowed by request parameters:
//
//	reg := filterman.NewRegistry[MyQuery]()
//	_ = reg.RegisterScope("active", activeScope)
//	_ = reg.DeclareFilter("users", "status", filterman.WithScope[MyQuery]("active"))
//	narrowed, err := filterman.NewEngine(reg).Apply(ctx, "users", q, filterman.Values{"status": "x"})
//
// [Apply] runs a declaration file against a JSON or YAML list of records
// without building a registry by hand:
//
//	result, err := filterman.Apply(ctx, decls, data, "users",
//	    filterman.URLParams(url.Values{"status": {"active"}}),
//	    filterman.WithFormat("json"),
//	)
package filterman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ivked85/filterman/internal/config"
	"github.com/ivked85/filterman/internal/dataset"
	"github.com/ivked85/filterman/internal/declare"
	"github.com/ivked85/filterman/internal/filter"
	"github.com/ivked85/filterman/internal/logging"
	"github.com/ivked85/filterman/internal/output"
	"github.com/ivked85/filterman/internal/records"
)

// Collection is the narrowing capability a filterable type provides.
type Collection[C any] = filter.Collection[C]

// QueryFunc narrows a collection with a parameter value.
type QueryFunc[C any] = filter.QueryFunc[C]

// Spec is one declared filter.
type Spec[C Collection[C]] = filter.Spec[C]

// SpecOption configures a Spec.
type SpecOption[C Collection[C]] = filter.SpecOption[C]

// Registry holds scopes and per-host filter declarations.
type Registry[C Collection[C]] = filter.Registry[C]

// Engine applies a host's filters.
type Engine[C Collection[C]] = filter.Engine[C]

// EngineOption configures an Engine.
type EngineOption[C Collection[C]] = filter.EngineOption[C]

// Host exposes parameter sources and collection slots to an Engine.
type Host[C any] = filter.Host[C]

// Request is a ready-made Host.
type Request[C any] = filter.Request[C]

type (
	// Params is a source of request parameters.
	Params = filter.Params
	// Values is a map-backed Params.
	Values = filter.Values
	// URLParams adapts url.Values.
	URLParams = filter.URLParams
	// Strategy names the branch a filter took.
	Strategy = filter.Strategy
	// Observer receives per-filter and per-run events.
	Observer = filter.Observer
	// StepEvent describes one filter application.
	StepEvent = filter.StepEvent
	// RunEvent describes one host run.
	RunEvent = filter.RunEvent
	// ApplyOption selects the parameter source and slot of ApplyAll.
	ApplyOption = filter.ApplyOption
)

// Strategies.
const (
	StrategySkip  = filter.StrategySkip
	StrategyScope = filter.StrategyScope
	StrategyQuery = filter.StrategyQuery
	StrategyWhere = filter.StrategyWhere
)

// Errors returned by the engine and registry.
var (
	ErrEmptyName           = filter.ErrEmptyName
	ErrUnknownScope        = filter.ErrUnknownScope
	ErrSlotNotInitialized  = filter.ErrSlotNotInitialized
	ErrParamSourceNotFound = filter.ErrParamSourceNotFound
	ErrUnknownHost         = dataset.ErrUnknownHost
)

// NewRegistry returns an empty registry.
func NewRegistry[C Collection[C]]() *Registry[C] { return filter.NewRegistry[C]() }

// NewEngine returns an engine over registry.
func NewEngine[C Collection[C]](registry *Registry[C], opts ...EngineOption[C]) *Engine[C] {
	return filter.NewEngine(registry, opts...)
}

// NewRequest returns a Request for host with params as the default source.
func NewRequest[C any](host string, params Params) *Request[C] {
	return filter.NewRequest[C](host, params)
}

// WithScope narrows through the named scope of the registry.
func WithScope[C Collection[C]](name string) SpecOption[C] { return filter.WithScope[C](name) }

// WithQuery narrows through fn.
func WithQuery[C Collection[C]](fn QueryFunc[C]) SpecOption[C] { return filter.WithQuery(fn) }

// WithEngineLogger logs engine events to logger.
func WithEngineLogger[C Collection[C]](logger *slog.Logger) EngineOption[C] {
	return filter.WithLogger[C](logger)
}

// WithEngineObserver reports engine events to o.
func WithEngineObserver[C Collection[C]](o Observer) EngineOption[C] {
	return filter.WithObserver[C](o)
}

// From selects the parameter source read by ApplyAll.
func From(source string) ApplyOption { return filter.From(source) }

// On selects the collection slot read and written by ApplyAll.
func On(slot string) ApplyOption { return filter.On(slot) }

// IsBlank reports whether a parameter value is ignored.
func IsBlank(v any) bool { return filter.IsBlank(v) }

// HostName derives a host name from a value's type.
func HostName(v any) string { return filter.HostName(v) }

// Option configures Apply.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observers []Observer
	format    string
	omitNull  bool
}

// WithLogger sets the logger used while applying filters.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithObserver adds an engine observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithFormat sets the output format: yaml (default), json or ndjson.
func WithFormat(f string) Option { return func(o *options) { o.format = f } }

// WithOmitNull drops null fields from the rendered output.
func WithOmitNull() Option { return func(o *options) { o.omitNull = true } }

// Result holds the outcome of Apply.
type Result struct {
	// Host is the host whose filters ran.
	Host string

	// Total is the number of input records.
	Total int

	// Records are the records left after every filter.
	Records []map[string]any

	// Output is Records rendered in the requested format.
	Output []byte
}

// Apply parses a declaration file and a JSON or YAML list of records, then
// runs the filters of host with params.
func Apply(ctx context.Context, declarations, data []byte, host string, params Params, opts ...Option) (*Result, error) {
	if host == "" {
		return nil, errors.New("host must not be empty")
	}

	o := &options{logger: logging.Discard(), format: "yaml"}
	for _, fn := range opts {
		fn(o)
	}

	enc, err := output.DefaultRegistry().Encoder(o.format)
	if err != nil {
		return nil, err
	}

	decls, err := config.ParseDeclarations(declarations)
	if err != nil {
		return nil, err
	}

	reg, err := declare.Records(decls)
	if err != nil {
		return nil, err
	}

	set, err := records.Decode(data)
	if err != nil {
		return nil, err
	}

	engineOpts := []EngineOption[records.Set]{filter.WithLogger[records.Set](o.logger)}
	for _, obs := range o.observers {
		engineOpts = append(engineOpts, filter.WithObserver[records.Set](obs))
	}

	if params == nil {
		params = Values{}
	}

	res, err := dataset.NewRecords(filter.NewEngine(reg, engineOpts...), set).Apply(ctx, host, params)
	if err != nil {
		return nil, fmt.Errorf("applying filters: %w", err)
	}

	rows := res.Records.Maps()

	out, err := enc(rows, output.SerializeOptions{OmitNull: o.omitNull, Indent: 2})
	if err != nil {
		return nil, fmt.Errorf("rendering output: %w", err)
	}

	return &Result{Host: host, Total: res.Total, Records: rows, Output: out}, nil
}
