package filter

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StepEvent describes a single spec application within a run.
type StepEvent struct {
	Host     string
	Filter   string
	Strategy Strategy
	Err      error
}

// RunEvent describes a completed fold over all specs of a host.
type RunEvent struct {
	Host     string
	Steps    int
	Duration time.Duration
	Err      error
}

// Observer receives engine events. Implementations must be safe for
// concurrent use when the engine is shared between goroutines.
type Observer interface {
	ObserveStep(StepEvent)
	ObserveRun(RunEvent)
}

// Engine folds the declared filters of a host over a collection.
type Engine[C Collection[C]] struct {
	registry  *Registry[C]
	logger    *slog.Logger
	observers []Observer
}

// EngineOption configures an Engine.
type EngineOption[C Collection[C]] func(*Engine[C])

// WithLogger sets the engine logger. The default is slog.Default().
func WithLogger[C Collection[C]](logger *slog.Logger) EngineOption[C] {
	return func(e *Engine[C]) {
		e.logger = logger
	}
}

// WithObserver adds an observer notified of every step and run.
func WithObserver[C Collection[C]](o Observer) EngineOption[C] {
	return func(e *Engine[C]) {
		e.observers = append(e.observers, o)
	}
}

// NewEngine creates an engine that reads filter declarations from registry.
func NewEngine[C Collection[C]](registry *Registry[C], opts ...EngineOption[C]) *Engine[C] {
	e := &Engine[C]{
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Registry returns the registry the engine reads from.
func (e *Engine[C]) Registry() *Registry[C] {
	return e.registry
}

// Apply runs every spec declared for host over collection, in declaration
// order, feeding each result into the next spec. The first error aborts the
// run and is returned unchanged.
func (e *Engine[C]) Apply(ctx context.Context, host string, collection C, params Params) (C, error) {
	start := time.Now()
	specs := e.registry.List(host)
	current := collection

	for _, s := range specs {
		next, strategy, err := s.apply(ctx, current, params)
		e.step(StepEvent{Host: host, Filter: s.Name(), Strategy: strategy, Err: err})

		if err != nil {
			e.run(RunEvent{Host: host, Steps: len(specs), Duration: time.Since(start), Err: err})

			var zero C

			return zero, err
		}

		current = next
	}

	e.run(RunEvent{Host: host, Steps: len(specs), Duration: time.Since(start)})

	return current, nil
}

// ApplyOption configures a single ApplyAll call.
type ApplyOption func(*applyOptions)

type applyOptions struct {
	from string
	on   string
}

// From names the parameter source to read. Defaults to [DefaultParamSource].
func From(source string) ApplyOption {
	return func(o *applyOptions) {
		o.from = source
	}
}

// On names the collection slot to narrow. Defaults to the host's FilterHost.
func On(slot string) ApplyOption {
	return func(o *applyOptions) {
		o.on = slot
	}
}

// ApplyAll narrows the collection stored in one of host's slots. The slot
// is read once before filtering and written once after all filters have
// run; if a filter fails the slot is left as it was and the error is
// returned.
func (e *Engine[C]) ApplyAll(ctx context.Context, host Host[C], opts ...ApplyOption) error {
	o := applyOptions{from: DefaultParamSource}
	for _, opt := range opts {
		opt(&o)
	}

	key := host.FilterHost()

	slot := o.on
	if slot == "" {
		slot = key
	}

	params, ok := host.ParamSource(o.from)
	if !ok {
		return fmt.Errorf("host %q: %w: %q", key, ErrParamSourceNotFound, o.from)
	}

	collection, ok := host.LoadSlot(slot)
	if !ok {
		return fmt.Errorf("host %q: %w: %q", key, ErrSlotNotInitialized, slot)
	}

	result, err := e.Apply(ctx, key, collection, params)
	if err != nil {
		return err
	}

	host.StoreSlot(slot, result)

	return nil
}

func (e *Engine[C]) step(ev StepEvent) {
	if ev.Err != nil {
		e.logger.Debug("filter failed",
			slog.String("host", ev.Host),
			slog.String("filter", ev.Filter),
			slog.String("strategy", string(ev.Strategy)),
			slog.String("error", ev.Err.Error()),
		)
	} else {
		e.logger.Debug("filter applied",
			slog.String("host", ev.Host),
			slog.String("filter", ev.Filter),
			slog.String("strategy", string(ev.Strategy)),
		)
	}

	for _, o := range e.observers {
		o.ObserveStep(ev)
	}
}

func (e *Engine[C]) run(ev RunEvent) {
	e.logger.Debug("filters applied",
		slog.String("host", ev.Host),
		slog.Int("steps", ev.Steps),
		slog.Duration("duration", ev.Duration),
	)

	for _, o := range e.observers {
		o.ObserveRun(ev)
	}
}
