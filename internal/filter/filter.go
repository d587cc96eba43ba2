package filter

import (
	"context"
)

// Collection is the contract a collection type must satisfy to be narrowed
// by the engine. Where returns the subset of the collection whose field
// equals value. The receiver is never observed after the call; only the
// returned value flows into the next filter.
type Collection[C any] interface {
	Where(field string, value any) (C, error)
}

// QueryFunc narrows a collection using a parameter value. It is the shape of
// both registered scopes and custom queries.
type QueryFunc[C any] func(ctx context.Context, collection C, value any) (C, error)

// Strategy identifies which branch a spec takes for a given parameter set.
type Strategy string

// Strategy values in dispatch priority order.
const (
	StrategySkip  Strategy = "skip"
	StrategyScope Strategy = "scope"
	StrategyQuery Strategy = "query"
	StrategyWhere Strategy = "where"
)
