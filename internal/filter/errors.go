package filter

import "errors"

var (
	// ErrEmptyName is returned when a filter or scope is declared without a name.
	ErrEmptyName = errors.New("filter name must not be empty")

	// ErrUnknownScope is returned when a declaration references a scope that
	// was never registered.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrSlotNotInitialized is returned by [Engine.ApplyAll] when the host has
	// no value stored in the target collection slot.
	ErrSlotNotInitialized = errors.New("collection slot not initialized")

	// ErrParamSourceNotFound is returned by [Engine.ApplyAll] when the host
	// does not expose the requested parameter source.
	ErrParamSourceNotFound = errors.New("parameter source not found")
)
