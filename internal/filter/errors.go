package filter

import "errors"

var (
	// ErrOutOfRange is returned for an index outside [0, Registry.Count()).
	ErrOutOfRange = errors.New("filter index out of range")

	// ErrEngineUnavailable is returned when the engine cannot produce output
	// for a key. It is not retryable: the same key and input fail the same way.
	ErrEngineUnavailable = errors.New("filter engine unavailable")
)
