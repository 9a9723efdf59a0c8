package engine

import "errors"

var (
	// ErrInvalidRequest is returned when the request fails validation.
	// Nothing is persisted on this path.
	ErrInvalidRequest = errors.New("invalid signal request")

	// ErrUpstreamData is returned when the supplied market data cannot
	// support an evaluation (missing target strike, zero premium).
	// Nothing is persisted on this path.
	ErrUpstreamData = errors.New("unusable market data")

	// ErrPersistence is returned when the signal ledger write fails. The
	// evaluation itself completed; the caller must not treat the decision
	// as recorded.
	ErrPersistence = errors.New("signal persistence failed")
)
