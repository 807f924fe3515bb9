package pool

import "errors"

var (
	// ErrNotInitialized is returned when the engine is used before a
	// successful Initialize.
	ErrNotInitialized = errors.New("pool not initialized")

	// ErrInvalidAmount is returned when a quote is requested for a
	// non-positive amount.
	ErrInvalidAmount = errors.New("invalid input amount, must be positive")

	// ErrEmptyReserves is returned when the pool has no liquidity to
	// quote against.
	ErrEmptyReserves = errors.New("pool reserves are empty")
)
