package trading

import "errors"

var (
	// ErrInvalidAmount is returned when the trade amount is zero or negative.
	ErrInvalidAmount = errors.New("trade amount must be positive")

	// ErrInvalidDirection is returned when the direction is neither BUY nor SELL.
	ErrInvalidDirection = errors.New("invalid trade direction")

	// ErrPortfolioNotFound is returned when the referenced portfolio does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrPoolUnavailable is returned when the pool engine cannot be initialized.
	ErrPoolUnavailable = errors.New("pool unavailable")

	// ErrInvalidComputedAmount is returned when the computed output amount
	// is not a positive finite number.
	ErrInvalidComputedAmount = errors.New("invalid computed output amount")
)
