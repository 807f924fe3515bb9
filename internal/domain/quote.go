package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a resolved price for the traded token. Ephemeral, not persisted
// by the core (the oracle may archive copies for audit).
type PriceQuote struct {
	Price      decimal.Decimal
	Timestamp  time.Time
	Confidence float64 // [0,1], 0 when the source does not report one
	Source     string  // source identifier, e.g. "birdeye"
}

// SwapQuote is the result of quoting a swap against the pool. Ephemeral.
type SwapQuote struct {
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal // estimated output per the pool curve
	Fee         decimal.Decimal // base-currency units
	PriceImpact float64         // fraction in [0,1] at this layer
}
