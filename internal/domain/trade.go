package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the side of a trade relative to the base currency.
type Direction string

const (
	DirectionBuy  Direction = "BUY"  // spend base, receive token
	DirectionSell Direction = "SELL" // spend token, receive base
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// TradeStatus represents the lifecycle state of a trade attempt.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusExecuted  TradeStatus = "EXECUTED"
	TradeStatusFailed    TradeStatus = "FAILED"
	TradeStatusCancelled TradeStatus = "CANCELLED" // reserved, never produced by the executor
)

// Trade represents a single paper trade. Immutable once EXECUTED.
// Corresponds to paper_trades table in PostgreSQL.
type Trade struct {
	ID               int64
	PortfolioID      int64
	Direction        Direction
	TokenIn          string          // symbol of the asset spent
	TokenOut         string          // symbol of the asset received
	AmountIn         decimal.Decimal
	AmountOut        decimal.Decimal
	PriceAtTrade     decimal.Decimal // resolved oracle price at execution
	PriceImpactPct   decimal.Decimal // percentage points (fraction * 100)
	SlippageBps      int             // slippage tolerance in basis points
	Fee              decimal.Decimal // base-currency units
	VirtualSignature string          // deterministic pseudo-signature for audit
	PoolStateID      int64           // pool snapshot captured at quote time
	Status           TradeStatus
	ExecutedAt       *time.Time // nil unless EXECUTED
	CreatedAt        time.Time
	Pnl              decimal.Decimal // realized P&L (USD)
	Metadata         map[string]any
}
