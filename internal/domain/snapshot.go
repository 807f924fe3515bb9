package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolState represents AMM pool reserves captured at quote time.
// Append-only; corresponds to pool_states table in PostgreSQL.
type PoolState struct {
	ID           int64
	PoolAddress  string
	LpSupply     decimal.Decimal
	BaseReserve  decimal.Decimal // base currency (SOL) vault balance
	TokenReserve decimal.Decimal // traded token vault balance
	BasePrice    decimal.Decimal // base price in USD at capture
	TokenPrice   decimal.Decimal // token price in base units at capture
	Metadata     map[string]any
	CreatedAt    time.Time
}

// PortfolioSnapshot represents a point-in-time record of portfolio balances
// and reference prices, used for performance reporting. Append-only;
// corresponds to portfolio_snapshots table in PostgreSQL.
type PortfolioSnapshot struct {
	ID            int64
	PortfolioID   int64
	BalanceBase   decimal.Decimal
	BalanceToken  decimal.Decimal
	BasePriceUSD  decimal.Decimal
	TokenPriceUSD decimal.Decimal
	CreatedAt     time.Time
}
