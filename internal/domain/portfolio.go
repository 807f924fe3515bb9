package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio represents a virtual trading portfolio funded with paper capital.
// Corresponds to paper_portfolios table in PostgreSQL.
type Portfolio struct {
	ID                  int64
	WalletAddress       string          // owning wallet (base58)
	InitialBalanceBase  decimal.Decimal // base currency (SOL) at creation
	InitialBalanceToken decimal.Decimal // traded token at creation
	CurrentBalanceBase  decimal.Decimal
	CurrentBalanceToken decimal.Decimal
	TotalPnl            decimal.Decimal // cumulative realized P&L (USD)
	TotalFees           decimal.Decimal // cumulative fees (base units)
	TradesCount         int             // EXECUTED trades referencing this portfolio
	WinningTradesCount  int             // EXECUTED trades with positive P&L
	Metadata            map[string]any  // free-form, stored as JSONB
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PortfolioStats holds aggregate trade statistics for one portfolio.
// Computed by aggregation over persisted trades, never stored.
type PortfolioStats struct {
	TotalTrades   int
	WinningTrades int // trades with realized P&L > 0
	TotalPnl      decimal.Decimal
	AveragePnl    decimal.Decimal
}
