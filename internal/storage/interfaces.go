package storage

import (
	"context"
	"time"

	"solana-paper-trading/internal/domain"
)

// PortfolioStore provides read access to paper_portfolios storage.
// Portfolio mutation happens only through the Ledger.
type PortfolioStore interface {
	// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, portfolioID int64) (*domain.Portfolio, error)

	// GetByWallet retrieves all portfolios owned by a wallet address,
	// ordered by creation time ASC.
	GetByWallet(ctx context.Context, walletAddress string) ([]*domain.Portfolio, error)
}

// TradeStore provides read access to paper_trades storage.
type TradeStore interface {
	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID int64) (*domain.Trade, error)

	// ListByPortfolio retrieves trades for a portfolio ordered newest-first,
	// with limit/offset pagination.
	ListByPortfolio(ctx context.Context, portfolioID int64, limit, offset int) ([]*domain.Trade, error)

	// CountSince counts EXECUTED trades for a portfolio created at or after the cutoff.
	CountSince(ctx context.Context, portfolioID int64, since time.Time) (int, error)

	// Stats computes aggregate statistics over all trades of a portfolio.
	Stats(ctx context.Context, portfolioID int64) (*domain.PortfolioStats, error)
}

// PoolStateStore provides access to pool_states storage. Append-only.
type PoolStateStore interface {
	// Insert adds a new pool state snapshot and returns its assigned ID.
	Insert(ctx context.Context, ps *domain.PoolState) (int64, error)

	// GetByID retrieves a pool state by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolStateID int64) (*domain.PoolState, error)
}

// PortfolioSnapshotStore provides access to portfolio_snapshots storage. Append-only.
type PortfolioSnapshotStore interface {
	// Insert adds a new snapshot and returns its assigned ID.
	Insert(ctx context.Context, s *domain.PortfolioSnapshot) (int64, error)

	// ListByPortfolio retrieves snapshots for a portfolio ordered by creation time ASC.
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]*domain.PortfolioSnapshot, error)
}

// Ledger performs the multi-row atomic operations of the trading core.
// Implementations must serialize ExecuteTrade per portfolio: either a
// transaction holding a row-level lock on the portfolio (postgres) or a
// per-portfolio mutex (memory).
type Ledger interface {
	// CreatePortfolio inserts the portfolio row together with its initial
	// snapshot in one atomic operation and returns the portfolio ID.
	CreatePortfolio(ctx context.Context, p *domain.Portfolio, snap *domain.PortfolioSnapshot) (int64, error)

	// ExecuteTrade atomically inserts the trade with status EXECUTED and
	// applies the balance deltas to the portfolio: BUY subtracts AmountIn
	// from the base balance and adds AmountOut to the token balance, SELL
	// is the mirror. Increments trades_count (and winning_trades_count when
	// Pnl > 0) and accumulates fees. Returns ErrInsufficientBalance, with
	// no write performed, when the spent balance would go negative.
	// On any failure every write is rolled back.
	ExecuteTrade(ctx context.Context, t *domain.Trade) (*domain.Trade, error)

	// RecordFailedTrade inserts a trade row with status FAILED. Never
	// touches portfolio balances or counters.
	RecordFailedTrade(ctx context.Context, t *domain.Trade) (*domain.Trade, error)
}

// QuoteArchive records resolved price quotes for audit. Best-effort:
// callers log and swallow its errors.
type QuoteArchive interface {
	// Insert archives a resolved quote for a token.
	Insert(ctx context.Context, token string, q *domain.PriceQuote) error
}
