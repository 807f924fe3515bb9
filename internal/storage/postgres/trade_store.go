package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// tradeColumns is the SELECT list shared by trade queries.
const tradeColumns = `
	id, portfolio_id, direction, token_in, token_out,
	amount_in::text, amount_out::text, price_at_trade::text,
	price_impact_pct::text, slippage_bps, fee_base::text,
	virtual_signature, COALESCE(pool_state_id, 0), status,
	executed_at, created_at, pnl_usd::text, metadata
`

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID int64) (_ *domain.Trade, err error) {
	defer observeQuery("trade_get_by_id", time.Now(), &err)

	query := `SELECT ` + tradeColumns + ` FROM paper_trades WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// ListByPortfolio retrieves trades for a portfolio ordered newest-first.
func (s *TradeStore) ListByPortfolio(ctx context.Context, portfolioID int64, limit, offset int) (_ []*domain.Trade, err error) {
	defer observeQuery("trade_list_by_portfolio", time.Now(), &err)

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + tradeColumns + `
		FROM paper_trades
		WHERE portfolio_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, portfolioID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list trades by portfolio: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// CountSince counts EXECUTED trades created at or after the cutoff.
func (s *TradeStore) CountSince(ctx context.Context, portfolioID int64, since time.Time) (_ int, err error) {
	defer observeQuery("trade_count_since", time.Now(), &err)

	query := `
		SELECT COUNT(*)
		FROM paper_trades
		WHERE portfolio_id = $1 AND status = 'EXECUTED' AND created_at >= $2
	`

	var count int
	if err = s.pool.QueryRow(ctx, query, portfolioID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trades since: %w", err)
	}
	return count, nil
}

// Stats computes aggregate statistics over all trades of a portfolio.
// Winning means realized P&L > 0.
func (s *TradeStore) Stats(ctx context.Context, portfolioID int64) (_ *domain.PortfolioStats, err error) {
	defer observeQuery("trade_stats", time.Now(), &err)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl_usd > 0),
			COALESCE(SUM(pnl_usd), 0)::text,
			COALESCE(AVG(pnl_usd), 0)::text
		FROM paper_trades
		WHERE portfolio_id = $1
	`

	var stats domain.PortfolioStats
	var totalPnl, avgPnl string

	err = s.pool.QueryRow(ctx, query, portfolioID).Scan(
		&stats.TotalTrades, &stats.WinningTrades, &totalPnl, &avgPnl,
	)
	if err != nil {
		return nil, fmt.Errorf("portfolio stats: %w", err)
	}

	if stats.TotalPnl, err = parseDecimal(totalPnl); err != nil {
		return nil, err
	}
	if stats.AveragePnl, err = parseDecimal(avgPnl); err != nil {
		return nil, err
	}

	return &stats, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var amountIn, amountOut, price, impact, fee, pnl string

	err := row.Scan(
		&t.ID, &t.PortfolioID, &t.Direction, &t.TokenIn, &t.TokenOut,
		&amountIn, &amountOut, &price,
		&impact, &t.SlippageBps, &fee,
		&t.VirtualSignature, &t.PoolStateID, &t.Status,
		&t.ExecutedAt, &t.CreatedAt, &pnl, &t.Metadata,
	)
	if err != nil {
		return nil, err
	}

	if t.AmountIn, err = parseDecimal(amountIn); err != nil {
		return nil, err
	}
	if t.AmountOut, err = parseDecimal(amountOut); err != nil {
		return nil, err
	}
	if t.PriceAtTrade, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if t.PriceImpactPct, err = parseDecimal(impact); err != nil {
		return nil, err
	}
	if t.Fee, err = parseDecimal(fee); err != nil {
		return nil, err
	}
	if t.Pnl, err = parseDecimal(pnl); err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
