package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// Ledger implements storage.Ledger using PostgreSQL transactions.
// ExecuteTrade serializes per portfolio with a row-level lock
// (SELECT ... FOR UPDATE) acquired before balance computation, so
// concurrent trades against the same portfolio cannot interleave their
// read-compute-write sequence.
type Ledger struct {
	pool *Pool
}

// NewLedger creates a new Ledger.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Compile-time interface check.
var _ storage.Ledger = (*Ledger)(nil)

const insertTradeQuery = `
	INSERT INTO paper_trades (
		portfolio_id, direction, token_in, token_out,
		amount_in, amount_out, price_at_trade, price_impact_pct,
		slippage_bps, fee_base, virtual_signature, pool_state_id,
		status, executed_at, pnl_usd, metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at
`

// CreatePortfolio inserts the portfolio row together with its initial
// snapshot in one atomic transaction.
func (l *Ledger) CreatePortfolio(ctx context.Context, p *domain.Portfolio, snap *domain.PortfolioSnapshot) (_ int64, err error) {
	defer observeQuery("ledger_create_portfolio", time.Now(), &err)

	if p == nil || p.WalletAddress == "" {
		return 0, storage.ErrInvalidInput
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO paper_portfolios (
			wallet_address,
			initial_balance_base, initial_balance_token,
			current_balance_base, current_balance_token,
			metadata
		) VALUES ($1, $2, $3, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		p.WalletAddress,
		p.InitialBalanceBase.String(), p.InitialBalanceToken.String(),
		metadataParam(p.Metadata),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert portfolio: %w", err)
	}

	p.CurrentBalanceBase = p.InitialBalanceBase
	p.CurrentBalanceToken = p.InitialBalanceToken

	if snap != nil {
		snap.PortfolioID = p.ID
		snapQuery := `
			INSERT INTO portfolio_snapshots (
				portfolio_id, balance_base, balance_token,
				base_price_usd, token_price_usd
			) VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		err = tx.QueryRow(ctx, snapQuery,
			snap.PortfolioID,
			snap.BalanceBase.String(), snap.BalanceToken.String(),
			snap.BasePriceUSD.String(), snap.TokenPriceUSD.String(),
		).Scan(&snap.ID, &snap.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert initial snapshot: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return p.ID, nil
}

// ExecuteTrade atomically inserts the EXECUTED trade and applies the balance
// deltas to the portfolio. Any failure rolls back every write.
func (l *Ledger) ExecuteTrade(ctx context.Context, t *domain.Trade) (_ *domain.Trade, err error) {
	defer observeQuery("ledger_execute_trade", time.Now(), &err)

	if t == nil || t.PortfolioID == 0 || !t.Direction.IsValid() {
		return nil, storage.ErrInvalidInput
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the portfolio row before reading balances.
	var curBase, curToken string
	err = tx.QueryRow(ctx, `
		SELECT current_balance_base::text, current_balance_token::text
		FROM paper_portfolios
		WHERE id = $1
		FOR UPDATE
	`, t.PortfolioID).Scan(&curBase, &curToken)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock portfolio: %w", err)
	}

	base, err := parseDecimal(curBase)
	if err != nil {
		return nil, err
	}
	token, err := parseDecimal(curToken)
	if err != nil {
		return nil, err
	}

	var newBase, newToken = base, token
	switch t.Direction {
	case domain.DirectionBuy:
		newBase = base.Sub(t.AmountIn)
		newToken = token.Add(t.AmountOut)
	case domain.DirectionSell:
		newToken = token.Sub(t.AmountIn)
		newBase = base.Add(t.AmountOut)
	}

	if newBase.IsNegative() || newToken.IsNegative() {
		return nil, storage.ErrInsufficientBalance
	}

	executedAt := time.Now().UTC()
	stored := *t
	stored.Status = domain.TradeStatusExecuted
	stored.ExecutedAt = &executedAt

	err = tx.QueryRow(ctx, insertTradeQuery,
		t.PortfolioID, t.Direction, t.TokenIn, t.TokenOut,
		t.AmountIn.String(), t.AmountOut.String(), t.PriceAtTrade.String(), t.PriceImpactPct.String(),
		t.SlippageBps, t.Fee.String(), t.VirtualSignature, poolStateParam(t.PoolStateID),
		domain.TradeStatusExecuted, executedAt, t.Pnl.String(), metadataParam(t.Metadata),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}

	winning := 0
	if t.Pnl.IsPositive() {
		winning = 1
	}

	var updatedBase, updatedToken string
	err = tx.QueryRow(ctx, `
		UPDATE paper_portfolios
		SET current_balance_base = $2,
		    current_balance_token = $3,
		    total_pnl_usd = total_pnl_usd + $4,
		    total_fees_base = total_fees_base + $5,
		    trades_count = trades_count + 1,
		    winning_trades_count = winning_trades_count + $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING current_balance_base::text, current_balance_token::text
	`, t.PortfolioID, newBase.String(), newToken.String(),
		t.Pnl.String(), t.Fee.String(), winning,
	).Scan(&updatedBase, &updatedToken)
	if err != nil {
		return nil, fmt.Errorf("update portfolio balances: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &stored, nil
}

// RecordFailedTrade inserts a trade row with status FAILED and no balance mutation.
func (l *Ledger) RecordFailedTrade(ctx context.Context, t *domain.Trade) (_ *domain.Trade, err error) {
	defer observeQuery("ledger_record_failed_trade", time.Now(), &err)

	if t == nil || t.PortfolioID == 0 {
		return nil, storage.ErrInvalidInput
	}

	stored := *t
	stored.Status = domain.TradeStatusFailed
	stored.ExecutedAt = nil

	err = l.pool.QueryRow(ctx, insertTradeQuery,
		t.PortfolioID, t.Direction, t.TokenIn, t.TokenOut,
		t.AmountIn.String(), t.AmountOut.String(), t.PriceAtTrade.String(), t.PriceImpactPct.String(),
		t.SlippageBps, t.Fee.String(), t.VirtualSignature, poolStateParam(t.PoolStateID),
		domain.TradeStatusFailed, nil, t.Pnl.String(), metadataParam(t.Metadata),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert failed trade: %w", err)
	}

	return &stored, nil
}
