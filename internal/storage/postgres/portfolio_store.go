package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// portfolioColumns is the SELECT list shared by portfolio queries.
// NUMERIC fields are selected as text and parsed into decimals.
const portfolioColumns = `
	id, wallet_address,
	initial_balance_base::text, initial_balance_token::text,
	current_balance_base::text, current_balance_token::text,
	total_pnl_usd::text, total_fees_base::text,
	trades_count, winning_trades_count,
	metadata, created_at, updated_at
`

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(ctx context.Context, portfolioID int64) (_ *domain.Portfolio, err error) {
	defer observeQuery("portfolio_get_by_id", time.Now(), &err)

	query := `SELECT ` + portfolioColumns + ` FROM paper_portfolios WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, portfolioID)
	p, err := scanPortfolio(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get portfolio by id: %w", err)
	}
	return p, nil
}

// GetByWallet retrieves all portfolios owned by a wallet address.
func (s *PortfolioStore) GetByWallet(ctx context.Context, walletAddress string) (_ []*domain.Portfolio, err error) {
	defer observeQuery("portfolio_get_by_wallet", time.Now(), &err)

	query := `SELECT ` + portfolioColumns + `
		FROM paper_portfolios
		WHERE wallet_address = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get portfolios by wallet: %w", err)
	}
	defer rows.Close()

	var portfolios []*domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio row: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio rows: %w", err)
	}

	return portfolios, nil
}

// scanPortfolio scans a single row into a Portfolio.
func scanPortfolio(row pgx.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var initBase, initToken, curBase, curToken, totalPnl, fees string

	err := row.Scan(
		&p.ID, &p.WalletAddress,
		&initBase, &initToken,
		&curBase, &curToken,
		&totalPnl, &fees,
		&p.TradesCount, &p.WinningTradesCount,
		&p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.InitialBalanceBase, err = parseDecimal(initBase); err != nil {
		return nil, err
	}
	if p.InitialBalanceToken, err = parseDecimal(initToken); err != nil {
		return nil, err
	}
	if p.CurrentBalanceBase, err = parseDecimal(curBase); err != nil {
		return nil, err
	}
	if p.CurrentBalanceToken, err = parseDecimal(curToken); err != nil {
		return nil, err
	}
	if p.TotalPnl, err = parseDecimal(totalPnl); err != nil {
		return nil, err
	}
	if p.TotalFees, err = parseDecimal(fees); err != nil {
		return nil, err
	}

	return &p, nil
}
