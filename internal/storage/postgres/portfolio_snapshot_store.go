package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// PortfolioSnapshotStore implements storage.PortfolioSnapshotStore using PostgreSQL.
type PortfolioSnapshotStore struct {
	pool *Pool
}

// NewPortfolioSnapshotStore creates a new PortfolioSnapshotStore.
func NewPortfolioSnapshotStore(pool *Pool) *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)

// Insert adds a new snapshot and returns its assigned ID.
func (s *PortfolioSnapshotStore) Insert(ctx context.Context, snap *domain.PortfolioSnapshot) (_ int64, err error) {
	defer observeQuery("snapshot_insert", time.Now(), &err)

	if snap == nil || snap.PortfolioID == 0 {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO portfolio_snapshots (
			portfolio_id, balance_base, balance_token,
			base_price_usd, token_price_usd
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query,
		snap.PortfolioID,
		snap.BalanceBase.String(), snap.BalanceToken.String(),
		snap.BasePriceUSD.String(), snap.TokenPriceUSD.String(),
	).Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert portfolio snapshot: %w", err)
	}

	return snap.ID, nil
}

// ListByPortfolio retrieves snapshots for a portfolio ordered by creation time ASC.
func (s *PortfolioSnapshotStore) ListByPortfolio(ctx context.Context, portfolioID int64) (_ []*domain.PortfolioSnapshot, err error) {
	defer observeQuery("snapshot_list_by_portfolio", time.Now(), &err)

	query := `
		SELECT
			id, portfolio_id, balance_base::text, balance_token::text,
			base_price_usd::text, token_price_usd::text, created_at
		FROM portfolio_snapshots
		WHERE portfolio_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list portfolio snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.PortfolioSnapshot
	for rows.Next() {
		snap, err := scanPortfolioSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio snapshot rows: %w", err)
	}

	return snapshots, nil
}

// scanPortfolioSnapshot scans a single row into a PortfolioSnapshot.
func scanPortfolioSnapshot(row pgx.Row) (*domain.PortfolioSnapshot, error) {
	var snap domain.PortfolioSnapshot
	var balBase, balToken, basePrice, tokenPrice string

	err := row.Scan(
		&snap.ID, &snap.PortfolioID, &balBase, &balToken,
		&basePrice, &tokenPrice, &snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if snap.BalanceBase, err = parseDecimal(balBase); err != nil {
		return nil, err
	}
	if snap.BalanceToken, err = parseDecimal(balToken); err != nil {
		return nil, err
	}
	if snap.BasePriceUSD, err = parseDecimal(basePrice); err != nil {
		return nil, err
	}
	if snap.TokenPriceUSD, err = parseDecimal(tokenPrice); err != nil {
		return nil, err
	}

	return &snap, nil
}
