package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

// PoolStateStore implements storage.PoolStateStore using PostgreSQL.
type PoolStateStore struct {
	pool *Pool
}

// NewPoolStateStore creates a new PoolStateStore.
func NewPoolStateStore(pool *Pool) *PoolStateStore {
	return &PoolStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStateStore = (*PoolStateStore)(nil)

// Insert adds a new pool state snapshot and returns its assigned ID.
func (s *PoolStateStore) Insert(ctx context.Context, ps *domain.PoolState) (_ int64, err error) {
	defer observeQuery("pool_state_insert", time.Now(), &err)

	if ps == nil || ps.PoolAddress == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_states (
			pool_address, lp_supply, base_reserve, token_reserve,
			base_price, token_price, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query,
		ps.PoolAddress,
		ps.LpSupply.String(), ps.BaseReserve.String(), ps.TokenReserve.String(),
		ps.BasePrice.String(), ps.TokenPrice.String(),
		metadataParam(ps.Metadata),
	).Scan(&ps.ID, &ps.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert pool state: %w", err)
	}

	return ps.ID, nil
}

// GetByID retrieves a pool state by its ID. Returns ErrNotFound if not exists.
func (s *PoolStateStore) GetByID(ctx context.Context, poolStateID int64) (_ *domain.PoolState, err error) {
	defer observeQuery("pool_state_get_by_id", time.Now(), &err)

	query := `
		SELECT
			id, pool_address, lp_supply::text, base_reserve::text, token_reserve::text,
			base_price::text, token_price::text, metadata, created_at
		FROM pool_states
		WHERE id = $1
	`

	var ps domain.PoolState
	var lpSupply, baseReserve, tokenReserve, basePrice, tokenPrice string

	err = s.pool.QueryRow(ctx, query, poolStateID).Scan(
		&ps.ID, &ps.PoolAddress, &lpSupply, &baseReserve, &tokenReserve,
		&basePrice, &tokenPrice, &ps.Metadata, &ps.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool state by id: %w", err)
	}

	if ps.LpSupply, err = parseDecimal(lpSupply); err != nil {
		return nil, err
	}
	if ps.BaseReserve, err = parseDecimal(baseReserve); err != nil {
		return nil, err
	}
	if ps.TokenReserve, err = parseDecimal(tokenReserve); err != nil {
		return nil, err
	}
	if ps.BasePrice, err = parseDecimal(basePrice); err != nil {
		return nil, err
	}
	if ps.TokenPrice, err = parseDecimal(tokenPrice); err != nil {
		return nil, err
	}

	return &ps, nil
}
