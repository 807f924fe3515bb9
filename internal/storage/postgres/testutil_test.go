package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// dec parses a decimal literal, failing the build on typos rather than at runtime.
func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// createTestPortfolio inserts a portfolio with its initial snapshot through the ledger.
func createTestPortfolio(t *testing.T, ctx context.Context, pool *Pool, wallet string, base, token decimal.Decimal) int64 {
	t.Helper()

	ledger := NewLedger(pool)
	id, err := ledger.CreatePortfolio(ctx, &domain.Portfolio{
		WalletAddress:       wallet,
		InitialBalanceBase:  base,
		InitialBalanceToken: token,
	}, &domain.PortfolioSnapshot{
		BalanceBase:  base,
		BalanceToken: token,
	})
	require.NoError(t, err, "failed to create test portfolio")
	return id
}

// createTestPoolState inserts a pool state snapshot and returns its ID.
func createTestPoolState(t *testing.T, ctx context.Context, pool *Pool, address string) int64 {
	t.Helper()

	store := NewPoolStateStore(pool)
	id, err := store.Insert(ctx, &domain.PoolState{
		PoolAddress:  address,
		LpSupply:     dec("1000000"),
		BaseReserve:  dec("500"),
		TokenReserve: dec("250000"),
		BasePrice:    dec("150"),
		TokenPrice:   dec("0.3"),
	})
	require.NoError(t, err, "failed to create test pool state")
	return id
}
