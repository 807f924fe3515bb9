package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/observability"
	"solana-paper-trading/internal/storage"
)

func executeTestTrade(t *testing.T, ctx context.Context, ledger *Ledger, portfolioID int64, amountIn, pnl decimal.Decimal) *domain.Trade {
	t.Helper()

	trade, err := ledger.ExecuteTrade(ctx, &domain.Trade{
		PortfolioID:  portfolioID,
		Direction:    domain.DirectionBuy,
		TokenIn:      "SOL",
		TokenOut:     "BABA",
		AmountIn:     amountIn,
		AmountOut:    amountIn.Div(dec("2")),
		PriceAtTrade: dec("2"),
		Pnl:          pnl,
	})
	require.NoError(t, err)
	return trade
}

func TestTradeStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	_, err := store.GetByID(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetByID_RecordsQueryMetrics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	errCounter := observability.DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "trade_get_by_id")
	before := testutil.ToFloat64(errCounter)

	_, err := NewTradeStore(pool).GetByID(context.Background(), 424242)
	require.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, before+1, testutil.ToFloat64(errCounter),
		"failed lookup must increment the query error counter")
	assert.Greater(t, testutil.CollectAndCount(observability.DefaultMetrics.DBQueryDuration), 0,
		"query duration must be observed")
}

func TestTradeStore_ListByPortfolio_Pagination(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-list-1", dec("100"), dec("0"))
	other := createTestPortfolio(t, ctx, pool, "wallet-list-2", dec("100"), dec("0"))

	ledger := NewLedger(pool)
	var ids []int64
	for i := 0; i < 5; i++ {
		trade := executeTestTrade(t, ctx, ledger, id, dec("1"), dec("0"))
		ids = append(ids, trade.ID)
	}
	executeTestTrade(t, ctx, ledger, other, dec("1"), dec("0"))

	store := NewTradeStore(pool)

	page1, err := store.ListByPortfolio(ctx, id, 3, 0)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	assert.Equal(t, ids[4], page1[0].ID, "newest trade first")
	assert.Equal(t, ids[3], page1[1].ID)
	assert.Equal(t, ids[2], page1[2].ID)

	page2, err := store.ListByPortfolio(ctx, id, 3, 3)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[1], page2[0].ID)
	assert.Equal(t, ids[0], page2[1].ID)

	for _, tr := range append(page1, page2...) {
		assert.Equal(t, id, tr.PortfolioID)
	}
}

func TestTradeStore_CountSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-count-1", dec("100"), dec("0"))

	ledger := NewLedger(pool)
	executeTestTrade(t, ctx, ledger, id, dec("1"), dec("0"))
	executeTestTrade(t, ctx, ledger, id, dec("1"), dec("0"))

	// FAILED trades never count toward the daily limit.
	_, err := ledger.RecordFailedTrade(ctx, &domain.Trade{
		PortfolioID: id,
		Direction:   domain.DirectionBuy,
		AmountIn:    dec("1"),
	})
	require.NoError(t, err)

	store := NewTradeStore(pool)

	count, err := store.CountSince(ctx, id, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountSince(ctx, id, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTradeStore_Stats(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-stats-1", dec("100"), dec("0"))

	ledger := NewLedger(pool)
	executeTestTrade(t, ctx, ledger, id, dec("1"), dec("2"))
	executeTestTrade(t, ctx, ledger, id, dec("1"), dec("-1"))
	executeTestTrade(t, ctx, ledger, id, dec("1"), dec("3"))

	stats, err := NewTradeStore(pool).Stats(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.True(t, stats.TotalPnl.Equal(dec("4")), "total pnl: %s", stats.TotalPnl)
	assert.True(t, stats.AveragePnl.Sub(dec("4").Div(dec("3"))).Abs().LessThan(dec("0.0000001")),
		"average pnl: %s", stats.AveragePnl)
}

func TestTradeStore_Stats_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-stats-empty", dec("1"), dec("0"))

	stats, err := NewTradeStore(pool).Stats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.True(t, stats.TotalPnl.IsZero())
	assert.True(t, stats.AveragePnl.IsZero())
}

func TestPortfolioStore_GetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first := createTestPortfolio(t, ctx, pool, "wallet-multi", dec("1"), dec("0"))
	second := createTestPortfolio(t, ctx, pool, "wallet-multi", dec("2"), dec("0"))
	createTestPortfolio(t, ctx, pool, "wallet-other", dec("3"), dec("0"))

	store := NewPortfolioStore(pool)
	portfolios, err := store.GetByWallet(ctx, "wallet-multi")
	require.NoError(t, err)

	require.Len(t, portfolios, 2)
	assert.Equal(t, first, portfolios[0].ID, "oldest portfolio first")
	assert.Equal(t, second, portfolios[1].ID)

	empty, err := store.GetByWallet(ctx, "wallet-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPoolStateStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStateStore(pool)

	id, err := store.Insert(ctx, &domain.PoolState{
		PoolAddress:  "pool-roundtrip",
		LpSupply:     dec("1000000"),
		BaseReserve:  dec("500.5"),
		TokenReserve: dec("250000.25"),
		BasePrice:    dec("150"),
		TokenPrice:   dec("0.3003"),
		Metadata:     map[string]any{"bin_step": float64(25)},
	})
	require.NoError(t, err)

	ps, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pool-roundtrip", ps.PoolAddress)
	assert.True(t, ps.BaseReserve.Equal(dec("500.5")), "base reserve: %s", ps.BaseReserve)
	assert.True(t, ps.TokenPrice.Equal(dec("0.3003")), "token price: %s", ps.TokenPrice)
	assert.Equal(t, float64(25), ps.Metadata["bin_step"])
	assert.False(t, ps.CreatedAt.IsZero())

	_, err = store.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
