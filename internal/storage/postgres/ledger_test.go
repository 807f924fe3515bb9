package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/storage"
)

func TestLedger_CreatePortfolio(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-create-1", dec("1"), dec("1000"))

	store := NewPortfolioStore(pool)
	p, err := store.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "wallet-create-1", p.WalletAddress)
	assert.True(t, p.InitialBalanceBase.Equal(dec("1")), "initial base: %s", p.InitialBalanceBase)
	assert.True(t, p.CurrentBalanceBase.Equal(dec("1")), "current base: %s", p.CurrentBalanceBase)
	assert.True(t, p.CurrentBalanceToken.Equal(dec("1000")), "current token: %s", p.CurrentBalanceToken)
	assert.Equal(t, 0, p.TradesCount)

	snaps, err := NewPortfolioSnapshotStore(pool).ListByPortfolio(ctx, id)
	require.NoError(t, err)
	require.Len(t, snaps, 1, "initial snapshot must be written atomically with the portfolio")
	assert.True(t, snaps[0].BalanceBase.Equal(dec("1")))
}

func TestLedger_CreatePortfolio_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	_, err := ledger.CreatePortfolio(context.Background(), &domain.Portfolio{}, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestLedger_ExecuteTrade_BuyAndSell(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-trade-1", dec("1"), dec("1000"))
	poolStateID := createTestPoolState(t, ctx, pool, "pool-addr-1")

	ledger := NewLedger(pool)

	buy, err := ledger.ExecuteTrade(ctx, &domain.Trade{
		PortfolioID:      id,
		Direction:        domain.DirectionBuy,
		TokenIn:          "SOL",
		TokenOut:         "BABA",
		AmountIn:         dec("0.1"),
		AmountOut:        dec("0.05"),
		PriceAtTrade:     dec("2"),
		PriceImpactPct:   dec("0"),
		SlippageBps:      100,
		Fee:              dec("0.0002"),
		VirtualSignature: "sig-buy-1",
		PoolStateID:      poolStateID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusExecuted, buy.Status)
	require.NotNil(t, buy.ExecutedAt)
	assert.NotZero(t, buy.ID)

	p, err := NewPortfolioStore(pool).GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.CurrentBalanceBase.Equal(dec("0.9")), "base after buy: %s", p.CurrentBalanceBase)
	assert.True(t, p.CurrentBalanceToken.Equal(dec("1000.05")), "token after buy: %s", p.CurrentBalanceToken)
	assert.Equal(t, 1, p.TradesCount)
	assert.True(t, p.TotalFees.Equal(dec("0.0002")), "fees: %s", p.TotalFees)

	sell, err := ledger.ExecuteTrade(ctx, &domain.Trade{
		PortfolioID:      id,
		Direction:        domain.DirectionSell,
		TokenIn:          "BABA",
		TokenOut:         "SOL",
		AmountIn:         dec("0.05"),
		AmountOut:        dec("0.1"),
		PriceAtTrade:     dec("2"),
		VirtualSignature: "sig-sell-1",
		PoolStateID:      poolStateID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusExecuted, sell.Status)

	p, err = NewPortfolioStore(pool).GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.CurrentBalanceBase.Equal(dec("1")), "base after round trip: %s", p.CurrentBalanceBase)
	assert.True(t, p.CurrentBalanceToken.Equal(dec("1000")), "token after round trip: %s", p.CurrentBalanceToken)
	assert.Equal(t, 2, p.TradesCount)
}

func TestLedger_ExecuteTrade_InsufficientBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-poor-1", dec("0.5"), dec("0"))

	ledger := NewLedger(pool)
	_, err := ledger.ExecuteTrade(ctx, &domain.Trade{
		PortfolioID: id,
		Direction:   domain.DirectionBuy,
		AmountIn:    dec("1"),
		AmountOut:   dec("0.5"),
	})
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	// Nothing committed: balances unchanged, no trade row.
	p, err := NewPortfolioStore(pool).GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.CurrentBalanceBase.Equal(dec("0.5")))
	assert.Equal(t, 0, p.TradesCount)

	stats, err := NewTradeStore(pool).Stats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
}

func TestLedger_ExecuteTrade_UnknownPortfolio(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ledger := NewLedger(pool)
	_, err := ledger.ExecuteTrade(context.Background(), &domain.Trade{
		PortfolioID: 9999,
		Direction:   domain.DirectionBuy,
		AmountIn:    dec("0.1"),
		AmountOut:   dec("0.05"),
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedger_RecordFailedTrade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-failed-1", dec("1"), dec("0"))

	ledger := NewLedger(pool)
	failed, err := ledger.RecordFailedTrade(ctx, &domain.Trade{
		PortfolioID: id,
		Direction:   domain.DirectionBuy,
		TokenIn:     "SOL",
		TokenOut:    "BABA",
		AmountIn:    dec("0.1"),
		Metadata:    map[string]any{"error": "pool unavailable"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFailed, failed.Status)
	assert.Nil(t, failed.ExecutedAt)

	// Failed trades carry no pool state reference.
	got, err := NewTradeStore(pool).GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFailed, got.Status)
	assert.Nil(t, got.ExecutedAt)
	assert.Zero(t, got.PoolStateID)
	assert.Equal(t, "pool unavailable", got.Metadata["error"])

	p, err := NewPortfolioStore(pool).GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.CurrentBalanceBase.Equal(dec("1")), "failed trade must not touch balances")
	assert.Equal(t, 0, p.TradesCount)
}

func TestLedger_ConcurrentBuys_NeverOverdraw(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	id := createTestPortfolio(t, ctx, pool, "wallet-concurrent-1", dec("1"), dec("0"))

	ledger := NewLedger(pool)

	const k = 10
	var wg sync.WaitGroup
	results := make(chan error, k)

	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.ExecuteTrade(ctx, &domain.Trade{
				PortfolioID: id,
				Direction:   domain.DirectionBuy,
				AmountIn:    dec("0.25"),
				AmountOut:   dec("0.125"),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	executed := 0
	for err := range results {
		if err == nil {
			executed++
		} else {
			assert.ErrorIs(t, err, storage.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 4, executed, "only 4 buys of 0.25 fit into 1.0 base")

	p, err := NewPortfolioStore(pool).GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.CurrentBalanceBase.IsNegative(), "balance went negative: %s", p.CurrentBalanceBase)
	assert.Equal(t, executed, p.TradesCount)
}
