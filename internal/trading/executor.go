// Package trading implements the paper-trade executor: it resolves a
// price, quotes the pool, applies risk limits and commits the trade
// atomically through the storage ledger.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/idhash"
	"solana-paper-trading/internal/observability"
	"solana-paper-trading/internal/risk"
	"solana-paper-trading/internal/solana"
	"solana-paper-trading/internal/storage"
)

// DefaultStepTimeout bounds each upstream call (oracle, pool) made
// during trade execution.
const DefaultStepTimeout = 10 * time.Second

// PriceOracle resolves the current token price.
type PriceOracle interface {
	Price(ctx context.Context, token string) (*domain.PriceQuote, error)
}

// PoolEngine quotes swaps against the AMM pool.
type PoolEngine interface {
	Initialize(ctx context.Context) bool
	IsInitialized() bool
	Quote(ctx context.Context, amountIn decimal.Decimal, slippageBps int) (*domain.SwapQuote, error)
	State(ctx context.Context) (*domain.PoolState, error)
}

// Config carries the executor's static parameters.
type Config struct {
	// BaseSymbol is the base-currency symbol, e.g. "SOL".
	BaseSymbol string
	// TokenSymbol is the traded token's symbol.
	TokenSymbol string
	// TokenAddress is the traded token's mint, passed to the oracle.
	TokenAddress string
	// StepTimeout bounds each oracle/pool call. Zero means DefaultStepTimeout.
	StepTimeout time.Duration
}

// Executor runs paper trades end to end.
type Executor struct {
	cfg Config

	ledger     storage.Ledger
	portfolios storage.PortfolioStore
	trades     storage.TradeStore
	poolStates storage.PoolStateStore
	snapshots  storage.PortfolioSnapshotStore

	oracle PriceOracle
	engine PoolEngine
	guard  *risk.Guard
}

// Stores bundles the storage dependencies of the executor.
type Stores struct {
	Ledger     storage.Ledger
	Portfolios storage.PortfolioStore
	Trades     storage.TradeStore
	PoolStates storage.PoolStateStore
	Snapshots  storage.PortfolioSnapshotStore
}

// NewExecutor creates a trade executor.
func NewExecutor(cfg Config, stores Stores, oracle PriceOracle, engine PoolEngine, guard *risk.Guard) *Executor {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	return &Executor{
		cfg:        cfg,
		ledger:     stores.Ledger,
		portfolios: stores.Portfolios,
		trades:     stores.Trades,
		poolStates: stores.PoolStates,
		snapshots:  stores.Snapshots,
		oracle:     oracle,
		engine:     engine,
		guard:      guard,
	}
}

// CreatePortfolio creates a paper portfolio funded with the given
// balances, together with its initial snapshot.
func (e *Executor) CreatePortfolio(ctx context.Context, wallet string, initialBase, initialToken decimal.Decimal, metadata map[string]any) (*domain.Portfolio, error) {
	if err := solana.ValidatePubkey(wallet); err != nil {
		return nil, fmt.Errorf("%w: wallet address: %v", storage.ErrInvalidInput, err)
	}
	if !solana.IsWalletAddress(wallet) {
		return nil, fmt.Errorf("%w: wallet address %s is off the ed25519 curve", storage.ErrInvalidInput, wallet)
	}
	if initialBase.IsNegative() || initialToken.IsNegative() {
		return nil, fmt.Errorf("%w: initial balances must not be negative", storage.ErrInvalidInput)
	}

	p := &domain.Portfolio{
		WalletAddress:       wallet,
		InitialBalanceBase:  initialBase,
		InitialBalanceToken: initialToken,
		Metadata:            metadata,
	}

	// Snapshot prices are best-effort at creation time.
	tokenPrice := decimal.Zero
	if quote, err := e.resolvePrice(ctx); err == nil {
		tokenPrice = quote.Price
	}

	snap := &domain.PortfolioSnapshot{
		BalanceBase:   initialBase,
		BalanceToken:  initialToken,
		TokenPriceUSD: tokenPrice,
	}

	id, err := e.ledger.CreatePortfolio(ctx, p, snap)
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	return e.portfolios.GetByID(ctx, id)
}

// GetPortfolio retrieves a portfolio by ID.
func (e *Executor) GetPortfolio(ctx context.Context, portfolioID int64) (*domain.Portfolio, error) {
	p, err := e.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrPortfolioNotFound, err)
		}
		return nil, err
	}
	return p, nil
}

// Stats computes aggregate trade statistics for a portfolio.
func (e *Executor) Stats(ctx context.Context, portfolioID int64) (*domain.PortfolioStats, error) {
	return e.trades.Stats(ctx, portfolioID)
}

// ListTrades retrieves a portfolio's trades newest-first.
func (e *Executor) ListTrades(ctx context.Context, portfolioID int64, limit, offset int) ([]*domain.Trade, error) {
	return e.trades.ListByPortfolio(ctx, portfolioID, limit, offset)
}

// Execute runs one paper trade: BUY spends amountIn base currency for
// tokens, SELL spends amountIn tokens for base currency. On success the
// trade is committed atomically together with the balance update.
func (e *Executor) Execute(ctx context.Context, portfolioID int64, direction domain.Direction, amountIn decimal.Decimal, slippageBps int) (*domain.Trade, error) {
	started := time.Now()

	trade, err := e.execute(ctx, portfolioID, direction, amountIn, slippageBps)
	if err != nil {
		observability.RecordTradeFailed(direction.String(), failureReason(err))
		return nil, err
	}

	observability.RecordTradeExecuted(direction.String(), time.Since(started).Seconds())
	return trade, nil
}

func (e *Executor) execute(ctx context.Context, portfolioID int64, direction domain.Direction, amountIn decimal.Decimal, slippageBps int) (*domain.Trade, error) {
	if !amountIn.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amountIn)
	}
	if !direction.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	portfolio, err := e.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	if !e.engine.IsInitialized() {
		stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
		ok := e.engine.Initialize(stepCtx)
		cancel()
		if !ok {
			return nil, ErrPoolUnavailable
		}
	}

	quote, err := e.resolvePrice(ctx)
	if err != nil {
		return nil, err
	}
	price := quote.Price

	if err := e.checkLimits(ctx, portfolio, direction, amountIn, price); err != nil {
		return nil, err
	}

	// Snapshot the pool reserves backing this trade.
	state, err := e.engine.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolUnavailable, err)
	}
	poolStateID, err := e.poolStates.Insert(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("persist pool state: %w", err)
	}

	quoteStart := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
	swap, err := e.engine.Quote(stepCtx, amountIn, slippageBps)
	cancel()
	observability.RecordPoolQuote(time.Since(quoteStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolUnavailable, err)
	}

	amountOut, err := computeAmountOut(direction, amountIn, price, swap.PriceImpact)
	if err != nil {
		e.recordFailure(ctx, portfolioID, direction, amountIn, price, slippageBps, err)
		return nil, err
	}

	now := time.Now().UTC()
	tokenIn, tokenOut := e.legSymbols(direction)
	trade := &domain.Trade{
		PortfolioID:    portfolioID,
		Direction:      direction,
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		PriceAtTrade:   price,
		PriceImpactPct: decimal.NewFromFloat(swap.PriceImpact).Mul(decimal.NewFromInt(100)),
		SlippageBps:    slippageBps,
		Fee:            swap.Fee,
		PoolStateID:    poolStateID,
		VirtualSignature: idhash.ComputeVirtualSignature(
			portfolioID, direction.String(), amountIn.String(), price.String(), now.UnixMilli()),
	}

	executed, err := e.ledger.ExecuteTrade(ctx, trade)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			e.recordFailure(ctx, portfolioID, direction, amountIn, price, slippageBps, err)
		}
		return nil, fmt.Errorf("execute trade: %w", err)
	}

	e.snapshotAfterTrade(ctx, portfolioID, price)
	return executed, nil
}

// resolvePrice asks the oracle for the current token price under the
// step timeout.
func (e *Executor) resolvePrice(ctx context.Context) (*domain.PriceQuote, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.cfg.StepTimeout)
	defer cancel()

	started := time.Now()
	quote, err := e.oracle.Price(stepCtx, e.cfg.TokenAddress)
	observability.RecordPriceResolve(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// checkLimits runs the risk guard against the current portfolio state.
func (e *Executor) checkLimits(ctx context.Context, p *domain.Portfolio, direction domain.Direction, amountIn, price decimal.Decimal) error {
	if e.guard == nil {
		return nil
	}

	if err := e.guard.CheckPositionSize(direction, amountIn); err != nil {
		return err
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	executedToday, err := e.trades.CountSince(ctx, p.ID, dayStart)
	if err != nil {
		return fmt.Errorf("count daily trades: %w", err)
	}
	if err := e.guard.CheckDailyTrades(executedToday); err != nil {
		return err
	}

	return e.guard.CheckDrawdown(p, price)
}

// recordFailure persists a FAILED trade row. Best-effort: a persistence
// error here is logged, the original failure is what the caller sees.
func (e *Executor) recordFailure(ctx context.Context, portfolioID int64, direction domain.Direction, amountIn, price decimal.Decimal, slippageBps int, cause error) {
	tokenIn, tokenOut := e.legSymbols(direction)
	failed := &domain.Trade{
		PortfolioID:  portfolioID,
		Direction:    direction,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		PriceAtTrade: price,
		SlippageBps:  slippageBps,
		Metadata:     map[string]any{"error": cause.Error()},
	}
	if _, err := e.ledger.RecordFailedTrade(ctx, failed); err != nil {
		log.Printf("[trading] record failed trade for portfolio %d: %v", portfolioID, err)
	}
}

// snapshotAfterTrade writes a post-trade portfolio snapshot. Best-effort.
func (e *Executor) snapshotAfterTrade(ctx context.Context, portfolioID int64, price decimal.Decimal) {
	p, err := e.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		log.Printf("[trading] post-trade snapshot: reload portfolio %d: %v", portfolioID, err)
		observability.RecordSnapshot(err)
		return
	}

	_, err = e.snapshots.Insert(ctx, &domain.PortfolioSnapshot{
		PortfolioID:   portfolioID,
		BalanceBase:   p.CurrentBalanceBase,
		BalanceToken:  p.CurrentBalanceToken,
		TokenPriceUSD: price,
	})
	if err != nil {
		log.Printf("[trading] post-trade snapshot for portfolio %d: %v", portfolioID, err)
	}
	observability.RecordSnapshot(err)
}

// legSymbols maps a direction to the spent/received symbols.
func (e *Executor) legSymbols(direction domain.Direction) (tokenIn, tokenOut string) {
	if direction == domain.DirectionBuy {
		return e.cfg.BaseSymbol, e.cfg.TokenSymbol
	}
	return e.cfg.TokenSymbol, e.cfg.BaseSymbol
}

// computeAmountOut derives the output amount from the oracle price and
// the pool's price impact. BUY converts base to tokens, SELL the mirror.
func computeAmountOut(direction domain.Direction, amountIn, price decimal.Decimal, impact float64) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price %s", ErrInvalidComputedAmount, price)
	}
	if impact < 0 || impact >= 1 {
		return decimal.Zero, fmt.Errorf("%w: impact %v", ErrInvalidComputedAmount, impact)
	}

	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(impact))

	var out decimal.Decimal
	if direction == domain.DirectionBuy {
		out = amountIn.Div(price).Mul(factor)
	} else {
		out = amountIn.Mul(price).Mul(factor)
	}

	if !out.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: output %s", ErrInvalidComputedAmount, out)
	}
	return out, nil
}

// failureReason buckets an execution error for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidDirection):
		return "validation"
	case errors.Is(err, ErrPortfolioNotFound):
		return "portfolio_not_found"
	case errors.Is(err, ErrPoolUnavailable):
		return "pool_unavailable"
	case errors.Is(err, ErrInvalidComputedAmount):
		return "invalid_amount_out"
	case errors.Is(err, risk.ErrPositionTooLarge):
		return "position_too_large"
	case errors.Is(err, risk.ErrDailyLimitReached):
		return "daily_limit"
	case errors.Is(err, risk.ErrMaxDrawdown):
		return "max_drawdown"
	case errors.Is(err, storage.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}
