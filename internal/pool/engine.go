package pool

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
)

// DefaultFeeBps is the pool trade fee used when none is configured.
const DefaultFeeBps = 25 // 0.25%

// Engine quotes swaps against one AMM pool. It caches the last fetched
// pool state and refreshes it before every quote.
type Engine struct {
	source StateSource
	feeBps int

	mu          sync.RWMutex
	state       *domain.PoolState
	initialized bool
}

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithFeeBps sets the pool trade fee in basis points.
func WithFeeBps(bps int) EngineOption {
	return func(e *Engine) {
		e.feeBps = bps
	}
}

// NewEngine creates a quote engine over a pool state source.
func NewEngine(source StateSource, opts ...EngineOption) *Engine {
	e := &Engine{
		source: source,
		feeBps: DefaultFeeBps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize fetches the initial pool state. Idempotent: returns true
// immediately when already initialized. A fetch failure is logged and
// reported as false, never as a panic or error.
func (e *Engine) Initialize(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return true
	}

	state, err := e.source.FetchState(ctx)
	if err != nil {
		log.Printf("[pool] initialize failed: %v", err)
		return false
	}

	e.state = state
	e.initialized = true
	log.Printf("[pool] initialized %s (base=%s token=%s)",
		state.PoolAddress, state.BaseReserve, state.TokenReserve)
	return true
}

// IsInitialized reports whether the engine has a pool state.
func (e *Engine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Refresh re-fetches the pool state.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.RLock()
	initialized := e.initialized
	e.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}

	state, err := e.source.FetchState(ctx)
	if err != nil {
		return fmt.Errorf("refresh pool state: %w", err)
	}

	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	return nil
}

// Quote estimates swapping amountIn base currency into the token.
// The returned AmountOut is the minimum output after slippage tolerance;
// PriceImpact is a 0-1 fraction.
func (e *Engine) Quote(ctx context.Context, amountIn decimal.Decimal, slippageBps int) (*domain.SwapQuote, error) {
	if !e.IsInitialized() {
		return nil, ErrNotInitialized
	}
	if !amountIn.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Quote against fresh reserves.
	if err := e.Refresh(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()

	out, fee, impact, err := swapOut(state.BaseReserve, state.TokenReserve, amountIn, e.feeBps)
	if err != nil {
		return nil, err
	}

	if slippageBps > 0 {
		tolerance := decimal.NewFromInt(int64(10000 - slippageBps)).Div(bpsDivisor)
		out = out.Mul(tolerance)
	}

	return &domain.SwapQuote{
		AmountIn:    amountIn,
		AmountOut:   out,
		Fee:         fee,
		PriceImpact: impact,
	}, nil
}

// State returns a copy of the last fetched pool state.
func (e *Engine) State(ctx context.Context) (*domain.PoolState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil, ErrNotInitialized
	}

	cp := *e.state
	return &cp, nil
}
