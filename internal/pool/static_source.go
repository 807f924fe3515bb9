package pool

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
)

// StaticSource is a StateSource serving a fixed state, for tests and
// offline development.
type StaticSource struct {
	mu        sync.Mutex
	PoolState *domain.PoolState
	Err       error
	fetches   int
}

// Compile-time interface check.
var _ StateSource = (*StaticSource)(nil)

// FetchState returns a copy of the configured state.
func (s *StaticSource) FetchState(_ context.Context) (*domain.PoolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches++
	if s.Err != nil {
		return nil, s.Err
	}
	cp := *s.PoolState
	return &cp, nil
}

// CurrentPrice returns the spot price implied by the configured reserves.
func (s *StaticSource) CurrentPrice(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return decimal.Zero, s.Err
	}
	if !s.PoolState.TokenReserve.IsPositive() {
		return decimal.Zero, ErrEmptyReserves
	}
	return s.PoolState.BaseReserve.Div(s.PoolState.TokenReserve), nil
}

// FetchCount reports how many times FetchState was called.
func (s *StaticSource) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// SetErr swaps the error returned by subsequent calls.
func (s *StaticSource) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
