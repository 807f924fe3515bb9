package pool

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
	"solana-paper-trading/internal/solana"
)

// StateSource reads the live state of one AMM pool.
type StateSource interface {
	// FetchState reads the current pool state.
	FetchState(ctx context.Context) (*domain.PoolState, error)

	// CurrentPrice returns the token price in base-currency units.
	CurrentPrice(ctx context.Context) (decimal.Decimal, error)
}

// PoolAccounts identifies the on-chain accounts of one AMM pool.
type PoolAccounts struct {
	PoolAddress string
	BaseVault   string // vault holding the base currency side
	TokenVault  string // vault holding the traded token side
	LpMint      string
}

// RPCStateSource implements StateSource by reading vault balances over
// Solana RPC.
type RPCStateSource struct {
	rpc      solana.RPCClient
	accounts PoolAccounts
}

// NewRPCStateSource creates an RPC-backed pool state source.
func NewRPCStateSource(rpc solana.RPCClient, accounts PoolAccounts) *RPCStateSource {
	return &RPCStateSource{rpc: rpc, accounts: accounts}
}

// Compile-time interface check.
var _ StateSource = (*RPCStateSource)(nil)

// FetchState reads vault balances and LP supply for the pool.
func (s *RPCStateSource) FetchState(ctx context.Context) (*domain.PoolState, error) {
	info, err := s.rpc.GetAccountInfo(ctx, s.accounts.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch pool account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("pool account %s does not exist", s.accounts.PoolAddress)
	}

	baseBal, err := s.rpc.GetTokenAccountBalance(ctx, s.accounts.BaseVault)
	if err != nil {
		return nil, fmt.Errorf("fetch base vault balance: %w", err)
	}
	tokenBal, err := s.rpc.GetTokenAccountBalance(ctx, s.accounts.TokenVault)
	if err != nil {
		return nil, fmt.Errorf("fetch token vault balance: %w", err)
	}

	baseReserve, err := decimal.NewFromString(baseBal.UIAmount)
	if err != nil {
		return nil, fmt.Errorf("parse base reserve %q: %w", baseBal.UIAmount, err)
	}
	tokenReserve, err := decimal.NewFromString(tokenBal.UIAmount)
	if err != nil {
		return nil, fmt.Errorf("parse token reserve %q: %w", tokenBal.UIAmount, err)
	}

	state := &domain.PoolState{
		PoolAddress:  s.accounts.PoolAddress,
		BaseReserve:  baseReserve,
		TokenReserve: tokenReserve,
	}

	if s.accounts.LpMint != "" {
		supply, err := s.rpc.GetTokenSupply(ctx, s.accounts.LpMint)
		if err != nil {
			return nil, fmt.Errorf("fetch lp supply: %w", err)
		}
		state.LpSupply, err = decimal.NewFromString(supply.UIAmount)
		if err != nil {
			return nil, fmt.Errorf("parse lp supply %q: %w", supply.UIAmount, err)
		}
	}

	if tokenReserve.IsPositive() {
		state.TokenPrice = baseReserve.Div(tokenReserve)
	}

	return state, nil
}

// CurrentPrice returns the spot token price implied by the reserves.
func (s *RPCStateSource) CurrentPrice(ctx context.Context) (decimal.Decimal, error) {
	state, err := s.FetchState(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !state.TokenReserve.IsPositive() {
		return decimal.Zero, ErrEmptyReserves
	}
	return state.BaseReserve.Div(state.TokenReserve), nil
}
