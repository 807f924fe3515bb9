package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGuard_CheckPositionSize(t *testing.T) {
	guard := NewGuard(Limits{
		MaxPositionBase:  dec("1"),
		MaxPositionToken: dec("500"),
	})

	tests := []struct {
		name      string
		direction domain.Direction
		amountIn  string
		wantErr   bool
	}{
		{"buy at limit", domain.DirectionBuy, "1", false},
		{"buy under limit", domain.DirectionBuy, "0.5", false},
		{"buy over limit", domain.DirectionBuy, "1.0001", true},
		{"sell at limit", domain.DirectionSell, "500", false},
		{"sell over limit", domain.DirectionSell, "500.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.CheckPositionSize(tt.direction, dec(tt.amountIn))
			if tt.wantErr {
				if !errors.Is(err, ErrPositionTooLarge) {
					t.Errorf("expected ErrPositionTooLarge, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGuard_CheckPositionSize_Disabled(t *testing.T) {
	guard := NewGuard(Limits{})

	if err := guard.CheckPositionSize(domain.DirectionBuy, dec("1000000")); err != nil {
		t.Errorf("zero limit must disable the check: %v", err)
	}
	if err := guard.CheckPositionSize(domain.DirectionSell, dec("1000000")); err != nil {
		t.Errorf("zero limit must disable the check: %v", err)
	}
}

func TestGuard_CheckDailyTrades(t *testing.T) {
	guard := NewGuard(Limits{MaxDailyTrades: 3})

	if err := guard.CheckDailyTrades(2); err != nil {
		t.Errorf("under limit: %v", err)
	}
	if err := guard.CheckDailyTrades(3); !errors.Is(err, ErrDailyLimitReached) {
		t.Errorf("at limit: expected ErrDailyLimitReached, got %v", err)
	}
	if err := guard.CheckDailyTrades(10); !errors.Is(err, ErrDailyLimitReached) {
		t.Errorf("over limit: expected ErrDailyLimitReached, got %v", err)
	}

	disabled := NewGuard(Limits{})
	if err := disabled.CheckDailyTrades(1000); err != nil {
		t.Errorf("zero limit must disable the check: %v", err)
	}
}

func TestGuard_CheckDrawdown(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdownPct: dec("20")})
	price := dec("0.001")

	healthy := &domain.Portfolio{
		InitialBalanceBase:  dec("1"),
		InitialBalanceToken: dec("1000"),
		CurrentBalanceBase:  dec("0.95"),
		CurrentBalanceToken: dec("1000"),
	}
	if err := guard.CheckDrawdown(healthy, price); err != nil {
		t.Errorf("small drawdown: %v", err)
	}

	// Initial value 2.0, current 1.5: 25% drawdown.
	drawn := &domain.Portfolio{
		InitialBalanceBase:  dec("1"),
		InitialBalanceToken: dec("1000"),
		CurrentBalanceBase:  dec("0.5"),
		CurrentBalanceToken: dec("1000"),
	}
	if err := guard.CheckDrawdown(drawn, dec("0.001")); !errors.Is(err, ErrMaxDrawdown) {
		t.Errorf("expected ErrMaxDrawdown, got %v", err)
	}

	disabled := NewGuard(Limits{})
	if err := disabled.CheckDrawdown(drawn, price); err != nil {
		t.Errorf("zero limit must disable the check: %v", err)
	}
}

func TestGuard_CheckDrawdown_ZeroInitialValue(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdownPct: dec("10")})

	empty := &domain.Portfolio{}
	if err := guard.CheckDrawdown(empty, dec("1")); err != nil {
		t.Errorf("zero initial value must pass: %v", err)
	}
}
