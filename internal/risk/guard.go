package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-paper-trading/internal/domain"
)

var (
	// ErrPositionTooLarge is returned when a trade exceeds the per-trade
	// position limit for its direction.
	ErrPositionTooLarge = errors.New("position size exceeds limit")

	// ErrDailyLimitReached is returned when the portfolio already executed
	// the maximum number of trades for the current UTC day.
	ErrDailyLimitReached = errors.New("daily trade limit reached")

	// ErrMaxDrawdown is returned when the portfolio value fell below the
	// configured drawdown threshold.
	ErrMaxDrawdown = errors.New("maximum drawdown exceeded")
)

// Limits configures the risk guard. A zero or negative value disables
// the corresponding check.
type Limits struct {
	// MaxPositionBase caps AmountIn of a single BUY, in base currency.
	MaxPositionBase decimal.Decimal
	// MaxPositionToken caps AmountIn of a single SELL, in token units.
	MaxPositionToken decimal.Decimal
	// MaxDailyTrades caps executed trades per portfolio per UTC day.
	MaxDailyTrades int
	// MaxDrawdownPct blocks trading once portfolio value drops this many
	// percent below its initial value.
	MaxDrawdownPct decimal.Decimal
}

// Guard enforces trading limits. Stateless: every check receives the
// facts it needs.
type Guard struct {
	limits Limits
}

// NewGuard creates a risk guard with the given limits.
func NewGuard(limits Limits) *Guard {
	return &Guard{limits: limits}
}

// CheckPositionSize verifies the trade amount against the per-direction
// position limit.
func (g *Guard) CheckPositionSize(direction domain.Direction, amountIn decimal.Decimal) error {
	var limit decimal.Decimal
	switch direction {
	case domain.DirectionBuy:
		limit = g.limits.MaxPositionBase
	case domain.DirectionSell:
		limit = g.limits.MaxPositionToken
	default:
		return nil
	}

	if !limit.IsPositive() {
		return nil
	}
	if amountIn.GreaterThan(limit) {
		return fmt.Errorf("%w: %s %s exceeds %s", ErrPositionTooLarge, direction, amountIn, limit)
	}
	return nil
}

// CheckDailyTrades verifies the executed-trade count for the current UTC
// day against the daily limit.
func (g *Guard) CheckDailyTrades(executedToday int) error {
	if g.limits.MaxDailyTrades <= 0 {
		return nil
	}
	if executedToday >= g.limits.MaxDailyTrades {
		return fmt.Errorf("%w: %d/%d", ErrDailyLimitReached, executedToday, g.limits.MaxDailyTrades)
	}
	return nil
}

// CheckDrawdown verifies that the portfolio value, marked at the given
// token price, has not fallen beyond the drawdown limit relative to its
// initial value.
func (g *Guard) CheckDrawdown(p *domain.Portfolio, tokenPrice decimal.Decimal) error {
	if !g.limits.MaxDrawdownPct.IsPositive() {
		return nil
	}

	initial := p.InitialBalanceBase.Add(p.InitialBalanceToken.Mul(tokenPrice))
	if !initial.IsPositive() {
		return nil
	}
	current := p.CurrentBalanceBase.Add(p.CurrentBalanceToken.Mul(tokenPrice))

	drawdown := initial.Sub(current).Div(initial).Mul(decimal.NewFromInt(100))
	if drawdown.GreaterThan(g.limits.MaxDrawdownPct) {
		return fmt.Errorf("%w: %s%% > %s%%", ErrMaxDrawdown, drawdown.Round(2), g.limits.MaxDrawdownPct)
	}
	return nil
}
