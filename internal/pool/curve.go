package pool

import (
	"github.com/shopspring/decimal"
)

// bpsDivisor converts basis points to a fraction.
var bpsDivisor = decimal.NewFromInt(10000)

// swapOut computes a constant-product swap of amountIn base currency into
// the token side, with the pool fee taken from the input.
//
// Given reserves (x, y) and net input dx, output follows x*y = k:
//
//	dy = y*dx / (x + dx)
//
// Returns the gross output, the fee (base units), and the price impact as
// a fraction of the spot price.
func swapOut(baseReserve, tokenReserve, amountIn decimal.Decimal, feeBps int) (out, fee decimal.Decimal, impact float64, err error) {
	if !baseReserve.IsPositive() || !tokenReserve.IsPositive() {
		return decimal.Zero, decimal.Zero, 0, ErrEmptyReserves
	}
	if !amountIn.IsPositive() {
		return decimal.Zero, decimal.Zero, 0, ErrInvalidAmount
	}

	fee = amountIn.Mul(decimal.NewFromInt(int64(feeBps))).Div(bpsDivisor)
	netIn := amountIn.Sub(fee)

	out = tokenReserve.Mul(netIn).Div(baseReserve.Add(netIn))

	// Impact: shortfall of the execution price vs the spot price.
	spot := tokenReserve.Div(baseReserve)
	exec := out.Div(amountIn)
	impactDec := decimal.NewFromInt(1).Sub(exec.Div(spot))

	impact, _ = impactDec.Float64()
	if impact < 0 {
		impact = 0
	}
	if impact > 1 {
		impact = 1
	}

	return out, fee, impact, nil
}
