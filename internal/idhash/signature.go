package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeVirtualSignature computes a deterministic signature for a simulated
// trade using SHA256.
// Formula: SHA256(portfolio_id|direction|amount_in|price|unix_ms)
// Returns the base58-encoded hash, matching the shape of a real Solana
// transaction signature so downstream tooling treats paper trades uniformly.
func ComputeVirtualSignature(
	portfolioID int64,
	direction string,
	amountIn string,
	price string,
	unixMs int64,
) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%d",
		portfolioID,
		direction,
		amountIn,
		price,
		unixMs,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
