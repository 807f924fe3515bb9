package idhash

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestComputeVirtualSignature(t *testing.T) {
	tests := []struct {
		name        string
		portfolioID int64
		direction   string
		amountIn    string
		price       string
		unixMs      int64
	}{
		{
			name:        "buy trade",
			portfolioID: 1,
			direction:   "BUY",
			amountIn:    "0.1",
			price:       "0.000042",
			unixMs:      1704067234567,
		},
		{
			name:        "sell trade",
			portfolioID: 7,
			direction:   "SELL",
			amountIn:    "1500",
			price:       "0.000041",
			unixMs:      1704067300000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeVirtualSignature(tt.portfolioID, tt.direction, tt.amountIn, tt.price, tt.unixMs)

			// Must decode as base58 back to the 32-byte digest.
			raw, err := base58.Decode(got)
			if err != nil {
				t.Fatalf("signature is not valid base58: %v", err)
			}
			if len(raw) != 32 {
				t.Errorf("decoded signature length = %d, want 32", len(raw))
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeVirtualSignature(tt.portfolioID, tt.direction, tt.amountIn, tt.price, tt.unixMs)
			if got != got2 {
				t.Errorf("ComputeVirtualSignature() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeVirtualSignature_DifferentInputs(t *testing.T) {
	base := ComputeVirtualSignature(1, "BUY", "0.1", "2", 1000)

	if base == ComputeVirtualSignature(2, "BUY", "0.1", "2", 1000) {
		t.Error("different portfolio should produce different signature")
	}
	if base == ComputeVirtualSignature(1, "SELL", "0.1", "2", 1000) {
		t.Error("different direction should produce different signature")
	}
	if base == ComputeVirtualSignature(1, "BUY", "0.2", "2", 1000) {
		t.Error("different amount should produce different signature")
	}
	if base == ComputeVirtualSignature(1, "BUY", "0.1", "3", 1000) {
		t.Error("different price should produce different signature")
	}
	if base == ComputeVirtualSignature(1, "BUY", "0.1", "2", 2000) {
		t.Error("different timestamp should produce different signature")
	}
}
