package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidatePubkey checks that an address is a well-formed Solana public key:
// base58 text decoding to exactly 32 bytes.
func ValidatePubkey(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode pubkey %q: %w", address, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("pubkey %q: expected 32 bytes, got %d", address, len(raw))
	}
	return nil
}

// IsOnCurve reports whether a 32-byte public key lies on the ed25519 curve.
// Wallet keys are on-curve; program derived addresses are not.
func IsOnCurve(pubkey []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}

// IsWalletAddress reports whether an address is a plausible wallet:
// a valid pubkey that lies on the ed25519 curve.
func IsWalletAddress(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	return IsOnCurve(raw)
}
