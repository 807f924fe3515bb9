package stub

import (
	"context"
	"errors"

	"solana-paper-trading/internal/solana"
)

// ErrNotFound is returned when an account is not present in the stub store.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Accounts      map[string]*solana.AccountInfo
	TokenBalances map[string]*solana.TokenAmount
	Slot          int64

	// Err, when set, is returned by every call.
	Err error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenBalances: make(map[string]*solana.TokenAmount),
	}
}

// GetAccountInfo retrieves account info from the stub store.
// Returns nil for unknown accounts, matching the live client.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[pubkey], nil
}

// GetTokenAccountBalance retrieves a token balance from the stub store.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, pubkey string) (*solana.TokenAmount, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	bal, ok := c.TokenBalances[pubkey]
	if !ok {
		return nil, ErrNotFound
	}
	return bal, nil
}

// GetTokenSupply retrieves a mint supply from the stub store.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	supply, ok := c.TokenBalances[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return supply, nil
}

// GetSlot retrieves the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Slot, nil
}
