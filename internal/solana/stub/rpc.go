package stub

import (
	"context"
	"sync/atomic"

	"solana-transfer-watch/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Transactions map[string]*solana.Transaction

	// Err, when set, is returned by every lookup.
	Err error

	// Calls counts GetTransaction invocations.
	Calls atomic.Int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
// Unknown signatures return (nil, nil), matching the live client.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.Calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}
