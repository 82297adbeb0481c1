package wallet

import (
	"context"
	"errors"
	"sync"
)

// ErrNotRegistered is returned by Registry.WalletAddress when accountID has
// no bound address.
var ErrNotRegistered = errors.New("wallet: account not registered")

// Registry is an in-process AddressLookup mapping account ids to their
// registered wallet address. Spec's HTTP surface (§6) has no wallet-
// registration endpoint — an account's address is provisioned out of band
// (e.g. at signup time, by whatever process hands an agent its keypair) —
// so this keeps that binding in memory rather than inventing a persisted
// column the store contract has no operation for.
type Registry struct {
	mu        sync.RWMutex
	addresses map[string]string
}

var _ AddressLookup = (*Registry)(nil)

// NewRegistry creates an empty wallet address registry.
func NewRegistry() *Registry {
	return &Registry{addresses: make(map[string]string)}
}

// Register binds accountID to address, replacing any prior binding.
func (r *Registry) Register(accountID, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[accountID] = address
}

// WalletAddress implements AddressLookup.
func (r *Registry) WalletAddress(_ context.Context, accountID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	address, ok := r.addresses[accountID]
	if !ok {
		return "", ErrNotRegistered
	}
	return address, nil
}
