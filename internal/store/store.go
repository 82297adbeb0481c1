// Package store defines the persistent-store contract: per-account
// serializable read-modify-write transactions with optimistic concurrency,
// and ordered writes of journal entries alongside balance changes. This is
// the only correctness boundary for balance math; no in-process lock
// protects balances outside of it.
package store

import (
	"context"
	"errors"

	"github.com/oftenai/often-gateway/internal/domain"
)

// ErrAccountNotFound is returned by store implementations when the
// requested account id has no row.
var ErrAccountNotFound = errors.New("store: account not found")

// ErrConflict is returned when an optimistic-concurrency write lost the
// race and should be retried by the caller (bounded, per spec).
var ErrConflict = errors.New("store: optimistic concurrency conflict")

// Store is the persistence contract. Implementations: memstore (tests),
// postgres (production), sqlite (single-node/dev).
type Store interface {
	// GetAccount reads the current account snapshot.
	GetAccount(ctx context.Context, id string) (domain.Account, error)

	// CreateAccount creates a new account with all balances at zero.
	CreateAccount(ctx context.Context, id, email string) (domain.Account, error)

	// Debit atomically re-reads the balance, fails with ErrInsufficientFunds
	// semantics (via the returned error) if amount exceeds it, otherwise
	// writes balance-amount and appends entry in the same transaction.
	// entry.BalanceBefore/BalanceAfter/Amount/CreatedAt/ID are populated by
	// the store from the observed balance.
	Debit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error)

	// Credit atomically increases balance by amount and appends entry.
	Credit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error)

	// Transfer atomically moves amount of currency from fromID to toID,
	// appending a transfer_out entry on fromID and a transfer_in entry on
	// toID. Returns both post-transfer balances.
	Transfer(ctx context.Context, fromID, toID string, currency domain.Currency, amount int64, description string) (fromBalance, toBalance int64, fromEntry, toEntry domain.Entry, err error)

	// Convert atomically debits `amount` of `from` and credits `converted`
	// of `to` on the same account, appending a single conversion entry.
	Convert(ctx context.Context, accountID string, from, to domain.Currency, amount, converted int64, rateUsed float64) (fromBalance, toBalance int64, entry domain.Entry, err error)

	// ListTransactions returns up to limit entries for accountID, ordered
	// newest-first, optionally starting strictly after startAfterID.
	ListTransactions(ctx context.Context, accountID string, limit int, startAfterID string) ([]domain.Entry, error)

	// Close releases any resources held by the store.
	Close() error
}

// InsufficientFundsError lets Debit/Transfer/Convert report the observed
// balance alongside the sentinel condition for logging.
type InsufficientFundsError struct {
	AccountID string
	Currency  domain.Currency
	Have      int64
	Want      int64
}

func (e *InsufficientFundsError) Error() string {
	return "store: insufficient funds"
}

// SenderNotFoundError is returned by Transfer when fromID has no account.
type SenderNotFoundError struct{ AccountID string }

func (e *SenderNotFoundError) Error() string { return "store: sender not found: " + e.AccountID }

// RecipientNotFoundError is returned by Transfer when toID has no account.
type RecipientNotFoundError struct{ AccountID string }

func (e *RecipientNotFoundError) Error() string {
	return "store: recipient not found: " + e.AccountID
}
