package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/oftenai/often-gateway/internal/store"
)

// Deposit implements the admin deposit entry point (C9, §4.9): credits an
// account's balance for currency by amount, appending a deposit entry.
// Authorization (the constant-time X-Admin-Key check) is the caller's
// responsibility — this method assumes it has already passed.
func (s *Service) Deposit(ctx context.Context, accountID string, currency Currency, amount int64, description string) (int64, error) {
	if !IsSupported(currency) {
		return 0, fmt.Errorf("%w: unsupported currency %s", ErrValidation, currency)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	entry := Entry{Type: EntryDeposit, Description: description}

	var balanceAfter int64
	err := withRetry(func() error {
		_, after, err := s.store.Credit(ctx, accountID, currency, amount, entry)
		if err != nil {
			return err
		}
		balanceAfter = after
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("%w: %s", ErrInternal, err)
	}

	s.publish(ctx, "ledger.deposit", map[string]interface{}{
		"account_id":    accountID,
		"currency":      string(currency),
		"amount":        amount,
		"balance_after": balanceAfter,
	})

	return balanceAfter, nil
}
