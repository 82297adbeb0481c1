package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/oftenai/often-gateway/internal/store"
)

// TransferResult is the return value of Transfer.
type TransferResult struct {
	SenderBalance    int64
	RecipientBalance int64
}

// Transfer implements the double-entry transfer engine (C7, §4.7): a
// two-account atomic move with paired journal entries.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID string, currency Currency, amount int64, description string) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !IsSupported(currency) {
		return TransferResult{}, fmt.Errorf("%w: unsupported currency %s", ErrValidation, currency)
	}
	if senderID == recipientID {
		return TransferResult{}, fmt.Errorf("%w: recipient must differ from sender", ErrValidation)
	}

	var result TransferResult
	err := withRetry(func() error {
		sBal, rBal, _, _, err := s.store.Transfer(ctx, senderID, recipientID, currency, amount, description)
		if err != nil {
			return err
		}
		result = TransferResult{SenderBalance: sBal, RecipientBalance: rBal}
		return nil
	})
	if err != nil {
		return TransferResult{}, classifyTransferError(err)
	}

	s.publish(ctx, "ledger.transfer", map[string]interface{}{
		"sender_id":         senderID,
		"recipient_id":      recipientID,
		"currency":          string(currency),
		"amount":            amount,
		"sender_balance":    result.SenderBalance,
		"recipient_balance": result.RecipientBalance,
	})

	return result, nil
}

func classifyTransferError(err error) error {
	var senderNotFound *store.SenderNotFoundError
	if errors.As(err, &senderNotFound) {
		return ErrSenderNotFound
	}
	var recipientNotFound *store.RecipientNotFoundError
	if errors.As(err, &recipientNotFound) {
		return ErrRecipientNotFound
	}
	var insufficient *store.InsufficientFundsError
	if errors.As(err, &insufficient) {
		return ErrInsufficientFunds
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("%w: %s", ErrInternal, err)
}
