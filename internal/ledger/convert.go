package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/oftenai/often-gateway/internal/store"
)

// ConvertResult is the return value of Convert.
type ConvertResult struct {
	FromBalance int64
	ToBalance   int64
	Converted   int64
	RateUsed    float64
}

// Convert implements the conversion engine (C8, §4.8): an oracle-priced,
// overflow-safe cross-currency atomic move on a single account. The rate
// fetch happens outside the store transaction to avoid holding a write
// lock across a network call; the quote is frozen for this request.
func (s *Service) Convert(ctx context.Context, accountID string, from, to Currency, amount int64) (ConvertResult, error) {
	if from == to {
		return ConvertResult{}, fmt.Errorf("%w: from and to currencies must differ", ErrValidation)
	}
	if !IsSupported(from) || !IsSupported(to) {
		return ConvertResult{}, fmt.Errorf("%w: unsupported currency", ErrValidation)
	}
	if amount <= 0 {
		return ConvertResult{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	fromRate, err := s.rates.USDPrice(ctx, from)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("%w: %s", ErrUpstreamUnreachable, err)
	}
	toRate, err := s.rates.USDPrice(ctx, to)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("%w: %s", ErrUpstreamUnreachable, err)
	}

	converted := ConvertAmount(amount, from, to, fromRate, toRate)
	if converted <= 0 {
		return ConvertResult{}, fmt.Errorf("%w: amount too small to convert", ErrValidation)
	}
	rateUsed := RateUsed(fromRate, toRate)

	var result ConvertResult
	txErr := withRetry(func() error {
		fromBal, toBal, _, err := s.store.Convert(ctx, accountID, from, to, amount, converted, rateUsed)
		if err != nil {
			return err
		}
		result = ConvertResult{FromBalance: fromBal, ToBalance: toBal, Converted: converted, RateUsed: rateUsed}
		return nil
	})
	if txErr != nil {
		return ConvertResult{}, classifyConvertError(txErr)
	}

	s.publish(ctx, "ledger.convert", map[string]interface{}{
		"account_id":   accountID,
		"from":         string(from),
		"to":           string(to),
		"amount":       amount,
		"converted":    result.Converted,
		"rate_used":    result.RateUsed,
		"from_balance": result.FromBalance,
		"to_balance":   result.ToBalance,
	})

	return result, nil
}

func classifyConvertError(err error) error {
	var insufficient *store.InsufficientFundsError
	if errors.As(err, &insufficient) {
		return ErrInsufficientFunds
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("%w: %s", ErrInternal, err)
}
