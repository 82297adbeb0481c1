package ledger

import (
	"errors"

	"github.com/oftenai/often-gateway/internal/store"
)

// withRetry retries op up to maxTransactionRetries times while it fails
// with store.ErrConflict, the optimistic-concurrency abort signal (§5:
// "retry at most a small bounded number of times... before surfacing a
// 500"). Any other error, or exhaustion of retries, is returned as-is.
func withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < maxTransactionRetries; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return err
}
