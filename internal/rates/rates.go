// Package rates implements the rate oracle client (C10/C14): fetches USD
// prices for non-USD currencies with a 60s TTL cache and stale-on-failure
// fallback. USD is pinned to 1 and never fetched.
package rates

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oftenai/often-gateway/internal/domain"
)

// TTL is the freshness window for a cached rate (§4.10: 60 seconds).
const TTL = 60 * time.Second

// ErrNoSnapshot is returned when the oracle has failed and no prior
// snapshot exists to fall back to.
var ErrNoSnapshot = errors.New("rates: upstream unavailable and no snapshot cached")

// Fetcher fetches a fresh USD price for a single non-USD currency.
type Fetcher interface {
	FetchUSDPrice(ctx context.Context, currency domain.Currency) (float64, error)
}

type snapshot struct {
	price     float64
	fetchedAt time.Time
}

// Oracle serves USD prices with a TTL cache; on fetch failure it serves the
// last good snapshot regardless of age, and only propagates the failure
// when no snapshot has ever been obtained. This favors availability over
// freshness, a deliberate CAP-theorem choice (§9).
type Oracle struct {
	fetcher Fetcher

	mu        sync.Mutex
	snapshots map[domain.Currency]snapshot
}

// NewOracle wraps fetcher with the TTL/stale-fallback cache.
func NewOracle(fetcher Fetcher) *Oracle {
	return &Oracle{fetcher: fetcher, snapshots: make(map[domain.Currency]snapshot)}
}

// USDPrice returns the USD price of one whole unit of currency. USD itself
// is pinned to 1 without ever touching the fetcher.
func (o *Oracle) USDPrice(ctx context.Context, currency domain.Currency) (float64, error) {
	if currency == domain.USD {
		return 1, nil
	}

	o.mu.Lock()
	cached, ok := o.snapshots[currency]
	o.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) < TTL {
		return cached.price, nil
	}

	price, err := o.fetcher.FetchUSDPrice(ctx, currency)
	if err != nil {
		if ok {
			return cached.price, nil
		}
		return 0, ErrNoSnapshot
	}

	o.mu.Lock()
	o.snapshots[currency] = snapshot{price: price, fetchedAt: time.Now()}
	o.mu.Unlock()

	return price, nil
}
