package rates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/rates"
)

type stubFetcher struct {
	price float64
	err   error
	calls int
}

func (s *stubFetcher) FetchUSDPrice(context.Context, domain.Currency) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func TestUSDPrice_USDNeverFetched(t *testing.T) {
	fetcher := &stubFetcher{price: 1234}
	oracle := rates.NewOracle(fetcher)

	price, err := oracle.USDPrice(context.Background(), domain.USD)
	require.NoError(t, err)
	require.Equal(t, float64(1), price)
	require.Equal(t, 0, fetcher.calls)
}

func TestUSDPrice_CachesWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{price: 3000}
	oracle := rates.NewOracle(fetcher)

	p1, err := oracle.USDPrice(context.Background(), domain.ETH)
	require.NoError(t, err)
	p2, err := oracle.USDPrice(context.Background(), domain.ETH)
	require.NoError(t, err)

	require.Equal(t, p1, p2)
	require.Equal(t, 1, fetcher.calls)
}

func TestUSDPrice_WithinTTLServesCacheEvenWhenFetcherFails(t *testing.T) {
	fetcher := &stubFetcher{price: 50000}
	oracle := rates.NewOracle(fetcher)

	_, err := oracle.USDPrice(context.Background(), domain.BTC)
	require.NoError(t, err)

	fetcher.err = errors.New("oracle down")
	price, err := oracle.USDPrice(context.Background(), domain.BTC)
	require.NoError(t, err)
	require.Equal(t, float64(50000), price)
	require.Equal(t, 1, fetcher.calls)
}

func TestUSDPrice_PropagatesFailureWithNoSnapshot(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("oracle down")}
	oracle := rates.NewOracle(fetcher)

	_, err := oracle.USDPrice(context.Background(), domain.SOL)
	require.ErrorIs(t, err, rates.ErrNoSnapshot)
}
