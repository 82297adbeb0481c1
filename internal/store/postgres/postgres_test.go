//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/store"
	pgstore "github.com/oftenai/often-gateway/internal/store/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "postgres://localhost:5432/often_gateway_test?sslmode=disable"
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(context.Background()), "postgres not available")
	t.Cleanup(pool.Close)
	return pool
}

func newTestStore(t *testing.T) *pgstore.Store {
	t.Helper()
	pool := newTestPool(t)
	prefix := fmt.Sprintf("test_%s_", t.Name())
	s := pgstore.New(pool, pgstore.WithTablePrefix(prefix))

	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() {
		pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %sentries, %saccounts CASCADE", prefix, prefix))
	})
	return s
}

func TestCreateAndGetAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc, err := s.CreateAccount(ctx, "acct-1", "a@example.com")
	require.NoError(t, err)
	require.Equal(t, int64(0), acc.Balance(domain.USD))

	fetched, err := s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, acc.ID, fetched.ID)
}

func TestDebitCredit_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, "acct-1", "a@example.com")
	require.NoError(t, err)

	_, after, err := s.Credit(ctx, "acct-1", domain.USD, 10_000, domain.Entry{Type: domain.EntryDeposit})
	require.NoError(t, err)
	require.Equal(t, int64(10_000), after)

	_, after, err = s.Debit(ctx, "acct-1", domain.USD, 3_000, domain.Entry{Type: domain.EntryLLMUsage})
	require.NoError(t, err)
	require.Equal(t, int64(7_000), after)
}

func TestDebit_InsufficientFunds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, "acct-1", "a@example.com")
	require.NoError(t, err)

	_, _, err = s.Debit(ctx, "acct-1", domain.USD, 500, domain.Entry{Type: domain.EntryLLMUsage})
	require.Error(t, err)
	var insufficient *store.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
}

func TestTransfer_LockOrderingHandlesBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, "acct-a", "a@example.com")
	require.NoError(t, err)
	_, err = s.CreateAccount(ctx, "acct-b", "b@example.com")
	require.NoError(t, err)
	_, _, err = s.Credit(ctx, "acct-a", domain.USD, 5_000, domain.Entry{Type: domain.EntryDeposit})
	require.NoError(t, err)
	_, _, err = s.Credit(ctx, "acct-b", domain.USD, 5_000, domain.Entry{Type: domain.EntryDeposit})
	require.NoError(t, err)

	// One transfer a->b, one b->a concurrently; lexicographic lock
	// ordering in the store must prevent a deadlock either way.
	errs := make(chan error, 2)
	go func() {
		_, _, _, _, err := s.Transfer(ctx, "acct-a", "acct-b", domain.USD, 1_000, "1")
		errs <- err
	}()
	go func() {
		_, _, _, _, err := s.Transfer(ctx, "acct-b", "acct-a", domain.USD, 1_000, "2")
		errs <- err
	}()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	accA, err := s.GetAccount(ctx, "acct-a")
	require.NoError(t, err)
	accB, err := s.GetAccount(ctx, "acct-b")
	require.NoError(t, err)
	require.Equal(t, int64(5_000), accA.Balance(domain.USD))
	require.Equal(t, int64(5_000), accB.Balance(domain.USD))
}

func TestConvert_DebitsFromCreditsTo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, "acct-1", "a@example.com")
	require.NoError(t, err)
	_, _, err = s.Credit(ctx, "acct-1", domain.USD, 10_000, domain.Entry{Type: domain.EntryDeposit})
	require.NoError(t, err)

	fromAfter, toAfter, entry, err := s.Convert(ctx, "acct-1", domain.USD, domain.USDC, 4_000, 3_980, 0.995)
	require.NoError(t, err)
	require.Equal(t, int64(6_000), fromAfter)
	require.Equal(t, int64(3_980), toAfter)
	require.Equal(t, domain.EntryConversion, entry.Type)
}

func TestListTransactions_RespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateAccount(ctx, "acct-1", "a@example.com")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := s.Credit(ctx, "acct-1", domain.USD, 100, domain.Entry{Type: domain.EntryDeposit})
		require.NoError(t, err)
	}

	entries, err := s.ListTransactions(ctx, "acct-1", 3, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
