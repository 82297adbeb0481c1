package ledger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/observability"
	"github.com/oftenai/often-gateway/internal/pricing"
	"github.com/oftenai/often-gateway/internal/provider"
	"github.com/oftenai/often-gateway/internal/provider/echo"
	"github.com/oftenai/often-gateway/internal/rates"
	"github.com/oftenai/often-gateway/internal/routing"
	"github.com/oftenai/often-gateway/internal/secrets"
	"github.com/oftenai/often-gateway/internal/store/memstore"
)

// TestDeposit_S1_RoundTrip reproduces the seed scenario: admin deposits
// 10_000_000 USD into a fresh account.
func TestDeposit_S1_RoundTrip(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 0)
	svc := newEchoService(t, st, nil)

	balanceAfter, err := svc.Deposit(context.Background(), "a", ledger.USD, 10_000_000, "initial credit")
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), balanceAfter)

	acc, err := st.GetAccount(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), acc.Balance(ledger.USD))

	entries, err := st.ListTransactions(context.Background(), "a", 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.EntryDeposit, entries[0].Type)
	require.Equal(t, int64(10_000_000), entries[0].Amount)
}

func TestDeposit_UnknownAccountIsAccountNotFound(t *testing.T) {
	st := memstore.New()
	svc := newEchoService(t, st, nil)

	_, err := svc.Deposit(context.Background(), "ghost", ledger.USD, 100, "x")
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestDeposit_ZeroOrNegativeAmountIsValidationError(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 0)
	svc := newEchoService(t, st, nil)

	_, err := svc.Deposit(context.Background(), "a", ledger.USD, 0, "x")
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Deposit(context.Background(), "a", ledger.USD, -1, "x")
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDeposit_UnsupportedCurrencyIsValidationError(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 0)
	svc := newEchoService(t, st, nil)

	_, err := svc.Deposit(context.Background(), "a", "DOGE", 100, "x")
	require.ErrorIs(t, err, ledger.ErrValidation)
}

// TestDeposit_PublishesAuditEvent confirms a successful deposit emits a
// ledger.deposit event on the wired event bus, not just the store mutation.
func TestDeposit_PublishesAuditEvent(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 0)

	reg := routing.NewRegistry(routing.ProviderTogether)
	reg.RegisterRoute(routing.Route{
		Tag:        routing.ProviderTogether,
		BaseURL:    "unused",
		SecretName: "together_api_key",
		AuthHeader: func(secret string) (string, string) { return "Authorization", "Bearer " + secret },
	})
	providers := map[routing.ProviderTag]provider.Provider{
		routing.ProviderTogether: &echo.Provider{},
	}

	var buf bytes.Buffer
	bus := observability.NewEventBus(slog.New(slog.NewTextHandler(&buf, nil)))

	svc := ledger.NewService(st, reg, providers, secrets.NewCache(stubSecretStore{}), pricing.DefaultTable(), rates.NewOracle(noFetch{}), bus)

	_, err := svc.Deposit(context.Background(), "a", ledger.USD, 1_000, "top up")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "ledger.deposit")
	require.Contains(t, buf.String(), "account_id=a")
}
