package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/pricing"
	"github.com/oftenai/often-gateway/internal/provider"
	"github.com/oftenai/often-gateway/internal/provider/echo"
	"github.com/oftenai/often-gateway/internal/rates"
	"github.com/oftenai/often-gateway/internal/routing"
	"github.com/oftenai/often-gateway/internal/secrets"
	"github.com/oftenai/often-gateway/internal/store"
	"github.com/oftenai/often-gateway/internal/store/memstore"
)

// stubSecretStore always resolves every secret name to a fixed value,
// so tests never touch the environment or a network.
type stubSecretStore struct{}

func (stubSecretStore) Fetch(_ context.Context, _ string) (string, error) { return "test-key", nil }

// newEchoService builds a Service whose sole route is the echo provider,
// tagged as "together" so the default catch-all prefix resolves to it.
func newEchoService(t *testing.T, st store.Store, script echo.Script) *ledger.Service {
	t.Helper()

	reg := routing.NewRegistry(routing.ProviderTogether)
	reg.RegisterRoute(routing.Route{
		Tag:        routing.ProviderTogether,
		BaseURL:    "unused",
		SecretName: "together_api_key",
		AuthHeader: func(secret string) (string, string) { return "Authorization", "Bearer " + secret },
	})

	providers := map[routing.ProviderTag]provider.Provider{
		routing.ProviderTogether: &echo.Provider{Script: script},
	}

	secretCache := secrets.NewCache(stubSecretStore{})
	pricingTable := pricing.DefaultTable()
	rateOracle := rates.NewOracle(noFetch{})

	return ledger.NewService(st, reg, providers, secretCache, pricingTable, rateOracle, nil)
}

// noFetch is a rates.Fetcher that's never expected to be called because
// these tests only ever touch USD, which the oracle pins without fetching.
type noFetch struct{}

func (noFetch) FetchUSDPrice(_ context.Context, _ domain.Currency) (float64, error) {
	panic("unexpected fetch")
}

func seedAccount(t *testing.T, st store.Store, id string, usdMicros int64) {
	t.Helper()
	ctx := context.Background()
	_, err := st.CreateAccount(ctx, id, id+"@example.com")
	require.NoError(t, err)
	if usdMicros > 0 {
		_, _, err := st.Credit(ctx, id, ledger.USD, usdMicros, ledger.Entry{Type: ledger.EntryDeposit, Description: "seed"})
		require.NoError(t, err)
	}
}

func TestComplete_DebitsExactCostOnSuccess(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 50_000)

	svc := newEchoService(t, st, func(req chatapi.Request) (chatapi.Response, error) {
		return chatapi.Response{
			Model:   "gpt-4o",
			Choices: []chatapi.Choice{{Message: chatapi.Message{Role: "assistant", Content: "hi"}}},
			Usage:   chatapi.Usage{PromptTokens: 100, CompletionTokens: 50},
		}, nil
	})

	result, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
		Model:    "llama-3-70b",
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7500), result.CostMicros)
	require.Equal(t, int64(42_500), result.BalanceAfter)

	account, err := st.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(42_500), account.Balance(ledger.USD))

	entries, err := st.ListTransactions(context.Background(), "acct-1", 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 2) // seed deposit + llm_usage
	require.Equal(t, ledger.EntryLLMUsage, entries[0].Type)
}

// TestComplete_S4_BillsResponseModelNotRequestModel reproduces the seed
// scenario where the request claims gpt-3.5-turbo but upstream reports
// gpt-4o: the charge must follow the response's model.
func TestComplete_S4_BillsResponseModelNotRequestModel(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 1_000_000)

	svc := newEchoService(t, st, func(req chatapi.Request) (chatapi.Response, error) {
		require.Equal(t, "gpt-3.5-turbo", req.Model)
		return chatapi.Response{
			Model:   "gpt-4o",
			Choices: []chatapi.Choice{{Message: chatapi.Message{Role: "assistant", Content: "hi"}}},
			Usage:   chatapi.Usage{PromptTokens: 100, CompletionTokens: 50},
		}, nil
	})

	result, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
		Model:    "gpt-3.5-turbo",
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7500), result.CostMicros)
	require.NotEqual(t, pricing.DefaultTable().Cost("gpt-3.5-turbo", 100, 50), result.CostMicros)
}

// TestComplete_S3_RaceUnderOneCent reproduces the concurrency seed
// scenario: a $0.01 account, 50 concurrent requests each costing the full
// balance, exactly one of which may succeed.
func TestComplete_S3_RaceUnderOneCent(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 10_000)

	svc := newEchoService(t, st, func(req chatapi.Request) (chatapi.Response, error) {
		return chatapi.Response{
			Model:   "gpt-4o",
			Choices: []chatapi.Choice{{Message: chatapi.Message{Role: "assistant", Content: "hi"}}},
			Usage:   chatapi.Usage{PromptTokens: 4000, CompletionTokens: 0},
		}, nil
	})

	const concurrency = 50
	var wg sync.WaitGroup
	var successes, failures int64
	var mu sync.Mutex

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
				Model:    "llama-3-70b",
				Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				require.True(t, errors.Is(err, ledger.ErrInsufficientFunds))
				failures++
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, successes)
	require.EqualValues(t, concurrency-1, failures)

	account, err := st.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Balance(ledger.USD))

	entries, err := st.ListTransactions(context.Background(), "acct-1", 100, "")
	require.NoError(t, err)
	usageEntries := 0
	for _, e := range entries {
		if e.Type == ledger.EntryLLMUsage {
			usageEntries++
		}
	}
	require.Equal(t, 1, usageEntries)
}

func TestComplete_InsufficientFundsBelowMinBalance(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 500) // below MinBalanceMicros

	svc := newEchoService(t, st, nil)

	_, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
		Model:    "llama-3-70b",
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestComplete_EmptyModelIsValidationError(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 1_000_000)
	svc := newEchoService(t, st, nil)

	_, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestComplete_UnknownAccountIsAccountNotFound(t *testing.T) {
	st := memstore.New()
	svc := newEchoService(t, st, nil)

	_, err := svc.Complete(context.Background(), "ghost", chatapi.Request{
		Model:    "llama-3-70b",
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestComplete_UpstreamErrorPassesThroughStatus(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "acct-1", 1_000_000)

	upstreamErr := &echoUpstreamError{StatusCode: 429, Detail: "rate limited"}
	svc := newEchoService(t, st, func(req chatapi.Request) (chatapi.Response, error) {
		return chatapi.Response{}, upstreamErr
	})

	_, err := svc.Complete(context.Background(), "acct-1", chatapi.Request{
		Model:    "llama-3-70b",
		Messages: []chatapi.Message{{Role: "user", Content: "hello"}},
	})
	var withStatus *ledger.UpstreamError
	require.ErrorAs(t, err, &withStatus)
	require.Equal(t, 429, withStatus.StatusCode)
}

// echoUpstreamError satisfies the duck-typed upstreamStatusError interface
// internal/ledger uses to classify provider-adapter errors.
type echoUpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *echoUpstreamError) Error() string         { return e.Detail }
func (e *echoUpstreamError) Status() (int, string) { return e.StatusCode, e.Detail }
