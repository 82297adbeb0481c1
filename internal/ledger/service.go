package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/observability"
	"github.com/oftenai/often-gateway/internal/pricing"
	"github.com/oftenai/often-gateway/internal/provider"
	"github.com/oftenai/often-gateway/internal/rates"
	"github.com/oftenai/often-gateway/internal/routing"
	"github.com/oftenai/often-gateway/internal/secrets"
	"github.com/oftenai/often-gateway/internal/store"
	"github.com/oftenai/often-gateway/internal/translation"
)

// MinBalanceMicros is the pre-check floor (§4.6 step 3): $0.001.
const MinBalanceMicros = 1000

// UpstreamTimeout bounds the upstream LLM call (§4.6 step 6, §5).
const UpstreamTimeout = 120 * time.Second

// maxTransactionRetries bounds retries of an optimistic-concurrency
// conflict before surfacing a 500 (§5 "Cancellation / timeouts").
const maxTransactionRetries = 3

// CompletionResult is the return value of Complete.
type CompletionResult struct {
	Response     chatapi.Response
	CostMicros   int64
	BalanceAfter int64
	ProviderTag  routing.ProviderTag
}

// Service implements the ledger core (C6), the transfer engine (C7), and
// the conversion engine (C8): pre-check, upstream dispatch, atomic debit +
// journal write, all backed by a store.Store.
type Service struct {
	store     store.Store
	router    *routing.Registry
	providers map[routing.ProviderTag]provider.Provider
	secrets   *secrets.Cache
	pricing   *pricing.Table
	rates     *rates.Oracle
	events    *observability.EventBus
}

// NewService wires the ledger core from its dependencies.
func NewService(
	st store.Store,
	router *routing.Registry,
	providers map[routing.ProviderTag]provider.Provider,
	secretCache *secrets.Cache,
	pricingTable *pricing.Table,
	rateOracle *rates.Oracle,
	events *observability.EventBus,
) *Service {
	return &Service{
		store:     st,
		router:    router,
		providers: providers,
		secrets:   secretCache,
		pricing:   pricingTable,
		rates:     rateOracle,
		events:    events,
	}
}

// publish emits an audit event if an event bus is wired. A nil bus (as in
// tests that pass nil to NewService) is a no-op because of the guard below;
// EventBus.Publish itself only tolerates a nil logger, not a nil receiver.
func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, data)
}

// Complete runs the full ledger-core algorithm (§4.6 steps 1-10) for one
// chat-completion request on behalf of accountID.
func (s *Service) Complete(ctx context.Context, accountID string, req chatapi.Request) (CompletionResult, error) {
	logger := observability.FromContext(ctx)

	if strings.TrimSpace(req.Model) == "" {
		return CompletionResult{}, fmt.Errorf("%w: model is required", ErrValidation)
	}

	route, err := s.router.Resolve(ctx, req.Model)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %s", ErrProviderUnconfigured, err)
	}
	if route.Tag == routing.ProviderAnthropic && len(req.Tools) > 0 {
		return CompletionResult{}, fmt.Errorf("%w: tool use not supported", ErrValidation)
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return CompletionResult{}, ErrAccountNotFound
		}
		return CompletionResult{}, fmt.Errorf("%w: %s", ErrInternal, err)
	}
	if account.Balance(USD) < MinBalanceMicros {
		return CompletionResult{}, ErrInsufficientFunds
	}

	apiKey, err := s.secrets.Get(ctx, route.SecretName)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %s", ErrProviderUnconfigured, err)
	}

	impl, ok := s.providers[route.Tag]
	if !ok {
		return CompletionResult{}, fmt.Errorf("%w: no adapter registered for %s", ErrProviderUnconfigured, route.Tag)
	}

	upstreamCtx, cancel := context.WithTimeout(ctx, UpstreamTimeout)
	defer cancel()

	resp, err := impl.Complete(upstreamCtx, apiKey, req)
	if err != nil {
		return CompletionResult{}, classifyUpstreamError(err)
	}

	cost := s.pricing.Cost(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	logger.Debug("completion priced",
		observability.String("request_model", req.Model),
		observability.String("response_model", resp.Model),
		observability.Int64("cost_micros", cost))

	balanceAfter, err := s.debitUsage(ctx, accountID, cost, route.Tag, resp)
	if err != nil {
		return CompletionResult{}, err
	}

	s.publish(ctx, "ledger.llm_usage", map[string]interface{}{
		"account_id":    accountID,
		"provider":      string(route.Tag),
		"model":         resp.Model,
		"cost_micros":   cost,
		"balance_after": balanceAfter,
	})

	return CompletionResult{
		Response:     resp,
		CostMicros:   cost,
		BalanceAfter: balanceAfter,
		ProviderTag:  route.Tag,
	}, nil
}

func (s *Service) debitUsage(ctx context.Context, accountID string, cost int64, providerTag routing.ProviderTag, resp chatapi.Response) (int64, error) {
	entry := Entry{
		Type:        EntryLLMUsage,
		Description: "llm usage",
		Metadata: map[string]interface{}{
			"provider":         string(providerTag),
			"model":            resp.Model,
			"promptTokens":     resp.Usage.PromptTokens,
			"completionTokens": resp.Usage.CompletionTokens,
		},
	}

	var balanceAfter int64
	err := withRetry(func() error {
		_, after, err := s.store.Debit(ctx, accountID, USD, cost, entry)
		if err != nil {
			return err
		}
		balanceAfter = after
		return nil
	})
	if err != nil {
		var insufficient *store.InsufficientFundsError
		if errors.As(err, &insufficient) {
			return 0, ErrInsufficientFunds
		}
		if errors.Is(err, store.ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("%w: %s", ErrInternal, err)
	}
	return balanceAfter, nil
}

// upstreamStatusError is implemented by each transport package's own
// UpstreamError type (internal/provider/httpchat, internal/provider/
// anthropic) — duck-typed here rather than a shared type to avoid an
// import cycle back into ledger.
type upstreamStatusError interface {
	error
	Status() (code int, detail string)
}

// classifyUpstreamError maps a provider-adapter error to the §7 taxonomy:
// an upstream HTTP error passes its status through; a tool-use rejection
// caught late is a 400; anything else (network, timeout) is 500.
func classifyUpstreamError(err error) error {
	if errors.Is(err, translation.ErrToolsUnsupported) {
		return fmt.Errorf("%w: tool use not supported", ErrValidation)
	}

	var withStatus upstreamStatusError
	if errors.As(err, &withStatus) {
		code, detail := withStatus.Status()
		return &UpstreamError{StatusCode: code, Detail: detail}
	}

	return fmt.Errorf("%w: %s", ErrUpstreamUnreachable, err)
}
