package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oftenai/often-gateway/internal/chatapi"
	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/identity/hmac"
	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/pricing"
	"github.com/oftenai/often-gateway/internal/routing"
	"github.com/oftenai/often-gateway/internal/store"
)

// maxTransactionsPageSize bounds ?limit on /getTransactions (§6).
const maxTransactionsPageSize = 100

// Handler holds every dependency the ten endpoints need and implements one
// method per endpoint, grounded on the teacher's httpserver.Handler shape.
type Handler struct {
	ledger  *ledger.Service
	auth    *hmac.Service
	store   store.Store
	pricing *pricing.Table
	router  *routing.Registry
}

// NewHandler wires a Handler from its dependencies.
func NewHandler(ledgerSvc *ledger.Service, authSvc *hmac.Service, st store.Store, pricingTable *pricing.Table, router *routing.Registry) *Handler {
	return &Handler{ledger: ledgerSvc, auth: authSvc, store: st, pricing: pricingTable, router: router}
}

// modelListing is one row of GET /v1/models.
type modelListing struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Pricing  struct {
		InputPerMillionUSD  float64 `json:"input_per_million_tokens_usd"`
		OutputPerMillionUSD float64 `json:"output_per_million_tokens_usd"`
	} `json:"pricing"`
}

// ListModels serves GET /v1/models: no auth, every model with an explicit
// pricing row, tagged with the provider it currently routes to.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	ids := h.pricing.Models()
	listings := make([]modelListing, 0, len(ids))
	for _, id := range ids {
		rate, _ := h.pricing.Lookup(id)
		listing := modelListing{ID: id, Provider: string(h.router.Classify(r.Context(), id))}
		listing.Pricing.InputPerMillionUSD = microsToUSD(rate.InputPerMillion)
		listing.Pricing.OutputPerMillionUSD = microsToUSD(rate.OutputPerMillion)
		listings = append(listings, listing)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": listings})
}

func microsToUSD(micros int64) float64 {
	return float64(micros) / 1_000_000
}

// ChatCompletions serves POST /v1/chat/completions (Bearer): prices and
// debits one completion, then returns the canonical response body with the
// §4.6 cost/balance/provider headers.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, ledger.ErrInternal)
		return
	}

	var req chatapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	result, err := h.ledger.Complete(r.Context(), accountID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("X-Often-Cost-Micros", strconv.FormatInt(result.CostMicros, 10))
	w.Header().Set("X-Often-Balance-Micros", strconv.FormatInt(result.BalanceAfter, 10))
	w.Header().Set("X-Often-Provider", string(result.ProviderTag))
	writeJSON(w, http.StatusOK, result.Response)
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	UID          string `json:"uid"`
}

func tokenResponseOf(pair hmac.TokenPair) tokenResponse {
	return tokenResponse{
		IDToken:      pair.IDToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		UID:          pair.UID,
	}
}

// Signup serves POST /signup (no auth): creates a ledger account and
// credential record, returning a fresh token pair with 201.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	pair, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, badRequest(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponseOf(pair))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login serves POST /login (no auth).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponseOf(pair))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh serves POST /refresh (no auth).
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponseOf(pair))
}

type accountResponse struct {
	UID                 string                    `json:"uid"`
	Balances            map[domain.Currency]int64 `json:"balances"`
	Status              domain.AccountStatus      `json:"status"`
	SupportedCurrencies []domain.Currency         `json:"supportedCurrencies"`
}

// GetAccount serves GET /getAccount (Bearer): the caller's own account
// only, since the account id comes from the verified token, never a
// request parameter.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, ledger.ErrInternal)
		return
	}

	account, err := h.store.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, r, mapStoreNotFound(err))
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		UID:                 account.ID,
		Balances:            account.Balances,
		Status:              account.Status,
		SupportedCurrencies: domain.SupportedCurrencies,
	})
}

// GetTransactions serves GET /getTransactions (Bearer): ?limit<=100 and
// ?startAfter=<txId> paginate the caller's own journal, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, ledger.ErrInternal)
		return
	}

	limit := maxTransactionsPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}
	startAfter := r.URL.Query().Get("startAfter")

	entries, err := h.store.ListTransactions(r.Context(), accountID, limit, startAfter)
	if err != nil {
		writeError(w, r, mapStoreNotFound(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": entries})
}

type depositRequest struct {
	AccountID string          `json:"accountId"`
	Amount    int64           `json:"amount"`
	Currency  domain.Currency `json:"currency"`
}

type balanceResponse struct {
	Currency domain.Currency `json:"currency"`
	Balance  int64           `json:"balance"`
}

// Deposit serves POST /deposit (X-Admin-Key): credits accountId by amount
// in currency, appending a deposit journal entry. Auth is handled entirely
// by AdminAuth; a request that reaches this handler already passed it.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	balance, err := h.ledger.Deposit(r.Context(), req.AccountID, req.Currency, req.Amount, "admin deposit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Currency: req.Currency, Balance: balance})
}

type transferRequest struct {
	ToAccountID string          `json:"toAccountId"`
	Amount      int64           `json:"amount"`
	Currency    domain.Currency `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// Transfer serves POST /transfer (Bearer): moves amount of currency from
// the caller's account to toAccountId.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, ledger.ErrInternal)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	result, err := h.ledger.Transfer(r.Context(), accountID, req.ToAccountID, req.Currency, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Currency: req.Currency, Balance: result.SenderBalance})
}

type convertRequest struct {
	From   domain.Currency `json:"from"`
	To     domain.Currency `json:"to"`
	Amount int64           `json:"amount"`
}

type convertedAmount struct {
	From   domain.Currency `json:"from"`
	To     domain.Currency `json:"to"`
	Amount int64           `json:"amount"`
	Rate   float64         `json:"rate"`
}

// Convert serves POST /convert (Bearer): moves amount of From into To on
// the caller's own account at the current oracle rate.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, ledger.ErrInternal)
		return
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("malformed request body"))
		return
	}

	result, err := h.ledger.Convert(r.Context(), accountID, req.From, req.To, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"converted": convertedAmount{From: req.From, To: req.To, Amount: result.Converted, Rate: result.RateUsed},
		"balances": map[domain.Currency]int64{
			req.From: result.FromBalance,
			req.To:   result.ToBalance,
		},
	})
}

// mapStoreNotFound translates a raw store.ErrAccountNotFound (which
// GetAccount/ListTransactions may return directly, bypassing ledger.Service)
// into the ledger-level sentinel the error classifier understands.
func mapStoreNotFound(err error) error {
	if errors.Is(err, store.ErrAccountNotFound) {
		return ledger.ErrAccountNotFound
	}
	return ledger.ErrInternal
}

type validationError struct{ detail string }

func (e *validationError) Error() string { return e.detail }
func (e *validationError) Unwrap() error { return ledger.ErrValidation }

func badRequest(detail string) error {
	return &validationError{detail: detail}
}
