package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oftenai/often-gateway/internal/identity"
	"github.com/oftenai/often-gateway/internal/identity/hmac"
	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/observability"
)

// errForbiddenAdmin is raised by AdminAuth on a mismatched X-Admin-Key.
var errForbiddenAdmin = errors.New("httpserver: admin key mismatch")

// errorEnvelope is the JSON body shape for every error response.
type errorEnvelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps err to the §7 taxonomy's status code and writes the
// error envelope. Unknown errors are treated as INTERNAL (500) and never
// echo the underlying error text, so store/provider internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, detail := classify(err)

	if status >= 500 {
		observability.FromContext(r.Context()).Error("request failed",
			observability.String("code", code))
	}

	writeJSON(w, status, errorEnvelope{Error: code, Detail: detail})
}

func classify(err error) (status int, code, detail string) {
	var upstream *ledger.UpstreamError
	switch {
	case errors.Is(err, identity.ErrUnauthenticated), errors.Is(err, hmac.ErrInvalidToken):
		return http.StatusUnauthorized, "UNAUTHENTICATED", ""
	case errors.Is(err, hmac.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_TOKEN", ""
	case errors.Is(err, errForbiddenAdmin):
		return http.StatusForbidden, "FORBIDDEN_ADMIN", ""
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, "VALIDATION", err.Error()
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND", ""
	case errors.Is(err, ledger.ErrRecipientNotFound):
		return http.StatusNotFound, "RECIPIENT_NOT_FOUND", ""
	case errors.Is(err, ledger.ErrSenderNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND", ""
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", ""
	case errors.Is(err, ledger.ErrProviderUnconfigured):
		return http.StatusServiceUnavailable, "PROVIDER_UNCONFIGURED", ""
	case errors.As(err, &upstream):
		return upstream.StatusCode, "UPSTREAM_ERROR", upstream.Detail
	case errors.Is(err, ledger.ErrUpstreamUnreachable):
		return http.StatusInternalServerError, "UPSTREAM_UNREACHABLE", ""
	default:
		return http.StatusInternalServerError, "INTERNAL", ""
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
