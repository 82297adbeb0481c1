package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/oftenai/often-gateway/internal/identity"
)

// Router builds the gateway's full chi router: public routes, Bearer-
// protected routes, and the single X-Admin-Key route, each under the
// middleware chain its auth mode requires (§6).
func Router(h *Handler, verifier identity.Verifier, adminKey string, corsCfg *CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(corsCfg))
	r.Use(Trace())

	bearer := BearerAuth(verifier)
	admin := AdminAuth(adminKey)

	r.Get("/v1/models", h.ListModels)
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)

	r.Group(func(protected chi.Router) {
		protected.Use(bearer)
		protected.Post("/v1/chat/completions", h.ChatCompletions)
		protected.Get("/getAccount", h.GetAccount)
		protected.Get("/getTransactions", h.GetTransactions)
		protected.Post("/transfer", h.Transfer)
		protected.Post("/convert", h.Convert)
	})

	r.Group(func(adminRoutes chi.Router) {
		adminRoutes.Use(admin)
		adminRoutes.Post("/deposit", h.Deposit)
	})

	return r
}
