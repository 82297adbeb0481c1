// Command gateway runs the metered LLM gateway HTTP server: request
// routing, cost accounting, and the ledger's HTTP surface, wired together
// with go.uber.org/dig the same way the teacher's cmd/main.go composes its
// container.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/oftenai/often-gateway/internal/config"
	"github.com/oftenai/often-gateway/internal/httpserver"
	"github.com/oftenai/often-gateway/internal/identity"
	"github.com/oftenai/often-gateway/internal/identity/hmac"
	"github.com/oftenai/often-gateway/internal/identity/wallet"
	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/observability"
	"github.com/oftenai/often-gateway/internal/pricing"
	"github.com/oftenai/often-gateway/internal/provider"
	"github.com/oftenai/often-gateway/internal/provider/anthropic"
	"github.com/oftenai/often-gateway/internal/provider/google"
	"github.com/oftenai/often-gateway/internal/provider/mistral"
	"github.com/oftenai/often-gateway/internal/provider/openai"
	"github.com/oftenai/often-gateway/internal/provider/together"
	"github.com/oftenai/often-gateway/internal/rates"
	"github.com/oftenai/often-gateway/internal/routing"
	"github.com/oftenai/often-gateway/internal/secrets"
	"github.com/oftenai/often-gateway/internal/store"
	"github.com/oftenai/often-gateway/internal/store/memstore"
	"github.com/oftenai/often-gateway/internal/store/postgres"
	"github.com/oftenai/often-gateway/internal/store/sqlite"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(cfg *config.ServerConfig, srv *http.Server) {
		log.Printf("often-gateway listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	provideOrDie(container, config.Load)
	provideOrDie(container, config.ParseDependenciesConfig)
	provideOrDie(container, observability.InitLogger)
	provideOrDie(container, observability.NewDefaultEventBus)

	provideOrDie(container, routing.DefaultRegistry)
	provideOrDie(container, providerTable)

	provideOrDie(container, newSecretCache)
	provideOrDie(container, newRateOracle)
	provideOrDie(container, newLedgerStore)

	provideOrDie(container, newHMACManager)
	provideOrDie(container, newCredentialStore)
	provideOrDie(container, hmac.NewService)
	provideOrDie(container, newWalletVerifier)
	provideOrDie(container, newIdentityVerifier)

	provideOrDie(container, pricing.DefaultTable)
	provideOrDie(container, ledger.NewService)

	provideOrDie(container, httpserver.NewHandler)
	provideOrDie(container, newHTTPServer)

	return container
}

func provideOrDie(container *dig.Container, ctor interface{}) {
	if err := container.Provide(ctor); err != nil {
		log.Fatalf("dig: failed to provide %T: %v", ctor, err)
	}
}

// providerTable builds every configured upstream adapter and keys it by
// the routing tag it serves; the together catch-all is a real HTTP adapter
// against api.together.xyz.
func providerTable(cfg *openai.Config) map[routing.ProviderTag]provider.Provider {
	bearerAuth := func(secret string) (string, string) { return "Authorization", "Bearer " + secret }

	return map[routing.ProviderTag]provider.Provider{
		routing.ProviderOpenAI:    openai.NewFromConfig(*cfg),
		routing.ProviderAnthropic: anthropic.New("https://api.anthropic.com", 120*time.Second),
		routing.ProviderGoogle:    google.New("https://generativelanguage.googleapis.com/v1beta/openai", bearerAuth, 120*time.Second),
		routing.ProviderMistral:   mistral.New("https://api.mistral.ai/v1", bearerAuth, 120*time.Second),
		routing.ProviderTogether:  together.New("https://api.together.xyz/v1", bearerAuth, 120*time.Second),
	}
}

func newSecretCache(cfg *config.SecretsConfig, logger *zap.Logger) *secrets.Cache {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return secrets.NewCache(secrets.NewRedisStore(client, "often:secret:"))
	default:
		logger.Info("secrets backend", zap.String("backend", "env"))
		return secrets.NewCache(secrets.EnvStore{})
	}
}

func newRateOracle(cfg *config.RatesConfig) *rates.Oracle {
	return rates.NewOracle(rates.NewHTTPFetcher(cfg.BaseURL))
}

// newLedgerStore selects the persistence backend named by cfg.Backend,
// defaulting to the in-process memstore for local development and tests.
func newLedgerStore(cfg *config.StoreConfig) store.Store {
	switch cfg.Backend {
	case "postgres":
		pool, err := pgxPool(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("store/postgres: %v", err)
		}
		pgStore := postgres.New(pool)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("store/postgres: ensure schema: %v", err)
		}
		return pgStore
	case "sqlite":
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("store/sqlite: %v", err)
		}
		return sqliteStore
	default:
		return memstore.New()
	}
}

func pgxPool(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return pgxpool.New(ctx, dsn)
}

// newHMACManager unwraps the configured signing secret for hmac.NewManager,
// which dig couldn't inject directly — a bare string isn't a type dig can
// resolve unambiguously against the rest of the config struct's fields.
func newHMACManager(cfg *config.IdentityConfig) (*hmac.Manager, error) {
	return hmac.NewManager(cfg.HMACSigningSecret)
}

func newCredentialStore() hmac.CredentialStore {
	return hmac.NewMemCredentialStore()
}

func newWalletVerifier() *wallet.Verifier {
	return wallet.NewVerifier(wallet.NewRegistry())
}

// newIdentityVerifier composes the password and wallet backends behind one
// identity.Verifier so /getAccount and friends don't need to know which
// credential type authenticated the caller.
func newIdentityVerifier(hmacManager *hmac.Manager, walletVerifier *wallet.Verifier) identity.Verifier {
	return identity.NewDual(hmacManager, walletVerifier)
}

func newHTTPServer(cfg *config.ServerConfig, corsCfg *config.CORSConfig, identityCfg *config.IdentityConfig, h *httpserver.Handler, verifier identity.Verifier) *http.Server {
	router := httpserver.Router(h, verifier, identityCfg.AdminAPIKey, corsFromConfig(corsCfg))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

func corsFromConfig(cfg *config.CORSConfig) *httpserver.CORSConfig {
	return &httpserver.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}
