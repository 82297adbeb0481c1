package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/oftenai/often-gateway/internal/provider/openai"
)

// Config represents the gateway configuration.
type Config struct {
	Server   ServerConfig
	CORS     CORSConfig
	OpenAI   openai.Config
	Store    StoreConfig
	Identity IdentityConfig
	Secrets  SecretsConfig
	Rates    RatesConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// StoreConfig selects and configures the persistence backend (§4.3, §9's
// "per-document serialization" requirement). Backend is one of "memory"
// (tests/local dev), "postgres", or "sqlite".
type StoreConfig struct {
	Backend     string `env:"STORE_BACKEND"      envDefault:"memory"`
	PostgresDSN string `env:"STORE_POSTGRES_DSN"`
	SQLitePath  string `env:"STORE_SQLITE_PATH"  envDefault:"./often-gateway.db"`
}

// IdentityConfig holds the shared secrets the dual identity backend (C5)
// and the admin endpoint need. The spec names FIREBASE_WEB_API_KEY for a
// Firebase-backed identity service; this gateway substitutes its own
// HMAC+wallet dual scheme (see DESIGN.md), so HMACSigningSecret takes that
// variable's place as the one secret this process must be handed.
type IdentityConfig struct {
	HMACSigningSecret string `env:"HMAC_SIGNING_SECRET" envDefault:"dev-only-insecure-secret"`
	AdminAPIKey       string `env:"ADMIN_API_KEY"       envDefault:""`
}

// SecretsConfig selects the provider-API-key secret backend (C4): "env"
// resolves secret names as environment variables directly; "redis" reads
// them from a shared cache server, for multi-instance deployments.
type SecretsConfig struct {
	Backend    string `env:"SECRETS_BACKEND"    envDefault:"env"`
	RedisAddr  string `env:"SECRETS_REDIS_ADDR" envDefault:"localhost:6379"`
	GCPProject string `env:"GCP_PROJECT"` // parsed but not read: neither the env nor the redis backend uses it
}

// RatesConfig configures the currency-conversion rate oracle (C10).
type RatesConfig struct {
	BaseURL string `env:"RATES_BASE_URL" envDefault:"https://api.coingecko.com/api/v3"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*openai.Config
	*StoreConfig
	*IdentityConfig
	*SecretsConfig
	*RatesConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.OpenAI,
		&cfg.Store,
		&cfg.Identity,
		&cfg.Secrets,
		&cfg.Rates,
	}
}
