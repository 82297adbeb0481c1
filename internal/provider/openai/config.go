package openai

// Config contains OpenAI provider configuration. BaseURL is passed to
// option.WithBaseURL(). APIKey and MaxRetries are parsed but not read by
// the adapter, which takes its key from the secret cache per request;
// Timeout is stored on the adapter but does not set a request deadline,
// which comes from the caller's context.
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://api.openai.com/v1"`
	Timeout    int    `env:"OPENAI_TIMEOUT"     envDefault:"60"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"3"`
}

// NewFromConfig builds an Adapter from a parsed Config.
func NewFromConfig(cfg Config) *Adapter {
	return New(cfg.BaseURL, cfg.Timeout)
}
