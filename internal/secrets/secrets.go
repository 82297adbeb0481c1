// Package secrets implements the secret cache (C4/C13): a TTL-cached lookup
// of upstream API keys by logical name. The cache itself is an
// hashicorp/golang-lru/v2/expirable.LRU wrapping a backing Store — either an
// env-var-backed local Store or a Redis-backed Store for multi-instance
// deployments (repurposed from the teacher's internal/cache/redis vector
// search client, which already wired go-redis/v9, into a plain string
// cache).
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTL is the freshness window for a cached secret (§4.4: 5 minutes).
const TTL = 5 * time.Minute

// ErrNotFound is returned when the backing store has no value for a secret
// name. The gateway surfaces this to the caller as an upstream-unavailable
// condition (HTTP 503 at the boundary).
var ErrNotFound = errors.New("secrets: not found")

// Store fetches the current value of a named secret from a backing system.
type Store interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Cache is a TTL-cached front for a Store. Reads return the cached value
// when unexpired; on miss or expiry it fetches once and repopulates.
// Concurrent identical in-flight fetches are collapsed via singleflight-
// style per-key locking so a cache stampede triggers at most one fetch.
type Cache struct {
	store Store
	lru   *expirable.LRU[string, string]

	mu      sync.Mutex
	inFlight map[string]*sync.WaitGroup
}

// NewCache wraps store with a TTL cache.
func NewCache(store Store) *Cache {
	return &Cache{
		store:    store,
		lru:      expirable.NewLRU[string, string](256, nil, TTL),
		inFlight: make(map[string]*sync.WaitGroup),
	}
}

// Get returns the secret named name, fetching and caching it on a miss.
func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	if v, ok := c.lru.Get(name); ok {
		return v, nil
	}

	c.mu.Lock()
	if wg, waiting := c.inFlight[name]; waiting {
		c.mu.Unlock()
		wg.Wait()
		if v, ok := c.lru.Get(name); ok {
			return v, nil
		}
		return "", ErrNotFound
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.inFlight[name] = wg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, name)
		c.mu.Unlock()
		wg.Done()
	}()

	value, err := c.store.Fetch(ctx, name)
	if err != nil {
		return "", err
	}

	c.lru.Add(name, value)
	return value, nil
}

// EnvStore fetches secrets from environment variables, upper-casing the
// logical name (e.g. "openai_api_key" -> OPENAI_API_KEY).
type EnvStore struct{}

// Fetch reads the environment variable derived from name.
func (EnvStore) Fetch(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(name)
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: env var %s unset", ErrNotFound, key)
	}
	return value, nil
}
