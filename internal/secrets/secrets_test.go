package secrets_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/secrets"
)

type countingStore struct {
	fetches atomic.Int64
	value   string
}

func (s *countingStore) Fetch(context.Context, string) (string, error) {
	s.fetches.Add(1)
	return s.value, nil
}

func TestCache_MissThenHit(t *testing.T) {
	store := &countingStore{value: "sk-test"}
	cache := secrets.NewCache(store)

	v1, err := cache.Get(context.Background(), "openai_api_key")
	require.NoError(t, err)
	require.Equal(t, "sk-test", v1)

	v2, err := cache.Get(context.Background(), "openai_api_key")
	require.NoError(t, err)
	require.Equal(t, "sk-test", v2)
	require.Equal(t, int64(1), store.fetches.Load())
}

func TestEnvStore_UppercasesName(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	store := secrets.EnvStore{}
	v, err := store.Fetch(context.Background(), "openai_api_key")
	require.NoError(t, err)
	require.Equal(t, "sk-env", v)
}

func TestEnvStore_MissingIsNotFound(t *testing.T) {
	store := secrets.EnvStore{}
	_, err := store.Fetch(context.Background(), "definitely_not_set_xyz")
	require.ErrorIs(t, err, secrets.ErrNotFound)
}
