package hmac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/identity/hmac"
	"github.com/oftenai/often-gateway/internal/store/memstore"
)

func newService(t *testing.T) *hmac.Service {
	t.Helper()
	manager, err := hmac.NewManager("test-secret")
	require.NoError(t, err)
	return hmac.NewService(manager, hmac.NewMemCredentialStore(), memstore.New())
}

func TestSignup_IssuesTokensAndCreatesAccount(t *testing.T) {
	svc := newService(t)

	pair, err := svc.Signup(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, pair.UID)
	require.NotEmpty(t, pair.IDToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Greater(t, pair.ExpiresIn, int64(0))
}

func TestSignup_DuplicateEmailIsRejected(t *testing.T) {
	svc := newService(t)

	_, err := svc.Signup(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "alice@example.com", "different")
	require.ErrorIs(t, err, hmac.ErrEmailTaken)
}

func TestLogin_WrongPasswordIsInvalidCredentials(t *testing.T) {
	svc := newService(t)
	_, err := svc.Signup(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, hmac.ErrInvalidCredentials)
}

func TestLogin_UnknownEmailIsInvalidCredentials(t *testing.T) {
	svc := newService(t)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, hmac.ErrInvalidCredentials)
}

func TestLogin_CorrectPasswordIssuesTokens(t *testing.T) {
	svc := newService(t)
	signup, err := svc.Signup(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, signup.UID, pair.UID)
}

func TestRefresh_ValidRefreshTokenIssuesNewPair(t *testing.T) {
	svc := newService(t)
	signup, err := svc.Signup(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), signup.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, signup.UID, pair.UID)
}

func TestRefresh_GarbageTokenIsInvalid(t *testing.T) {
	svc := newService(t)

	_, err := svc.Refresh(context.Background(), "not-a-real-token")
	require.ErrorIs(t, err, hmac.ErrInvalidToken)
}
