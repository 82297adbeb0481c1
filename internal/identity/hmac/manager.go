// Package hmac implements the HMAC-signed-bearer-token half of the dual
// identity backend (C5/C12): password-based signup/login issuing a token
// of the form base64(payload).base64(hmac-sha256(payload)), grounded on
// the teacher pack's internal/auth/manager.go challenge/token Manager,
// generalized from email-challenge codes to password signup/login with
// bcrypt-hashed passwords.
package hmac

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oftenai/often-gateway/internal/identity"
)

// DefaultTokenTTL is how long an issued bearer token remains valid.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidToken covers every malformed-or-failed-verification case;
	// the identity middleware maps it uniformly to 401.
	ErrInvalidToken = errors.New("hmac: invalid token")
	// ErrTokenExpired is returned separately so callers can distinguish it
	// from a tampered token if they choose to.
	ErrTokenExpired = errors.New("hmac: token expired")
)

// Manager issues and validates bearer tokens and hashes/verifies passwords.
type Manager struct {
	secret []byte
}

var _ identity.Verifier = (*Manager)(nil)

// Verify implements identity.Verifier by delegating to ValidateToken,
// mapping any failure to identity.ErrUnauthenticated so the HTTP layer
// never has to know which backend rejected the credential.
func (m *Manager) Verify(_ context.Context, bearerToken string) (string, error) {
	accountID, err := m.ValidateToken(bearerToken)
	if err != nil {
		return "", identity.ErrUnauthenticated
	}
	return accountID, nil
}

// NewManager creates a Manager signing with secret. secret must be
// non-empty; an empty signing secret would make every token forgeable.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("hmac: signing secret required")
	}
	return &Manager{secret: []byte(secret)}, nil
}

// HashPassword bcrypt-hashes a plaintext password for storage.
func (m *Manager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hmac: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func (m *Manager) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken issues a signed bearer token asserting accountID, expiring
// after ttl (DefaultTokenTTL if zero).
func (m *Manager) IssueToken(accountID string, ttl time.Duration) string {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	expires := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s|%d", accountID, expires)
	sig := m.sign([]byte(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// ValidateToken verifies token's signature and expiry and returns the
// embedded account id.
func (m *Manager) ValidateToken(token string) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sigBytes, m.sign(payloadBytes)) {
		return "", ErrInvalidToken
	}

	payload := string(payloadBytes)
	sep := strings.LastIndex(payload, "|")
	if sep == -1 {
		return "", ErrInvalidToken
	}
	accountID := payload[:sep]
	expiry, err := strconv.ParseInt(payload[sep+1:], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().Unix() > expiry {
		return "", ErrTokenExpired
	}
	return accountID, nil
}

func (m *Manager) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write(payload)
	return h.Sum(nil)
}
