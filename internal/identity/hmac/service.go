package hmac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oftenai/often-gateway/internal/store"
)

// RefreshTokenTTL is how long an issued refresh token remains valid,
// deliberately longer-lived than the id token IssueToken defaults to.
const RefreshTokenTTL = 30 * 24 * time.Hour

// ErrInvalidCredentials covers both "no such email" and "wrong password"
// without distinguishing them to the caller, per §7's no-enumeration rule.
var ErrInvalidCredentials = errors.New("hmac: invalid email or password")

// TokenPair is the response shape for signup, login, and refresh.
type TokenPair struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    int64
	UID          string
}

// Service orchestrates password-based signup/login/refresh: crypto lives in
// Manager, credential lookup in CredentialStore, and account creation in
// the ledger's store.Store — kept separate because passwords are not part
// of the balance/journal domain model.
type Service struct {
	manager  *Manager
	creds    CredentialStore
	accounts store.Store
}

// NewService wires a Service from its dependencies.
func NewService(manager *Manager, creds CredentialStore, accounts store.Store) *Service {
	return &Service{manager: manager, creds: creds, accounts: accounts}
}

// Signup creates a new ledger account and credential record for email, and
// returns a fresh token pair.
func (s *Service) Signup(ctx context.Context, email, password string) (TokenPair, error) {
	if email == "" || password == "" {
		return TokenPair{}, errors.New("hmac: email and password are required")
	}

	hash, err := s.manager.HashPassword(password)
	if err != nil {
		return TokenPair{}, err
	}

	accountID := uuid.New().String()
	if _, err := s.accounts.CreateAccount(ctx, accountID, email); err != nil {
		return TokenPair{}, fmt.Errorf("hmac: create account: %w", err)
	}
	if err := s.creds.Create(ctx, email, accountID, hash); err != nil {
		return TokenPair{}, err
	}

	return s.issueTokenPair(accountID), nil
}

// Login verifies email/password and returns a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	creds, err := s.creds.ByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !s.manager.VerifyPassword(creds.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issueTokenPair(creds.AccountID), nil
}

// Refresh validates refreshToken and returns a fresh token pair for the
// account it names.
func (s *Service) Refresh(_ context.Context, refreshToken string) (TokenPair, error) {
	accountID, err := s.manager.ValidateToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	return s.issueTokenPair(accountID), nil
}

func (s *Service) issueTokenPair(accountID string) TokenPair {
	return TokenPair{
		IDToken:      s.manager.IssueToken(accountID, DefaultTokenTTL),
		RefreshToken: s.manager.IssueToken(accountID, RefreshTokenTTL),
		ExpiresIn:    int64(DefaultTokenTTL.Seconds()),
		UID:          accountID,
	}
}
