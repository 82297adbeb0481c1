package hmac

import (
	"context"
	"errors"
)

// ErrEmailTaken is returned by CredentialStore.Create when email is already
// registered.
var ErrEmailTaken = errors.New("hmac: email already registered")

// ErrCredentialNotFound is returned when no credentials exist for an email.
var ErrCredentialNotFound = errors.New("hmac: no credentials for email")

// Credentials is the stored record backing password-based signup/login.
// It is deliberately separate from the ledger's Account: passwords are an
// identity-backend concern, not part of the balance/journal data model.
type Credentials struct {
	AccountID    string
	Email        string
	PasswordHash string
}

// CredentialStore persists the email -> (accountID, password hash) mapping
// used by Signup and Login.
type CredentialStore interface {
	Create(ctx context.Context, email, accountID, passwordHash string) error
	ByEmail(ctx context.Context, email string) (Credentials, error)
}
