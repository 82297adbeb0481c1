package identity

import "context"

// Dual tries a sequence of Verifiers in order and returns the first
// successful result, letting an agent hold either an HMAC password token
// or a wallet-signed token — the /getAccount id is opaque to which backend
// authenticated the request.
type Dual struct {
	backends []Verifier
}

var _ Verifier = (*Dual)(nil)

// NewDual combines backends, tried in the given order.
func NewDual(backends ...Verifier) *Dual {
	return &Dual{backends: backends}
}

// Verify tries each backend in order, returning the first success. If every
// backend rejects the token, ErrUnauthenticated is returned.
func (d *Dual) Verify(ctx context.Context, bearerToken string) (string, error) {
	for _, backend := range d.backends {
		if accountID, err := backend.Verify(ctx, bearerToken); err == nil {
			return accountID, nil
		}
	}
	return "", ErrUnauthenticated
}
