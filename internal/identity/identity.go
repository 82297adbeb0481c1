// Package identity defines the gateway's authentication contract (C5): the
// gateway only needs "verify a bearer, yield an id"; either identity
// backend (HMAC password tokens or secp256k1 wallet signatures) satisfies
// it identically from the middleware's point of view.
package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned for any bearer credential that is missing,
// malformed, expired, or fails verification. The HTTP layer maps this
// uniformly to 401, never leaking which specific check failed.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Verifier verifies a bearer token and yields the account id it asserts.
type Verifier interface {
	Verify(ctx context.Context, bearerToken string) (accountID string, err error)
}
