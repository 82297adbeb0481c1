// Package wallet implements secp256k1-signature wallet-based agent
// authentication (S7): a bearer token of the form
// base64(accountID|expiry).base64(signature), where signature is a compact
// secp256k1 signature (as produced by ecdsa.SignCompact, grounded on the
// ineyio-inferrouter pack's provider/gonka/crypto.go signRequest) over
// SHA-256(accountID|expiry), made with the private key matching the
// account's registered wallet address. Structurally parallel to
// internal/identity/hmac's token, but signed with the agent's own keypair
// instead of a server-held shared secret.
package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/oftenai/often-gateway/internal/identity"
)

// ErrInvalidToken covers every malformed, expired, or signature-mismatched
// token; the identity middleware maps it uniformly to 401.
var ErrInvalidToken = errors.New("wallet: invalid token")

// AddressLookup resolves the wallet address registered for an account, so
// the verifier can check a recovered signature's address against it.
type AddressLookup interface {
	WalletAddress(ctx context.Context, accountID string) (string, error)
}

// Verifier implements identity.Verifier for wallet-signed bearer tokens.
type Verifier struct {
	lookup AddressLookup
}

var _ identity.Verifier = (*Verifier)(nil)

// NewVerifier creates a wallet verifier resolving addresses via lookup.
func NewVerifier(lookup AddressLookup) *Verifier {
	return &Verifier{lookup: lookup}
}

// Verify parses bearerToken, checks its embedded expiry, recovers the
// signing public key from the compact signature, derives its address, and
// compares it against the address registered for the claimed account id.
func (v *Verifier) Verify(ctx context.Context, bearerToken string) (string, error) {
	accountID, err := v.validate(ctx, bearerToken)
	if err != nil {
		return "", identity.ErrUnauthenticated
	}
	return accountID, nil
}

func (v *Verifier) validate(ctx context.Context, bearerToken string) (string, error) {
	parts := strings.SplitN(bearerToken, ".", 2)
	if len(parts) != 2 {
		return "", ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(sig) != 64 {
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
		return "", ErrInvalidToken
	}

	wantAddress, err := v.lookup.WalletAddress(ctx, accountID)
	if err != nil || wantAddress == "" {
		return "", ErrInvalidToken
	}

	digest := sha256.Sum256(payloadBytes)
	if _, ok := recoverAddress(sig, digest[:], wantAddress); !ok {
		return "", ErrInvalidToken
	}

	return accountID, nil
}

// SignToken builds the bearer token for accountID, signing with privKey.
// Used by tests and by the CLI/demo signup flow; production agents sign
// with a privately held key the gateway never sees.
func SignToken(privKey *secp256k1.PrivateKey, accountID string, ttl time.Duration) (string, error) {
	expires := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s|%d", accountID, expires)
	payloadBytes := []byte(payload)

	digest := sha256.Sum256(payloadBytes)
	compact := ecdsa.SignCompact(privKey, digest[:], false)
	rawSig := compact[1:65] // drop the leading recovery-id byte

	return base64.RawURLEncoding.EncodeToString(payloadBytes) + "." + base64.RawURLEncoding.EncodeToString(rawSig), nil
}

// DeriveAddress computes the hex address this package derives from a
// public key: SHA-256 of its compressed serialization.
func DeriveAddress(pubKey *secp256k1.PublicKey) string {
	sum := sha256.Sum256(pubKey.SerializeCompressed())
	return hex.EncodeToString(sum[:])
}

// recoverAddress tries both compact-signature recovery IDs (the raw 64-byte
// r||s form carries no recovery byte) and reports ok only when one of the
// recovered keys derives to wantAddress (compared case-insensitively).
func recoverAddress(rawSig, hash []byte, wantAddress string) (address string, ok bool) {
	for recID := byte(0); recID < 2; recID++ {
		compact := append([]byte{recID + 27}, rawSig...)
		pubKey, _, err := ecdsa.RecoverCompact(compact, hash)
		if err != nil {
			continue
		}
		if addr := DeriveAddress(pubKey); strings.EqualFold(addr, wantAddress) {
			return addr, true
		}
	}
	return "", false
}
