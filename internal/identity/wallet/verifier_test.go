package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/identity/wallet"
)

type staticLookup map[string]string

func (s staticLookup) WalletAddress(_ context.Context, accountID string) (string, error) {
	addr, ok := s[accountID]
	if !ok {
		return "", errNotRegistered
	}
	return addr, nil
}

var errNotRegistered = &notRegisteredError{}

type notRegisteredError struct{}

func (e *notRegisteredError) Error() string { return "account not registered" }

// newKey builds a deterministic, non-zero 32-byte test private key from
// seed, mirroring the gonka example's PrivKeyFromBytes parsing path without
// depending on crypto/rand for reproducibility.
func newKey(seed byte) (*secp256k1.PrivateKey, *secp256k1.PublicKey) {
	var raw [32]byte
	for i := range raw {
		raw[i] = seed + byte(i) + 1
	}
	priv := secp256k1.PrivKeyFromBytes(raw[:])
	return priv, priv.PubKey()
}

func TestVerify_AcceptsValidWalletSignature(t *testing.T) {
	priv, pub := newKey(1)
	address := wallet.DeriveAddress(pub)

	token, err := wallet.SignToken(priv, "acct-1", time.Hour)
	require.NoError(t, err)

	v := wallet.NewVerifier(staticLookup{"acct-1": address})
	accountID, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "acct-1", accountID)
}

func TestVerify_RejectsSignatureFromDifferentKey(t *testing.T) {
	_, pub := newKey(1)
	address := wallet.DeriveAddress(pub)

	otherPriv, _ := newKey(2)
	token, err := wallet.SignToken(otherPriv, "acct-1", time.Hour)
	require.NoError(t, err)

	v := wallet.NewVerifier(staticLookup{"acct-1": address})
	_, err = v.Verify(context.Background(), token)
	require.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	priv, pub := newKey(1)
	address := wallet.DeriveAddress(pub)

	token, err := wallet.SignToken(priv, "acct-1", -time.Minute)
	require.NoError(t, err)

	v := wallet.NewVerifier(staticLookup{"acct-1": address})
	_, err = v.Verify(context.Background(), token)
	require.Error(t, err)
}
