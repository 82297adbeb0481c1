package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oftenai/often-gateway/internal/ledger"
	"github.com/oftenai/often-gateway/internal/store/memstore"
)

// TestTransfer_S2_TransferIntegrity reproduces the seed scenario: A starts
// at 5_000_000 USD, B at 0; A transfers 1_000_000 to B.
func TestTransfer_S2_TransferIntegrity(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 5_000_000)
	seedAccount(t, st, "b", 0)

	svc := newEchoService(t, st, nil)

	result, err := svc.Transfer(context.Background(), "a", "b", ledger.USD, 1_000_000, "payment")
	require.NoError(t, err)
	require.Equal(t, int64(4_000_000), result.SenderBalance)
	require.Equal(t, int64(1_000_000), result.RecipientBalance)

	accA, err := st.GetAccount(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, int64(4_000_000), accA.Balance(ledger.USD))

	accB, err := st.GetAccount(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), accB.Balance(ledger.USD))

	aEntries, err := st.ListTransactions(context.Background(), "a", 10, "")
	require.NoError(t, err)
	require.Equal(t, ledger.EntryTransferOut, aEntries[0].Type)
	require.Equal(t, int64(1_000_000), aEntries[0].Amount)

	bEntries, err := st.ListTransactions(context.Background(), "b", 10, "")
	require.NoError(t, err)
	require.Equal(t, ledger.EntryTransferIn, bEntries[0].Type)
	require.Equal(t, int64(1_000_000), bEntries[0].Amount)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 100)
	seedAccount(t, st, "b", 0)
	svc := newEchoService(t, st, nil)

	_, err := svc.Transfer(context.Background(), "a", "b", ledger.USD, 1_000_000, "payment")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestTransfer_UnknownSenderIsSenderNotFound(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "b", 0)
	svc := newEchoService(t, st, nil)

	_, err := svc.Transfer(context.Background(), "ghost", "b", ledger.USD, 100, "payment")
	require.ErrorIs(t, err, ledger.ErrSenderNotFound)
}

func TestTransfer_UnknownRecipientIsRecipientNotFound(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 1_000_000)
	svc := newEchoService(t, st, nil)

	_, err := svc.Transfer(context.Background(), "a", "ghost", ledger.USD, 100, "payment")
	require.ErrorIs(t, err, ledger.ErrRecipientNotFound)
}

func TestTransfer_SameSenderAndRecipientIsValidationError(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 1_000_000)
	svc := newEchoService(t, st, nil)

	_, err := svc.Transfer(context.Background(), "a", "a", ledger.USD, 100, "payment")
	require.ErrorIs(t, err, ledger.ErrValidation)
}

func TestTransfer_ZeroOrNegativeAmountIsValidationError(t *testing.T) {
	st := memstore.New()
	seedAccount(t, st, "a", 1_000_000)
	seedAccount(t, st, "b", 0)
	svc := newEchoService(t, st, nil)

	_, err := svc.Transfer(context.Background(), "a", "b", ledger.USD, 0, "payment")
	require.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Transfer(context.Background(), "a", "b", ledger.USD, -5, "payment")
	require.ErrorIs(t, err, ledger.ErrValidation)
}
