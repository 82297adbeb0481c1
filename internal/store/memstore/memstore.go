// Package memstore is an in-memory store.Store used by tests and by the
// single-process reference deployment. Every mutating operation on an
// account is serialized by a per-account mutex, mirroring the teacher
// pack's MemoryQuotaStore keyed-map-of-mutexes shape.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu           sync.Mutex // guards accounts map structure and cross-account ops
	accounts     map[string]*accountRow
	transactions map[string][]domain.Entry // accountID -> entries, newest last
}

type accountRow struct {
	mu      sync.Mutex // serializes all mutations to this one account
	account domain.Account
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*accountRow),
		transactions: make(map[string][]domain.Entry),
	}
}

func (s *Store) row(id string) (*accountRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.accounts[id]
	return r, ok
}

// GetAccount reads the current account snapshot.
func (s *Store) GetAccount(_ context.Context, id string) (domain.Account, error) {
	r, ok := s.row(id)
	if !ok {
		return domain.Account{}, store.ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(r.account), nil
}

// CreateAccount creates a new account with all balances at zero.
func (s *Store) CreateAccount(_ context.Context, id, email string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[id]; exists {
		return cloneAccount(s.accounts[id].account), nil
	}
	acc := domain.NewAccount(id, email, time.Now().UTC())
	s.accounts[id] = &accountRow{account: acc}
	return cloneAccount(acc), nil
}

// Debit atomically re-reads the balance and writes balance-amount plus a
// journal entry, failing with an InsufficientFundsError if amount exceeds
// the current balance.
func (s *Store) Debit(_ context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	r, ok := s.row(accountID)
	if !ok {
		return domain.Entry{}, 0, store.ErrAccountNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.account.Balance(currency)
	if current < amount {
		return domain.Entry{}, current, &store.InsufficientFundsError{
			AccountID: accountID, Currency: currency, Have: current, Want: amount,
		}
	}

	after := current - amount
	r.account.Balances[currency] = after

	entry = finalizeEntry(entry, accountID, currency, amount, current, after)
	s.appendEntry(accountID, entry)

	return entry, after, nil
}

// Credit atomically increases balance by amount and appends entry.
func (s *Store) Credit(_ context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	r, ok := s.row(accountID)
	if !ok {
		return domain.Entry{}, 0, store.ErrAccountNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.account.Balance(currency)
	after := current + amount
	r.account.Balances[currency] = after

	entry = finalizeEntry(entry, accountID, currency, amount, current, after)
	s.appendEntry(accountID, entry)

	return entry, after, nil
}

// Transfer atomically moves amount of currency from fromID to toID. Locks
// are acquired in lexicographic account-id order to avoid deadlock against
// a concurrent transfer running in the opposite direction.
func (s *Store) Transfer(
	_ context.Context,
	fromID, toID string,
	currency domain.Currency,
	amount int64,
	description string,
) (int64, int64, domain.Entry, domain.Entry, error) {
	fromRow, ok := s.row(fromID)
	if !ok {
		return 0, 0, domain.Entry{}, domain.Entry{}, &store.SenderNotFoundError{AccountID: fromID}
	}
	toRow, ok := s.row(toID)
	if !ok {
		return 0, 0, domain.Entry{}, domain.Entry{}, &store.RecipientNotFoundError{AccountID: toID}
	}

	first, second := fromRow, toRow
	if toID < fromID {
		first, second = toRow, fromRow
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if second != first {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	sBal := fromRow.account.Balance(currency)
	if sBal < amount {
		return 0, 0, domain.Entry{}, domain.Entry{}, &store.InsufficientFundsError{
			AccountID: fromID, Currency: currency, Have: sBal, Want: amount,
		}
	}
	rBal := toRow.account.Balance(currency)

	sAfter := sBal - amount
	rAfter := rBal + amount
	fromRow.account.Balances[currency] = sAfter
	toRow.account.Balances[currency] = rAfter

	now := time.Now().UTC()
	outEntry := domain.Entry{
		ID: uuid.New().String(), AccountID: fromID, Type: domain.EntryTransferOut,
		Currency: currency, Amount: amount, BalanceBefore: sBal, BalanceAfter: sAfter,
		Description: description, Metadata: map[string]interface{}{"counterparty": toID},
		CreatedAt: now,
	}
	inEntry := domain.Entry{
		ID: uuid.New().String(), AccountID: toID, Type: domain.EntryTransferIn,
		Currency: currency, Amount: amount, BalanceBefore: rBal, BalanceAfter: rAfter,
		Description: description, Metadata: map[string]interface{}{"counterparty": fromID},
		CreatedAt: now,
	}

	s.appendEntry(fromID, outEntry)
	s.appendEntry(toID, inEntry)

	return sAfter, rAfter, outEntry, inEntry, nil
}

// Convert atomically debits amount of from and credits converted of to on
// the same account, appending one conversion journal entry.
func (s *Store) Convert(
	_ context.Context,
	accountID string,
	from, to domain.Currency,
	amount, converted int64,
	rateUsed float64,
) (int64, int64, domain.Entry, error) {
	r, ok := s.row(accountID)
	if !ok {
		return 0, 0, domain.Entry{}, store.ErrAccountNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fromBal := r.account.Balance(from)
	if fromBal < amount {
		return 0, 0, domain.Entry{}, &store.InsufficientFundsError{
			AccountID: accountID, Currency: from, Have: fromBal, Want: amount,
		}
	}
	toBal := r.account.Balance(to)

	fromAfter := fromBal - amount
	toAfter := toBal + converted
	r.account.Balances[from] = fromAfter
	r.account.Balances[to] = toAfter

	entry := domain.Entry{
		ID: uuid.New().String(), AccountID: accountID, Type: domain.EntryConversion,
		Currency: from, Amount: amount, BalanceBefore: fromBal, BalanceAfter: fromAfter,
		Description: "currency conversion",
		Metadata: map[string]interface{}{
			"fromCurrency": string(from), "toCurrency": string(to),
			"fromAmount": amount, "toAmount": converted, "rateUsed": rateUsed,
		},
		CreatedAt: time.Now().UTC(),
	}
	s.appendEntry(accountID, entry)

	return fromAfter, toAfter, entry, nil
}

// ListTransactions returns up to limit entries for accountID, newest-first.
func (s *Store) ListTransactions(_ context.Context, accountID string, limit int, startAfterID string) ([]domain.Entry, error) {
	s.mu.Lock()
	all := append([]domain.Entry(nil), s.transactions[accountID]...)
	s.mu.Unlock()

	// Entries are appended oldest-first under the account lock; reversing
	// before a stable sort keeps equal timestamps newest-first as well.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if startAfterID != "" {
		idx := -1
		for i, e := range all {
			if e.ID == startAfterID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			all = all[idx+1:]
		}
	}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func (s *Store) appendEntry(accountID string, e domain.Entry) {
	s.mu.Lock()
	s.transactions[accountID] = append(s.transactions[accountID], e)
	s.mu.Unlock()
}

func finalizeEntry(e domain.Entry, accountID string, currency domain.Currency, amount, before, after int64) domain.Entry {
	e.ID = uuid.New().String()
	e.AccountID = accountID
	e.Currency = currency
	e.Amount = amount
	e.BalanceBefore = before
	e.BalanceAfter = after
	e.CreatedAt = time.Now().UTC()
	return e
}

func cloneAccount(a domain.Account) domain.Account {
	balances := make(map[domain.Currency]int64, len(a.Balances))
	for k, v := range a.Balances {
		balances[k] = v
	}
	a.Balances = balances
	return a
}
