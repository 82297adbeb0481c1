// Package postgres implements store.Store on PostgreSQL via pgx/v5,
// grounded on the ineyio-inferrouter pack's quota/postgres.Store: a
// pgxpool.Pool, one row per account locked with `SELECT ... FOR UPDATE`
// inside an explicit transaction, so the transaction itself is the §5
// correctness boundary instead of an in-process mutex.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/store"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ store.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default "often_").
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, tablePrefix: "often_"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) accountsTable() string { return s.tablePrefix + "accounts" }
func (s *Store) entriesTable() string  { return s.tablePrefix + "entries" }

// EnsureSchema creates the required tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			balances JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS %[2]s (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES %[1]s(id),
			type TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %[2]s_account_created_idx
			ON %[2]s (account_id, created_at DESC);
	`, s.accountsTable(), s.entriesTable())
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("store/postgres: ensure schema: %w", err)
	}
	return nil
}

// GetAccount reads the current account snapshot.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, email, balances, status, created_at FROM %s WHERE id = $1`, s.accountsTable()),
		id,
	)
	return scanAccount(row)
}

// CreateAccount creates a new account with all balances at zero. Re-running
// against an existing id is idempotent, matching memstore's behavior.
func (s *Store) CreateAccount(ctx context.Context, id, email string) (domain.Account, error) {
	acc := domain.NewAccount(id, email, time.Now().UTC())
	balances, err := json.Marshal(acc.Balances)
	if err != nil {
		return domain.Account{}, fmt.Errorf("store/postgres: marshal balances: %w", err)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, email, balances, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET id = %[1]s.id
		RETURNING id, email, balances, status, created_at
	`, s.accountsTable()), id, email, balances, string(domain.StatusActive), acc.CreatedAt)
	return scanAccount(row)
}

// Debit atomically re-reads the balance under a row lock and writes
// balance-amount plus a journal entry, failing with an
// InsufficientFundsError if amount exceeds the current balance.
func (s *Store) Debit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	var result domain.Entry
	var after int64

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acc, err := s.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		current := acc.Balance(currency)
		if current < amount {
			return &store.InsufficientFundsError{AccountID: accountID, Currency: currency, Have: current, Want: amount}
		}
		after = current - amount

		if err := s.writeBalance(ctx, tx, accountID, currency, after); err != nil {
			return err
		}
		entry = finalizeEntry(entry, accountID, currency, amount, current, after)
		return s.insertEntry(ctx, tx, entry)
	})
	if err != nil {
		return domain.Entry{}, 0, err
	}
	result = entry
	return result, after, nil
}

// Credit atomically increases balance by amount and appends entry.
func (s *Store) Credit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	var after int64

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acc, err := s.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		current := acc.Balance(currency)
		after = current + amount

		if err := s.writeBalance(ctx, tx, accountID, currency, after); err != nil {
			return err
		}
		entry = finalizeEntry(entry, accountID, currency, amount, current, after)
		return s.insertEntry(ctx, tx, entry)
	})
	if err != nil {
		return domain.Entry{}, 0, err
	}
	return entry, after, nil
}

// Transfer atomically moves amount of currency from fromID to toID, locking
// both rows in lexicographic id order to avoid deadlock against a
// concurrent transfer running in the opposite direction.
func (s *Store) Transfer(ctx context.Context, fromID, toID string, currency domain.Currency, amount int64, description string) (int64, int64, domain.Entry, domain.Entry, error) {
	var sAfter, rAfter int64
	var outEntry, inEntry domain.Entry

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		firstID, secondID := fromID, toID
		if toID < fromID {
			firstID, secondID = toID, fromID
		}
		if _, err := s.lockAccountOrErr(ctx, tx, firstID, fromID, toID); err != nil {
			return err
		}
		if _, err := s.lockAccountOrErr(ctx, tx, secondID, fromID, toID); err != nil {
			return err
		}

		fromAcc, err := s.readAccount(ctx, tx, fromID)
		if err != nil {
			return &store.SenderNotFoundError{AccountID: fromID}
		}
		toAcc, err := s.readAccount(ctx, tx, toID)
		if err != nil {
			return &store.RecipientNotFoundError{AccountID: toID}
		}

		sBal := fromAcc.Balance(currency)
		if sBal < amount {
			return &store.InsufficientFundsError{AccountID: fromID, Currency: currency, Have: sBal, Want: amount}
		}
		rBal := toAcc.Balance(currency)
		sAfter = sBal - amount
		rAfter = rBal + amount

		if err := s.writeBalance(ctx, tx, fromID, currency, sAfter); err != nil {
			return err
		}
		if err := s.writeBalance(ctx, tx, toID, currency, rAfter); err != nil {
			return err
		}

		now := time.Now().UTC()
		outEntry = domain.Entry{
			ID: uuid.New().String(), AccountID: fromID, Type: domain.EntryTransferOut,
			Currency: currency, Amount: amount, BalanceBefore: sBal, BalanceAfter: sAfter,
			Description: description, Metadata: map[string]interface{}{"counterparty": toID},
			CreatedAt: now,
		}
		inEntry = domain.Entry{
			ID: uuid.New().String(), AccountID: toID, Type: domain.EntryTransferIn,
			Currency: currency, Amount: amount, BalanceBefore: rBal, BalanceAfter: rAfter,
			Description: description, Metadata: map[string]interface{}{"counterparty": fromID},
			CreatedAt: now,
		}
		if err := s.insertEntry(ctx, tx, outEntry); err != nil {
			return err
		}
		return s.insertEntry(ctx, tx, inEntry)
	})
	if err != nil {
		return 0, 0, domain.Entry{}, domain.Entry{}, err
	}
	return sAfter, rAfter, outEntry, inEntry, nil
}

// Convert atomically debits amount of from and credits converted of to on
// the same account, appending one conversion journal entry.
func (s *Store) Convert(ctx context.Context, accountID string, from, to domain.Currency, amount, converted int64, rateUsed float64) (int64, int64, domain.Entry, error) {
	var fromAfter, toAfter int64
	var entry domain.Entry

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acc, err := s.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		fromBal := acc.Balance(from)
		if fromBal < amount {
			return &store.InsufficientFundsError{AccountID: accountID, Currency: from, Have: fromBal, Want: amount}
		}
		toBal := acc.Balance(to)
		fromAfter = fromBal - amount
		toAfter = toBal + converted

		if err := s.writeBalance(ctx, tx, accountID, from, fromAfter); err != nil {
			return err
		}
		if err := s.writeBalance(ctx, tx, accountID, to, toAfter); err != nil {
			return err
		}

		entry = domain.Entry{
			ID: uuid.New().String(), AccountID: accountID, Type: domain.EntryConversion,
			Currency: from, Amount: amount, BalanceBefore: fromBal, BalanceAfter: fromAfter,
			Description: "currency conversion",
			Metadata: map[string]interface{}{
				"fromCurrency": string(from), "toCurrency": string(to),
				"fromAmount": amount, "toAmount": converted, "rateUsed": rateUsed,
			},
			CreatedAt: time.Now().UTC(),
		}
		return s.insertEntry(ctx, tx, entry)
	})
	if err != nil {
		return 0, 0, domain.Entry{}, err
	}
	return fromAfter, toAfter, entry, nil
}

// ListTransactions returns up to limit entries for accountID, newest-first.
func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int, startAfterID string) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	var cursorCreatedAt time.Time
	if startAfterID != "" {
		err := s.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT created_at FROM %s WHERE id = $1`, s.entriesTable()), startAfterID,
		).Scan(&cursorCreatedAt)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("store/postgres: resolve cursor: %w", err)
		}
	}

	query := fmt.Sprintf(`
		SELECT id, account_id, type, currency, amount, balance_before, balance_after, description, metadata, created_at
		FROM %s WHERE account_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC LIMIT $3`, s.entriesTable())

	var cursorArg interface{}
	if !cursorCreatedAt.IsZero() {
		cursorArg = cursorCreatedAt
	}

	rows, err := s.pool.Query(ctx, query, accountID, cursorArg, limit)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: list transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store/postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store/postgres: commit: %w", err)
	}
	return nil
}

func (s *Store) lockAccount(ctx context.Context, tx pgx.Tx, id string) (domain.Account, error) {
	row := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, email, balances, status, created_at FROM %s WHERE id = $1 FOR UPDATE`, s.accountsTable()),
		id,
	)
	acc, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, store.ErrAccountNotFound
	}
	return acc, nil
}

// lockAccountOrErr locks id and, on a missing row, reports whichever of
// fromID/toID it is as the sender or recipient not found.
func (s *Store) lockAccountOrErr(ctx context.Context, tx pgx.Tx, id, fromID, toID string) (domain.Account, error) {
	acc, err := s.lockAccount(ctx, tx, id)
	if err != nil {
		if id == fromID {
			return domain.Account{}, &store.SenderNotFoundError{AccountID: fromID}
		}
		return domain.Account{}, &store.RecipientNotFoundError{AccountID: toID}
	}
	return acc, nil
}

func (s *Store) readAccount(ctx context.Context, tx pgx.Tx, id string) (domain.Account, error) {
	row := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, email, balances, status, created_at FROM %s WHERE id = $1`, s.accountsTable()),
		id,
	)
	return scanAccount(row)
}

func (s *Store) writeBalance(ctx context.Context, tx pgx.Tx, accountID string, currency domain.Currency, newBalance int64) error {
	_, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET balances = jsonb_set(balances, $2, to_jsonb($3::bigint), true) WHERE id = $1`, s.accountsTable()),
		accountID, []string{string(currency)}, newBalance,
	)
	if err != nil {
		return fmt.Errorf("store/postgres: write balance: %w", err)
	}
	return nil
}

func (s *Store) insertEntry(ctx context.Context, tx pgx.Tx, e domain.Entry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("store/postgres: marshal metadata: %w", err)
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, account_id, type, currency, amount, balance_before, balance_after, description, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, s.entriesTable()),
		e.ID, e.AccountID, string(e.Type), string(e.Currency), e.Amount, e.BalanceBefore, e.BalanceAfter, e.Description, metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store/postgres: insert entry: %w", err)
	}
	return nil
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		id, email, status string
		balancesRaw       []byte
		createdAt         time.Time
	)
	if err := row.Scan(&id, &email, &balancesRaw, &status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, store.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("store/postgres: scan account: %w", err)
	}

	balances := make(map[domain.Currency]int64)
	if len(balancesRaw) > 0 {
		if err := json.Unmarshal(balancesRaw, &balances); err != nil {
			return domain.Account{}, fmt.Errorf("store/postgres: unmarshal balances: %w", err)
		}
	}

	return domain.Account{
		ID: id, Email: email, Balances: balances,
		Status: domain.AccountStatus(status), CreatedAt: createdAt,
	}, nil
}

func scanEntry(row rowScanner) (domain.Entry, error) {
	var (
		id, accountID, entryType, currency, description string
		amount, balanceBefore, balanceAfter              int64
		metadataRaw                                      []byte
		createdAt                                        time.Time
	)
	if err := row.Scan(&id, &accountID, &entryType, &currency, &amount, &balanceBefore, &balanceAfter, &description, &metadataRaw, &createdAt); err != nil {
		return domain.Entry{}, fmt.Errorf("store/postgres: scan entry: %w", err)
	}

	var metadata map[string]interface{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return domain.Entry{}, fmt.Errorf("store/postgres: unmarshal metadata: %w", err)
		}
	}

	return domain.Entry{
		ID: id, AccountID: accountID, Type: domain.EntryType(entryType), Currency: domain.Currency(currency),
		Amount: amount, BalanceBefore: balanceBefore, BalanceAfter: balanceAfter,
		Description: description, Metadata: metadata, CreatedAt: createdAt,
	}, nil
}
