// Package sqlite implements store.Store on an embedded SQLite database via
// modernc.org/sqlite, grounded on pario-ai-pario's pkg/cache/sqlite.Cache
// (database/sql, plain positional-parameter queries, schema-ensure on
// open). SQLite has no row-level locking, so correctness here comes from
// a pool capped at one connection (see Store), which serializes every
// Debit/Credit/Transfer/Convert transaction against each other.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/oftenai/often-gateway/internal/domain"
	"github.com/oftenai/often-gateway/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	balances TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	type TEXT NOT NULL,
	currency TEXT NOT NULL,
	amount INTEGER NOT NULL,
	balance_before INTEGER NOT NULL,
	balance_after INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_account_created_idx ON entries (account_id, created_at DESC);
`

// Store is a SQLite-backed store.Store. SQLite has no row-level lock, so
// `MaxOpenConns(1)` is the correctness boundary here: with exactly one
// connection in the pool, `database/sql` itself serializes every
// transaction onto it — a second Debit/Credit/Transfer/Convert call
// blocks until the first commits, exactly the single-writer discipline
// the embedded-database examples in the pack rely on, without needing a
// driver-specific `BEGIN IMMEDIATE` DSN parameter.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open creates or attaches to the SQLite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store/sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, balances, status, created_at FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (s *Store) CreateAccount(ctx context.Context, id, email string) (domain.Account, error) {
	acc := domain.NewAccount(id, email, time.Now().UTC())
	balances, err := json.Marshal(acc.Balances)
	if err != nil {
		return domain.Account{}, fmt.Errorf("store/sqlite: marshal balances: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, balances, status, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id, email, string(balances), string(domain.StatusActive), acc.CreatedAt,
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("store/sqlite: create account: %w", err)
	}
	return s.GetAccount(ctx, id)
}

func (s *Store) Debit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	var after int64
	var result domain.Entry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		acc, err := s.readForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}

		before := acc.Balance(currency)
		if before < amount {
			return &store.InsufficientFundsError{AccountID: accountID, Currency: currency, Have: before, Want: amount}
		}
		after = before - amount

		if err := s.writeBalance(ctx, tx, accountID, currency, after); err != nil {
			return err
		}
		result = finalizeEntry(entry, accountID, currency, amount, before, after)
		return s.insertEntry(ctx, tx, result)
	})
	if err != nil {
		return domain.Entry{}, 0, err
	}
	return result, after, nil
}

func (s *Store) Credit(ctx context.Context, accountID string, currency domain.Currency, amount int64, entry domain.Entry) (domain.Entry, int64, error) {
	var after int64
	var result domain.Entry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		acc, err := s.readForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}

		before := acc.Balance(currency)
		after = before + amount

		if err := s.writeBalance(ctx, tx, accountID, currency, after); err != nil {
			return err
		}
		result = finalizeEntry(entry, accountID, currency, amount, before, after)
		return s.insertEntry(ctx, tx, result)
	})
	if err != nil {
		return domain.Entry{}, 0, err
	}
	return result, after, nil
}

func (s *Store) Transfer(ctx context.Context, fromID, toID string, currency domain.Currency, amount int64, description string) (int64, int64, domain.Entry, domain.Entry, error) {
	var sAfter, rAfter int64
	var outEntry, inEntry domain.Entry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		fromAcc, err := s.readForUpdate(ctx, tx, fromID)
		if err != nil {
			return &store.SenderNotFoundError{AccountID: fromID}
		}
		toAcc, err := s.readForUpdate(ctx, tx, toID)
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

func (s *Store) Convert(ctx context.Context, accountID string, from, to domain.Currency, amount, converted int64, rateUsed float64) (int64, int64, domain.Entry, error) {
	var fromAfter, toAfter int64
	var entry domain.Entry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		acc, err := s.readForUpdate(ctx, tx, accountID)
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

func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int, startAfterID string) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	var cursor sql.NullTime
	if startAfterID != "" {
		err := s.db.QueryRowContext(ctx, `SELECT created_at FROM entries WHERE id = ?`, startAfterID).Scan(&cursor.Time)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store/sqlite: resolve cursor: %w", err)
		}
		cursor.Valid = err == nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, type, currency, amount, balance_before, balance_after, description, metadata, created_at
		FROM entries WHERE account_id = ? AND (? = 0 OR created_at < ?)
		ORDER BY created_at DESC LIMIT ?`,
		accountID, boolToInt(cursor.Valid), cursor.Time, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store/sqlite: list transactions: %w", err)
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

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// withTx opens a transaction. Because the handle has exactly one
// connection (MaxOpenConns(1)), only one transaction can be in flight at
// a time across the whole process — the next Begin call blocks in the
// connection pool until this one commits or rolls back.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store/sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) readForUpdate(ctx context.Context, tx *sql.Tx, id string) (domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, email, balances, status, created_at FROM accounts WHERE id = ?`, id)
	acc, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, store.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Store) writeBalance(ctx context.Context, tx *sql.Tx, accountID string, currency domain.Currency, newBalance int64) error {
	acc, err := s.readForUpdate(ctx, tx, accountID)
	if err != nil {
		return err
	}
	acc.Balances[currency] = newBalance
	balances, err := json.Marshal(acc.Balances)
	if err != nil {
		return fmt.Errorf("store/sqlite: marshal balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balances = ? WHERE id = ?`, string(balances), accountID); err != nil {
		return fmt.Errorf("store/sqlite: write balance: %w", err)
	}
	return nil
}

func (s *Store) insertEntry(ctx context.Context, tx *sql.Tx, e domain.Entry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("store/sqlite: marshal metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, account_id, type, currency, amount, balance_before, balance_after, description, metadata, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.AccountID, string(e.Type), string(e.Currency), e.Amount, e.BalanceBefore, e.BalanceAfter, e.Description, string(metadata), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store/sqlite: insert entry: %w", err)
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
		id, email, status, balancesRaw string
		createdAt                      time.Time
	)
	if err := row.Scan(&id, &email, &balancesRaw, &status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, store.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("store/sqlite: scan account: %w", err)
	}

	balances := make(map[domain.Currency]int64)
	if balancesRaw != "" {
		if err := json.Unmarshal([]byte(balancesRaw), &balances); err != nil {
			return domain.Account{}, fmt.Errorf("store/sqlite: unmarshal balances: %w", err)
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
		metadataRaw                                      sql.NullString
		createdAt                                        time.Time
	)
	if err := row.Scan(&id, &accountID, &entryType, &currency, &amount, &balanceBefore, &balanceAfter, &description, &metadataRaw, &createdAt); err != nil {
		return domain.Entry{}, fmt.Errorf("store/sqlite: scan entry: %w", err)
	}

	var metadata map[string]interface{}
	if metadataRaw.Valid && metadataRaw.String != "" {
		if err := json.Unmarshal([]byte(metadataRaw.String), &metadata); err != nil {
			return domain.Entry{}, fmt.Errorf("store/sqlite: unmarshal metadata: %w", err)
		}
	}

	return domain.Entry{
		ID: id, AccountID: accountID, Type: domain.EntryType(entryType), Currency: domain.Currency(currency),
		Amount: amount, BalanceBefore: balanceBefore, BalanceAfter: balanceAfter,
		Description: description, Metadata: metadata, CreatedAt: createdAt,
	}, nil
}
