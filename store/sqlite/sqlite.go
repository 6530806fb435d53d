/*
Package sqlite provides a SQLite-backed implementation of generic.TxStore.

PURPOSE:
  Persists employment records, currency preferences, the active-employee
  counter and the append-only ledger. Every engine operation runs through
  WithTx so a failed settlement transfer rolls back the checkpoint write.

KEY TABLES:
  employees:            One row per identity
  currency_preferences: Settlement currency per identity
  counters:             active_employees
  transactions:         Immutable ledger of lifecycle events and payouts

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transactions table
  - No DELETE statements on transactions table

AMOUNTS:
  Stored as decimal strings so no precision is lost; the unit and fractional
  precision are stored alongside ledger amounts.

MIGRATION:
  Schema is versioned under migrations/ and applied with golang-migrate
  on New().

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-stream/generic"
)

//go:embed migrations/*.sql
var migrations embed.FS

const activeCounter = "active_employees"

// Store implements generic.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies pending schema migrations. The migrator is not closed:
// its database driver owns no resources beyond s.db, and closing it would
// close s.db.
func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// STORE (generic.Store interface)
// =============================================================================

func (s *Store) GetRecord(ctx context.Context, id generic.Identity) (*generic.EmploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRecord(ctx, s.db, id)
}

func (s *Store) SaveRecord(ctx context.Context, rec generic.EmploymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRecord(ctx, s.db, rec)
}

func (s *Store) ListRecords(ctx context.Context) ([]generic.EmploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(ctx, s.db)
}

func (s *Store) GetCurrency(ctx context.Context, id generic.Identity) (generic.Currency, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCurrency(ctx, s.db, id)
}

func (s *Store) SaveCurrency(ctx context.Context, id generic.Identity, c generic.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCurrency(ctx, s.db, id, c)
}

func (s *Store) ActiveCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeCount(ctx, s.db)
}

func (s *Store) AdjustActiveCount(ctx context.Context, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustActiveCount(ctx, s.db, delta)
}

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTx(ctx, s.db, tx)
}

// Load returns all ledger entries for an identity.
func (s *Store) Load(ctx context.Context, id generic.Identity) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTxs(ctx, s.db, id)
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return exists(ctx, s.db, idempotencyKey)
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every query on the open transaction; the parent lock is
// already held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetRecord(ctx context.Context, id generic.Identity) (*generic.EmploymentRecord, error) {
	return getRecord(ctx, ts.tx, id)
}

func (ts *txStore) SaveRecord(ctx context.Context, rec generic.EmploymentRecord) error {
	return saveRecord(ctx, ts.tx, rec)
}

func (ts *txStore) ListRecords(ctx context.Context) ([]generic.EmploymentRecord, error) {
	return listRecords(ctx, ts.tx)
}

func (ts *txStore) GetCurrency(ctx context.Context, id generic.Identity) (generic.Currency, bool, error) {
	return getCurrency(ctx, ts.tx, id)
}

func (ts *txStore) SaveCurrency(ctx context.Context, id generic.Identity, c generic.Currency) error {
	return saveCurrency(ctx, ts.tx, id, c)
}

func (ts *txStore) ActiveCount(ctx context.Context) (int, error) {
	return activeCount(ctx, ts.tx)
}

func (ts *txStore) AdjustActiveCount(ctx context.Context, delta int) error {
	return adjustActiveCount(ctx, ts.tx, delta)
}

func (ts *txStore) Append(ctx context.Context, tx generic.Transaction) error {
	return appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) Load(ctx context.Context, id generic.Identity) ([]generic.Transaction, error) {
	return loadTxs(ctx, ts.tx, id)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return exists(ctx, ts.tx, idempotencyKey)
}

// =============================================================================
// EMPLOYMENT RECORDS
// =============================================================================

const recordColumns = `identity, weekly_salary, employed_since, terminated_at, last_settlement, unclaimed_accrued`

func getRecord(ctx context.Context, q querier, id generic.Identity) (*generic.EmploymentRecord, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM employees WHERE identity = ?", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func saveRecord(ctx context.Context, q querier, rec generic.EmploymentRecord) error {
	query := `
		INSERT INTO employees
		(identity, weekly_salary, employed_since, terminated_at, last_settlement, unclaimed_accrued, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			weekly_salary = excluded.weekly_salary,
			employed_since = excluded.employed_since,
			terminated_at = excluded.terminated_at,
			last_settlement = excluded.last_settlement,
			unclaimed_accrued = excluded.unclaimed_accrued,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		rec.Identity,
		rec.WeeklySalary.Value.String(),
		formatTime(rec.EmployedSince),
		nullTime(rec.TerminatedAt),
		formatTime(rec.LastSettlement),
		rec.UnclaimedAccrued.Value.String(),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", rec.Identity, err)
	}
	return nil
}

func listRecords(ctx context.Context, q querier) ([]generic.EmploymentRecord, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+recordColumns+" FROM employees ORDER BY identity")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var records []generic.EmploymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (generic.EmploymentRecord, error) {
	var (
		rec                        generic.EmploymentRecord
		salary, unclaimed          string
		employedSince, lastSettled string
		terminatedAt               sql.NullString
	)
	err := row.Scan(&rec.Identity, &salary, &employedSince, &terminatedAt, &lastSettled, &unclaimed)
	if err != nil {
		return rec, err
	}

	if rec.WeeklySalary, err = generic.ParseAmount(salary, generic.UnitInternal, generic.InternalDecimals); err != nil {
		return rec, err
	}
	if rec.UnclaimedAccrued, err = generic.ParseAmount(unclaimed, generic.UnitInternal, generic.InternalDecimals); err != nil {
		return rec, err
	}
	if rec.EmployedSince, err = parseTime(employedSince); err != nil {
		return rec, fmt.Errorf("record %s: employed_since: %w", rec.Identity, err)
	}
	if rec.LastSettlement, err = parseTime(lastSettled); err != nil {
		return rec, fmt.Errorf("record %s: last_settlement: %w", rec.Identity, err)
	}
	if terminatedAt.Valid {
		if rec.TerminatedAt, err = parseTime(terminatedAt.String); err != nil {
			return rec, fmt.Errorf("record %s: terminated_at: %w", rec.Identity, err)
		}
	}
	return rec, nil
}

// =============================================================================
// CURRENCY PREFERENCES
// =============================================================================

func getCurrency(ctx context.Context, q querier, id generic.Identity) (generic.Currency, bool, error) {
	var c string
	err := q.QueryRowContext(ctx,
		"SELECT currency FROM currency_preferences WHERE identity = ?", id,
	).Scan(&c)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return generic.Currency(c), true, nil
}

func saveCurrency(ctx context.Context, q querier, id generic.Identity, c generic.Currency) error {
	if !c.Valid() {
		return fmt.Errorf("invalid currency %q", c)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO currency_preferences (identity, currency, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`, id, c, formatTime(time.Now()))
	return err
}

// =============================================================================
// COUNTERS
// =============================================================================

func activeCount(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT value FROM counters WHERE name = ?", activeCounter).Scan(&n)
	return n, err
}

func adjustActiveCount(ctx context.Context, q querier, delta int) error {
	_, err := q.ExecContext(ctx, "UPDATE counters SET value = value + ? WHERE name = ?", delta, activeCounter)
	return err
}

// =============================================================================
// LEDGER
// =============================================================================

const txColumns = `id, identity, tx_type, effective_at, accrued_value, accrued_unit, accrued_decimals,
		       paid_value, paid_unit, paid_decimals, reference_id, reason, idempotency_key,
		       metadata_json, created_by, created_at`

func appendTx(ctx context.Context, q querier, tx generic.Transaction) error {
	metadataJSON, _ := json.Marshal(tx.Metadata)
	accValue, accUnit, accDecimals := amountColumns(tx.Accrued)
	paidValue, paidUnit, paidDecimals := amountColumns(tx.Paid)

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO transactions
		(id, identity, tx_type, effective_at, accrued_value, accrued_unit, accrued_decimals,
		 paid_value, paid_unit, paid_decimals, reference_id, reason, idempotency_key,
		 metadata_json, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		tx.ID,
		tx.Identity,
		tx.Type,
		formatTime(tx.EffectiveAt),
		accValue, accUnit, accDecimals,
		paidValue, paidUnit, paidDecimals,
		nullString(tx.ReferenceID),
		tx.Reason,
		nullString(tx.IdempotencyKey),
		string(metadataJSON),
		tx.CreatedBy,
		formatTime(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func loadTxs(ctx context.Context, q querier, id generic.Identity) ([]generic.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE identity = ? ORDER BY effective_at ASC, seq ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func exists(ctx context.Context, q querier, idempotencyKey string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx                         generic.Transaction
		effectiveAt, createdAt     string
		accValue, accUnit          sql.NullString
		paidValue, paidUnit        sql.NullString
		accDecimals, paidDecimals  sql.NullInt64
		referenceID, reason        sql.NullString
		idempotencyKey, createdBy  sql.NullString
		metadataJSON               sql.NullString
	)

	err := rows.Scan(
		&tx.ID, &tx.Identity, &tx.Type, &effectiveAt,
		&accValue, &accUnit, &accDecimals,
		&paidValue, &paidUnit, &paidDecimals,
		&referenceID, &reason, &idempotencyKey,
		&metadataJSON, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if tx.EffectiveAt, err = parseTime(effectiveAt); err != nil {
		return tx, fmt.Errorf("transaction %s: effective_at: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return tx, fmt.Errorf("transaction %s: created_at: %w", tx.ID, err)
	}
	if tx.Accrued, err = parseAmount(accValue, accUnit, accDecimals); err != nil {
		return tx, fmt.Errorf("transaction %s: accrued: %w", tx.ID, err)
	}
	if tx.Paid, err = parseAmount(paidValue, paidUnit, paidDecimals); err != nil {
		return tx, fmt.Errorf("transaction %s: paid: %w", tx.ID, err)
	}
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &tx.Metadata); err != nil {
			return tx, fmt.Errorf("failed to decode metadata of %s: %w", tx.ID, err)
		}
	}

	return tx, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// amountColumns stores an unset amount (no unit) as NULLs.
func amountColumns(a generic.Amount) (sql.NullString, sql.NullString, sql.NullInt64) {
	if a.Unit == "" {
		return sql.NullString{}, sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: a.Value.String(), Valid: true},
		sql.NullString{String: string(a.Unit), Valid: true},
		sql.NullInt64{Int64: int64(a.Decimals), Valid: true}
}

func parseAmount(value, unit sql.NullString, decimals sql.NullInt64) (generic.Amount, error) {
	if !value.Valid {
		return generic.Amount{}, nil
	}
	return generic.ParseAmount(value.String, generic.Unit(unit.String), int32(decimals.Int64))
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
