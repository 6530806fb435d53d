/*
store.go - Persistence interface for employment records and the ledger

PURPOSE:
  Defines the interface between the payroll engine and the database.
  Records and currency preferences are keyed by identity; the ledger is
  append-only. Different implementations use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Records, preferences, active counter, ledger entries
  TxStore: Atomic execution of a whole engine operation

ATOMIC OPERATIONS:
  Every engine operation runs inside WithTx. If the callback returns an
  error (including a failed transfer) every write it made is rolled back,
  so a failed settlement leaves the checkpoint exactly where it was.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level ledger using Store
*/
package generic

import "context"

// =============================================================================
// STORE - Records, preferences and ledger persistence
// =============================================================================

// Store persists employment state.
// Records are overwritten in place; ledger entries are APPEND-ONLY.
type Store interface {
	// GetRecord returns the record for id, or nil if none exists.
	GetRecord(ctx context.Context, id Identity) (*EmploymentRecord, error)

	// SaveRecord creates or replaces the record keyed by rec.Identity.
	SaveRecord(ctx context.Context, rec EmploymentRecord) error

	// ListRecords returns every record ordered by identity.
	ListRecords(ctx context.Context) ([]EmploymentRecord, error)

	// GetCurrency returns the stored preference and whether one exists.
	GetCurrency(ctx context.Context, id Identity) (Currency, bool, error)

	// SaveCurrency stores the preference for id.
	SaveCurrency(ctx context.Context, id Identity, c Currency) error

	// ActiveCount returns the maintained active-employee counter.
	ActiveCount(ctx context.Context) (int, error)

	// AdjustActiveCount adds delta to the active-employee counter.
	AdjustActiveCount(ctx context.Context, delta int) error

	// Append persists a ledger entry. This is the ONLY ledger write.
	Append(ctx context.Context, tx Transaction) error

	// Load returns the ledger entries for id, ordered by EffectiveAt.
	Load(ctx context.Context, id Identity) ([]Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
