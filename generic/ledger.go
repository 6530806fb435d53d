/*
ledger.go - Append-only payroll event log

PURPOSE:
  The Ledger records every registration, termination, currency switch and
  payout. Employment records hold the live checkpoint; the ledger explains
  how each checkpoint got where it is.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. IDEMPOTENT: Same idempotency key = same entry (no duplicates)

EXAMPLE FLOW:
  1. Registered at 2100/week:       TxRegistration
  2. Withdrew after 2 days:          TxSettlement accrued=600 paid=600.000000
  3. Terminated 1 day later:         TxTermination accrued=300
  4. Final settlement:               TxSettlement accrued=300

SEE ALSO:
  - store.go: Low-level persistence interface
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only event log
// =============================================================================

// Ledger is the audit trail for all employment state changes.
type Ledger interface {
	// Append adds an entry. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// Transactions returns all entries for id, chronologically.
	Transactions(ctx context.Context, id Identity) ([]Transaction, error)

	// TotalPaid sums the internal-unit amount settled to id.
	TotalPaid(ctx context.Context, id Identity) (Amount, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) Transactions(ctx context.Context, id Identity) ([]Transaction, error) {
	return l.Store.Load(ctx, id)
}

func (l *DefaultLedger) TotalPaid(ctx context.Context, id Identity) (Amount, error) {
	txs, err := l.Store.Load(ctx, id)
	if err != nil {
		return Amount{}, err
	}

	total := ZeroAmount(UnitInternal, InternalDecimals)
	for _, tx := range txs {
		if tx.Type == TxSettlement {
			total = total.Add(tx.Accrued)
		}
	}
	return total, nil
}
