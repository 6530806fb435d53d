/*
Package payroll implements the streaming payroll accrual and settlement engine.

PURPOSE:
  Employees are paid a weekly salary that streams continuously. At any
  instant an employee is owed exactly what streamed since the last
  settlement, plus anything frozen at a previous termination. Withdrawal
  converts that internal 18-decimal amount into the employee's chosen
  settlement currency and pays it through an external treasury.

COMPONENTS:
  access.go:     Role classification and the role/operation matrix
  registry.go:   Register / terminate / re-register lifecycle
  accrual.go:    Pure owed-amount calculation
  currency.go:   Currency preference and settlement conversion
  settlement.go: Withdrawal and final settlement
  engine.go:     The Engine that serializes and wires everything

LIFECYCLE:
  Unregistered --Register--> Active --Terminate--> Terminated
                                ^                      |
                                +------Register--------+
                                 (unclaimed carried forward)

SEE ALSO:
  - generic/record.go: EmploymentRecord
  - treasury/: Reference value-transfer collaborator
  - oracle/: Reference price collaborators
*/
package payroll

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-stream/generic"
)

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

//go:generate mockgen -source=types.go -destination=mock/collaborators_mock.go -package=mock

// Transferer moves settlement assets to a recipient. A returned error means
// nothing was transferred.
type Transferer interface {
	Transfer(ctx context.Context, currency generic.Currency, recipient generic.Identity, amount generic.Amount) (TransferReceipt, error)
}

// FundsQuery reports funds currently held for settlement.
type FundsQuery interface {
	Balance(ctx context.Context, currency generic.Currency) (generic.Amount, error)
}

// Treasury is the full value-transfer collaborator used by the engine.
type Treasury interface {
	Transferer
	FundsQuery

	// Deposit adds funds and returns the new balance.
	Deposit(ctx context.Context, currency generic.Currency, amount generic.Amount) (generic.Amount, error)
}

// PriceFeed reports the native-asset price in the fiat/stable unit.
type PriceFeed interface {
	CurrentRate(ctx context.Context) (Rate, error)
}

// TransferReceipt identifies a completed transfer.
type TransferReceipt struct {
	Reference string
}

// =============================================================================
// RATE - Native asset price as reported by a feed
// =============================================================================

// Rate is fiat-per-native-unit as an integer Answer with Precision
// fractional digits, e.g. Answer=200000000000 Precision=8 is 2000.
type Rate struct {
	Answer    *big.Int
	Precision int32
	AsOf      time.Time
}

// NewRate builds a rate from a decimal price.
func NewRate(price decimal.Decimal, precision int32, asOf time.Time) Rate {
	return Rate{
		Answer:    price.Shift(precision).Truncate(0).BigInt(),
		Precision: precision,
		AsOf:      asOf,
	}
}

// Normalize returns the rate at the engine's internal 18-decimal precision.
func (r Rate) Normalize() (generic.Amount, error) {
	if r.Answer == nil || r.Answer.Sign() <= 0 {
		return generic.Amount{}, generic.ErrInvalidRate
	}
	norm := generic.Internal(decimal.NewFromBigInt(r.Answer, -r.Precision))
	if !norm.IsPositive() {
		return generic.Amount{}, fmt.Errorf("rate %s below internal precision: %w", r.Answer, generic.ErrInvalidRate)
	}
	return norm, nil
}

// =============================================================================
// RESULTS
// =============================================================================

// Settlement describes a completed payout.
type Settlement struct {
	TransactionID  generic.TransactionID
	Employee       generic.Identity
	Currency       generic.Currency
	Accrued        generic.Amount  // internal unit, what the checkpoint advanced over
	Paid           generic.Amount  // settlement unit, what was transferred
	Rate           *generic.Amount // normalized rate, native settlements only
	Reference      string
	SettledThrough time.Time
}

// SalarySnapshot is what an employee is owed at one instant, both in the
// internal unit and converted to their settlement currency.
type SalarySnapshot struct {
	Identity  generic.Identity
	Currency  generic.Currency
	Owed      generic.Amount
	Available generic.Amount
	AsOf      time.Time
}

// EmployeeInfo is the public view of an employment record.
type EmployeeInfo struct {
	Identity      generic.Identity
	WeeklySalary  generic.Amount
	EmployedSince time.Time
	TerminatedAt  time.Time
	State         generic.LifecycleState
	Currency      generic.Currency
}
