/*
Package generic provides the domain-agnostic primitives of the payroll engine.

PURPOSE:
  This package contains the fixed-point amount type, identities and the
  append-only transaction log entries shared by the payroll domain, the
  stores and the HTTP layer. It knows nothing about employees or roles.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A fixed-point quantity with a unit and a fractional precision
  - Unit: What an amount is denominated in (internal fiat, stable, native)
  - Identity: An opaque account identity (employee, manager, treasury)
  - Transaction: An immutable ledger entry recording a lifecycle event or payout

PRECISION:
  Amounts are decimal.Decimal values truncated to their Decimals on every
  construction and arithmetic result. Truncation (floor for non-negative
  values) is the only rounding policy. Nothing in the engine ever rounds up.

  internal := generic.MustAmount("300", generic.UnitInternal, 18)
  stable   := internal.Rescale(generic.UnitStable, 6)      // 300.000000

SEE ALSO:
  - errors.go: Sentinel and structured errors
  - ledger.go: Append-only transaction log
  - store.go: Persistence interfaces
*/
package generic

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Fixed-point quantity with unit
// =============================================================================

// InternalDecimals is the fractional precision of the internal accrual unit.
const InternalDecimals int32 = 18

type Amount struct {
	Value    decimal.Decimal
	Unit     Unit
	Decimals int32
}

type Unit string

const (
	UnitInternal Unit = "internal" // fiat-denominated accrual unit
	UnitStable   Unit = "stable"   // stable-asset settlement unit
	UnitNative   Unit = "native"   // native-asset settlement unit
)

// NewAmount truncates value to decimals fractional digits.
func NewAmount(value decimal.Decimal, unit Unit, decimals int32) Amount {
	return Amount{Value: value.Truncate(decimals), Unit: unit, Decimals: decimals}
}

// ZeroAmount returns a zero amount of the given unit.
func ZeroAmount(unit Unit, decimals int32) Amount {
	return Amount{Value: decimal.Zero, Unit: unit, Decimals: decimals}
}

// Internal builds an amount in the internal 18-decimal unit.
func Internal(value decimal.Decimal) Amount {
	return NewAmount(value, UnitInternal, InternalDecimals)
}

// ParseAmount parses a decimal string into an amount.
func ParseAmount(s string, unit Unit, decimals int32) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return NewAmount(d, unit, decimals), nil
}

// MustAmount is ParseAmount for literals; it panics on malformed input.
func MustAmount(s string, unit Unit, decimals int32) Amount {
	a, err := ParseAmount(s, unit, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBaseUnits builds an amount from an integer count of the smallest unit.
func FromBaseUnits(units *big.Int, unit Unit, decimals int32) Amount {
	return Amount{Value: decimal.NewFromBigInt(units, -decimals), Unit: unit, Decimals: decimals}
}

func (a Amount) Add(b Amount) Amount { return NewAmount(a.Value.Add(b.Value), a.Unit, a.Decimals) }
func (a Amount) Sub(b Amount) Amount { return NewAmount(a.Value.Sub(b.Value), a.Unit, a.Decimals) }
func (a Amount) IsZero() bool         { return a.Value.IsZero() }
func (a Amount) IsNegative() bool     { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool     { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool  { return a.Value.Equal(b.Value) }
func (a Amount) LessThan(b Amount) bool {
	return a.Value.LessThan(b.Value)
}
func (a Amount) GreaterThan(b Amount) bool {
	return a.Value.GreaterThan(b.Value)
}

// MulDiv returns a*num/den truncated to the amount's precision.
// The division is exact up to the truncation: no intermediate rounding.
func (a Amount) MulDiv(num, den decimal.Decimal) Amount {
	q, _ := a.Value.Mul(num).QuoRem(den, a.Decimals)
	return Amount{Value: q, Unit: a.Unit, Decimals: a.Decimals}
}

// Rescale re-denominates the amount at a new precision, truncating any
// digits below it. The truncated remainder is discarded.
func (a Amount) Rescale(unit Unit, decimals int32) Amount {
	return NewAmount(a.Value, unit, decimals)
}

// BaseUnits returns the amount as an integer count of its smallest unit.
func (a Amount) BaseUnits() *big.Int {
	return a.Value.Shift(a.Decimals).Truncate(0).BigInt()
}

// String formats the amount with its full fractional precision.
func (a Amount) String() string {
	return a.Value.StringFixed(a.Decimals)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type Identity string
type TransactionID string

func (id Identity) IsZero() bool { return id == "" }

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

type TransactionType string

const (
	TxRegistration TransactionType = "registration" // employment period opened
	TxTermination  TransactionType = "termination"  // accrual frozen into unclaimed
	TxSettlement   TransactionType = "settlement"   // payout to employee
	TxCurrency     TransactionType = "currency"     // settlement currency switched
	TxFunding      TransactionType = "funding"      // treasury deposit
)

type Transaction struct {
	ID             TransactionID
	Identity       Identity
	Type           TransactionType
	EffectiveAt    time.Time
	Accrued        Amount // internal-unit amount the entry accounts for
	Paid           Amount // settlement-unit amount actually transferred, if any
	ReferenceID    string // external transfer reference
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string

	// Audit fields
	CreatedBy string
	CreatedAt time.Time
}
