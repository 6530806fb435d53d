package generic

import "time"

// =============================================================================
// EMPLOYMENT RECORD - One per identity
// =============================================================================

// LifecycleState is derived from a record, never stored.
type LifecycleState string

const (
	StateUnregistered LifecycleState = "unregistered"
	StateActive       LifecycleState = "active"
	StateTerminated   LifecycleState = "terminated"
)

// EmploymentRecord is the per-identity employment state.
//
// A zero TerminatedAt is the "active" sentinel. LastSettlement is the
// checkpoint up to which accrual has been paid or frozen into
// UnclaimedAccrued.
type EmploymentRecord struct {
	Identity         Identity
	WeeklySalary     Amount
	EmployedSince    time.Time
	TerminatedAt     time.Time
	LastSettlement   time.Time
	UnclaimedAccrued Amount
}

// State classifies the record. A nil record is Unregistered.
func (r *EmploymentRecord) State() LifecycleState {
	switch {
	case r == nil || r.EmployedSince.IsZero():
		return StateUnregistered
	case r.TerminatedAt.IsZero():
		return StateActive
	default:
		return StateTerminated
	}
}

func (r *EmploymentRecord) IsActive() bool     { return r.State() == StateActive }
func (r *EmploymentRecord) IsTerminated() bool { return r.State() == StateTerminated }

// =============================================================================
// CURRENCY PREFERENCE
// =============================================================================

// Currency selects the settlement path for an identity.
type Currency string

const (
	CurrencyStable Currency = "stable"
	CurrencyNative Currency = "native"
)

// DefaultCurrency is assigned to identities that never chose one.
const DefaultCurrency = CurrencyStable

func (c Currency) Valid() bool { return c == CurrencyStable || c == CurrencyNative }

// Toggle returns the other settlement currency.
func (c Currency) Toggle() Currency {
	if c == CurrencyNative {
		return CurrencyStable
	}
	return CurrencyNative
}

// Unit returns the amount unit transfers in this currency are made in.
func (c Currency) Unit() Unit {
	if c == CurrencyNative {
		return UnitNative
	}
	return UnitStable
}
