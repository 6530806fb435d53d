/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The payroll package returns these (often wrapped with context); the HTTP
  layer maps them to status codes with errors.Is.

ERROR CATEGORIES:
  1. Authorization errors - caller role does not fit the operation
  2. Lifecycle errors - register/terminate against the wrong state
  3. Settlement errors - the transfer collaborator reported failure
  4. Store errors - persistence failures

USAGE:
  if errors.Is(err, generic.ErrSettlementTransferFailed) {
      // accrual bookkeeping is untouched, retry is safe
  }

SEE ALSO:
  - payroll/settlement.go: Produces TransferError
  - api/errors.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotAuthorized is returned when the caller's role does not match the
	// role the operation requires.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrEmployeeAlreadyRegistered is returned when registering an identity
	// that already has an active employment record.
	ErrEmployeeAlreadyRegistered = errors.New("employee already registered")

	// ErrEmployeeNotRegistered is returned when an operation needs an active
	// (or, for final settlement, terminated) record and none exists.
	ErrEmployeeNotRegistered = errors.New("employee not registered")

	// ErrSettlementTransferFailed is returned when the value-transfer
	// collaborator rejects a payout.
	ErrSettlementTransferFailed = errors.New("settlement transfer failed")

	// ErrInsufficientFunds is returned by treasuries that cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidSalary is returned for non-positive weekly salaries.
	ErrInvalidSalary = errors.New("invalid weekly salary")

	// ErrInvalidRate is returned when the price reference reports a non-positive rate.
	ErrInvalidRate = errors.New("invalid price rate")

	// ErrInvalidIdentity is returned for empty identities.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrStaleRate is returned when the price reference is older than allowed.
	ErrStaleRate = errors.New("stale price rate")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransferError describes a failed payout. It matches both
// ErrSettlementTransferFailed and the collaborator's own error.
type TransferError struct {
	Recipient Identity
	Amount    Amount
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("settlement transfer of %s %s to %s failed: %v",
		e.Amount, e.Amount.Unit, e.Recipient, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrSettlementTransferFailed, e.Err}
}

// InsufficientFundsError provides details about a treasury shortfall.
type InsufficientFundsError struct {
	Available Amount
	Requested Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s %s",
		e.Available, e.Requested, e.Requested.Unit)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsAuthError returns true if the caller was rejected by the access gate.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsClientError returns true if the error is due to invalid client input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmployeeAlreadyRegistered) ||
		errors.Is(err, ErrInvalidSalary) ||
		errors.Is(err, ErrInvalidIdentity) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing employment record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotRegistered)
}
