/*
Package treasury provides an in-process value-transfer collaborator.

PURPOSE:
  Vault holds per-currency settlement funds, pays transfers out of them and
  records every payout. It stands in for the external value-transfer
  mechanism so the engine can run end to end; a real deployment replaces it
  with an adapter to its payment rail behind the same payroll.Treasury
  interface.

FAILURE MODEL:
  A transfer either debits the balance and returns a receipt, or returns an
  error and changes nothing. Insufficient funds is an error, never a
  partial payout.
*/
package treasury

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
)

// Payout is one completed transfer.
type Payout struct {
	Reference string
	Currency  generic.Currency
	Recipient generic.Identity
	Amount    generic.Amount
	At        time.Time
}

type Vault struct {
	mu       sync.Mutex
	balances map[generic.Currency]generic.Amount
	payouts  []Payout
	decimals map[generic.Currency]int32
	clock    generic.Clock
}

// NewVault creates an empty vault. stableDecimals and nativeDecimals fix the
// precision balances are kept at.
func NewVault(stableDecimals, nativeDecimals int32) *Vault {
	v := &Vault{
		balances: make(map[generic.Currency]generic.Amount),
		decimals: map[generic.Currency]int32{
			generic.CurrencyStable: stableDecimals,
			generic.CurrencyNative: nativeDecimals,
		},
		clock: generic.SystemClock{},
	}
	for c, d := range v.decimals {
		v.balances[c] = generic.ZeroAmount(c.Unit(), d)
	}
	return v
}

// WithClock sets the clock used to stamp payouts.
func (v *Vault) WithClock(clock generic.Clock) *Vault {
	v.clock = clock
	return v
}

func (v *Vault) Deposit(_ context.Context, currency generic.Currency, amount generic.Amount) (generic.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal, ok := v.balances[currency]
	if !ok {
		return generic.Amount{}, fmt.Errorf("treasury: unknown currency %q", currency)
	}
	if amount.IsNegative() {
		return generic.Amount{}, fmt.Errorf("treasury: negative deposit %s", amount)
	}
	bal = bal.Add(amount.Rescale(currency.Unit(), v.decimals[currency]))
	v.balances[currency] = bal
	return bal, nil
}

func (v *Vault) Balance(_ context.Context, currency generic.Currency) (generic.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal, ok := v.balances[currency]
	if !ok {
		return generic.Amount{}, fmt.Errorf("treasury: unknown currency %q", currency)
	}
	return bal, nil
}

func (v *Vault) Transfer(_ context.Context, currency generic.Currency, recipient generic.Identity, amount generic.Amount) (payroll.TransferReceipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal, ok := v.balances[currency]
	if !ok {
		return payroll.TransferReceipt{}, fmt.Errorf("treasury: unknown currency %q", currency)
	}
	if recipient.IsZero() {
		return payroll.TransferReceipt{}, generic.ErrInvalidIdentity
	}
	if amount.IsNegative() {
		return payroll.TransferReceipt{}, fmt.Errorf("treasury: negative transfer %s", amount)
	}
	amount = amount.Rescale(currency.Unit(), v.decimals[currency])
	if bal.LessThan(amount) {
		return payroll.TransferReceipt{}, &generic.InsufficientFundsError{Available: bal, Requested: amount}
	}

	v.balances[currency] = bal.Sub(amount)
	payout := Payout{
		Reference: uuid.NewString(),
		Currency:  currency,
		Recipient: recipient,
		Amount:    amount,
		At:        v.clock.Now(),
	}
	v.payouts = append(v.payouts, payout)
	return payroll.TransferReceipt{Reference: payout.Reference}, nil
}

// Payouts returns the payouts made to recipient, oldest first.
func (v *Vault) Payouts(recipient generic.Identity) []Payout {
	v.mu.Lock()
	defer v.mu.Unlock()

	var result []Payout
	for _, p := range v.payouts {
		if p.Recipient == recipient {
			result = append(result, p)
		}
	}
	return result
}

var _ payroll.Treasury = (*Vault)(nil)
