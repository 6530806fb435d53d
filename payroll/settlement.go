package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-stream/generic"
	"go.uber.org/zap"
)

// =============================================================================
// WITHDRAW
// =============================================================================

// WithdrawSalary pays the caller everything owed up to now in their chosen
// currency. It returns (nil, nil) when there is nothing to pay.
//
// If the transfer fails the whole operation rolls back: the checkpoint and
// unclaimed amount are unchanged and a retry recomputes the same amount.
func (e *Engine) WithdrawSalary(ctx context.Context, caller generic.Identity) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var settlement *Settlement

	err := e.store.WithTx(ctx, func(s generic.Store) error {
		rec, err := s.GetRecord(ctx, caller)
		if err != nil {
			return err
		}
		if _, err := e.gate.Authorize(caller, caller, rec, OpWithdraw); err != nil {
			return err
		}
		settlement, err = e.settle(ctx, s, *rec, now, caller)
		return err
	})
	if err != nil {
		e.logger.Warn("withdrawal failed", zap.String("employee", string(caller)), zap.Error(err))
		return nil, err
	}
	return settlement, nil
}

// =============================================================================
// FINAL SETTLEMENT
// =============================================================================

// SettleFinal pays a terminated employee the amount frozen at termination.
// Manager only. The record stays Terminated; no further accrual is possible
// because the effective end is pinned to the termination time.
func (e *Engine) SettleFinal(ctx context.Context, caller, id generic.Identity) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var settlement *Settlement

	err := e.store.WithTx(ctx, func(s generic.Store) error {
		rec, err := s.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if _, err := e.gate.Authorize(caller, id, rec, OpSettleFinal); err != nil {
			return err
		}
		if !rec.IsTerminated() {
			return fmt.Errorf("%s is %s, final settlement needs a terminated record: %w",
				id, rec.State(), generic.ErrEmployeeNotRegistered)
		}
		settlement, err = e.settle(ctx, s, *rec, now, caller)
		return err
	})
	if err != nil {
		e.logger.Warn("final settlement failed", zap.String("employee", string(id)), zap.Error(err))
		return nil, err
	}
	return settlement, nil
}

// =============================================================================
// SETTLE
// =============================================================================

// settle converts and pays what rec is owed at now, then advances the
// checkpoint. Amounts below the settlement precision are not paid; when the
// whole payout truncates to zero the record is left untouched so the dust
// keeps accruing.
func (e *Engine) settle(ctx context.Context, s generic.Store, rec generic.EmploymentRecord, now time.Time, actor generic.Identity) (*Settlement, error) {
	owed := Accrued(rec, now)
	if owed.IsZero() {
		return nil, nil
	}

	currency, err := currencyOf(ctx, s, rec.Identity)
	if err != nil {
		return nil, err
	}
	quote, err := e.converter.Convert(ctx, owed, currency, now)
	if err != nil {
		return nil, err
	}
	if quote.Amount.IsZero() {
		e.logger.Debug("payout below settlement precision",
			zap.String("employee", string(rec.Identity)),
			zap.String("owed", owed.String()))
		return nil, nil
	}

	settledThrough := EffectiveEnd(rec, now)
	rec.LastSettlement = settledThrough
	rec.UnclaimedAccrued = generic.ZeroAmount(generic.UnitInternal, generic.InternalDecimals)
	if err := s.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}

	settlement := &Settlement{
		TransactionID:  generic.TransactionID(uuid.NewString()),
		Employee:       rec.Identity,
		Currency:       currency,
		Accrued:        owed,
		Paid:           quote.Amount,
		Rate:           quote.Rate,
		SettledThrough: settledThrough,
	}

	metadata := map[string]string{
		"currency":        string(currency),
		"settled_through": settledThrough.Format(time.RFC3339),
	}
	if quote.Rate != nil {
		metadata["rate"] = quote.Rate.String()
	}
	tx := generic.Transaction{
		ID:          settlement.TransactionID,
		Identity:    rec.Identity,
		Type:        generic.TxSettlement,
		EffectiveAt: now,
		Accrued:     owed,
		Paid:        quote.Amount,
		Reason:      fmt.Sprintf("paid %s %s", quote.Amount, currency),
		Metadata:    metadata,
		CreatedBy:   string(actor),
	}
	if err := e.appendLedger(ctx, s, tx); err != nil {
		return nil, err
	}

	// Transfer is the last step before commit. Every store write above is
	// rolled back with the transaction if it fails.
	receipt, err := e.treasury.Transfer(ctx, currency, rec.Identity, quote.Amount)
	if err != nil {
		return nil, &generic.TransferError{Recipient: rec.Identity, Amount: quote.Amount, Err: err}
	}
	settlement.Reference = receipt.Reference

	e.logger.Info("salary settled",
		zap.String("employee", string(rec.Identity)),
		zap.String("currency", string(currency)),
		zap.String("accrued", owed.String()),
		zap.String("paid", quote.Amount.String()),
		zap.String("reference", receipt.Reference))
	return settlement, nil
}
