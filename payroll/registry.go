package payroll

import (
	"context"
	"fmt"

	"github.com/warp/payroll-stream/generic"
	"go.uber.org/zap"
)

// =============================================================================
// REGISTER
// =============================================================================

// Register opens a new employment period for id at weeklySalary.
//
// A terminated identity may be registered again: the new period starts now
// and whatever was frozen at termination and not yet paid is carried into
// the new record. The currency preference is only initialised for identities
// that never had one.
func (e *Engine) Register(ctx context.Context, caller, id generic.Identity, weeklySalary generic.Amount) (generic.EmploymentRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var (
		rec    generic.EmploymentRecord
		salary generic.Amount
	)

	err := e.store.WithTx(ctx, func(s generic.Store) error {
		prev, err := s.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if _, err := e.gate.Authorize(caller, id, prev, OpRegister); err != nil {
			return err
		}
		if id.IsZero() {
			return generic.ErrInvalidIdentity
		}
		if !weeklySalary.IsPositive() {
			return fmt.Errorf("%s: %w", weeklySalary, generic.ErrInvalidSalary)
		}
		salary = weeklySalary.Rescale(generic.UnitInternal, generic.InternalDecimals)
		if id == e.gate.Manager() {
			return fmt.Errorf("manager %s cannot be registered as an employee: %w", id, generic.ErrInvalidIdentity)
		}
		if prev.IsActive() {
			return fmt.Errorf("%s: %w", id, generic.ErrEmployeeAlreadyRegistered)
		}

		carried := generic.ZeroAmount(generic.UnitInternal, generic.InternalDecimals)
		if prev != nil {
			carried = Accrued(*prev, now)
		}

		rec = generic.EmploymentRecord{
			Identity:         id,
			WeeklySalary:     salary,
			EmployedSince:    now,
			LastSettlement:   now,
			UnclaimedAccrued: carried,
		}
		if err := s.SaveRecord(ctx, rec); err != nil {
			return err
		}

		if _, ok, err := s.GetCurrency(ctx, id); err != nil {
			return err
		} else if !ok {
			if err := s.SaveCurrency(ctx, id, generic.DefaultCurrency); err != nil {
				return err
			}
		}

		if err := s.AdjustActiveCount(ctx, 1); err != nil {
			return err
		}

		return e.appendLedger(ctx, s, generic.Transaction{
			Identity:    id,
			Type:        generic.TxRegistration,
			EffectiveAt: now,
			Accrued:     carried,
			Reason:      fmt.Sprintf("registered at %s per week", salary),
			Metadata:    map[string]string{"weekly_salary": salary.String()},
			CreatedBy:   string(caller),
		})
	})
	if err != nil {
		return generic.EmploymentRecord{}, err
	}

	e.logger.Info("employee registered",
		zap.String("employee", string(id)),
		zap.String("weekly_salary", salary.String()),
		zap.String("carried", rec.UnclaimedAccrued.String()))
	return rec, nil
}

// =============================================================================
// TERMINATE
// =============================================================================

// Terminate ends the active employment period of id.
//
// Everything accrued up to now moves into UnclaimedAccrued and the
// checkpoint moves to the termination time, so the frozen amount is
// counted exactly once whether it is paid by final settlement or carried
// into a later registration.
func (e *Engine) Terminate(ctx context.Context, caller, id generic.Identity) (generic.EmploymentRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var rec generic.EmploymentRecord

	err := e.store.WithTx(ctx, func(s generic.Store) error {
		prev, err := s.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if _, err := e.gate.Authorize(caller, id, prev, OpTerminate); err != nil {
			return err
		}
		if !prev.IsActive() {
			return fmt.Errorf("%s: %w", id, generic.ErrEmployeeNotRegistered)
		}

		rec = *prev
		owed := Accrued(rec, now)
		streamed := owed.Sub(rec.UnclaimedAccrued.Rescale(generic.UnitInternal, generic.InternalDecimals))

		rec.UnclaimedAccrued = owed
		rec.LastSettlement = now
		rec.TerminatedAt = now
		if err := s.SaveRecord(ctx, rec); err != nil {
			return err
		}
		if err := s.AdjustActiveCount(ctx, -1); err != nil {
			return err
		}

		return e.appendLedger(ctx, s, generic.Transaction{
			Identity:    id,
			Type:        generic.TxTermination,
			EffectiveAt: now,
			Accrued:     streamed,
			Reason:      "terminated",
			Metadata:    map[string]string{"unclaimed": owed.String()},
			CreatedBy:   string(caller),
		})
	})
	if err != nil {
		return generic.EmploymentRecord{}, err
	}

	e.logger.Info("employee terminated",
		zap.String("employee", string(id)),
		zap.String("unclaimed", rec.UnclaimedAccrued.String()))
	return rec, nil
}
