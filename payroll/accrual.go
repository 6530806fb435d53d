package payroll

import (
	"time"

	"github.com/warp/payroll-stream/generic"
)

// EffectiveEnd is the instant accrual stops: TerminatedAt for a terminated
// record, now otherwise.
func EffectiveEnd(rec generic.EmploymentRecord, now time.Time) time.Time {
	if rec.IsTerminated() {
		return generic.EarlierOf(rec.TerminatedAt, now)
	}
	return now
}

// Accrued returns the amount owed to rec at now, in the internal unit:
//
//	unclaimed + floor(weeklySalary * max(0, effectiveEnd - lastSettlement) / 1 week)
//
// It has no side effects.
func Accrued(rec generic.EmploymentRecord, now time.Time) generic.Amount {
	salary := rec.WeeklySalary.Rescale(generic.UnitInternal, generic.InternalDecimals)
	unclaimed := rec.UnclaimedAccrued.Rescale(generic.UnitInternal, generic.InternalDecimals)

	streamed := generic.WeeklyAccrual(salary).Between(rec.LastSettlement, EffectiveEnd(rec, now))
	return unclaimed.Add(streamed)
}
