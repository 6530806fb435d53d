package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LINEAR ACCRUAL - Continuous streaming of a per-period rate
// =============================================================================

// LinearAccrual streams Rate evenly over PeriodSeconds.
type LinearAccrual struct {
	Rate          Amount
	PeriodSeconds int64
}

// WeeklyAccrual streams rate over a 7-day period.
func WeeklyAccrual(rate Amount) LinearAccrual {
	return LinearAccrual{Rate: rate, PeriodSeconds: SecondsPerWeek}
}

// Streamed returns floor(Rate * elapsed / PeriodSeconds) at the rate's precision.
func (a LinearAccrual) Streamed(elapsedSeconds int64) Amount {
	if elapsedSeconds <= 0 || a.PeriodSeconds <= 0 {
		return ZeroAmount(a.Rate.Unit, a.Rate.Decimals)
	}
	return a.Rate.MulDiv(decimal.NewFromInt(elapsedSeconds), decimal.NewFromInt(a.PeriodSeconds))
}

// Between returns the amount streamed over [from, to]; zero if to <= from.
func (a LinearAccrual) Between(from, to time.Time) Amount {
	return a.Streamed(ElapsedSeconds(from, to))
}
