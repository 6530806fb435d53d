package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/payroll-stream/generic"
	"go.uber.org/zap"
)

// =============================================================================
// CONVERTER - Internal unit to settlement unit
// =============================================================================

// Converter turns an internal 18-decimal fiat amount into a settlement amount.
type Converter struct {
	StableDecimals int32
	NativeDecimals int32
	MaxRateAge     time.Duration // zero disables the staleness check
	Feed           PriceFeed
}

// Quote is a converted amount and the rate used, if any.
type Quote struct {
	Amount generic.Amount
	Rate   *generic.Amount
}

// Convert truncates owed into the settlement unit of currency. Stable
// settlement drops digits below StableDecimals; native settlement divides
// by the normalized rate and drops digits below NativeDecimals.
func (c Converter) Convert(ctx context.Context, owed generic.Amount, currency generic.Currency, now time.Time) (Quote, error) {
	switch currency {
	case generic.CurrencyStable:
		return Quote{Amount: owed.Rescale(generic.UnitStable, c.StableDecimals)}, nil
	case generic.CurrencyNative:
		if owed.IsZero() {
			return Quote{Amount: generic.ZeroAmount(generic.UnitNative, c.NativeDecimals)}, nil
		}
		rate, err := c.rate(ctx, now)
		if err != nil {
			return Quote{}, err
		}
		q, _ := owed.Value.QuoRem(rate.Value, c.NativeDecimals)
		return Quote{
			Amount: generic.NewAmount(q, generic.UnitNative, c.NativeDecimals),
			Rate:   &rate,
		}, nil
	default:
		return Quote{}, fmt.Errorf("unknown settlement currency %q", currency)
	}
}

func (c Converter) rate(ctx context.Context, now time.Time) (generic.Amount, error) {
	if c.Feed == nil {
		return generic.Amount{}, fmt.Errorf("no price feed configured: %w", generic.ErrInvalidRate)
	}
	r, err := c.Feed.CurrentRate(ctx)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("read price feed: %w", err)
	}
	if c.MaxRateAge > 0 && !r.AsOf.IsZero() && now.Sub(r.AsOf) > c.MaxRateAge {
		return generic.Amount{}, fmt.Errorf("rate as of %s: %w", r.AsOf.Format(time.RFC3339), generic.ErrStaleRate)
	}
	return r.Normalize()
}

// =============================================================================
// SWITCH CURRENCY
// =============================================================================

// SwitchCurrency toggles the caller's settlement currency. Accrued amounts
// are currency-agnostic, so nothing is converted or settled here.
func (e *Engine) SwitchCurrency(ctx context.Context, caller generic.Identity) (generic.Currency, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var next generic.Currency

	err := e.store.WithTx(ctx, func(s generic.Store) error {
		rec, err := s.GetRecord(ctx, caller)
		if err != nil {
			return err
		}
		if _, err := e.gate.Authorize(caller, caller, rec, OpSwitchCurrency); err != nil {
			return err
		}

		current, err := currencyOf(ctx, s, caller)
		if err != nil {
			return err
		}
		next = current.Toggle()
		if err := s.SaveCurrency(ctx, caller, next); err != nil {
			return err
		}

		return e.appendLedger(ctx, s, generic.Transaction{
			Identity:    caller,
			Type:        generic.TxCurrency,
			EffectiveAt: now,
			Reason:      fmt.Sprintf("settlement currency %s -> %s", current, next),
			Metadata:    map[string]string{"from": string(current), "to": string(next)},
			CreatedBy:   string(caller),
		})
	})
	if err != nil {
		return "", err
	}

	e.logger.Info("settlement currency switched",
		zap.String("employee", string(caller)),
		zap.String("currency", string(next)))
	return next, nil
}

func currencyOf(ctx context.Context, s generic.Store, id generic.Identity) (generic.Currency, error) {
	c, ok, err := s.GetCurrency(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return generic.DefaultCurrency, nil
	}
	return c, nil
}
