package payroll_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
	"github.com/warp/payroll-stream/payroll/mock"
	"go.uber.org/mock/gomock"
)

// =============================================================================
// SWITCH CURRENCY
// =============================================================================

func TestSwitchCurrency_Toggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	c, err := env.engine.SwitchCurrency(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, generic.CurrencyNative, c)

	c, err = env.engine.SwitchCurrency(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, generic.CurrencyStable, c)
}

func TestSwitchCurrency_OwedUnchanged(t *testing.T) {
	// GIVEN: 600 owed after 2 days
	// WHEN: Switching to native settlement
	// THEN: The internal amount owed is unchanged and the preview is 600/2000

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(2 * day)

	before, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)

	_, err = env.engine.SwitchCurrency(ctx, alice)
	require.NoError(t, err)

	after, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, before, after)

	available, err := env.engine.SalaryAvailable(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, generic.UnitNative, available.Unit)
	assertAmount(t, native("0.3"), available)
}

func TestSwitchCurrency_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	_, err := env.engine.SwitchCurrency(ctx, manager)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)

	_, err = env.engine.SwitchCurrency(ctx, bob)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)
}

func TestWithdrawSalary_Native(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	_, err := env.engine.SwitchCurrency(ctx, alice)
	require.NoError(t, err)
	env.clock.Advance(2 * day)

	s, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, generic.CurrencyNative, s.Currency)
	assertAmount(t, native("0.3"), s.Paid)
	require.NotNil(t, s.Rate)
	assertAmount(t, internal("2000"), *s.Rate)

	payouts := env.vault.Payouts(alice)
	require.Len(t, payouts, 1)
	assert.Equal(t, generic.CurrencyNative, payouts[0].Currency)
}

func TestWithdrawSalary_NativeUsesCurrentRate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	_, err := env.engine.SwitchCurrency(ctx, alice)
	require.NoError(t, err)
	env.clock.Advance(2 * day)

	env.feed.Set(decimal.NewFromInt(3000))
	s, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, native("0.2"), s.Paid)
}

// =============================================================================
// CONVERTER
// =============================================================================

func TestConverter_Stable_Truncates(t *testing.T) {
	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18}
	q, err := c.Convert(context.Background(), internal("0.333333333333333333"), generic.CurrencyStable, start)
	require.NoError(t, err)
	assert.Equal(t, "0.333333", q.Amount.String())
	assert.Nil(t, q.Rate)
}

func TestConverter_Native_TruncatedDivision(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockPriceFeed(ctrl)
	feed.EXPECT().CurrentRate(gomock.Any()).Return(payroll.NewRate(decimal.NewFromInt(3), 8, start), nil)

	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18, Feed: feed}
	q, err := c.Convert(context.Background(), internal("1"), generic.CurrencyNative, start)
	require.NoError(t, err)
	assert.Equal(t, "0.333333333333333333", q.Amount.String())
}

func TestConverter_Native_ZeroSkipsFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockPriceFeed(ctrl)

	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18, Feed: feed}
	q, err := c.Convert(context.Background(), internal("0"), generic.CurrencyNative, start)
	require.NoError(t, err)
	assert.True(t, q.Amount.IsZero())
}

func TestConverter_StaleRate(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockPriceFeed(ctrl)
	feed.EXPECT().CurrentRate(gomock.Any()).Return(payroll.NewRate(decimal.NewFromInt(2000), 8, start), nil)

	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18, MaxRateAge: time.Hour, Feed: feed}
	_, err := c.Convert(context.Background(), internal("600"), generic.CurrencyNative, start.Add(2*time.Hour))
	assert.ErrorIs(t, err, generic.ErrStaleRate)
}

func TestConverter_InvalidRate(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockPriceFeed(ctrl)
	feed.EXPECT().CurrentRate(gomock.Any()).Return(payroll.Rate{Answer: big.NewInt(0), Precision: 8}, nil)

	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18, Feed: feed}
	_, err := c.Convert(context.Background(), internal("600"), generic.CurrencyNative, start)
	assert.ErrorIs(t, err, generic.ErrInvalidRate)
}

func TestConverter_FeedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mock.NewMockPriceFeed(ctrl)
	offline := errors.New("feed offline")
	feed.EXPECT().CurrentRate(gomock.Any()).Return(payroll.Rate{}, offline)

	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18, Feed: feed}
	_, err := c.Convert(context.Background(), internal("600"), generic.CurrencyNative, start)
	assert.ErrorIs(t, err, offline)
}

func TestConverter_NoFeed(t *testing.T) {
	c := payroll.Converter{StableDecimals: 6, NativeDecimals: 18}
	_, err := c.Convert(context.Background(), internal("600"), generic.CurrencyNative, start)
	assert.ErrorIs(t, err, generic.ErrInvalidRate)
}

func TestRate_Normalize(t *testing.T) {
	r := payroll.Rate{Answer: big.NewInt(200_000_000_000), Precision: 8}
	norm, err := r.Normalize()
	require.NoError(t, err)
	assertAmount(t, internal("2000"), norm)
	assert.Equal(t, generic.UnitInternal, norm.Unit)
}
