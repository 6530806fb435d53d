package payroll_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/generic/store"
	"github.com/warp/payroll-stream/payroll"
	"github.com/warp/payroll-stream/payroll/mock"
	"go.uber.org/mock/gomock"
)

// =============================================================================
// WITHDRAW
// =============================================================================

func TestWithdrawSalary_TwoDays(t *testing.T) {
	// GIVEN: 2100/week, stable settlement
	// WHEN: Withdrawing after 2 days
	// THEN: 600.000000 is transferred and nothing remains owed

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(2 * day)

	s, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, generic.CurrencyStable, s.Currency)
	assertAmount(t, internal("600"), s.Accrued)
	assertAmount(t, stable("600"), s.Paid)
	assert.Equal(t, "600.000000", s.Paid.String())
	assert.Nil(t, s.Rate)
	assert.Equal(t, start.Add(2*day), s.SettledThrough)

	payouts := env.vault.Payouts(alice)
	require.Len(t, payouts, 1)
	assert.Equal(t, s.Reference, payouts[0].Reference)

	owed, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assert.True(t, owed.IsZero())
}

func TestWithdrawSalary_HalfDay(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, alice, "2100")
	env.clock.Advance(day / 2)

	s, err := env.engine.WithdrawSalary(context.Background(), alice)
	require.NoError(t, err)
	assertAmount(t, stable("150"), s.Paid)
}

func TestWithdrawSalary_NothingOwed_NoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(day)

	_, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)

	s, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Len(t, env.vault.Payouts(alice), 1)
}

func TestWithdrawSalary_AccrualResumesAfterWithdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	env.clock.Advance(2 * day)
	_, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)

	env.clock.Advance(day)
	owed, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, internal("300"), owed)
}

func TestWithdrawSalary_Dust_KeepsAccruing(t *testing.T) {
	// GIVEN: A salary so small one second streams less than 0.000001
	// WHEN: Withdrawing after one second
	// THEN: Nothing is paid and the checkpoint does not move

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "0.1")
	env.clock.Advance(time.Second)

	s, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, s)

	owed, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assert.True(t, owed.IsPositive())
	assert.Empty(t, env.vault.Payouts(alice))
}

func TestWithdrawSalary_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(day)

	_, err := env.engine.WithdrawSalary(ctx, manager)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)

	_, err = env.engine.WithdrawSalary(ctx, "stranger")
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)

	_, err = env.engine.Terminate(ctx, manager, alice)
	require.NoError(t, err)
	_, err = env.engine.WithdrawSalary(ctx, alice)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)
}

func TestWithdrawSalary_Concurrent_PaysOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(2 * day)

	var wg sync.WaitGroup
	results := make([]*payroll.Settlement, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := env.engine.WithdrawSalary(ctx, alice)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	paid := 0
	for _, s := range results {
		if s != nil {
			paid++
			assertAmount(t, stable("600"), s.Paid)
		}
	}
	assert.Equal(t, 1, paid)
}

func TestWithdrawSalary_PartialsNeverExceedSinglePayout(t *testing.T) {
	// GIVEN: Two employees on the same odd salary over the same period
	// WHEN: One withdraws 1000 times at uneven intervals, the other once
	// THEN: The partial payouts sum to at most the single payout, and lose
	//       less than one stable unit per withdrawal to truncation

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "777.777777")
	env.register(t, bob, "777.777777")

	sum := stable("0")
	for i := 0; i < 1000; i++ {
		env.clock.Advance(time.Duration(37*(i%13)+61) * time.Second)
		s, err := env.engine.WithdrawSalary(ctx, alice)
		require.NoError(t, err)
		require.NotNil(t, s, "withdrawal %d", i)
		sum = sum.Add(s.Paid)
	}

	full, err := env.engine.WithdrawSalary(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, full)

	assert.False(t, full.Paid.LessThan(sum), "partials %s exceed single payout %s", sum, full.Paid)
	assert.False(t, stable("0.001").LessThan(full.Paid.Sub(sum)), "partials %s, single %s", sum, full.Paid)
}

// =============================================================================
// FINAL SETTLEMENT
// =============================================================================

func TestSettleFinal_TerminateThenSettleLater(t *testing.T) {
	// GIVEN: 2100/week, terminated after 2 days
	// WHEN: Settled 1 day after termination
	// THEN: Exactly 600 is paid

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	env.clock.Advance(2 * day)
	_, err := env.engine.Terminate(ctx, manager, alice)
	require.NoError(t, err)

	env.clock.Advance(day)
	s, err := env.engine.SettleFinal(ctx, manager, alice)
	require.NoError(t, err)
	require.NotNil(t, s)
	assertAmount(t, stable("600"), s.Paid)
	assert.Equal(t, start.Add(2*day), s.SettledThrough)

	owed, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assert.True(t, owed.IsZero())

	info, err := env.engine.GetEmployeeInfo(ctx, manager, alice)
	require.NoError(t, err)
	assert.Equal(t, generic.StateTerminated, info.State)
}

func TestSettleFinal_RequiresTerminated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	_, err := env.engine.SettleFinal(ctx, manager, alice)
	assert.ErrorIs(t, err, generic.ErrEmployeeNotRegistered)

	_, err = env.engine.SettleFinal(ctx, manager, "nobody")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotRegistered)
}

func TestSettleFinal_ManagerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.register(t, bob, "2100")
	env.clock.Advance(day)
	_, err := env.engine.Terminate(ctx, manager, alice)
	require.NoError(t, err)

	_, err = env.engine.SettleFinal(ctx, bob, alice)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)
	_, err = env.engine.SettleFinal(ctx, alice, alice)
	assert.ErrorIs(t, err, generic.ErrNotAuthorized)
}

// =============================================================================
// TRANSFER FAILURE
// =============================================================================

func TestWithdrawSalary_TransferFails_RollsBack(t *testing.T) {
	// GIVEN: A treasury whose transfer fails
	// WHEN: Withdrawing
	// THEN: The error is a settlement transfer failure and nothing changed

	ctrl := gomock.NewController(t)
	vault := mock.NewMockTreasury(ctrl)
	clock := generic.NewManualClock(start)

	cfg := payroll.DefaultConfig(manager)
	cfg.Clock = clock
	engine, err := payroll.NewEngine(store.NewTxMemory(), vault, nil, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = engine.Register(ctx, manager, alice, internal("2100"))
	require.NoError(t, err)
	clock.Advance(2 * day)

	railDown := errors.New("rail down")
	vault.EXPECT().
		Transfer(gomock.Any(), generic.CurrencyStable, alice, gomock.Any()).
		Return(payroll.TransferReceipt{}, railDown)

	_, err = engine.WithdrawSalary(ctx, alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrSettlementTransferFailed)
	assert.ErrorIs(t, err, railDown)

	var te *generic.TransferError
	require.ErrorAs(t, err, &te)
	assertAmount(t, stable("600"), te.Amount)

	owed, err := engine.Owed(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, internal("600"), owed)

	txs, err := engine.History(ctx, manager, alice)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, generic.TxRegistration, txs[0].Type)

	// retry pays the same amount
	vault.EXPECT().
		Transfer(gomock.Any(), generic.CurrencyStable, alice, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ generic.Currency, _ generic.Identity, amount generic.Amount) (payroll.TransferReceipt, error) {
			assertAmount(t, stable("600"), amount)
			return payroll.TransferReceipt{Reference: "ref-1"}, nil
		})

	s, err := engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", s.Reference)
}

// failingLedger is a store whose ledger appends fail inside transactions.
type failingLedger struct {
	generic.TxStore
}

func (f failingLedger) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	return f.TxStore.WithTx(ctx, func(s generic.Store) error {
		return fn(failingLedgerView{s})
	})
}

type failingLedgerView struct {
	generic.Store
}

func (failingLedgerView) Append(context.Context, generic.Transaction) error {
	return errors.New("disk full")
}

func TestWithdrawSalary_LedgerFailure_NoTransfer(t *testing.T) {
	// GIVEN: A store that cannot append to the ledger
	// WHEN: Withdrawing
	// THEN: No transfer is attempted and the amount stays owed

	ctrl := gomock.NewController(t)
	vault := mock.NewMockTreasury(ctrl)
	clock := generic.NewManualClock(start)
	mem := store.NewTxMemory()

	require.NoError(t, mem.SaveRecord(context.Background(), generic.EmploymentRecord{
		Identity:         alice,
		WeeklySalary:     internal("2100"),
		EmployedSince:    start,
		LastSettlement:   start,
		UnclaimedAccrued: internal("0"),
	}))

	cfg := payroll.DefaultConfig(manager)
	cfg.Clock = clock
	engine, err := payroll.NewEngine(failingLedger{mem}, vault, nil, cfg)
	require.NoError(t, err)
	clock.Advance(2 * day)

	// no Transfer expectation: any call fails the test
	_, err = engine.WithdrawSalary(context.Background(), alice)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.NotErrorIs(t, err, generic.ErrSettlementTransferFailed)

	owed, err := engine.Owed(context.Background(), alice)
	require.NoError(t, err)
	assertAmount(t, internal("600"), owed)
}

func TestWithdrawSalary_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")
	env.clock.Advance(10000 * day)

	_, err := env.engine.WithdrawSalary(ctx, alice)
	assert.ErrorIs(t, err, generic.ErrSettlementTransferFailed)
	assert.ErrorIs(t, err, generic.ErrInsufficientFunds)

	owed, err := env.engine.Owed(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, internal("3000000"), owed)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestHistory_RecordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, alice, "2100")

	env.clock.Advance(2 * day)
	_, err := env.engine.WithdrawSalary(ctx, alice)
	require.NoError(t, err)

	env.clock.Advance(day)
	_, err = env.engine.Terminate(ctx, manager, alice)
	require.NoError(t, err)
	_, err = env.engine.SettleFinal(ctx, manager, alice)
	require.NoError(t, err)

	txs, err := env.engine.History(ctx, manager, alice)
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, generic.TxRegistration, txs[0].Type)
	assert.Equal(t, generic.TxSettlement, txs[1].Type)
	assert.Equal(t, generic.TxTermination, txs[2].Type)
	assert.Equal(t, generic.TxSettlement, txs[3].Type)
	assertAmount(t, internal("300"), txs[2].Accrued)

	total, err := generic.NewLedger(env.store).TotalPaid(ctx, alice)
	require.NoError(t, err)
	assertAmount(t, internal("900"), total)
}
