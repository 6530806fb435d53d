package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-stream/generic"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE - Serialized entry point for every payroll operation
// =============================================================================

// Config configures an Engine.
type Config struct {
	Manager        generic.Identity
	StableDecimals int32
	NativeDecimals int32
	MaxRateAge     time.Duration
	Clock          generic.Clock
	Logger         *zap.Logger
}

// DefaultConfig uses 6-decimal stable and 18-decimal native settlement.
func DefaultConfig(manager generic.Identity) Config {
	return Config{
		Manager:        manager,
		StableDecimals: 6,
		NativeDecimals: 18,
	}
}

// Engine is the accrual/settlement engine.
//
// Operations are fully serialized: each one runs under mu and inside a
// single store transaction, and either applies its whole state transition
// or none of it.
type Engine struct {
	mu        sync.Mutex
	store     generic.TxStore
	gate      *Gate
	treasury  Treasury
	converter Converter
	clock     generic.Clock
	logger    *zap.Logger
}

func NewEngine(store generic.TxStore, treasury Treasury, feed PriceFeed, cfg Config) (*Engine, error) {
	if store == nil || treasury == nil {
		return nil, fmt.Errorf("payroll: store and treasury are required")
	}
	if cfg.StableDecimals < 0 || cfg.StableDecimals > generic.InternalDecimals {
		return nil, fmt.Errorf("payroll: stable decimals %d out of range", cfg.StableDecimals)
	}
	if cfg.NativeDecimals < 0 {
		return nil, fmt.Errorf("payroll: native decimals %d out of range", cfg.NativeDecimals)
	}

	gate, err := NewGate(cfg.Manager)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = generic.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:    store,
		gate:     gate,
		treasury: treasury,
		converter: Converter{
			StableDecimals: cfg.StableDecimals,
			NativeDecimals: cfg.NativeDecimals,
			MaxRateAge:     cfg.MaxRateAge,
			Feed:           feed,
		},
		clock:  clock,
		logger: logger.Named("payroll"),
	}, nil
}

func (e *Engine) Manager() generic.Identity { return e.gate.Manager() }

// =============================================================================
// READ-ONLY QUERIES
// =============================================================================

// Owed returns the internal-unit amount owed to id right now.
func (e *Engine) Owed(ctx context.Context, id generic.Identity) (generic.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var owed generic.Amount
	err := e.store.WithTx(ctx, func(s generic.Store) error {
		rec, err := e.requireRecord(ctx, s, id)
		if err != nil {
			return err
		}
		owed = Accrued(*rec, now)
		return nil
	})
	return owed, err
}

// SalaryAvailable returns what id would receive if settled now: stable
// decimals for stable settlement, the native equivalent otherwise.
// Nothing is mutated.
func (e *Engine) SalaryAvailable(ctx context.Context, id generic.Identity) (generic.Amount, error) {
	snap, err := e.Salary(ctx, id)
	if err != nil {
		return generic.Amount{}, err
	}
	return snap.Available, nil
}

// Salary reads the record and currency preference of id in one transaction
// and reports owed and available amounts at the same instant.
func (e *Engine) Salary(ctx context.Context, id generic.Identity) (SalarySnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	snap := SalarySnapshot{Identity: id, AsOf: now}
	err := e.store.WithTx(ctx, func(s generic.Store) error {
		rec, err := e.requireRecord(ctx, s, id)
		if err != nil {
			return err
		}
		snap.Currency, err = currencyOf(ctx, s, id)
		if err != nil {
			return err
		}
		snap.Owed = Accrued(*rec, now)

		quote, err := e.converter.Convert(ctx, snap.Owed, snap.Currency, now)
		if err != nil {
			return err
		}
		snap.Available = quote.Amount
		return nil
	})
	if err != nil {
		return SalarySnapshot{}, err
	}
	return snap, nil
}

// GetEmployeeInfo returns the employment terms of id. The employee may read
// their own active record; the manager may inspect any record.
func (e *Engine) GetEmployeeInfo(ctx context.Context, caller, id generic.Identity) (EmployeeInfo, error) {
	rec, err := e.authorizeRead(ctx, caller, id)
	if err != nil {
		return EmployeeInfo{}, err
	}
	if rec.State() == generic.StateUnregistered {
		return EmployeeInfo{}, fmt.Errorf("%s: %w", id, generic.ErrEmployeeNotRegistered)
	}

	currency, err := currencyOf(ctx, e.store, id)
	if err != nil {
		return EmployeeInfo{}, err
	}
	return EmployeeInfo{
		Identity:      rec.Identity,
		WeeklySalary:  rec.WeeklySalary,
		EmployedSince: rec.EmployedSince,
		TerminatedAt:  rec.TerminatedAt,
		State:         rec.State(),
		Currency:      currency,
	}, nil
}

func (e *Engine) ActiveEmployeeCount(ctx context.Context) (int, error) {
	return e.store.ActiveCount(ctx)
}

// History returns the ledger entries for id, oldest first, under the same
// access rules as GetEmployeeInfo. Identities without a record have no
// entries except the manager's own treasury deposits.
func (e *Engine) History(ctx context.Context, caller, id generic.Identity) ([]generic.Transaction, error) {
	if _, err := e.authorizeRead(ctx, caller, id); err != nil {
		return nil, err
	}
	return generic.NewLedger(e.store).Transactions(ctx, id)
}

// Liabilities sums what every employee would be paid if settled now, per
// settlement currency.
func (e *Engine) Liabilities(ctx context.Context) (map[generic.Currency]generic.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	owed := map[generic.Currency]generic.Amount{
		generic.CurrencyStable: generic.ZeroAmount(generic.UnitStable, e.converter.StableDecimals),
		generic.CurrencyNative: generic.ZeroAmount(generic.UnitNative, e.converter.NativeDecimals),
	}
	err := e.store.WithTx(ctx, func(s generic.Store) error {
		records, err := s.ListRecords(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			accrued := Accrued(rec, now)
			if accrued.IsZero() {
				continue
			}
			currency, err := currencyOf(ctx, s, rec.Identity)
			if err != nil {
				return err
			}
			quote, err := e.converter.Convert(ctx, accrued, currency, now)
			if err != nil {
				return fmt.Errorf("liability of %s: %w", rec.Identity, err)
			}
			owed[currency] = owed[currency].Add(quote.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owed, nil
}

// Decimals is the settlement precision of currency.
func (e *Engine) Decimals(currency generic.Currency) int32 {
	if currency == generic.CurrencyNative {
		return e.converter.NativeDecimals
	}
	return e.converter.StableDecimals
}

// TreasuryBalance reports funds held for settlement in currency.
func (e *Engine) TreasuryBalance(ctx context.Context, currency generic.Currency) (generic.Amount, error) {
	return e.treasury.Balance(ctx, currency)
}

// =============================================================================
// TREASURY FUNDING
// =============================================================================

// FundTreasury deposits amount into the settlement treasury. Manager only.
func (e *Engine) FundTreasury(ctx context.Context, caller generic.Identity, currency generic.Currency, amount generic.Amount) (generic.Amount, error) {
	if err := e.gate.Allow(Classify(caller, "", e.gate.Manager(), nil), OpFundTreasury); err != nil {
		return generic.Amount{}, fmt.Errorf("%s: %w", caller, err)
	}
	if !currency.Valid() {
		return generic.Amount{}, fmt.Errorf("unknown currency %q", currency)
	}
	if !amount.IsPositive() {
		return generic.Amount{}, fmt.Errorf("deposit must be positive, got %s", amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	amount = amount.Rescale(currency.Unit(), e.Decimals(currency))

	var balance generic.Amount
	err := e.store.WithTx(ctx, func(s generic.Store) error {
		err := e.appendLedger(ctx, s, generic.Transaction{
			Identity:    caller,
			Type:        generic.TxFunding,
			EffectiveAt: e.clock.Now(),
			Paid:        amount,
			Reason:      fmt.Sprintf("treasury deposit %s %s", amount, currency),
			CreatedBy:   string(caller),
		})
		if err != nil {
			return err
		}
		balance, err = e.treasury.Deposit(ctx, currency, amount)
		return err
	})
	if err != nil {
		return generic.Amount{}, err
	}

	e.logger.Info("treasury funded",
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()))
	return balance, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) requireRecord(ctx context.Context, s generic.Store, id generic.Identity) (*generic.EmploymentRecord, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.State() == generic.StateUnregistered {
		return nil, fmt.Errorf("%s: %w", id, generic.ErrEmployeeNotRegistered)
	}
	return rec, nil
}

// authorizeRead loads the record of id and checks caller may read it.
func (e *Engine) authorizeRead(ctx context.Context, caller, id generic.Identity) (*generic.EmploymentRecord, error) {
	rec, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	role := Classify(caller, id, e.gate.Manager(), rec)
	op := OpReadOwnInfo
	if role == RoleManager {
		op = OpInspect
	}
	if err := e.gate.Allow(role, op); err != nil {
		return nil, fmt.Errorf("%s as %s: %w", caller, role, err)
	}
	return rec, nil
}

func (e *Engine) appendLedger(ctx context.Context, s generic.Store, tx generic.Transaction) error {
	if tx.ID == "" {
		tx.ID = generic.TransactionID(uuid.NewString())
	}
	if tx.IdempotencyKey == "" {
		tx.IdempotencyKey = string(tx.ID)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = tx.EffectiveAt
	}
	return generic.NewLedger(s).Append(ctx, tx)
}
