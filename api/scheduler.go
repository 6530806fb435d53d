/*
scheduler.go - Treasury solvency monitor

PURPOSE:
  Periodically compares what the engine owes every employee (per settlement
  currency) with what the treasury holds, and logs a warning when a full
  payout run could not be covered. It never moves funds.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks immediately on start, then on every tick
  - Keeps the last report for LastReport

USAGE:
  monitor := NewSolvencyMonitor(engine, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - payroll/engine.go: Liabilities, TreasuryBalance
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
	"go.uber.org/zap"
)

// SolvencyReport is the outcome of one check.
type SolvencyReport struct {
	CheckedAt   time.Time
	Liabilities map[generic.Currency]generic.Amount
	Balances    map[generic.Currency]generic.Amount
	Shortfall   map[generic.Currency]generic.Amount // only currencies that are short
}

// Solvent reports whether every currency is covered.
func (r SolvencyReport) Solvent() bool { return len(r.Shortfall) == 0 }

// SolvencyMonitor periodically checks treasury coverage.
type SolvencyMonitor struct {
	Engine        *payroll.Engine
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	last   *SolvencyReport
}

func NewSolvencyMonitor(engine *payroll.Engine, logger *zap.Logger) *SolvencyMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolvencyMonitor{
		Engine:        engine,
		CheckInterval: time.Minute,
		Enabled:       true,
		logger:        logger.Named("solvency"),
	}
}

// Start begins the periodic checks.
func (m *SolvencyMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled || m.CheckInterval <= 0 {
		m.logger.Info("disabled, not starting")
		return
	}
	if m.ticker != nil {
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.stop = make(chan struct{})
	m.wg.Add(1)

	go m.run(m.ticker, m.stop)

	m.logger.Info("started", zap.Duration("interval", m.CheckInterval))
}

// Stop stops the checks and waits for a running one to finish.
func (m *SolvencyMonitor) Stop() {
	m.mu.Lock()
	if m.ticker == nil {
		m.mu.Unlock()
		return
	}
	m.ticker.Stop()
	close(m.stop)
	m.ticker = nil
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("stopped")
}

func (m *SolvencyMonitor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer m.wg.Done()

	m.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			m.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and returns its report.
func (m *SolvencyMonitor) RunNow(ctx context.Context) (SolvencyReport, error) {
	report := SolvencyReport{
		Balances:  make(map[generic.Currency]generic.Amount),
		Shortfall: make(map[generic.Currency]generic.Amount),
	}

	liabilities, err := m.Engine.Liabilities(ctx)
	if err != nil {
		m.logger.Error("liabilities unavailable", zap.Error(err))
		return report, err
	}
	report.Liabilities = liabilities

	for currency, owed := range liabilities {
		bal, err := m.Engine.TreasuryBalance(ctx, currency)
		if err != nil {
			m.logger.Error("balance unavailable", zap.String("currency", string(currency)), zap.Error(err))
			return report, err
		}
		report.Balances[currency] = bal

		if bal.LessThan(owed) {
			short := owed.Sub(bal.Rescale(owed.Unit, owed.Decimals))
			report.Shortfall[currency] = short
			m.logger.Warn("treasury cannot cover outstanding salaries",
				zap.String("currency", string(currency)),
				zap.String("owed", owed.String()),
				zap.String("balance", bal.String()),
				zap.String("shortfall", short.String()))
		}
	}
	report.CheckedAt = time.Now().UTC()

	m.mu.Lock()
	m.last = &report
	m.mu.Unlock()

	return report, nil
}

// LastReport returns the most recent report, if any.
func (m *SolvencyMonitor) LastReport() (SolvencyReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return SolvencyReport{}, false
	}
	return *m.last, true
}
