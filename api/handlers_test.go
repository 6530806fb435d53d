/*
handlers_test.go - HTTP API tests

Tests for:
- Caller header handling and status mapping
- Register / withdraw / terminate / final settlement over HTTP
- Treasury funding and solvency reporting
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/oracle"
	"github.com/warp/payroll-stream/payroll"
	"github.com/warp/payroll-stream/store/sqlite"
	"github.com/warp/payroll-stream/treasury"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testManager = "manager"

type testServer struct {
	router http.Handler
	clock  *generic.ManualClock
	vault  *treasury.Vault
	engine *payroll.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := generic.NewManualClock(time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC))
	vault := treasury.NewVault(6, 18).WithClock(clock)
	_, err = vault.Deposit(context.Background(), generic.CurrencyStable, generic.MustAmount("10000", generic.UnitStable, 6))
	require.NoError(t, err)

	cfg := payroll.DefaultConfig(testManager)
	cfg.Clock = clock
	engine, err := payroll.NewEngine(store, vault, oracle.NewStatic(decimal.NewFromInt(2000), clock), cfg)
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(NewHandler(engine, nil), []string{"*"}),
		clock:  clock,
		vault:  vault,
		engine: engine,
	}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) register(t *testing.T, id, weekly string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/employees", testManager, RegisterEmployeeRequest{Identity: id, WeeklySalary: weekly})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestRegisterEmployee_Success(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/employees", testManager, RegisterEmployeeRequest{Identity: "alice", WeeklySalary: "2100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[EmploymentDTO](t, rec)
	assert.Equal(t, "alice", dto.Identity)
	assert.Equal(t, "active", dto.State)
	assert.Nil(t, dto.TerminatedAt)

	count := decode[CountDTO](t, s.do(t, http.MethodGet, "/api/employees/count", "", nil))
	assert.Equal(t, 1, count.Active)
}

func TestRegisterEmployee_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")

	tests := []struct {
		name   string
		caller string
		body   any
		status int
	}{
		{"missing caller", "", RegisterEmployeeRequest{Identity: "bob", WeeklySalary: "1"}, http.StatusUnauthorized},
		{"employee caller", "alice", RegisterEmployeeRequest{Identity: "bob", WeeklySalary: "1"}, http.StatusForbidden},
		{"employee caller zero salary", "alice", RegisterEmployeeRequest{Identity: "bob", WeeklySalary: "0"}, http.StatusForbidden},
		{"already registered", testManager, RegisterEmployeeRequest{Identity: "alice", WeeklySalary: "1"}, http.StatusConflict},
		{"zero salary", testManager, RegisterEmployeeRequest{Identity: "bob", WeeklySalary: "0"}, http.StatusBadRequest},
		{"malformed salary", testManager, RegisterEmployeeRequest{Identity: "bob", WeeklySalary: "lots"}, http.StatusBadRequest},
		{"bad body", testManager, "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/employees", tt.caller, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestGetEmployee_Access(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.register(t, "bob", "2100")

	rec := s.do(t, http.MethodGet, "/api/employees/alice", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "stable", dto.Currency)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/employees/alice", testManager, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/employees/alice", "bob", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/employees/nobody", testManager, nil).Code)
}

func TestGetSalary(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.clock.Advance(48 * time.Hour)

	rec := s.do(t, http.MethodGet, "/api/employees/alice/salary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[SalaryDTO](t, rec)
	assert.Equal(t, "600.000000", dto.Available)
	assert.Equal(t, "stable", dto.Unit)
	assert.Equal(t, "stable", dto.Currency)
	assert.Equal(t, "600.000000000000000000", dto.Owed)
	assert.True(t, s.clock.Now().Equal(dto.AsOf), "as_of %s", dto.AsOf)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/employees/nobody/salary", "", nil).Code)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestWithdraw_Flow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.clock.Advance(48 * time.Hour)

	rec := s.do(t, http.MethodPost, "/api/me/withdraw", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	require.True(t, resp.Settled)
	assert.Equal(t, "600.000000", resp.Settlement.Paid)
	assert.Equal(t, "600000000", resp.Settlement.PaidBaseUnits)
	assert.Nil(t, resp.Settlement.Rate)

	rec = s.do(t, http.MethodPost, "/api/me/withdraw", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[SettlementResponse](t, rec).Settled)

	history := decode[[]TransactionDTO](t, s.do(t, http.MethodGet, "/api/employees/alice/history", "alice", nil))
	require.Len(t, history, 2)
	assert.Equal(t, "settlement", history[1].Type)
	assert.Equal(t, "stable", history[1].PaidUnit)
}

func TestWithdraw_Native(t *testing.T) {
	s := newTestServer(t)
	_, err := s.vault.Deposit(context.Background(), generic.CurrencyNative, generic.MustAmount("1", generic.UnitNative, 18))
	require.NoError(t, err)
	s.register(t, "alice", "2100")

	rec := s.do(t, http.MethodPost, "/api/me/currency", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "native", decode[CurrencyDTO](t, rec).Currency)

	s.clock.Advance(48 * time.Hour)
	rec = s.do(t, http.MethodPost, "/api/me/withdraw", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	assert.Equal(t, "0.300000000000000000", resp.Settlement.Paid)
	assert.Equal(t, "300000000000000000", resp.Settlement.PaidBaseUnits)
	require.NotNil(t, resp.Settlement.Rate)
}

func TestWithdraw_TransferFailure(t *testing.T) {
	// GIVEN: A native-settling employee and an empty native treasury
	// WHEN: Withdrawing
	// THEN: 502 and the amount is still owed

	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.do(t, http.MethodPost, "/api/me/currency", "alice", nil)
	s.clock.Advance(48 * time.Hour)

	rec := s.do(t, http.MethodPost, "/api/me/withdraw", "alice", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	owed, err := s.engine.Owed(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "600.000000000000000000", owed.String())
}

func TestTerminateAndSettle(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.clock.Advance(48 * time.Hour)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/employees/alice/terminate", "alice", nil).Code)

	rec := s.do(t, http.MethodPost, "/api/employees/alice/terminate", testManager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[EmploymentDTO](t, rec)
	assert.Equal(t, "terminated", dto.State)
	assert.Equal(t, "600.000000000000000000", dto.UnclaimedAccrued)

	s.clock.Advance(24 * time.Hour)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/me/withdraw", "alice", nil).Code)

	rec = s.do(t, http.MethodPost, "/api/employees/alice/settle", testManager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	require.True(t, resp.Settled)
	assert.Equal(t, "600.000000", resp.Settlement.Paid)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/employees/alice/terminate", testManager, nil).Code)
}

// =============================================================================
// TREASURY
// =============================================================================

func TestTreasury_DepositAndReport(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.clock.Advance(48 * time.Hour)

	rec := s.do(t, http.MethodPost, "/api/treasury/deposits", "alice", DepositRequest{Currency: "stable", Amount: "5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/treasury/deposits", testManager, DepositRequest{Currency: "gold", Amount: "5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/treasury/deposits", testManager, DepositRequest{Currency: "stable", Amount: "5"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/treasury", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[TreasuryDTO](t, rec)
	assert.Equal(t, "10005.000000", dto.Balances["stable"])
	assert.Equal(t, "600.000000", dto.Liabilities["stable"])
	assert.Equal(t, "0.000000000000000000", dto.Liabilities["native"])
}

func TestTreasury_DepositBaseUnits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/treasury/deposits", testManager,
		DepositRequest{Currency: "native", BaseUnits: "2500000000000000000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2.500000000000000000", decode[map[string]string](t, rec)["balance"])

	rec = s.do(t, http.MethodPost, "/api/treasury/deposits", testManager,
		DepositRequest{Currency: "stable", BaseUnits: "1500000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "10001.500000", decode[map[string]string](t, rec)["balance"])

	rec = s.do(t, http.MethodPost, "/api/treasury/deposits", testManager,
		DepositRequest{Currency: "stable", BaseUnits: "1.5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/treasury/deposits", testManager,
		DepositRequest{Currency: "stable", Amount: "1", BaseUnits: "1000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSolvencyMonitor_ReportsShortfall(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", "2100")
	s.do(t, http.MethodPost, "/api/me/currency", "alice", nil)
	s.clock.Advance(48 * time.Hour)

	monitor := NewSolvencyMonitor(s.engine, nil)
	report, err := monitor.RunNow(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Solvent())
	short, ok := report.Shortfall[generic.CurrencyNative]
	require.True(t, ok)
	assert.Equal(t, "0.300000000000000000", short.String())
	_, stableShort := report.Shortfall[generic.CurrencyStable]
	assert.False(t, stableShort)

	last, ok := monitor.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.CheckedAt, last.CheckedAt)
}

func TestSolvencyMonitor_StartStop(t *testing.T) {
	s := newTestServer(t)

	monitor := NewSolvencyMonitor(s.engine, nil)
	monitor.CheckInterval = time.Hour
	monitor.Start()
	monitor.Stop()
	monitor.Stop()

	// the initial check runs before the loop waits on the ticker
	_, ok := monitor.LastReport()
	assert.True(t, ok)
}
