/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the accrual/settlement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to payroll.Engine.
  Every mutating endpoint needs the caller identity; authorization itself
  is decided by the engine's access gate.

ENDPOINTS:
  Employees:
    POST   /api/employees                 Register (manager)
    GET    /api/employees/count           Active employee count
    GET    /api/employees/{id}            Employee info (manager or self)
    GET    /api/employees/{id}/salary     Salary available now
    GET    /api/employees/{id}/history    Ledger entries (manager or self)
    POST   /api/employees/{id}/terminate  Terminate (manager)
    POST   /api/employees/{id}/settle     Final settlement (manager)

  Self service:
    POST   /api/me/withdraw               Withdraw everything owed
    POST   /api/me/currency               Toggle settlement currency

  Treasury:
    GET    /api/treasury                  Balances and liabilities
    POST   /api/treasury/deposits         Fund the treasury (manager)

ERROR HANDLING:
  Errors are returned as JSON with the status chosen in errors.go:
  - 400: Invalid input
  - 401: Missing caller
  - 403: Role does not allow the operation
  - 404: Employee not registered
  - 409: Already registered
  - 502: Settlement transfer failed
  - 503: Price reference stale or invalid

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *payroll.Engine
	logger *zap.Logger
}

func NewHandler(engine *payroll.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, logger: logger.Named("api")}
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// RegisterEmployee opens an employment period.
// POST /api/employees
func (h *Handler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req RegisterEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	salary, err := generic.ParseAmount(req.WeeklySalary, generic.UnitInternal, generic.InternalDecimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekly_salary", err)
		return
	}

	rec, err := h.Engine.Register(r.Context(), caller, generic.Identity(req.Identity), salary)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmploymentDTO(rec))
}

// TerminateEmployee ends an employment period.
// POST /api/employees/{id}/terminate
func (h *Handler) TerminateEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	rec, err := h.Engine.Terminate(r.Context(), caller, pathIdentity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmploymentDTO(rec))
}

// SettleEmployee pays a terminated employee what was frozen at termination.
// POST /api/employees/{id}/settle
func (h *Handler) SettleEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	s, err := h.Engine.SettleFinal(r.Context(), caller, pathIdentity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(s))
}

// GetEmployee returns employment terms.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	info, err := h.Engine.GetEmployeeInfo(r.Context(), caller, pathIdentity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(info))
}

// GetSalary previews what the employee would receive if settled now.
// GET /api/employees/{id}/salary
func (h *Handler) GetSalary(w http.ResponseWriter, r *http.Request) {
	id := pathIdentity(r)
	ctx := r.Context()

	snap, err := h.Engine.Salary(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SalaryDTO{
		Identity:  string(snap.Identity),
		Available: snap.Available.String(),
		Unit:      string(snap.Available.Unit),
		Currency:  string(snap.Currency),
		Owed:      snap.Owed.String(),
		AsOf:      snap.AsOf,
	})
}

// GetHistory returns ledger entries.
// GET /api/employees/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	txs, err := h.Engine.History(r.Context(), caller, pathIdentity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CountEmployees returns the number of active employees.
// GET /api/employees/count
func (h *Handler) CountEmployees(w http.ResponseWriter, r *http.Request) {
	n, err := h.Engine.ActiveEmployeeCount(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Active: n})
}

// =============================================================================
// SELF-SERVICE ENDPOINTS
// =============================================================================

// Withdraw pays the caller everything owed.
// POST /api/me/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	s, err := h.Engine.WithdrawSalary(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(s))
}

// SwitchCurrency toggles the caller's settlement currency.
// POST /api/me/currency
func (h *Handler) SwitchCurrency(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	c, err := h.Engine.SwitchCurrency(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CurrencyDTO{Currency: string(c)})
}

// =============================================================================
// TREASURY ENDPOINTS
// =============================================================================

// GetTreasury returns balances and outstanding liabilities per currency.
// GET /api/treasury
func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	liabilities, err := h.Engine.Liabilities(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := TreasuryDTO{
		Balances:    make(map[string]string),
		Liabilities: make(map[string]string),
	}
	for _, c := range []generic.Currency{generic.CurrencyStable, generic.CurrencyNative} {
		bal, err := h.Engine.TreasuryBalance(ctx, c)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Balances[string(c)] = bal.String()
		resp.Liabilities[string(c)] = liabilities[c].String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Deposit funds the treasury.
// POST /api/treasury/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	currency := generic.Currency(req.Currency)
	if !currency.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid currency", fmt.Errorf("unknown currency %q", req.Currency))
		return
	}
	amount, err := depositAmount(req, currency, h.Engine.Decimals(currency))
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	balance, err := h.Engine.FundTreasury(r.Context(), caller, currency, amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"currency": string(currency),
		"balance":  balance.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func depositAmount(req DepositRequest, currency generic.Currency, decimals int32) (generic.Amount, error) {
	if req.BaseUnits == "" {
		return generic.ParseAmount(req.Amount, currency.Unit(), generic.InternalDecimals)
	}
	if req.Amount != "" {
		return generic.Amount{}, fmt.Errorf("set amount or base_units, not both")
	}
	units, ok := new(big.Int).SetString(req.BaseUnits, 10)
	if !ok {
		return generic.Amount{}, fmt.Errorf("invalid base_units %q", req.BaseUnits)
	}
	return generic.FromBaseUnits(units, currency.Unit(), decimals), nil
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (generic.Identity, bool) {
	id, err := CallerFrom(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, messageFor(http.StatusUnauthorized), err)
		return "", false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	} else if generic.IsClientError(err) {
		h.logger.Debug("rejected request",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, messageFor(status), err)
}

func pathIdentity(r *http.Request) generic.Identity {
	return generic.Identity(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
