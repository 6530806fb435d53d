/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Amounts always travel
  as decimal strings at their full precision so clients never see a float.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// RegisterEmployeeRequest is the body of POST /api/employees.
type RegisterEmployeeRequest struct {
	Identity     string `json:"identity"`
	WeeklySalary string `json:"weekly_salary"`
}

// EmploymentDTO is an employment record as returned by register/terminate.
type EmploymentDTO struct {
	Identity         string     `json:"identity"`
	WeeklySalary     string     `json:"weekly_salary"`
	EmployedSince    time.Time  `json:"employed_since"`
	TerminatedAt     *time.Time `json:"terminated_at,omitempty"`
	LastSettlement   time.Time  `json:"last_settlement"`
	UnclaimedAccrued string     `json:"unclaimed_accrued"`
	State            string     `json:"state"`
}

// EmployeeDTO is the public view returned by GET /api/employees/{id}.
type EmployeeDTO struct {
	Identity      string     `json:"identity"`
	WeeklySalary  string     `json:"weekly_salary"`
	EmployedSince time.Time  `json:"employed_since"`
	TerminatedAt  *time.Time `json:"terminated_at,omitempty"`
	State         string     `json:"state"`
	Currency      string     `json:"currency"`
}

type SalaryDTO struct {
	Identity  string    `json:"identity"`
	Available string    `json:"available"`
	Unit      string    `json:"unit"`
	Currency  string    `json:"currency"`
	Owed      string    `json:"owed"`
	AsOf      time.Time `json:"as_of"`
}

type CountDTO struct {
	Active int `json:"active"`
}

type CurrencyDTO struct {
	Currency string `json:"currency"`
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

type SettlementDTO struct {
	TransactionID  string    `json:"transaction_id"`
	Employee       string    `json:"employee"`
	Currency       string    `json:"currency"`
	Accrued        string    `json:"accrued"`
	Paid           string    `json:"paid"`
	PaidBaseUnits  string    `json:"paid_base_units"`
	Rate           *string   `json:"rate,omitempty"`
	Reference      string    `json:"reference"`
	SettledThrough time.Time `json:"settled_through"`
}

// SettlementResponse wraps a settlement; Settled is false when nothing was
// owed or the amount was below settlement precision.
type SettlementResponse struct {
	Settled    bool           `json:"settled"`
	Settlement *SettlementDTO `json:"settlement,omitempty"`
}

// TransactionDTO is one ledger entry.
type TransactionDTO struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	EffectiveAt time.Time         `json:"effective_at"`
	Accrued     string            `json:"accrued,omitempty"`
	Paid        string            `json:"paid,omitempty"`
	PaidUnit    string            `json:"paid_unit,omitempty"`
	ReferenceID string            `json:"reference_id,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
}

// =============================================================================
// TREASURY
// =============================================================================

// DepositRequest carries either a decimal Amount or an integer count of the
// currency's smallest unit in BaseUnits.
type DepositRequest struct {
	Currency  string `json:"currency"`
	Amount    string `json:"amount,omitempty"`
	BaseUnits string `json:"base_units,omitempty"`
}

type TreasuryDTO struct {
	Balances    map[string]string `json:"balances"`
	Liabilities map[string]string `json:"liabilities"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toEmploymentDTO(rec generic.EmploymentRecord) EmploymentDTO {
	return EmploymentDTO{
		Identity:         string(rec.Identity),
		WeeklySalary:     rec.WeeklySalary.String(),
		EmployedSince:    rec.EmployedSince,
		TerminatedAt:     optionalTime(rec.TerminatedAt),
		LastSettlement:   rec.LastSettlement,
		UnclaimedAccrued: rec.UnclaimedAccrued.String(),
		State:            string(rec.State()),
	}
}

func toEmployeeDTO(info payroll.EmployeeInfo) EmployeeDTO {
	return EmployeeDTO{
		Identity:      string(info.Identity),
		WeeklySalary:  info.WeeklySalary.String(),
		EmployedSince: info.EmployedSince,
		TerminatedAt:  optionalTime(info.TerminatedAt),
		State:         string(info.State),
		Currency:      string(info.Currency),
	}
}

func toSettlementResponse(s *payroll.Settlement) SettlementResponse {
	if s == nil {
		return SettlementResponse{}
	}
	dto := &SettlementDTO{
		TransactionID:  string(s.TransactionID),
		Employee:       string(s.Employee),
		Currency:       string(s.Currency),
		Accrued:        s.Accrued.String(),
		Paid:           s.Paid.String(),
		PaidBaseUnits:  s.Paid.BaseUnits().String(),
		Reference:      s.Reference,
		SettledThrough: s.SettledThrough,
	}
	if s.Rate != nil {
		rate := s.Rate.String()
		dto.Rate = &rate
	}
	return SettlementResponse{Settled: true, Settlement: dto}
}

func toTransactionDTOs(txs []generic.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dto := TransactionDTO{
			ID:          string(tx.ID),
			Type:        string(tx.Type),
			EffectiveAt: tx.EffectiveAt,
			ReferenceID: tx.ReferenceID,
			Reason:      tx.Reason,
			Metadata:    tx.Metadata,
			CreatedBy:   tx.CreatedBy,
		}
		if tx.Accrued.Unit != "" {
			dto.Accrued = tx.Accrued.String()
		}
		if tx.Paid.Unit != "" {
			dto.Paid = tx.Paid.String()
			dto.PaidUnit = string(tx.Paid.Unit)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
