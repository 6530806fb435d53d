package api

import (
	"errors"
	"net/http"

	"github.com/warp/payroll-stream/generic"
)

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingCaller):
		return http.StatusUnauthorized
	case generic.IsAuthError(err):
		return http.StatusForbidden
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrEmployeeAlreadyRegistered),
		errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, generic.ErrInvalidSalary),
		errors.Is(err, generic.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrSettlementTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, generic.ErrStaleRate),
		errors.Is(err, generic.ErrInvalidRate):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Missing caller identity"
	case http.StatusForbidden:
		return "Not authorized"
	case http.StatusNotFound:
		return "Employee not registered"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusBadGateway:
		return "Settlement transfer failed"
	case http.StatusServiceUnavailable:
		return "Price reference unavailable"
	default:
		return "Internal error"
	}
}
