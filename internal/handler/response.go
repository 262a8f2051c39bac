package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Page struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{Success: true, Data: data})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	appErr := appErrorFor(err)
	if appErr == ErrLockTimeout {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	RespondAppError(w, appErr, nil)
}

// appErrorFor checks the transfer taxonomy before the generic sentinels, so a
// wrapped ErrNotFound inside ErrSenderNotFound still maps to the specific code.
func appErrorFor(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidTransferKind):
		return ErrInvalidTransferKind
	case errors.Is(err, domain.ErrInvalidQRPayload):
		return ErrInvalidQRPayload
	case errors.Is(err, domain.ErrSenderNotFound):
		return ErrSenderNotFound
	case errors.Is(err, domain.ErrSenderInactive):
		return ErrSenderInactive
	case errors.Is(err, domain.ErrReceiverNotFound):
		return ErrReceiverNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, domain.ErrLockTimeout):
		return ErrLockTimeout
	case errors.Is(err, domain.ErrPersistenceFailure):
		return ErrPersistenceFailure
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrAccountExists):
		return ErrAccountExists
	case errors.Is(err, domain.ErrAccountInactive):
		return ErrAccountInactive
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return ErrInvalidStatusTransition
	case errors.Is(err, domain.ErrCustomerExists):
		return ErrCustomerExists
	case errors.Is(err, domain.ErrBeneficiaryExists):
		return ErrBeneficiaryExists
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		return ErrInternalError
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
