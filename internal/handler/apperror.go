package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrRateLimited        = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down"}

	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive with at most two decimal places"}
	ErrInvalidTransferKind = &AppError{http.StatusBadRequest, "INVALID_TRANSFER_KIND", "Unsupported transfer kind"}
	ErrInvalidQRPayload    = &AppError{http.StatusBadRequest, "INVALID_QR_PAYLOAD", "QR payload could not be read"}
	ErrSenderNotFound      = &AppError{http.StatusUnprocessableEntity, "SENDER_NOT_FOUND", "Sender account not found"}
	ErrSenderInactive      = &AppError{http.StatusUnprocessableEntity, "SENDER_INACTIVE", "Sender account is not active"}
	ErrReceiverNotFound    = &AppError{http.StatusUnprocessableEntity, "RECEIVER_NOT_FOUND", "Receiver account not found"}
	ErrInsufficientFunds   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrLockTimeout         = &AppError{http.StatusServiceUnavailable, "LOCK_TIMEOUT", "Account is busy, please retry"}
	ErrPersistenceFailure  = &AppError{http.StatusInternalServerError, "PERSISTENCE_FAILURE", "Transfer could not be recorded"}

	ErrAccountExists           = &AppError{http.StatusConflict, "ACCOUNT_ALREADY_EXISTS", "Account number already in use"}
	ErrAccountInactive         = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", "Account is not active"}
	ErrInvalidStatusTransition = &AppError{http.StatusConflict, "INVALID_STATUS_TRANSITION", "Account cannot move to that status"}
	ErrIdempotencyConflict     = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrCustomerExists          = &AppError{http.StatusConflict, "CUSTOMER_ALREADY_EXISTS", "Email or phone already registered"}
	ErrBeneficiaryExists       = &AppError{http.StatusConflict, "BENEFICIARY_ALREADY_EXISTS", "Beneficiary already added"}
)

// retryAfterSeconds is sent with LOCK_TIMEOUT responses.
const retryAfterSeconds = "1"
