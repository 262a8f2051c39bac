package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidTransferKind = errors.New("invalid transfer kind")
	ErrSenderNotFound      = errors.New("sender account not found")
	ErrSenderInactive      = errors.New("sender account is not active")
	ErrReceiverNotFound    = errors.New("receiver account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrLockTimeout         = errors.New("timed out waiting for account lock")
	ErrPersistenceFailure  = errors.New("persistence failure")

	ErrNotFound                = errors.New("not found")
	ErrAccountExists           = errors.New("account number already exists")
	ErrAccountInactive         = errors.New("account is not active")
	ErrInvalidStatusTransition = errors.New("invalid account status transition")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidQRPayload        = errors.New("invalid QR payload")
	ErrCustomerExists          = errors.New("email or phone already registered")
	ErrBeneficiaryExists       = errors.New("beneficiary already exists")
)
