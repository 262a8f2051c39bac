package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferKind string

const (
	TransferKindIMPS   TransferKind = "IMPS"
	TransferKindNEFT   TransferKind = "NEFT"
	TransferKindRTGS   TransferKind = "RTGS"
	TransferKindUPI    TransferKind = "UPI"
	TransferKindMobile TransferKind = "MOBILE"
)

func (k TransferKind) IsValid() bool {
	switch k {
	case TransferKindIMPS, TransferKindNEFT, TransferKindRTGS, TransferKindUPI, TransferKindMobile:
		return true
	}
	return false
}

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed || s == TransferStatusCancelled
}

type Transfer struct {
	ID                uuid.UUID
	Reference         string
	SenderAccountID   uuid.UUID
	ReceiverAccountID uuid.UUID
	Amount            decimal.Decimal
	Kind              TransferKind
	Status            TransferStatus
	Remarks           string
	FailureReason     *string
	InitiatedAt       time.Time
	CompletedAt       *time.Time
}

// ValidateAmount accepts strictly positive amounts with at most two
// fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}
