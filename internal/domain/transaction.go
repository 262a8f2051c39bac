package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

type EntryCategory string

const (
	EntryCategoryTransfer   EntryCategory = "transfer"
	EntryCategoryDeposit    EntryCategory = "deposit"
	EntryCategoryWithdrawal EntryCategory = "withdrawal"
)

type TransactionEntry struct {
	ID                        uuid.UUID
	AccountID                 uuid.UUID
	EntryType                 EntryType
	Amount                    decimal.Decimal
	Category                  EntryCategory
	Description               string
	CounterpartyAccountID     *uuid.UUID
	CounterpartyAccountNumber *string
	CounterpartyBankName      *string
	CounterpartyIFSC          *string
	TransferKind              *TransferKind
	ReferenceNumber           string
	BalanceBefore             decimal.Decimal
	BalanceAfter              decimal.Decimal
	Remarks                   string
	CreatedAt                 time.Time
}

// EntryFilter narrows an account statement. Zero values mean no filter.
type EntryFilter struct {
	EntryType *EntryType
	Category  *EntryCategory
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}
