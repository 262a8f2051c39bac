package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeCurrent:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether an account may move from s to next.
// Closed is terminal.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if s == next || !next.IsValid() {
		return false
	}
	return s != AccountStatusClosed
}

type Account struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	AccountNumber string
	BankName      string
	IFSCCode      string
	AccountType   AccountType
	Balance       decimal.Decimal
	Status        AccountStatus
	IsPrimary     bool
	CreatedAt     time.Time
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
