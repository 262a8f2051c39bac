package domain

import (
	"time"

	"github.com/google/uuid"
)

// Beneficiary is a payee a customer saved for bank transfers. The same
// account number and IFSC pair may be saved once per customer.
type Beneficiary struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	Name          string
	AccountNumber string
	BankName      string
	IFSCCode      string
	Phone         string
	Email         string
	IsVerified    bool
	AddedAt       time.Time
}
