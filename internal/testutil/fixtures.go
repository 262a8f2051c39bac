package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const (
	TestPassword = "password123"
	TestBankName = "Ledger Bank"
	TestIFSC     = "LDGR0000001"
)

var accountSeq atomic.Int64

func SeedCustomer(t *testing.T, db *sql.DB, name, email, phone string) *domain.Customer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	c := &domain.Customer{
		ID:           uuid.New(),
		FullName:     name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Status:       domain.CustomerStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO customers (id, full_name, email, phone, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.FullName, c.Email, c.Phone, c.PasswordHash, c.Status, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed customer %s: %v", email, err)
	}
	return c
}

type AccountOpts struct {
	Number  string
	Status  domain.AccountStatus
	Primary bool
}

// SeedAccount inserts an account with the given balance. Without opts the
// account is active, not primary, and gets a unique generated number.
func SeedAccount(t *testing.T, db *sql.DB, customerID uuid.UUID, balance string, opts ...AccountOpts) *domain.Account {
	t.Helper()

	var o AccountOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Number == "" {
		o.Number = fmt.Sprintf("9%011d", accountSeq.Add(1))
	}
	if o.Status == "" {
		o.Status = domain.AccountStatusActive
	}

	a := &domain.Account{
		ID:            uuid.New(),
		CustomerID:    customerID,
		AccountNumber: o.Number,
		BankName:      TestBankName,
		IFSCCode:      TestIFSC,
		AccountType:   domain.AccountTypeSavings,
		Balance:       decimal.RequireFromString(balance),
		Status:        o.Status,
		IsPrimary:     o.Primary,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, customer_id, account_number, bank_name, ifsc_code,
			account_type, balance, status, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.CustomerID, a.AccountNumber, a.BankName, a.IFSCCode,
		a.AccountType, a.Balance, a.Status, a.IsPrimary, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account for %s: %v", customerID, err)
	}
	return a
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func CountEntries(t *testing.T, db *sql.DB, reference string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transaction_entries WHERE reference_number = $1`, reference).Scan(&count)
	if err != nil {
		t.Fatalf("count entries for %s: %v", reference, err)
	}
	return count
}

func CountAccountEntries(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transaction_entries WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count entries for account %s: %v", accountID, err)
	}
	return count
}

// TransferStatuses returns the status of every transfer sent from the
// account, keyed by reference.
func TransferStatuses(t *testing.T, db *sql.DB, senderAccountID uuid.UUID) map[string]domain.TransferStatus {
	t.Helper()

	rows, err := db.Query(`SELECT reference, status FROM transfers WHERE sender_account_id = $1`, senderAccountID)
	if err != nil {
		t.Fatalf("list transfers for %s: %v", senderAccountID, err)
	}
	defer rows.Close()

	out := make(map[string]domain.TransferStatus)
	for rows.Next() {
		var ref string
		var status domain.TransferStatus
		if err := rows.Scan(&ref, &status); err != nil {
			t.Fatalf("scan transfer: %v", err)
		}
		out[ref] = status
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("list transfers rows: %v", err)
	}
	return out
}
