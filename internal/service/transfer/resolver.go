package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

// AccountLookup is the read side of the account store that receiver
// resolution needs. Both methods only return active accounts.
type AccountLookup interface {
	GetActiveByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetActivePrimaryByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Account, error)
}

// Receiver is a resolved receiving account plus the counterparty details
// recorded on the sender's debit entry.
type Receiver struct {
	Account       *domain.Account
	AccountNumber string
	BankName      string
	IFSCCode      string
}

// ReceiverResolver turns the way a caller identified the receiver into an
// account. Implementations report a missing or inactive account as
// domain.ErrReceiverNotFound.
type ReceiverResolver interface {
	Resolve(ctx context.Context, lookup AccountLookup) (*Receiver, error)
}

// ByAccountNumber resolves bank transfers. BankName and IFSCCode are the
// values the sender entered and are kept as counterparty metadata; when
// empty the receiving account's own values are used.
type ByAccountNumber struct {
	AccountNumber string
	BankName      string
	IFSCCode      string
}

func (b ByAccountNumber) Resolve(ctx context.Context, lookup AccountLookup) (*Receiver, error) {
	number := strings.TrimSpace(b.AccountNumber)
	if number == "" {
		return nil, fmt.Errorf("ByAccountNumber: %w", domain.ErrReceiverNotFound)
	}

	acct, err := lookup.GetActiveByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("ByAccountNumber: %w", notFoundAsReceiver(err))
	}

	r := &Receiver{
		Account:       acct,
		AccountNumber: acct.AccountNumber,
		BankName:      acct.BankName,
		IFSCCode:      acct.IFSCCode,
	}
	if v := strings.TrimSpace(b.BankName); v != "" {
		r.BankName = v
	}
	if v := strings.TrimSpace(b.IFSCCode); v != "" {
		r.IFSCCode = strings.ToUpper(v)
	}
	return r, nil
}

// PrimaryOfCustomer resolves mobile transfers to the receiving customer's
// active primary account.
type PrimaryOfCustomer struct {
	CustomerID uuid.UUID
}

func (p PrimaryOfCustomer) Resolve(ctx context.Context, lookup AccountLookup) (*Receiver, error) {
	if p.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("PrimaryOfCustomer: %w", domain.ErrReceiverNotFound)
	}

	acct, err := lookup.GetActivePrimaryByCustomer(ctx, p.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("PrimaryOfCustomer: %w", notFoundAsReceiver(err))
	}
	return receiverFromAccount(acct), nil
}

// QRCode resolves a scanned payment code to the account it names.
type QRCode struct {
	Payload QRPayload
}

func (q QRCode) Resolve(ctx context.Context, lookup AccountLookup) (*Receiver, error) {
	acct, err := lookup.GetActiveByNumber(ctx, q.Payload.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("QRCode: %w", notFoundAsReceiver(err))
	}
	return receiverFromAccount(acct), nil
}

// BeneficiaryLookup reads a customer's saved payees.
type BeneficiaryLookup interface {
	GetByID(ctx context.Context, customerID, id uuid.UUID) (*domain.Beneficiary, error)
}

// SavedBeneficiary resolves a bank transfer to one of the caller's saved
// payees. The payee's bank details become the counterparty metadata.
type SavedBeneficiary struct {
	Beneficiaries BeneficiaryLookup
	CustomerID    uuid.UUID
	BeneficiaryID uuid.UUID
}

func (s SavedBeneficiary) Resolve(ctx context.Context, lookup AccountLookup) (*Receiver, error) {
	if s.Beneficiaries == nil || s.BeneficiaryID == uuid.Nil {
		return nil, fmt.Errorf("SavedBeneficiary: %w", domain.ErrReceiverNotFound)
	}

	b, err := s.Beneficiaries.GetByID(ctx, s.CustomerID, s.BeneficiaryID)
	if err != nil {
		return nil, fmt.Errorf("SavedBeneficiary: %w", notFoundAsReceiver(err))
	}
	return ByAccountNumber{
		AccountNumber: b.AccountNumber,
		BankName:      b.BankName,
		IFSCCode:      b.IFSCCode,
	}.Resolve(ctx, lookup)
}

func receiverFromAccount(acct *domain.Account) *Receiver {
	return &Receiver{
		Account:       acct,
		AccountNumber: acct.AccountNumber,
		BankName:      acct.BankName,
		IFSCCode:      acct.IFSCCode,
	}
}

func notFoundAsReceiver(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrReceiverNotFound
	}
	return err
}
