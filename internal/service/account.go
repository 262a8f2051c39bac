package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

const (
	depositPrefix    = "DEP"
	withdrawalPrefix = "WDL"

	accountNumberDigits = 12
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error)
	HasPrimary(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (bool, error)
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	SetPrimary(ctx context.Context, tx *sql.Tx, customerID, accountID uuid.UUID) error
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.AccountStatus) error
}

type customerLocker interface {
	LockForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.TransactionEntry) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID, f domain.EntryFilter) ([]domain.TransactionEntry, int, error)
}

type referenceGenerator interface {
	Generate(prefix string) (string, error)
}

type AccountService struct {
	accounts    accountRepo
	customers   customerLocker
	entries     entryRepo
	refs        referenceGenerator
	db          *sql.DB
	bankName    string
	ifscCode    string
	lockTimeout time.Duration
	now         func() time.Time
}

func NewAccountService(
	accounts accountRepo,
	customers customerLocker,
	entries entryRepo,
	refs referenceGenerator,
	db *sql.DB,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		customers:   customers,
		entries:     entries,
		refs:        refs,
		db:          db,
		bankName:    cfg.BankName,
		ifscCode:    cfg.BankIFSC,
		lockTimeout: cfg.LockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type OpenAccountRequest struct {
	CustomerID     uuid.UUID
	AccountType    domain.AccountType
	AccountNumber  string
	InitialBalance decimal.Decimal
}

// OpenAccount creates an active account. A customer's first account becomes
// their primary one, and a non-zero opening balance is posted as a deposit.
func (s *AccountService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if req.AccountType == "" {
		req.AccountType = domain.AccountTypeSavings
	}
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("OpenAccount: account type %q: %w", req.AccountType, domain.ErrInvalidRequest)
	}
	if req.InitialBalance.IsNegative() || !req.InitialBalance.Equal(req.InitialBalance.Round(2)) {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidAmount)
	}

	number := strings.TrimSpace(req.AccountNumber)
	if number == "" {
		generated, err := generateAccountNumber()
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}
		number = generated
	}

	var reference string
	if req.InitialBalance.IsPositive() {
		ref, err := s.refs.Generate(depositPrefix)
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}
		reference = ref
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.customers.LockForUpdate(ctx, tx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}
	hasPrimary, err := s.accounts.HasPrimary(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	account := &domain.Account{
		ID:            uuid.New(),
		CustomerID:    req.CustomerID,
		AccountNumber: number,
		BankName:      s.bankName,
		IFSCCode:      s.ifscCode,
		AccountType:   req.AccountType,
		Balance:       req.InitialBalance,
		Status:        domain.AccountStatusActive,
		IsPrimary:     !hasPrimary,
		CreatedAt:     s.now(),
	}
	if err := s.accounts.Create(ctx, tx, account); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	if reference != "" {
		entry := &domain.TransactionEntry{
			ID:              uuid.New(),
			AccountID:       account.ID,
			EntryType:       domain.EntryTypeCredit,
			Amount:          req.InitialBalance,
			Category:        domain.EntryCategoryDeposit,
			Description:     "Opening deposit",
			ReferenceNumber: reference,
			BalanceBefore:   decimal.Zero,
			BalanceAfter:    req.InitialBalance,
			CreatedAt:       account.CreatedAt,
		}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("OpenAccount: opening deposit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("OpenAccount: commit: %w", err)
	}

	log.Info("account opened",
		"account_id", account.ID,
		"customer_id", req.CustomerID,
		"account_type", account.AccountType,
		"primary", account.IsPrimary,
	)

	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// GetAccount returns the account only if customerID owns it; anything else
// is reported as not found.
func (s *AccountService) GetAccount(ctx context.Context, customerID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	if account.CustomerID != customerID {
		return nil, fmt.Errorf("GetAccount: %w", domain.ErrNotFound)
	}
	return account, nil
}

// GetBalance is a plain read with no side effects, so repeated calls with no
// intervening transfer return the same value.
func (s *AccountService) GetBalance(ctx context.Context, customerID, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, customerID, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetBalance: %w", err)
	}
	return account.Balance, nil
}

func (s *AccountService) SetPrimary(ctx context.Context, customerID, accountID uuid.UUID) (*domain.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SetPrimary: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := repository.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, fmt.Errorf("SetPrimary: %w", err)
	}
	if err := s.customers.LockForUpdate(ctx, tx, customerID); err != nil {
		return nil, fmt.Errorf("SetPrimary: %w", lockFailure(err))
	}
	account, err := s.lockOwned(ctx, tx, customerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("SetPrimary: %w", lockFailure(err))
	}
	if !account.IsActive() {
		return nil, fmt.Errorf("SetPrimary: %w", domain.ErrAccountInactive)
	}

	if !account.IsPrimary {
		if err := s.accounts.SetPrimary(ctx, tx, customerID, accountID); err != nil {
			return nil, fmt.Errorf("SetPrimary: %w", err)
		}
		account.IsPrimary = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SetPrimary: commit: %w", err)
	}

	logging.FromContext(ctx).Info("primary account changed",
		"customer_id", customerID,
		"account_id", accountID,
	)
	return account, nil
}

func (s *AccountService) ChangeStatus(ctx context.Context, customerID, accountID uuid.UUID, status domain.AccountStatus) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("ChangeStatus: status %q: %w", status, domain.ErrInvalidRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ChangeStatus: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := repository.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, fmt.Errorf("ChangeStatus: %w", err)
	}
	account, err := s.lockOwned(ctx, tx, customerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("ChangeStatus: %w", lockFailure(err))
	}
	if !account.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("ChangeStatus: %s -> %s: %w", account.Status, status, domain.ErrInvalidStatusTransition)
	}

	if err := s.accounts.UpdateStatus(ctx, tx, accountID, status); err != nil {
		return nil, fmt.Errorf("ChangeStatus: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ChangeStatus: commit: %w", err)
	}

	logging.FromContext(ctx).Info("account status changed",
		"account_id", accountID,
		"from", account.Status,
		"to", status,
	)

	account.Status = status
	if status == domain.AccountStatusClosed {
		account.IsPrimary = false
	}
	return account, nil
}

// Movement is the outcome of a deposit or withdrawal.
type Movement struct {
	Reference string
	Balance   decimal.Decimal
	Entry     *domain.TransactionEntry
}

func (s *AccountService) Deposit(ctx context.Context, customerID, accountID uuid.UUID, amount decimal.Decimal, description string) (*Movement, error) {
	m, err := s.move(ctx, customerID, accountID, amount, domain.EntryTypeCredit, description)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return m, nil
}

func (s *AccountService) Withdraw(ctx context.Context, customerID, accountID uuid.UUID, amount decimal.Decimal, description string) (*Movement, error) {
	m, err := s.move(ctx, customerID, accountID, amount, domain.EntryTypeDebit, description)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return m, nil
}

func (s *AccountService) move(
	ctx context.Context,
	customerID, accountID uuid.UUID,
	amount decimal.Decimal,
	entryType domain.EntryType,
	description string,
) (*Movement, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	prefix, category, delta := depositPrefix, domain.EntryCategoryDeposit, amount
	if entryType == domain.EntryTypeDebit {
		prefix, category, delta = withdrawalPrefix, domain.EntryCategoryWithdrawal, amount.Neg()
	}
	if description == "" {
		description = strings.ToUpper(string(category[:1])) + string(category[1:])
	}

	reference, err := s.refs.Generate(prefix)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := repository.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, err
	}
	account, err := s.lockOwned(ctx, tx, customerID, accountID)
	if err != nil {
		return nil, lockFailure(err)
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	after, err := s.accounts.AdjustBalance(ctx, tx, accountID, delta)
	if err != nil {
		return nil, err
	}

	entry := &domain.TransactionEntry{
		ID:              uuid.New(),
		AccountID:       accountID,
		EntryType:       entryType,
		Amount:          amount,
		Category:        category,
		Description:     description,
		ReferenceNumber: reference,
		BalanceBefore:   account.Balance,
		BalanceAfter:    after,
		CreatedAt:       s.now(),
	}
	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("balance adjusted",
		"account_id", accountID,
		"reference", reference,
		"category", category,
		"amount", amount.String(),
	)

	return &Movement{Reference: reference, Balance: after, Entry: entry}, nil
}

func (s *AccountService) lockOwned(ctx context.Context, tx *sql.Tx, customerID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func lockFailure(err error) error {
	if repository.IsLockFailure(err) {
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	}
	return err
}

func generateAccountNumber() (string, error) {
	digits := make([]byte, accountNumberDigits)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	// no leading zero
	if digits[0] == '0' {
		digits[0] = '1'
	}
	return string(digits), nil
}
