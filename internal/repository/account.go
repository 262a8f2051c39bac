package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const accountColumns = `id, customer_id, account_number, bank_name, ifsc_code,
	account_type, balance, status, is_primary, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// GetActiveByNumber only matches accounts in the active status; a closed or
// suspended account is reported as not found.
func (r *AccountRepository) GetActiveByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE account_number = $1 AND status = $2`,
		accountNumber, domain.AccountStatusActive,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveByNumber: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetActiveByNumber: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetActivePrimaryByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE customer_id = $1 AND is_primary AND status = $2`,
		customerID, domain.AccountStatusActive,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActivePrimaryByCustomer: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetActivePrimaryByCustomer: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE customer_id = $1 ORDER BY is_primary DESC, created_at`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByCustomerID: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByCustomerID: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByCustomerID: rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) HasPrimary(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE customer_id = $1 AND is_primary)`,
		customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("HasPrimary: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (
			id, customer_id, account_number, bank_name, ifsc_code,
			account_type, balance, status, is_primary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.CustomerID, account.AccountNumber, account.BankName, account.IFSCCode,
		account.AccountType, account.Balance, account.Status, account.IsPrimary, account.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrAccountExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetForUpdate row-locks the account for the rest of tx. NO KEY UPDATE is
// enough to serialise balance changes and still lets other transactions
// insert rows that reference the account.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR NO KEY UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// AdjustBalance adds delta to the balance and returns the new value. The
// update is refused when it would take the balance below zero.
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance`,
		delta, id,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("AdjustBalance: %w", domain.ErrInsufficientFunds)
		}
		return decimal.Zero, fmt.Errorf("AdjustBalance: %w", err)
	}
	return balance, nil
}

// SetPrimary makes accountID the only primary account of customerID.
func (r *AccountRepository) SetPrimary(ctx context.Context, tx *sql.Tx, customerID, accountID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET is_primary = false WHERE customer_id = $1 AND is_primary`,
		customerID,
	); err != nil {
		return fmt.Errorf("SetPrimary: clear: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET is_primary = true WHERE id = $1 AND customer_id = $2`,
		accountID, customerID,
	)
	if err != nil {
		return fmt.Errorf("SetPrimary: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetPrimary: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetPrimary: %w", domain.ErrNotFound)
	}
	return nil
}

// UpdateStatus changes the account status. Closing an account also drops its
// primary flag.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.AccountStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET status = $1, is_primary = (is_primary AND $1 <> 'closed')
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.CustomerID, &a.AccountNumber, &a.BankName, &a.IFSCCode,
		&a.AccountType, &a.Balance, &a.Status, &a.IsPrimary, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
