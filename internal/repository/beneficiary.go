package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const beneficiaryColumns = `id, customer_id, name, account_number, bank_name, ifsc_code, phone, email, is_verified, added_at`

type BeneficiaryRepository struct {
	db *sql.DB
}

func NewBeneficiaryRepository(db *sql.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

func (r *BeneficiaryRepository) Create(ctx context.Context, b *domain.Beneficiary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO beneficiaries (`+beneficiaryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.CustomerID, b.Name, b.AccountNumber, b.BankName, b.IFSCCode,
		b.Phone, b.Email, b.IsVerified, b.AddedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrBeneficiaryExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetByID only returns the beneficiary when it belongs to customerID.
func (r *BeneficiaryRepository) GetByID(ctx context.Context, customerID, id uuid.UUID) (*domain.Beneficiary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1 AND customer_id = $2`,
		id, customerID,
	)
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return b, nil
}

func (r *BeneficiaryRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Beneficiary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries
		WHERE customer_id = $1 ORDER BY added_at DESC, id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByCustomer: %w", err)
	}
	defer rows.Close()

	var list []domain.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByCustomer: scan: %w", err)
		}
		list = append(list, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByCustomer: %w", err)
	}
	return list, nil
}

func scanBeneficiary(s scanner) (*domain.Beneficiary, error) {
	var b domain.Beneficiary
	err := s.Scan(
		&b.ID, &b.CustomerID, &b.Name, &b.AccountNumber, &b.BankName, &b.IFSCCode,
		&b.Phone, &b.Email, &b.IsVerified, &b.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
