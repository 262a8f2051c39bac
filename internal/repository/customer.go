package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const customerColumns = `id, full_name, email, phone, password_hash, status, created_at`

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email,
	)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return c, nil
}

// Create registers a customer. A taken email or phone yields
// ErrCustomerExists.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.FullName, c.Email, c.Phone, c.PasswordHash, c.Status, c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrCustomerExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// LockForUpdate serialises account opening for one customer.
func (r *CustomerRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("LockForUpdate: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("LockForUpdate: %w", err)
	}
	return nil
}

// SearchByPhone returns active customers whose phone number starts with
// prefix, excluding the caller.
func (r *CustomerRepository) SearchByPhone(ctx context.Context, prefix string, exclude uuid.UUID, limit int) ([]domain.Customer, error) {
	pattern := escapeLike(prefix) + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers
		WHERE phone LIKE $1 AND id <> $2 AND status = $3
		ORDER BY phone LIMIT $4`,
		pattern, exclude, domain.CustomerStatusActive, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("SearchByPhone: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchByPhone: scan: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchByPhone: rows: %w", err)
	}
	return customers, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanCustomer(s scanner) (*domain.Customer, error) {
	var c domain.Customer
	err := s.Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone,
		&c.PasswordHash, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
