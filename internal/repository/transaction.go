package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const entryColumns = `id, account_id, entry_type, amount, category, description,
	counterparty_account_id, counterparty_account_number, counterparty_bank_name,
	counterparty_ifsc, transfer_kind, reference_number, balance_before, balance_after,
	remarks, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.TransactionEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transaction_entries (
			id, account_id, entry_type, amount, category, description,
			counterparty_account_id, counterparty_account_number, counterparty_bank_name,
			counterparty_ifsc, transfer_kind, reference_number, balance_before, balance_after,
			remarks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.AccountID, e.EntryType, e.Amount, e.Category, e.Description,
		e.CounterpartyAccountID, e.CounterpartyAccountNumber, e.CounterpartyBankName,
		e.CounterpartyIFSC, e.TransferKind, e.ReferenceNumber, e.BalanceBefore, e.BalanceAfter,
		e.Remarks, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) ([]domain.TransactionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transaction_entries
		WHERE reference_number = $1 ORDER BY entry_type DESC`, reference,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return entries, nil
}

func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, f domain.EntryFilter) ([]domain.TransactionEntry, int, error) {
	where := []string{"account_id = $1"}
	args := []any{accountID}

	if f.EntryType != nil {
		args = append(args, *f.EntryType)
		where = append(where, fmt.Sprintf("entry_type = $%d", len(args)))
	}
	if f.Category != nil {
		args = append(args, *f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_entries WHERE `+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: count: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM transaction_entries WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByAccountID: %w", err)
	}
	return entries, total, nil
}

func collectEntries(rows *sql.Rows) ([]domain.TransactionEntry, error) {
	var entries []domain.TransactionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.TransactionEntry, error) {
	var e domain.TransactionEntry
	err := s.Scan(
		&e.ID, &e.AccountID, &e.EntryType, &e.Amount, &e.Category, &e.Description,
		&e.CounterpartyAccountID, &e.CounterpartyAccountNumber, &e.CounterpartyBankName,
		&e.CounterpartyIFSC, &e.TransferKind, &e.ReferenceNumber, &e.BalanceBefore, &e.BalanceAfter,
		&e.Remarks, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
