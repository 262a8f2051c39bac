package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const (
	defaultStatementLimit = 20
	maxStatementLimit     = 100
)

// StatementFilter selects entries for an account statement. Type is one of
// all, credit, debit or transfer; Period is one of all, today, week, month,
// 3months or year. Empty strings mean all.
type StatementFilter struct {
	Type   string
	Period string
	Limit  int
	Offset int
}

type Statement struct {
	Account *domain.Account
	Entries []domain.TransactionEntry
	Total   int
	Limit   int
	Offset  int
}

func (s *AccountService) Statement(ctx context.Context, customerID, accountID uuid.UUID, f StatementFilter) (*Statement, error) {
	filter, err := f.toEntryFilter(s.now())
	if err != nil {
		return nil, fmt.Errorf("Statement: %w", err)
	}

	account, err := s.GetAccount(ctx, customerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("Statement: %w", err)
	}

	entries, total, err := s.entries.GetByAccountID(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("Statement: %w", err)
	}

	return &Statement{
		Account: account,
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func (f StatementFilter) toEntryFilter(now time.Time) (domain.EntryFilter, error) {
	out := domain.EntryFilter{Limit: f.Limit, Offset: f.Offset}

	switch f.Type {
	case "", "all":
	case "credit":
		t := domain.EntryTypeCredit
		out.EntryType = &t
	case "debit":
		t := domain.EntryTypeDebit
		out.EntryType = &t
	case "transfer":
		c := domain.EntryCategoryTransfer
		out.Category = &c
	default:
		return out, fmt.Errorf("type %q: %w", f.Type, domain.ErrInvalidRequest)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var since time.Time
	switch f.Period {
	case "", "all":
	case "today":
		since = midnight
	case "week":
		since = midnight.AddDate(0, 0, -7)
	case "month":
		since = midnight.AddDate(0, -1, 0)
	case "3months":
		since = midnight.AddDate(0, -3, 0)
	case "year":
		since = midnight.AddDate(-1, 0, 0)
	default:
		return out, fmt.Errorf("period %q: %w", f.Period, domain.ErrInvalidRequest)
	}
	if !since.IsZero() {
		out.Since = &since
	}

	switch {
	case out.Limit <= 0:
		out.Limit = defaultStatementLimit
	case out.Limit > maxStatementLimit:
		out.Limit = maxStatementLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out, nil
}
