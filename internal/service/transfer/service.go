package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
)

type accountStore interface {
	AccountLookup
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

type transferStore interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transfer) error
	GetByReference(ctx context.Context, reference string) (*domain.Transfer, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transfer, int, error)
}

type entryStore interface {
	Create(ctx context.Context, tx *sql.Tx, e *domain.TransactionEntry) error
	GetByReference(ctx context.Context, reference string) ([]domain.TransactionEntry, error)
}

type referenceGenerator interface {
	Generate(prefix string) (string, error)
}

const (
	sideEffectTimeout = 5 * time.Second
	maxListLimit      = 100
)

type Service struct {
	accounts    accountStore
	transfers   transferStore
	entries     entryStore
	refs        referenceGenerator
	publisher   events.Publisher
	db          *sql.DB
	lockTimeout time.Duration
}

func NewService(
	accounts accountStore,
	transfers transferStore,
	entries entryStore,
	refs referenceGenerator,
	publisher events.Publisher,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		accounts:    accounts,
		transfers:   transfers,
		entries:     entries,
		refs:        refs,
		publisher:   publisher,
		db:          db,
		lockTimeout: cfg.LockTimeout,
	}
}

// Details is a transfer as seen by one of its parties: the record itself and
// the entries posted to that party's accounts.
type Details struct {
	Transfer *domain.Transfer
	Entries  []domain.TransactionEntry
}

// GetTransfer returns the transfer with the given reference if customerID
// owns either side of it.
func (s *Service) GetTransfer(ctx context.Context, customerID uuid.UUID, reference string) (*Details, error) {
	t, err := s.transfers.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("GetTransfer: %w", err)
	}

	owned := make(map[uuid.UUID]bool, 2)
	for _, id := range []uuid.UUID{t.SenderAccountID, t.ReceiverAccountID} {
		acct, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("GetTransfer: %w", err)
		}
		owned[id] = acct.CustomerID == customerID
	}
	if !owned[t.SenderAccountID] && !owned[t.ReceiverAccountID] {
		return nil, fmt.Errorf("GetTransfer: %w", domain.ErrNotFound)
	}

	all, err := s.entries.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("GetTransfer: %w", err)
	}
	visible := make([]domain.TransactionEntry, 0, len(all))
	for _, e := range all {
		if owned[e.AccountID] {
			visible = append(visible, e)
		}
	}

	return &Details{Transfer: t, Entries: visible}, nil
}

// ListTransfers returns every attempt, completed or failed, in which the
// account took part.
func (s *Service) ListTransfers(ctx context.Context, customerID, accountID uuid.UUID, limit, offset int) ([]domain.Transfer, int, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransfers: %w", err)
	}
	if acct.CustomerID != customerID {
		return nil, 0, fmt.Errorf("ListTransfers: %w", domain.ErrNotFound)
	}

	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset = max(offset, 0)

	transfers, total, err := s.transfers.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransfers: %w", err)
	}
	return transfers, total, nil
}
