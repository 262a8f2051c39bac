package transfer

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

type Request struct {
	// CustomerID is the authenticated caller. When set, the sender account
	// must belong to this customer.
	CustomerID uuid.UUID
	// SenderAccountID may be left nil to send from the caller's primary
	// account.
	SenderAccountID uuid.UUID
	Receiver        ReceiverResolver
	Amount          decimal.Decimal
	Kind            domain.TransferKind
	Remarks         string
}

type Result struct {
	Reference     string
	Status        domain.TransferStatus
	Amount        decimal.Decimal
	Kind          domain.TransferKind
	SenderBalance decimal.Decimal
	Transfer      *domain.Transfer
}

// ExecuteTransfer moves Amount from the sender to the resolved receiver. The
// balance changes, the transfer record and both ledger entries are committed
// together or not at all. Once both parties are resolved every attempt leaves
// exactly one transfer record: completed on success, failed otherwise.
func (s *Service) ExecuteTransfer(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	sender, receiver, err := s.checkPreconditions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ExecuteTransfer: %w", err)
	}

	reference, err := s.refs.Generate(string(req.Kind))
	if err != nil {
		return nil, fmt.Errorf("ExecuteTransfer: %w", err)
	}
	initiatedAt := time.Now().UTC()

	t, senderBalance, err := s.commitTransfer(ctx, req, reference, initiatedAt, sender, receiver)
	if err != nil {
		err = classifyFailure(err)
		s.recordFailedAttempt(ctx, req, reference, initiatedAt, sender.ID, receiver.Account.ID, err)
		log.Warn("transfer failed",
			"reference", reference,
			"sender_account", sender.ID,
			"receiver_account", receiver.Account.ID,
			"amount", req.Amount.String(),
			"kind", req.Kind,
			"error", err,
		)
		return nil, fmt.Errorf("ExecuteTransfer: %w", err)
	}

	s.publishCompleted(ctx, t)

	log.Info("transfer completed",
		"reference", t.Reference,
		"sender_account", t.SenderAccountID,
		"receiver_account", t.ReceiverAccountID,
		"amount", t.Amount.String(),
		"kind", t.Kind,
	)

	return &Result{
		Reference:     t.Reference,
		Status:        t.Status,
		Amount:        t.Amount,
		Kind:          t.Kind,
		SenderBalance: senderBalance,
		Transfer:      t,
	}, nil
}

func (s *Service) checkPreconditions(ctx context.Context, req Request) (*domain.Account, *Receiver, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, nil, fmt.Errorf("checkPreconditions: %w", err)
	}
	if !req.Kind.IsValid() {
		return nil, nil, fmt.Errorf("checkPreconditions: %q: %w", req.Kind, domain.ErrInvalidTransferKind)
	}

	sender, err := s.resolveSender(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("checkPreconditions: %w", err)
	}

	if req.Receiver == nil {
		return nil, nil, fmt.Errorf("checkPreconditions: %w", domain.ErrReceiverNotFound)
	}
	receiver, err := req.Receiver.Resolve(ctx, s.accounts)
	if err != nil {
		return nil, nil, fmt.Errorf("checkPreconditions: %w", err)
	}
	if receiver.Account.ID == sender.ID || !receiver.Account.IsActive() {
		return nil, nil, fmt.Errorf("checkPreconditions: %w", domain.ErrReceiverNotFound)
	}

	return sender, receiver, nil
}

func (s *Service) resolveSender(ctx context.Context, req Request) (*domain.Account, error) {
	var (
		sender *domain.Account
		err    error
	)
	if req.SenderAccountID == uuid.Nil {
		sender, err = s.accounts.GetActivePrimaryByCustomer(ctx, req.CustomerID)
	} else {
		sender, err = s.accounts.GetByID(ctx, req.SenderAccountID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolveSender: %w", domain.ErrSenderNotFound)
		}
		return nil, fmt.Errorf("resolveSender: %w", err)
	}

	if req.CustomerID != uuid.Nil && sender.CustomerID != req.CustomerID {
		return nil, fmt.Errorf("resolveSender: %w", domain.ErrSenderNotFound)
	}
	if !sender.IsActive() {
		return nil, fmt.Errorf("resolveSender: %w", domain.ErrSenderInactive)
	}
	return sender, nil
}

func (s *Service) commitTransfer(
	ctx context.Context,
	req Request,
	reference string,
	initiatedAt time.Time,
	sender *domain.Account,
	receiver *Receiver,
) (*domain.Transfer, decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := repository.SetLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: %w", err)
	}

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, sender.ID, receiver.Account.ID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: %w", err)
	}
	lockedSender, lockedReceiver := locked[sender.ID], locked[receiver.Account.ID]

	if !lockedSender.IsActive() {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: %w", domain.ErrSenderInactive)
	}
	if !lockedReceiver.IsActive() {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: %w", domain.ErrReceiverNotFound)
	}
	if lockedSender.Balance.LessThan(req.Amount) {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: %w", domain.ErrInsufficientFunds)
	}

	senderAfter, err := s.accounts.AdjustBalance(ctx, tx, sender.ID, req.Amount.Neg())
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: debit sender: %w", err)
	}
	receiverAfter, err := s.accounts.AdjustBalance(ctx, tx, receiver.Account.ID, req.Amount)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: credit receiver: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Transfer{
		ID:                uuid.New(),
		Reference:         reference,
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.Account.ID,
		Amount:            req.Amount,
		Kind:              req.Kind,
		Status:            domain.TransferStatusCompleted,
		Remarks:           req.Remarks,
		InitiatedAt:       initiatedAt,
		CompletedAt:       &now,
	}
	if err := s.transfers.Create(ctx, tx, t); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: create transfer: %w", err)
	}

	debit, credit := ledgerEntries(t, lockedSender, receiver, lockedReceiver, senderAfter, receiverAfter)
	if err := s.entries.Create(ctx, tx, debit); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: debit entry: %w", err)
	}
	if err := s.entries.Create(ctx, tx, credit); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: credit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commitTransfer: commit: %w", err)
	}
	return t, senderAfter, nil
}

func ledgerEntries(
	t *domain.Transfer,
	sender *domain.Account,
	receiver *Receiver,
	lockedReceiver *domain.Account,
	senderAfter, receiverAfter decimal.Decimal,
) (*domain.TransactionEntry, *domain.TransactionEntry) {
	kind := t.Kind
	receiverID, senderID := lockedReceiver.ID, sender.ID

	debit := &domain.TransactionEntry{
		ID:                        uuid.New(),
		AccountID:                 sender.ID,
		EntryType:                 domain.EntryTypeDebit,
		Amount:                    t.Amount,
		Category:                  domain.EntryCategoryTransfer,
		Description:               "Transfer to " + receiver.AccountNumber,
		CounterpartyAccountID:     &receiverID,
		CounterpartyAccountNumber: &receiver.AccountNumber,
		CounterpartyBankName:      &receiver.BankName,
		CounterpartyIFSC:          &receiver.IFSCCode,
		TransferKind:              &kind,
		ReferenceNumber:           t.Reference,
		BalanceBefore:             sender.Balance,
		BalanceAfter:              senderAfter,
		Remarks:                   t.Remarks,
		CreatedAt:                 *t.CompletedAt,
	}

	credit := &domain.TransactionEntry{
		ID:                        uuid.New(),
		AccountID:                 lockedReceiver.ID,
		EntryType:                 domain.EntryTypeCredit,
		Amount:                    t.Amount,
		Category:                  domain.EntryCategoryTransfer,
		Description:               "Received from " + sender.AccountNumber,
		CounterpartyAccountID:     &senderID,
		CounterpartyAccountNumber: &sender.AccountNumber,
		CounterpartyBankName:      &sender.BankName,
		CounterpartyIFSC:          &sender.IFSCCode,
		TransferKind:              &kind,
		ReferenceNumber:           t.Reference,
		BalanceBefore:             lockedReceiver.Balance,
		BalanceAfter:              receiverAfter,
		Remarks:                   t.Remarks,
		CreatedAt:                 *t.CompletedAt,
	}

	return debit, credit
}

// lockAccountsInOrder takes row locks in ascending id order so that two
// transfers over the same pair of accounts can never wait on each other in
// a cycle.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountStore, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}

// classifyFailure maps an error from the atomic unit onto the transfer error
// taxonomy. Business rule failures pass through unchanged.
func classifyFailure(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrSenderInactive),
		errors.Is(err, domain.ErrReceiverNotFound),
		errors.Is(err, domain.ErrLockTimeout):
		return err
	case repository.IsLockFailure(err):
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
}

func (s *Service) recordFailedAttempt(
	ctx context.Context,
	req Request,
	reference string,
	initiatedAt time.Time,
	senderID, receiverID uuid.UUID,
	cause error,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	reason := failureReason(cause)
	t := &domain.Transfer{
		ID:                uuid.New(),
		Reference:         reference,
		SenderAccountID:   senderID,
		ReceiverAccountID: receiverID,
		Amount:            req.Amount,
		Kind:              req.Kind,
		Status:            domain.TransferStatusFailed,
		Remarks:           req.Remarks,
		FailureReason:     &reason,
		InitiatedAt:       initiatedAt,
	}

	err := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := s.transfers.Create(ctx, tx, t); err != nil {
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		logging.FromContext(ctx).Error("failed to record failed transfer attempt",
			"reference", reference,
			"error", err,
		)
	}
}

func failureReason(err error) string {
	for _, known := range []error{
		domain.ErrInsufficientFunds,
		domain.ErrSenderInactive,
		domain.ErrReceiverNotFound,
		domain.ErrLockTimeout,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return domain.ErrPersistenceFailure.Error()
}

func (s *Service) publishCompleted(ctx context.Context, t *domain.Transfer) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.publisher.PublishTransferCompleted(ctx, events.NewTransferCompleted(t)); err != nil {
		logging.FromContext(ctx).Error("failed to publish transfer event",
			"reference", t.Reference,
			"error", err,
		)
	}
}
