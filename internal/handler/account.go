package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/service"
)

type accountService interface {
	OpenAccount(ctx context.Context, req service.OpenAccountRequest) (*domain.Account, error)
	ListAccounts(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error)
	GetAccount(ctx context.Context, customerID, accountID uuid.UUID) (*domain.Account, error)
	SetPrimary(ctx context.Context, customerID, accountID uuid.UUID) (*domain.Account, error)
	ChangeStatus(ctx context.Context, customerID, accountID uuid.UUID, status domain.AccountStatus) (*domain.Account, error)
	Deposit(ctx context.Context, customerID, accountID uuid.UUID, amount decimal.Decimal, description string) (*service.Movement, error)
	Withdraw(ctx context.Context, customerID, accountID uuid.UUID, amount decimal.Decimal, description string) (*service.Movement, error)
	Statement(ctx context.Context, customerID, accountID uuid.UUID, f service.StatementFilter) (*service.Statement, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type openAccountRequest struct {
	AccountType    string           `json:"account_type"`
	AccountNumber  string           `json:"account_number"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

func (r openAccountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountType != "" && !domain.AccountType(r.AccountType).IsValid() {
		errs = append(errs, FieldError{Field: "account_type", Message: "must be savings or current"})
	}
	if r.AccountNumber != "" && !isDigits(r.AccountNumber) {
		errs = append(errs, FieldError{Field: "account_number", Message: "must contain digits only"})
	}
	if r.InitialBalance != nil && r.InitialBalance.IsNegative() {
		errs = append(errs, FieldError{Field: "initial_balance", Message: "must not be negative"})
	}
	return errs
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type moneyRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (r moneyRequest) Validate() []FieldError {
	if !r.Amount.IsPositive() {
		return []FieldError{{Field: "amount", Message: "must be greater than 0"}}
	}
	return nil
}

type accountDTO struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	IFSCCode      string    `json:"ifsc_code"`
	AccountType   string    `json:"account_type"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
	IsPrimary     bool      `json:"is_primary"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:            a.ID,
		CustomerID:    a.CustomerID,
		AccountNumber: a.AccountNumber,
		BankName:      a.BankName,
		IFSCCode:      a.IFSCCode,
		AccountType:   string(a.AccountType),
		Balance:       money(a.Balance),
		Status:        string(a.Status),
		IsPrimary:     a.IsPrimary,
		CreatedAt:     a.CreatedAt,
	}
}

type balanceDTO struct {
	AccountID     uuid.UUID `json:"account_id"`
	AccountNumber string    `json:"account_number"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
}

type entryDTO struct {
	ID                        uuid.UUID  `json:"id"`
	AccountID                 uuid.UUID  `json:"account_id"`
	EntryType                 string     `json:"entry_type"`
	Category                  string     `json:"category"`
	Amount                    string     `json:"amount"`
	Description               string     `json:"description"`
	CounterpartyAccountID     *uuid.UUID `json:"counterparty_account_id,omitempty"`
	CounterpartyAccountNumber *string    `json:"counterparty_account_number,omitempty"`
	CounterpartyBankName      *string    `json:"counterparty_bank_name,omitempty"`
	CounterpartyIFSC          *string    `json:"counterparty_ifsc,omitempty"`
	TransferKind              *string    `json:"transfer_kind,omitempty"`
	ReferenceNumber           string     `json:"reference_number"`
	BalanceBefore             string     `json:"balance_before"`
	BalanceAfter              string     `json:"balance_after"`
	Remarks                   string     `json:"remarks,omitempty"`
	CreatedAt                 time.Time  `json:"created_at"`
}

func toEntryDTO(e *domain.TransactionEntry) entryDTO {
	dto := entryDTO{
		ID:                        e.ID,
		AccountID:                 e.AccountID,
		EntryType:                 string(e.EntryType),
		Category:                  string(e.Category),
		Amount:                    money(e.Amount),
		Description:               e.Description,
		CounterpartyAccountID:     e.CounterpartyAccountID,
		CounterpartyAccountNumber: e.CounterpartyAccountNumber,
		CounterpartyBankName:      e.CounterpartyBankName,
		CounterpartyIFSC:          e.CounterpartyIFSC,
		ReferenceNumber:           e.ReferenceNumber,
		BalanceBefore:             money(e.BalanceBefore),
		BalanceAfter:              money(e.BalanceAfter),
		Remarks:                   e.Remarks,
		CreatedAt:                 e.CreatedAt,
	}
	if e.TransferKind != nil {
		k := string(*e.TransferKind)
		dto.TransferKind = &k
	}
	return dto
}

func toEntryDTOs(entries []domain.TransactionEntry) []entryDTO {
	dtos := make([]entryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}
	return dtos
}

type movementDTO struct {
	Reference string   `json:"reference"`
	Balance   string   `json:"balance"`
	Entry     entryDTO `json:"entry"`
}

type statementDTO struct {
	Account accountDTO `json:"account"`
	Entries []entryDTO `json:"entries"`
	Page    Page       `json:"page"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	open := service.OpenAccountRequest{
		CustomerID:    customerID,
		AccountType:   domain.AccountType(req.AccountType),
		AccountNumber: req.AccountNumber,
	}
	if req.InitialBalance != nil {
		open.InitialBalance = *req.InitialBalance
	}

	account, err := h.accounts.OpenAccount(r.Context(), open)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to open account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	accounts, err := h.accounts.ListAccounts(r.Context(), customerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *AccountHandler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	accountID, appErr := pathUUID(r, "accountID")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.SetPrimary(r.Context(), customerID, accountID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to set primary account", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	accountID, appErr := pathUUID(r, "accountID")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if !domain.AccountStatus(req.Status).IsValid() {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be active, suspended or closed"}})
		return
	}

	account, err := h.accounts.ChangeStatus(r.Context(), customerID, accountID, domain.AccountStatus(req.Status))
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to change account status", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	accountID, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), customerID, accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Balance:       money(account.Balance),
		Status:        string(account.Status),
	})
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	accountID, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q := r.URL.Query()
	limit, offset, fields := pagination(q.Get("limit"), q.Get("offset"))
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	st, err := h.accounts.Statement(r.Context(), customerID, accountID, service.StatementFilter{
		Type:   q.Get("type"),
		Period: q.Get("period"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, statementDTO{
		Account: toAccountDTO(st.Account),
		Entries: toEntryDTOs(st.Entries),
		Page:    Page{Total: st.Total, Limit: st.Limit, Offset: st.Offset},
	})
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.accounts.Deposit)
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.accounts.Withdraw)
}

type moveFunc func(ctx context.Context, customerID, accountID uuid.UUID, amount decimal.Decimal, description string) (*service.Movement, error)

func (h *AccountHandler) move(w http.ResponseWriter, r *http.Request, fn moveFunc) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	accountID, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req moneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	m, err := fn(r.Context(), customerID, accountID, req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance adjustment failed", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, movementDTO{
		Reference: m.Reference,
		Balance:   money(m.Balance),
		Entry:     toEntryDTO(m.Entry),
	})
}

func pagination(rawLimit, rawOffset string) (int, int, []FieldError) {
	var (
		limit, offset int
		errs          []FieldError
	)
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			errs = append(errs, FieldError{Field: "limit", Message: "must be a positive integer"})
		}
		limit = n
	}
	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be zero or greater"})
		}
		offset = n
	}
	return limit, offset, errs
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
