package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/service/transfer"
)

const (
	maxRemarksLength = 140
	defaultPageSize  = 20
)

type transferService interface {
	ExecuteTransfer(ctx context.Context, req transfer.Request) (*transfer.Result, error)
	GetTransfer(ctx context.Context, customerID uuid.UUID, reference string) (*transfer.Details, error)
	ListTransfers(ctx context.Context, customerID, accountID uuid.UUID, limit, offset int) ([]domain.Transfer, int, error)
}

type TransferHandler struct {
	transfers     transferService
	beneficiaries transfer.BeneficiaryLookup
}

func NewTransferHandler(transfers transferService, beneficiaries transfer.BeneficiaryLookup) *TransferHandler {
	return &TransferHandler{transfers: transfers, beneficiaries: beneficiaries}
}

type bankTransferRequest struct {
	FromAccountID   *uuid.UUID      `json:"from_account_id"`
	BeneficiaryID   *uuid.UUID      `json:"beneficiary_id"`
	ToAccountNumber string          `json:"to_account_number"`
	BankName        string          `json:"bank_name"`
	IFSCCode        string          `json:"ifsc_code"`
	Amount          decimal.Decimal `json:"amount"`
	TransferKind    string          `json:"transfer_kind"`
	Remarks         string          `json:"remarks"`
}

func (r bankTransferRequest) Validate() []FieldError {
	var errs []FieldError
	hasNumber := strings.TrimSpace(r.ToAccountNumber) != ""
	switch {
	case r.BeneficiaryID != nil && hasNumber:
		errs = append(errs, FieldError{Field: "beneficiary_id", Message: "cannot be combined with to_account_number"})
	case r.BeneficiaryID == nil && !hasNumber:
		errs = append(errs, FieldError{Field: "to_account_number", Message: "required"})
	}
	if len(r.Remarks) > maxRemarksLength {
		errs = append(errs, FieldError{Field: "remarks", Message: "too long"})
	}
	return errs
}

type mobileTransferRequest struct {
	FromAccountID *uuid.UUID      `json:"from_account_id"`
	ReceiverID    uuid.UUID       `json:"receiver_customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Remarks       string          `json:"remarks"`
}

func (r mobileTransferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ReceiverID == uuid.Nil {
		errs = append(errs, FieldError{Field: "receiver_customer_id", Message: "required"})
	}
	if len(r.Remarks) > maxRemarksLength {
		errs = append(errs, FieldError{Field: "remarks", Message: "too long"})
	}
	return errs
}

type qrTransferRequest struct {
	FromAccountID *uuid.UUID       `json:"from_account_id"`
	QRPayload     string           `json:"qr_payload"`
	Amount        *decimal.Decimal `json:"amount"`
	Remarks       string           `json:"remarks"`
}

func (r qrTransferRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.QRPayload) == "" {
		errs = append(errs, FieldError{Field: "qr_payload", Message: "required"})
	}
	if len(r.Remarks) > maxRemarksLength {
		errs = append(errs, FieldError{Field: "remarks", Message: "too long"})
	}
	return errs
}

type transferDTO struct {
	Reference         string     `json:"reference"`
	Status            string     `json:"status"`
	Kind              string     `json:"transfer_kind"`
	Amount            string     `json:"amount"`
	SenderAccountID   uuid.UUID  `json:"sender_account_id"`
	ReceiverAccountID uuid.UUID  `json:"receiver_account_id"`
	Remarks           string     `json:"remarks,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	InitiatedAt       time.Time  `json:"initiated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func toTransferDTO(t *domain.Transfer) transferDTO {
	return transferDTO{
		Reference:         t.Reference,
		Status:            string(t.Status),
		Kind:              string(t.Kind),
		Amount:            money(t.Amount),
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		Remarks:           t.Remarks,
		FailureReason:     t.FailureReason,
		InitiatedAt:       t.InitiatedAt,
		CompletedAt:       t.CompletedAt,
	}
}

type transferResultDTO struct {
	transferDTO
	SenderBalance string `json:"sender_balance"`
}

type transferDetailsDTO struct {
	Transfer transferDTO `json:"transfer"`
	Entries  []entryDTO  `json:"entries"`
}

type transferListDTO struct {
	Transfers []transferDTO `json:"transfers"`
	Page      Page          `json:"page"`
}

func (h *TransferHandler) Bank(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req bankTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	// The kind is checked by the service after the amount.
	kind := domain.TransferKind(strings.ToUpper(req.TransferKind))
	if kind == "" {
		kind = domain.TransferKindIMPS
	}

	var receiver transfer.ReceiverResolver = transfer.ByAccountNumber{
		AccountNumber: req.ToAccountNumber,
		BankName:      req.BankName,
		IFSCCode:      req.IFSCCode,
	}
	if req.BeneficiaryID != nil {
		receiver = transfer.SavedBeneficiary{
			Beneficiaries: h.beneficiaries,
			CustomerID:    customerID,
			BeneficiaryID: *req.BeneficiaryID,
		}
	}

	h.execute(w, r, transfer.Request{
		CustomerID:      customerID,
		SenderAccountID: optionalID(req.FromAccountID),
		Receiver:        receiver,
		Amount:          req.Amount,
		Kind:            kind,
		Remarks:         req.Remarks,
	})
}

func (h *TransferHandler) Mobile(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req mobileTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	h.execute(w, r, transfer.Request{
		CustomerID:      customerID,
		SenderAccountID: optionalID(req.FromAccountID),
		Receiver:        transfer.PrimaryOfCustomer{CustomerID: req.ReceiverID},
		Amount:          req.Amount,
		Kind:            domain.TransferKindMobile,
		Remarks:         req.Remarks,
	})
}

func (h *TransferHandler) QR(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req qrTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	payload, err := transfer.ParseQRPayload(req.QRPayload)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	var amount decimal.Decimal
	switch {
	case payload.Amount != nil && req.Amount != nil && !payload.Amount.Equal(*req.Amount):
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "does not match the amount in the QR code"}})
		return
	case payload.Amount != nil:
		amount = *payload.Amount
	case req.Amount != nil:
		amount = *req.Amount
	default:
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "required"}})
		return
	}

	h.execute(w, r, transfer.Request{
		CustomerID:      customerID,
		SenderAccountID: optionalID(req.FromAccountID),
		Receiver:        transfer.QRCode{Payload: payload},
		Amount:          amount,
		Kind:            domain.TransferKindUPI,
		Remarks:         req.Remarks,
	})
}

func (h *TransferHandler) execute(w http.ResponseWriter, r *http.Request, req transfer.Request) {
	res, err := h.transfers.ExecuteTransfer(r.Context(), req)
	if err != nil {
		log := logging.FromContext(r.Context())
		if errors.Is(err, domain.ErrPersistenceFailure) {
			log.Error("transfer failed", "kind", req.Kind, "error", err)
		} else {
			log.Warn("transfer rejected", "kind", req.Kind, "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/transfers/"+res.Reference)
	RespondSuccess(w, http.StatusCreated, transferResultDTO{
		transferDTO:   toTransferDTO(res.Transfer),
		SenderBalance: money(res.SenderBalance),
	})
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	details, err := h.transfers.GetTransfer(r.Context(), customerID, r.PathValue("reference"))
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, transferDetailsDTO{
		Transfer: toTransferDTO(details.Transfer),
		Entries:  toEntryDTOs(details.Entries),
	})
}

func (h *TransferHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
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

	limit, offset, fields := pagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	if limit == 0 {
		limit = defaultPageSize
	}

	list, total, err := h.transfers.ListTransfers(r.Context(), customerID, accountID, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transferDTO, len(list))
	for i := range list {
		dtos[i] = toTransferDTO(&list[i])
	}
	RespondSuccess(w, http.StatusOK, transferListDTO{
		Transfers: dtos,
		Page:      Page{Total: total, Limit: limit, Offset: offset},
	})
}

func optionalID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
