package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
)

const (
	maxAccountNumberLength = 20
	ifscLength             = 11
)

type beneficiaryStore interface {
	Create(ctx context.Context, b *domain.Beneficiary) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Beneficiary, error)
}

type BeneficiaryHandler struct {
	beneficiaries beneficiaryStore
}

func NewBeneficiaryHandler(beneficiaries beneficiaryStore) *BeneficiaryHandler {
	return &BeneficiaryHandler{beneficiaries: beneficiaries}
}

type addBeneficiaryRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	IFSCCode      string `json:"ifsc_code"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

func (r addBeneficiaryRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if !isDigits(r.AccountNumber) || len(r.AccountNumber) > maxAccountNumberLength {
		errs = append(errs, FieldError{Field: "account_number", Message: "must be up to 20 digits"})
	}
	if r.BankName == "" {
		errs = append(errs, FieldError{Field: "bank_name", Message: "required"})
	}
	if len(r.IFSCCode) != ifscLength {
		errs = append(errs, FieldError{Field: "ifsc_code", Message: "must be 11 characters"})
	}
	if r.Phone != "" && !isDigits(r.Phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "must be digits"})
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	return errs
}

type beneficiaryDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	IFSCCode      string    `json:"ifsc_code"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	AddedAt       time.Time `json:"added_at"`
}

func toBeneficiaryDTO(b *domain.Beneficiary) beneficiaryDTO {
	return beneficiaryDTO{
		ID:            b.ID,
		Name:          b.Name,
		AccountNumber: b.AccountNumber,
		BankName:      b.BankName,
		IFSCCode:      b.IFSCCode,
		Phone:         b.Phone,
		Email:         b.Email,
		IsVerified:    b.IsVerified,
		AddedAt:       b.AddedAt,
	}
}

func (h *BeneficiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req addBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.BankName = strings.TrimSpace(req.BankName)
	req.IFSCCode = strings.ToUpper(strings.TrimSpace(req.IFSCCode))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	b := &domain.Beneficiary{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		IFSCCode:      req.IFSCCode,
		Phone:         req.Phone,
		Email:         req.Email,
		AddedAt:       time.Now().UTC(),
	}
	if err := h.beneficiaries.Create(r.Context(), b); err != nil {
		if !errors.Is(err, domain.ErrBeneficiaryExists) {
			logging.FromContext(r.Context()).Error("failed to add beneficiary", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toBeneficiaryDTO(b))
}

func (h *BeneficiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	list, err := h.beneficiaries.ListByCustomer(r.Context(), customerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list beneficiaries", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]beneficiaryDTO, len(list))
	for i := range list {
		dtos[i] = toBeneficiaryDTO(&list[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
