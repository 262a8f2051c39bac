package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
)

const (
	minPhoneFragment = 3
	phoneSearchLimit = 10
)

type customerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	SearchByPhone(ctx context.Context, prefix string, exclude uuid.UUID, limit int) ([]domain.Customer, error)
}

type CustomerHandler struct {
	customers customerReader
}

func NewCustomerHandler(customers customerReader) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

type customerDTO struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerDTO(c *domain.Customer) customerDTO {
	return customerDTO{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
}

// payeeDTO is what one customer may see of another.
type payeeDTO struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	customer, err := h.customers.GetByID(r.Context(), customerID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get customer", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toCustomerDTO(customer))
}

// Search finds payees for a mobile transfer by phone number prefix.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	fragment := strings.TrimSpace(r.URL.Query().Get("phone"))
	if len(fragment) < minPhoneFragment || strings.Trim(fragment, "+0123456789") != "" {
		RespondValidationError(w, []FieldError{{Field: "phone", Message: "at least 3 digits required"}})
		return
	}

	found, err := h.customers.SearchByPhone(r.Context(), fragment, customerID, phoneSearchLimit)
	if err != nil {
		logging.FromContext(r.Context()).Error("phone search failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	payees := make([]payeeDTO, len(found))
	for i, c := range found {
		payees[i] = payeeDTO{ID: c.ID, FullName: c.FullName, Phone: maskPhone(c.Phone)}
	}
	RespondSuccess(w, http.StatusOK, payees)
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
