package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
	minPhoneLength    = 10
	maxPhoneLength    = 15
)

type customerCredentials interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
}

type AuthHandler struct {
	customers customerCredentials
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(customers customerCredentials, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		customers: customers,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r registerRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.FullName) < minNameLength {
		errs = append(errs, FieldError{Field: "full_name", Message: "must be at least 3 characters"})
	}
	if at := strings.IndexByte(r.Email, '@'); at < 1 || at == len(r.Email)-1 {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if !isDigits(r.Phone) || len(r.Phone) < minPhoneLength || len(r.Phone) > maxPhoneLength {
		errs = append(errs, FieldError{Field: "phone", Message: "must be 10 to 15 digits"})
	}
	if len(r.Password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 6 characters"})
	}
	return errs
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Customer  customerDTO `json:"customer"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	customer, err := h.customers.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		logging.FromContext(r.Context()).Error("customer lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	if customer.Status != domain.CustomerStatusActive {
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}

	token, err := auth.GenerateToken(customer.ID, customer.Email, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(h.jwtExpiry),
		Customer:  toCustomerDTO(customer),
	})
}

// Register signs up a new customer. The response carries a token so the
// client can go straight on to opening an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	log := logging.FromContext(r.Context())

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	customer := &domain.Customer{
		ID:           uuid.New(),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Status:       domain.CustomerStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.customers.Create(r.Context(), customer); err != nil {
		if !errors.Is(err, domain.ErrCustomerExists) {
			log.Error("failed to create customer", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	token, err := auth.GenerateToken(customer.ID, customer.Email, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("customer registered", "customer_id", customer.ID)
	w.Header().Set("Location", "/api/v1/customers/"+customer.ID.String())
	RespondSuccess(w, http.StatusCreated, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(h.jwtExpiry),
		Customer:  toCustomerDTO(customer),
	})
}
