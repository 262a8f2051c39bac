package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

type stubBeneficiaries struct {
	mu   sync.Mutex
	list []domain.Beneficiary
}

func (s *stubBeneficiaries) Create(_ context.Context, b *domain.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.list {
		if existing.CustomerID == b.CustomerID && existing.AccountNumber == b.AccountNumber && existing.IFSCCode == b.IFSCCode {
			return domain.ErrBeneficiaryExists
		}
	}
	s.list = append([]domain.Beneficiary{*b}, s.list...)
	return nil
}

func (s *stubBeneficiaries) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]domain.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Beneficiary
	for _, b := range s.list {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBeneficiaries) GetByID(_ context.Context, customerID, id uuid.UUID) (*domain.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.list {
		if b.ID == id && b.CustomerID == customerID {
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func TestBeneficiaryHandler_Create(t *testing.T) {
	alice := uuid.New()
	h := NewBeneficiaryHandler(&stubBeneficiaries{})

	post := func(caller uuid.UUID, pathID, body string) *httptest.ResponseRecorder {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+pathID+"/beneficiaries", strings.NewReader(body)), caller)
		req.SetPathValue("id", pathID)
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		return rec
	}

	valid := `{"name":"Bob","account_number":"200000000001","bank_name":"Other Bank","ifsc_code":"othr0000001"}`

	tests := []struct {
		name       string
		caller     uuid.UUID
		pathID     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "created", caller: alice, pathID: alice.String(), body: valid, wantStatus: http.StatusCreated},
		{name: "duplicate", caller: alice, pathID: alice.String(), body: valid, wantStatus: http.StatusConflict, wantCode: "BENEFICIARY_ALREADY_EXISTS"},
		{name: "another customer's path", caller: uuid.New(), pathID: alice.String(), body: valid, wantStatus: http.StatusNotFound, wantCode: "RESOURCE_NOT_FOUND"},
		{
			name:       "missing fields",
			caller:     alice,
			pathID:     alice.String(),
			body:       `{"name":"Bob","account_number":"20000x"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{name: "malformed json", caller: alice, pathID: alice.String(), body: `{`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(tc.caller, tc.pathID, tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)

			var data beneficiaryDTO
			resp := decodeResponse(t, rec, &data)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}
			assert.Equal(t, "OTHR0000001", data.IFSCCode)
			assert.False(t, data.IsVerified)
		})
	}
}

func TestBeneficiaryHandler_List(t *testing.T) {
	alice, carol := uuid.New(), uuid.New()
	store := &stubBeneficiaries{}
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.Beneficiary{ID: uuid.New(), CustomerID: alice, Name: "Bob", AccountNumber: "200000000001", IFSCCode: "OTHR0000001"}))
	require.NoError(t, store.Create(ctx, &domain.Beneficiary{ID: uuid.New(), CustomerID: alice, Name: "Dan", AccountNumber: "200000000002", IFSCCode: "OTHR0000001"}))
	require.NoError(t, store.Create(ctx, &domain.Beneficiary{ID: uuid.New(), CustomerID: carol, Name: "Eve", AccountNumber: "200000000003", IFSCCode: "OTHR0000001"}))
	h := NewBeneficiaryHandler(store)

	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), alice)
	req.SetPathValue("id", alice.String())
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var list []beneficiaryDTO
	decodeResponse(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Dan", list[0].Name)
	assert.Equal(t, "Bob", list[1].Name)

	req = authed(httptest.NewRequest(http.MethodGet, "/", nil), carol)
	req.SetPathValue("id", alice.String())
	rec = httptest.NewRecorder()
	h.List(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
