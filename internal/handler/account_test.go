package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/service"
)

type stubAccounts struct {
	account   *domain.Account
	err       error
	opened    service.OpenAccountRequest
	filter    service.StatementFilter
	movements []decimal.Decimal
}

func (s *stubAccounts) OpenAccount(_ context.Context, req service.OpenAccountRequest) (*domain.Account, error) {
	s.opened = req
	return s.account, s.err
}

func (s *stubAccounts) ListAccounts(context.Context, uuid.UUID) ([]domain.Account, error) {
	return []domain.Account{*s.account}, s.err
}

func (s *stubAccounts) GetAccount(context.Context, uuid.UUID, uuid.UUID) (*domain.Account, error) {
	return s.account, s.err
}

func (s *stubAccounts) SetPrimary(context.Context, uuid.UUID, uuid.UUID) (*domain.Account, error) {
	return s.account, s.err
}

func (s *stubAccounts) ChangeStatus(_ context.Context, _, _ uuid.UUID, status domain.AccountStatus) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	a := *s.account
	a.Status = status
	return &a, nil
}

func (s *stubAccounts) Deposit(_ context.Context, _, _ uuid.UUID, amount decimal.Decimal, _ string) (*service.Movement, error) {
	return s.movement(amount)
}

func (s *stubAccounts) Withdraw(_ context.Context, _, _ uuid.UUID, amount decimal.Decimal, _ string) (*service.Movement, error) {
	return s.movement(amount.Neg())
}

func (s *stubAccounts) movement(delta decimal.Decimal) (*service.Movement, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.movements = append(s.movements, delta)
	balance := s.account.Balance.Add(delta)
	return &service.Movement{
		Reference: "DEP0123",
		Balance:   balance,
		Entry:     &domain.TransactionEntry{ID: uuid.New(), AccountID: s.account.ID, Amount: delta.Abs(), BalanceBefore: s.account.Balance, BalanceAfter: balance},
	}, nil
}

func (s *stubAccounts) Statement(_ context.Context, _, _ uuid.UUID, f service.StatementFilter) (*service.Statement, error) {
	s.filter = f
	if s.err != nil {
		return nil, s.err
	}
	return &service.Statement{Account: s.account, Total: 0, Limit: 20, Offset: f.Offset}, nil
}

func testAccount(customer uuid.UUID) *domain.Account {
	return &domain.Account{
		ID:            uuid.New(),
		CustomerID:    customer,
		AccountNumber: "100000000001",
		BankName:      "Ledger Bank",
		IFSCCode:      "LDGR0000001",
		AccountType:   domain.AccountTypeSavings,
		Balance:       decimal.RequireFromString("1000"),
		Status:        domain.AccountStatusActive,
		IsPrimary:     true,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestAccountHandler_Create(t *testing.T) {
	customer := uuid.New()

	tests := []struct {
		name       string
		pathID     uuid.UUID
		body       string
		stubErr    error
		wantStatus int
	}{
		{name: "created", pathID: customer, body: `{"account_type":"current","initial_balance":"50.00"}`, wantStatus: http.StatusCreated},
		{name: "defaults", pathID: customer, body: `{}`, wantStatus: http.StatusCreated},
		{name: "other customer", pathID: uuid.New(), body: `{}`, wantStatus: http.StatusNotFound},
		{name: "bad type", pathID: customer, body: `{"account_type":"crypto"}`, wantStatus: http.StatusBadRequest},
		{name: "non digit number", pathID: customer, body: `{"account_number":"12ab"}`, wantStatus: http.StatusBadRequest},
		{name: "negative balance", pathID: customer, body: `{"initial_balance":"-1"}`, wantStatus: http.StatusBadRequest},
		{name: "duplicate number", pathID: customer, body: `{"account_number":"100000000001"}`, stubErr: domain.ErrAccountExists, wantStatus: http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubAccounts{account: testAccount(customer), err: tc.stubErr}
			h := NewAccountHandler(stub)

			req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)), customer)
			req.SetPathValue("id", tc.pathID.String())
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusCreated {
				assert.Equal(t, customer, stub.opened.CustomerID)
				var dto accountDTO
				decodeResponse(t, rec, &dto)
				assert.Equal(t, "1000.00", dto.Balance)
			}
		})
	}
}

func TestAccountHandler_ChangeStatus(t *testing.T) {
	customer := uuid.New()
	stub := &stubAccounts{account: testAccount(customer)}
	h := NewAccountHandler(stub)

	do := func(body string) *httptest.ResponseRecorder {
		req := authed(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body)), customer)
		req.SetPathValue("id", customer.String())
		req.SetPathValue("accountID", stub.account.ID.String())
		rec := httptest.NewRecorder()
		h.ChangeStatus(rec, req)
		return rec
	}

	rec := do(`{"status":"suspended"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto accountDTO
	decodeResponse(t, rec, &dto)
	assert.Equal(t, "suspended", dto.Status)

	assert.Equal(t, http.StatusBadRequest, do(`{"status":"frozen"}`).Code)

	stub.err = domain.ErrInvalidStatusTransition
	assert.Equal(t, http.StatusConflict, do(`{"status":"active"}`).Code)
}

func TestAccountHandler_DepositAndWithdraw(t *testing.T) {
	customer := uuid.New()
	stub := &stubAccounts{account: testAccount(customer)}
	h := NewAccountHandler(stub)

	do := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), customer)
		req.SetPathValue("id", stub.account.ID.String())
		rec := httptest.NewRecorder()
		fn(rec, req)
		return rec
	}

	rec := do(h.Deposit, `{"amount":"250.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var m movementDTO
	decodeResponse(t, rec, &m)
	assert.Equal(t, "1250.50", m.Balance)
	assert.Equal(t, "250.50", m.Entry.Amount)

	rec = do(h.Withdraw, `{"amount":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeResponse(t, rec, &m)
	assert.Equal(t, "900.00", m.Balance)

	assert.Equal(t, http.StatusBadRequest, do(h.Deposit, `{"amount":"0"}`).Code)
	assert.Len(t, stub.movements, 2)

	stub.err = domain.ErrInsufficientFunds
	rec = do(h.Withdraw, `{"amount":"5000"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAccountHandler_Transactions(t *testing.T) {
	customer := uuid.New()
	stub := &stubAccounts{account: testAccount(customer)}
	h := NewAccountHandler(stub)

	do := func(query string) *httptest.ResponseRecorder {
		req := authed(httptest.NewRequest(http.MethodGet, "/?"+query, nil), customer)
		req.SetPathValue("id", stub.account.ID.String())
		rec := httptest.NewRecorder()
		h.Transactions(rec, req)
		return rec
	}

	rec := do("type=debit&period=month&limit=5&offset=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StatementFilter{Type: "debit", Period: "month", Limit: 5, Offset: 10}, stub.filter)

	assert.Equal(t, http.StatusBadRequest, do("limit=abc").Code)

	stub.err = domain.ErrInvalidRequest
	assert.Equal(t, http.StatusBadRequest, do("type=sideways").Code)
}

func TestAccountHandler_BalanceOfUnknownAccount(t *testing.T) {
	h := NewAccountHandler(&stubAccounts{err: domain.ErrNotFound})

	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New())
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Balance(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = authed(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New())
	req.SetPathValue("id", uuid.NewString())
	rec = httptest.NewRecorder()
	h.Balance(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthHandler_ReadinessWithoutDatabase(t *testing.T) {
	// sql.Open does not connect, so the ping fails against the closed pool.
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	h := NewHealthHandler(db, DependencyCheck{Name: "redis", Ping: func(context.Context) error { return nil }})
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}
