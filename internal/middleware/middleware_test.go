package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/ratelimit"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

const testSecret = "middleware-test-secret"

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func withCustomer(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(auth.ContextWithCustomerID(r.Context(), id))
}

func TestAuth(t *testing.T) {
	customerID := uuid.New()
	valid, err := auth.GenerateToken(customerID, "alice@test.com", testSecret, time.Hour)
	require.NoError(t, err)

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CustomerIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(testSecret)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, errorCode(t, rec))
			} else {
				assert.Equal(t, customerID, seen)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratelimit.NewRedisLimiter(client, "test", 2, time.Minute)
	h := RateLimit(limiter, "transfers")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	alice, bob := uuid.New(), uuid.New()
	do := func(id uuid.UUID) *httptest.ResponseRecorder {
		req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/transfers/bank", nil), id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, do(alice).Code)
	assert.Equal(t, http.StatusCreated, do(alice).Code)

	limited := do(alice)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, do(bob).Code, "limits are per customer")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := RateLimit(failingLimiter{}, "transfers")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := withCustomer(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*repository.IdempotencyCacheEntry
}

func newMemoryStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: make(map[string]*repository.IdempotencyCacheEntry)}
}

func storeKey(key string, id uuid.UUID) string { return id.String() + "/" + key }

func (m *memoryIdempotencyStore) Get(_ context.Context, key string, id uuid.UUID) (*repository.IdempotencyCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[storeKey(key, id)], nil
}

func (m *memoryIdempotencyStore) Reserve(_ context.Context, key string, id uuid.UUID, hash string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[storeKey(key, id)]; ok {
		return false, nil
	}
	m.entries[storeKey(key, id)] = &repository.IdempotencyCacheEntry{Key: key, CustomerID: id, RequestHash: hash}
	return true, nil
}

func (m *memoryIdempotencyStore) Complete(_ context.Context, key string, id uuid.UUID, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[storeKey(key, id)]
	e.StatusCode = status
	e.ResponseBody = append([]byte(nil), body...)
	return nil
}

func (m *memoryIdempotencyStore) Release(_ context.Context, key string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, storeKey(key, id))
	return nil
}

func TestIdempotency(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	status := http.StatusCreated
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		handler.RespondSuccess(w, status, map[string]string{"echo": string(body)})
	}))

	customer := uuid.New()
	do := func(key, body string) *httptest.ResponseRecorder {
		req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/transfers/bank", strings.NewReader(body)), customer)
		if key != "" {
			req.Header.Set(idempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("no key passes through", func(t *testing.T) {
		calls = 0
		do("", `{"a":1}`)
		do("", `{"a":1}`)
		assert.Equal(t, 2, calls)
	})

	t.Run("repeat replays stored response", func(t *testing.T) {
		calls = 0
		first := do("key-1", `{"a":1}`)
		second := do("key-1", `{"a":1}`)
		assert.Equal(t, 1, calls)
		assert.Equal(t, first.Code, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
	})

	t.Run("different body conflicts", func(t *testing.T) {
		rec := do("key-1", `{"a":2}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "IDEMPOTENCY_CONFLICT", errorCode(t, rec))
	})

	t.Run("in flight request conflicts", func(t *testing.T) {
		_, err := store.Reserve(context.Background(), "key-busy", customer, requestHash(http.MethodPost, "/api/v1/transfers/bank", []byte(`{}`)), time.Hour)
		require.NoError(t, err)
		rec := do("key-busy", `{}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "REQUEST_IN_PROGRESS", errorCode(t, rec))
	})

	t.Run("server errors are not stored", func(t *testing.T) {
		calls = 0
		status = http.StatusInternalServerError
		do("key-500", `{}`)
		status = http.StatusCreated
		rec := do("key-500", `{}`)
		assert.Equal(t, 2, calls)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Recovery(Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		handler.RespondSuccess(w, http.StatusCreated, map[string]string{"status": "COMPLETED"})
	})))

	customer := uuid.New()
	do := func() *httptest.ResponseRecorder {
		req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/transfers/bank", strings.NewReader(`{"amount":"10"}`)), customer)
		req.Header.Set(idempotencyHeader, "key-panic")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, first))
	cached, err := store.Get(context.Background(), "key-panic", customer)
	require.NoError(t, err)
	assert.Nil(t, cached, "claim released after panic")

	retry := do()
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Empty(t, retry.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, 2, calls)

	replayed := do()
	assert.Equal(t, http.StatusCreated, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, 2, calls)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
}

func TestTracing(t *testing.T) {
	var seen string
	h := Tracing(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(traceIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(traceIDHeader))
	assert.NoError(t, err)
}
