package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255
	idempotencyWrite  = 5 * time.Second
)

type idempotencyStore interface {
	Get(ctx context.Context, key string, customerID uuid.UUID) (*repository.IdempotencyCacheEntry, error)
	Reserve(ctx context.Context, key string, customerID uuid.UUID, requestHash string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key string, customerID uuid.UUID, statusCode int, body []byte) error
	Release(ctx context.Context, key string, customerID uuid.UUID) error
}

var errRequestInFlight = &handler.AppError{
	Status:  http.StatusConflict,
	Code:    "REQUEST_IN_PROGRESS",
	Message: "A request with this idempotency key is still being processed",
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key. Requests without the header pass straight through.
// Server errors are not stored, so the client may retry them with the same key.
func Idempotency(store idempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey {
				handler.RespondValidationError(w, []handler.FieldError{{Field: idempotencyHeader, Message: "too long"}})
				return
			}

			customerID, ok := auth.CustomerIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			log := logging.FromContext(r.Context()).With("idempotency_key", key)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			reqHash := requestHash(r.Method, r.URL.Path, body)

			reserved, err := store.Reserve(r.Context(), key, customerID, reqHash, ttl)
			if err != nil {
				log.Error("idempotency reservation failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}

			if !reserved {
				cached, err := store.Get(r.Context(), key, customerID)
				if err != nil {
					log.Error("idempotency cache lookup failed", "error", err)
					handler.RespondAppError(w, handler.ErrInternalError, nil)
					return
				}
				replay(w, cached, reqHash, log)
				return
			}

			// The claim is released unless the handler finished with a non-5xx
			// response, which also covers a panic unwinding through here.
			settled := false
			defer func() {
				if settled {
					return
				}
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), idempotencyWrite)
				defer cancel()
				if err := store.Release(ctx, key, customerID); err != nil {
					log.Error("idempotency release failed", "error", err)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), idempotencyWrite)
			defer cancel()
			if err := store.Complete(ctx, key, customerID, rec.statusCode, rec.body.Bytes()); err != nil {
				log.Error("idempotency cache store failed", "error", err)
			}
			settled = true
		})
	}
}

func replay(w http.ResponseWriter, cached *repository.IdempotencyCacheEntry, reqHash string, log *slog.Logger) {
	switch {
	case cached == nil:
		// claim expired between Reserve and Get
		handler.RespondAppError(w, errRequestInFlight, nil)
	case cached.RequestHash != reqHash:
		handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
	case cached.InFlight():
		handler.RespondAppError(w, errRequestInFlight, nil)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Idempotent-Replayed", "true")
		w.WriteHeader(cached.StatusCode)
		if _, err := w.Write(cached.ResponseBody); err != nil {
			log.Error("failed to write idempotent replay", "error", err)
		}
	}
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
