package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/ratelimit"
)

type limiter interface {
	Allow(ctx context.Context, scope, subject string) (ratelimit.Decision, error)
}

// RateLimit caps requests per customer within scope. When the limiter itself
// fails the request is let through.
func RateLimit(l limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerID, ok := auth.CustomerIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d, err := l.Allow(r.Context(), scope, customerID.String())
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					"scope", scope,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				secs := int(d.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				handler.RespondAppError(w, handler.ErrRateLimited, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
