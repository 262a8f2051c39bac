package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck is an optional readiness probe, such as a Redis ping.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	db     *sql.DB
	checks []DependencyCheck
}

func NewHealthHandler(db *sql.DB, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{db: db, checks: checks}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness fails only when the database is unreachable. Other dependencies
// are reported as degraded since transfers still work without them.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	httpStatus := http.StatusOK
	overall := "ok"

	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("readiness check failed: database unreachable", "error", err)
		checks["database"] = "down"
		httpStatus = http.StatusServiceUnavailable
		overall = "down"
	}

	for _, c := range h.checks {
		checks[c.Name] = "ok"
		if err := c.Ping(ctx); err != nil {
			slog.Warn("readiness check degraded", "dependency", c.Name, "error", err)
			checks[c.Name] = "down"
			if overall == "ok" {
				overall = "degraded"
			}
		}
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
