// Package http holds the web server plumbing: middleware, health probes and
// metrics. Route handlers live in subpackages.
package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"historia-diaria/internal/handler/http/respond"
)

// Pinger is anything with a context-aware health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBStatter is the subset of *sql.DB used by the database check.
type DBStatter interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version,omitempty"`
}

// CheckStatus is the result of one dependency check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler reports database and cache health. The cache is optional and
// a failing cache only degrades the service, since reads fall through to the
// database.
type HealthHandler struct {
	DB      DBStatter
	Cache   Pinger
	Version string
	Timeout time.Duration
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := map[string]CheckStatus{"database": h.checkDatabase(ctx)}
	if h.Cache != nil {
		checks["cache"] = checkCache(ctx, h.Cache)
	}

	status, code := statusHealthy, http.StatusOK
	for name, c := range checks {
		switch {
		case c.Status == statusUnhealthy && name == "database":
			status, code = statusUnhealthy, http.StatusServiceUnavailable
		case c.Status != statusHealthy && status == statusHealthy:
			status = statusDegraded
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if h.DB == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err)}
	}

	stats := h.DB.Stats()
	details := map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
	if stats.MaxOpenConnections > 1 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
		details["utilization_percent"] = utilization
		if utilization >= 80 {
			return CheckStatus{Status: statusDegraded, Message: "connection pool utilization above 80%", Details: details}
		}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func checkCache(ctx context.Context, c Pinger) CheckStatus {
	if err := c.Ping(ctx); err != nil {
		return CheckStatus{Status: statusDegraded, Message: respond.SanitizeError(err)}
	}
	return CheckStatus{Status: statusHealthy}
}

// ReadyHandler answers 200 once the database is reachable.
type ReadyHandler struct {
	DB DBStatter
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "database not configured"})
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "database unreachable"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// LiveHandler always answers 200 while the process serves requests.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
