package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
)

// Pinger checks that a store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TokenSource reads the configured access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              Pinger
	credentials        TokenSource
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store Pinger, credentials TokenSource) *HealthHandler {
	return &HealthHandler{
		store:              store,
		credentials:        credentials,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK when healthy or degraded (no access token yet) and 503 Service
// Unavailable when the local store cannot be reached.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	status := "healthy"
	httpStatus := http.StatusOK

	if h.checkStore(checkCtx, logger) {
		checks["store"] = "ok"
	} else {
		checks["store"] = "error"
		issues = append(issues, "store_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	switch h.checkCredentials(checkCtx, logger) {
	case "ok":
		checks["credentials"] = "ok"
	case "missing":
		checks["credentials"] = "missing"
		issues = append(issues, "access_token_missing")
		if status == "healthy" {
			status = "degraded"
		}
	default:
		checks["credentials"] = "error"
		issues = append(issues, "secret_storage_unavailable")
		if status == "healthy" {
			status = "degraded"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if len(issues) > 0 {
		response.Issues = issues
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

func (h *HealthHandler) checkStore(ctx context.Context, logger *slog.Logger) bool {
	if err := h.store.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "store health check failed", "error", err)
		return false
	}
	return true
}

func (h *HealthHandler) checkCredentials(ctx context.Context, logger *slog.Logger) string {
	token, err := h.credentials.Token(ctx)
	if err != nil {
		logger.WarnContext(ctx, "credential health check failed", "error", err)
		return "error"
	}
	if token == "" {
		return "missing"
	}
	return "ok"
}
