// Package health exposes Kubernetes-style liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
)

// readinessTimeout bounds how long one probe may spend across all checks.
const readinessTimeout = 3 * time.Second

// CheckFunc reports the health of one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Handler manages health check endpoints.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHandler creates a health check handler with no checks registered.
func NewHandler() *Handler {
	return &Handler{checks: make(map[string]CheckFunc)}
}

// Register adds a named readiness check. Registering the same name again
// replaces the previous check.
func (h *Handler) Register(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint.
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles the readiness probe endpoint.
// Returns 200 only if every registered check passes, 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make(map[string]CheckFunc, len(h.checks))
	for _, name := range names {
		checks[name] = h.checks[name]
	}
	h.mu.RUnlock()

	results := make(map[string]string, len(checks))
	allHealthy := true
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			logging.Error(ctx, "readiness check failed",
				zap.String("check", name), zap.Error(err))
			results[name] = "unhealthy"
			allHealthy = false
			continue
		}
		results[name] = "healthy"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
