package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// CheckFunc reports the health of one dependency
type CheckFunc func(ctx context.Context) error

// HealthChecker handles /healthz. Basic mode only reports that the process
// is serving; extended mode runs every registered check.
type HealthChecker struct {
	checks map[string]CheckFunc
}

// NewHealthChecker creates a health checker with the database check registered
func NewHealthChecker(database CheckFunc) *HealthChecker {
	h := &HealthChecker{checks: map[string]CheckFunc{}}
	if database != nil {
		h.checks["database"] = database
	}
	return h
}

// WithCheck registers an extra dependency check such as redis or queue
func (h *HealthChecker) WithCheck(name string, check CheckFunc) *HealthChecker {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		writeJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response.Checks = make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy: " + sanitizeErrorMessage(err.Error())
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
