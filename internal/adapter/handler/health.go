package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthHandler handles liveness requests.
type HealthHandler struct {
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version ...string) *HealthHandler {
	h := &HealthHandler{startTime: time.Now()}
	if len(version) > 0 {
		h.version = version[0]
	}
	return h
}

// ServeHTTP handles GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startTime).String(),
	}
	if h.version != "" {
		response["version"] = h.version
	}

	writeJSON(w, http.StatusOK, response)
}

// ReadinessChecker is a dependency that can report whether it is usable.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// ReadyHandler reports whether every registered dependency responds.
type ReadyHandler struct {
	mu       sync.RWMutex
	checkers map[string]ReadinessChecker
	timeout  time.Duration
}

// NewReadyHandler creates a readiness handler with no checkers.
func NewReadyHandler() *ReadyHandler {
	return &ReadyHandler{
		checkers: make(map[string]ReadinessChecker),
		timeout:  2 * time.Second,
	}
}

// AddChecker registers a named dependency.
func (h *ReadyHandler) AddChecker(name string, checker ReadinessChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// ServeHTTP handles GET /ready. Any failing checker makes the response 503.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ready := true
	checks := make(map[string]any, len(names))
	for _, name := range names {
		h.mu.RLock()
		checker := h.checkers[name]
		h.mu.RUnlock()

		start := time.Now()
		result := map[string]any{"ready": true}
		if err := checker.Ping(ctx); err != nil {
			ready = false
			result["ready"] = false
			result["error"] = err.Error()
		}
		result["latency"] = time.Since(start).String()
		checks[name] = result
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
