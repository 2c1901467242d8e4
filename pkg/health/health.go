// Package health provides liveness, readiness and detailed health
// endpoints for the passcheck service.
//
// Checks run concurrently under a shared timeout. The evaluator self-test
// makes readiness mean "this process scores passwords correctly", not only
// "this process is up".
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/exploopio/passcheck/pkg/evaluator"
	"github.com/exploopio/passcheck/pkg/strength"
)

// Checker is the interface for health checks.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc func(ctx context.Context) CheckResult

func (f CheckFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// Status represents the health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult holds the result of a health check.
type CheckResult struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is the full health check response.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Uptime    float64                `json:"uptime_seconds,omitempty"`
}

// =============================================================================
// Handler
// =============================================================================

// Handler manages health checks and serves the probe endpoints.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]Checker
	ready  bool

	version     string
	startTime   time.Time
	timeout     time.Duration
	hideDetails bool
}

// HandlerOption configures the health handler.
type HandlerOption func(*Handler)

// WithVersion sets the version reported by the detailed endpoint.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// WithTimeout bounds how long a full round of checks may take.
func WithTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithHideDetails reports only the overall status, never individual checks.
func WithHideDetails() HandlerOption {
	return func(h *Handler) {
		h.hideDetails = true
	}
}

// NewHandler creates a health handler. It starts not ready; the server
// flips readiness once it is listening.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		checks:    make(map[string]Checker),
		startTime: time.Now(),
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds or replaces a named health check.
func (h *Handler) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = checker
}

// SetReady sets the readiness state.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the readiness state.
func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Check runs all registered health checks and aggregates their status.
// Any unhealthy check makes the whole response unhealthy.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	checks := make(map[string]Checker, len(h.checks))
	for name, checker := range h.checks {
		checks[name] = checker
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]CheckResult, len(checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, checker := range checks {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			start := time.Now()
			result := checker.Check(ctx)
			result.Duration = time.Since(start)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	response := Response{
		Status:    aggregate(results),
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if !h.hideDetails {
		response.Checks = results
	}
	return response
}

func aggregate(results map[string]CheckResult) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// =============================================================================
// HTTP Handlers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// LivenessHandler answers 200 whenever the process can serve a response.
func (h *Handler) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": StatusHealthy})
	})
}

// ReadinessHandler answers 503 until the server is ready or while any
// registered check is unhealthy.
func (h *Handler) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  StatusUnhealthy,
				"message": "service not ready",
			})
			return
		}
		response := h.Check(r.Context())
		writeJSON(w, statusCode(response.Status), response)
	})
}

// HealthHandler returns the detailed result of every registered check.
func (h *Handler) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())
		writeJSON(w, statusCode(response.Status), response)
	})
}

func statusCode(s Status) int {
	switch s {
	case StatusHealthy, StatusDegraded:
		return http.StatusOK
	case StatusUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RegisterRoutes mounts /healthz, /readyz and /health on the router.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.Handle("/healthz", h.LivenessHandler()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/readyz", h.ReadinessHandler()).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/health", h.HealthHandler()).Methods(http.MethodGet, http.MethodHead)
}

// =============================================================================
// Built-in Health Checks
// =============================================================================

// PingCheck always succeeds.
type PingCheck struct{}

func (c *PingCheck) Check(ctx context.Context) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: "pong"}
}

// MemoryCheck checks Go runtime heap usage against a ceiling.
// A zero MaxHeapBytes only reports.
type MemoryCheck struct {
	MaxHeapBytes uint64
}

func (c *MemoryCheck) Check(ctx context.Context) CheckResult {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	result := CheckResult{Metadata: map[string]any{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_inuse_bytes": m.HeapInuse,
		"num_gc":           m.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}}

	if c.MaxHeapBytes > 0 && m.HeapAlloc > c.MaxHeapBytes {
		result.Status = StatusDegraded
		result.Error = fmt.Sprintf("heap usage %d bytes exceeds threshold %d bytes", m.HeapAlloc, c.MaxHeapBytes)
		return result
	}

	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("heap: %d MB, goroutines: %d", m.HeapAlloc/1024/1024, runtime.NumGoroutine())
	return result
}

// HostMemoryCheck checks host-wide memory usage. Platforms without a host
// memory source report StatusUnknown, which does not affect aggregation.
type HostMemoryCheck struct {
	MaxUsagePercent float64
}

func (c *HostMemoryCheck) Check(ctx context.Context) CheckResult {
	total, free, err := hostMemory()
	if err != nil {
		return CheckResult{Status: StatusUnknown, Error: err.Error()}
	}
	if total == 0 {
		return CheckResult{Status: StatusUnknown, Message: "host reported no memory"}
	}

	usage := float64(total-free) / float64(total) * 100
	result := CheckResult{Metadata: map[string]any{
		"total_bytes":   total,
		"free_bytes":    free,
		"usage_percent": fmt.Sprintf("%.2f", usage),
	}}
	if c.MaxUsagePercent > 0 && usage > c.MaxUsagePercent {
		result.Status = StatusDegraded
		result.Error = fmt.Sprintf("memory usage %.2f%% exceeds threshold %.2f%%", usage, c.MaxUsagePercent)
		return result
	}
	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("memory usage: %.2f%%", usage)
	return result
}

// Self-test samples. The first must land in the Strong band or better,
// the second must be vetoed to zero.
const (
	selfTestStrong = "Tr0ub4dor&3XyZ"
	selfTestCommon = "password"
)

// EvaluatorCheck runs the evaluator on known samples and fails if the
// results drift.
type EvaluatorCheck struct {
	Evaluator *evaluator.Evaluator
}

func (c *EvaluatorCheck) Check(ctx context.Context) CheckResult {
	if c.Evaluator == nil {
		return CheckResult{Status: StatusUnhealthy, Error: "no evaluator configured"}
	}

	strong := c.Evaluator.Evaluate(selfTestStrong)
	common := c.Evaluator.Evaluate(selfTestCommon)
	result := CheckResult{Metadata: map[string]any{
		"strong_score": strong.Score,
		"common_score": common.Score,
	}}

	switch {
	case !strong.Level.IsAtLeast(strength.Strong):
		result.Status = StatusUnhealthy
		result.Error = fmt.Sprintf("strong sample rated %s", strong.Level)
	case common.Score != 0:
		result.Status = StatusUnhealthy
		result.Error = fmt.Sprintf("common sample scored %d", common.Score)
	default:
		result.Status = StatusHealthy
		result.Message = "evaluator self-test passed"
	}
	return result
}

var (
	_ Checker = (*PingCheck)(nil)
	_ Checker = (*MemoryCheck)(nil)
	_ Checker = (*HostMemoryCheck)(nil)
	_ Checker = (*EvaluatorCheck)(nil)
	_ Checker = CheckFunc(nil)
)
