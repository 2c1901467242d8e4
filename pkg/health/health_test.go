package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/exploopio/passcheck/pkg/evaluator"
)

func staticCheck(status Status) Checker {
	return CheckFunc(func(ctx context.Context) CheckResult {
		return CheckResult{Status: status}
	})
}

func TestHandler_Check(t *testing.T) {
	h := NewHandler(WithVersion("1.0.0"), WithTimeout(time.Second))
	h.Register("ping", &PingCheck{})

	response := h.Check(context.Background())
	if response.Status != StatusHealthy {
		t.Errorf("Status = %v, want %v", response.Status, StatusHealthy)
	}
	if response.Version != "1.0.0" {
		t.Errorf("Version = %v, want %v", response.Version, "1.0.0")
	}
	if r, ok := response.Checks["ping"]; !ok || r.Message != "pong" {
		t.Errorf("ping result = %+v", r)
	}
}

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		expected Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"unknown ignored", []Status{StatusHealthy, StatusUnknown}, StatusHealthy},
		{"no checks", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			for i, s := range tt.statuses {
				h.Register(string(rune('a'+i)), staticCheck(s))
			}
			if got := h.Check(context.Background()).Status; got != tt.expected {
				t.Errorf("Status = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHandler_CheckTimeout(t *testing.T) {
	h := NewHandler(WithTimeout(20 * time.Millisecond))
	h.Register("slow", CheckFunc(func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
	}))

	response := h.Check(context.Background())
	if response.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want %v", response.Status, StatusUnhealthy)
	}
}

func TestHandler_HideDetails(t *testing.T) {
	h := NewHandler(WithHideDetails())
	h.Register("ping", &PingCheck{})

	if response := h.Check(context.Background()); response.Checks != nil {
		t.Errorf("Checks = %v, want nil", response.Checks)
	}
}

func TestLivenessHandler(t *testing.T) {
	h := NewHandler()
	h.Register("broken", staticCheck(StatusUnhealthy))

	w := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadinessHandler(t *testing.T) {
	h := NewHandler()

	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w
	}

	if w := serve(); w.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	h.SetReady(true)
	if w := serve(); w.Code != http.StatusOK {
		t.Errorf("ready: Status = %d, want %d", w.Code, http.StatusOK)
	}

	h.Register("broken", staticCheck(StatusUnhealthy))
	if w := serve(); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler()
	h.Register("degraded", staticCheck(StatusDegraded))

	w := httptest.NewRecorder()
	h.HealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var response Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.Status != StatusDegraded {
		t.Errorf("Status = %v, want %v", response.Status, StatusDegraded)
	}
}

func TestRegisterRoutes(t *testing.T) {
	h := NewHandler()
	h.SetReady(true)
	r := mux.NewRouter()
	RegisterRoutes(r, h)

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestMemoryCheck(t *testing.T) {
	if r := (&MemoryCheck{}).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("no threshold: Status = %v, want %v", r.Status, StatusHealthy)
	}
	r := (&MemoryCheck{MaxHeapBytes: 1}).Check(context.Background())
	if r.Status != StatusDegraded {
		t.Errorf("tiny threshold: Status = %v, want %v", r.Status, StatusDegraded)
	}
	if _, ok := r.Metadata["goroutines"]; !ok {
		t.Error("expected goroutines metadata")
	}
}

func TestHostMemoryCheck(t *testing.T) {
	r := (&HostMemoryCheck{}).Check(context.Background())
	switch r.Status {
	case StatusHealthy:
		if _, ok := r.Metadata["total_bytes"]; !ok {
			t.Error("expected total_bytes metadata")
		}
	case StatusUnknown:
		// Platform without host memory stats.
	default:
		t.Errorf("Status = %v", r.Status)
	}
}

func TestEvaluatorCheck(t *testing.T) {
	r := (&EvaluatorCheck{Evaluator: evaluator.Default()}).Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("Status = %v (%s), want %v", r.Status, r.Error, StatusHealthy)
	}
	if r.Metadata["common_score"] != 0 {
		t.Errorf("common_score = %v, want 0", r.Metadata["common_score"])
	}

	if r := (&EvaluatorCheck{}).Check(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("nil evaluator: Status = %v, want %v", r.Status, StatusUnhealthy)
	}
}
