package ratelimit

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mapesa/internal/log"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: limit, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Error("fourth request within the minute should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own window")
	}
	if rl.Rejected() != 1 {
		t.Errorf("Rejected() = %d, want 1", rl.Rejected())
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("a new window should reset the count")
	}
}

func TestLimiter_ContinuousTrafficStillResets(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	// One request every 20s never leaves a 60s gap, yet each minute is a
	// fresh window.
	allowed := 0
	for i := 0; i < 9; i++ {
		if rl.Allow("a") {
			allowed++
		}
		*now = now.Add(20 * time.Second)
	}
	if allowed != 6 {
		t.Errorf("allowed = %d, want 6 (2 per minute over 3 minutes)", allowed)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("a")
	rl.Allow("b")

	*now = now.Add(2 * time.Minute)
	rl.Allow("c")
	rl.cleanupStaleEntries()

	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestMiddleware_OnlyLimitsListedMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Middleware(func(*http.Request) string { return "client" }, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/tags", nil))
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusNoContent {
		t.Errorf("first POST = %d, want 204", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("second POST = %d, want 429", code)
	}
	for i := 0; i < 3; i++ {
		if code := do(http.MethodGet); code != http.StatusNoContent {
			t.Errorf("GET %d = %d, want 204", i, code)
		}
	}
}

func TestMiddleware_LogsRejection(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Middleware(func(*http.Request) string { return "203.0.113.9" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Component: log.ComponentHTTP, Output: &buf})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req = req.WithContext(log.WithLogger(req.Context(), logger))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	out := buf.String()
	if strings.Count(out, "Rate limit exceeded") != 1 {
		t.Fatalf("want one rejection log, got: %s", out)
	}
	for _, want := range []string{`"component":"rate_limit"`, `"client_ip":"203.0.113.9"`, `"path":"/login"`} {
		if !strings.Contains(out, want) {
			t.Errorf("rejection log missing %s: %s", want, out)
		}
	}
}
