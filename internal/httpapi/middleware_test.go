package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carebridge.org/internal/obs"
)

func TestLoginRateLimit(t *testing.T) {
	api, _ := newTestAPI(t)
	// Replace the limiter with a tight one for the test.
	api.loginLimiter = newIPLimiter(1, 1)
	handler := api.Handler()

	body := map[string]string{"email": "a@b.com", "password": "wrong"}

	rr1 := doJSON(t, handler, http.MethodPost, "/v1/auth/login", body, nil)
	if rr1.Code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt 401, got %d", rr1.Code)
	}

	rr2 := doJSON(t, handler, http.MethodPost, "/v1/auth/login", body, nil)
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr2.Code)
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	var resp map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode rate limit body: %v", err)
	}
	if resp["error"] == "" {
		t.Fatal("expected error message in body")
	}
	if resp["request_id"] == "" {
		t.Fatal("expected request_id in body")
	}
}

func TestLoggingJSONEmitsStructuredEntry(t *testing.T) {
	logger := obs.Logger()
	origWriter := logger.Writer()
	logger.SetFlags(0)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(origWriter)

	handler := RequestID(LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/log-test", nil)
	req.Header.Set("User-Agent", "middleware-test")
	req.RemoteAddr = "127.0.0.1:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "request_id", "method", "path", "status", "duration_ms"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in log entry", key)
		}
	}
	if entry["msg"] != "request_complete" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status: %v", entry["status"])
	}
}

func TestRequestIDEchoed(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(requestIDHeader, "req-supplied")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got != "req-supplied" {
		t.Fatalf("expected supplied id echoed, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected nosniff header")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("expected no-store cache header")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4321"
	if got := clientIP(req); got != "192.0.2.7" {
		t.Fatalf("unexpected ip: %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("unexpected forwarded ip: %q", got)
	}
}
