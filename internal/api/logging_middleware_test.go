package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finguard/pkg/finguard"
)

func routerWithLogBuffer(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return setupRouter(t, finguard.Options{Logger: logger}), &buf
}

func TestRequestLogFields(t *testing.T) {
	router, buf := routerWithLogBuffer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/risk/AAPL?user_id=u7", nil)
	req.Header.Set("User-Agent", "finguard-test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		"http request completed",
		"level=INFO",
		"method=GET",
		"path=/api/risk/AAPL",
		"route=/api/risk/{symbol}",
		"status=200",
		"request_id=",
		"duration_ms=",
		"user_id=u7",
		"user_agent=finguard-test-agent",
		"symbol=AAPL",
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected %q in request log, got %q", want, logs)
		}
	}
}

func TestRequestLogWarnsOnClientError(t *testing.T) {
	router, buf := routerWithLogBuffer(t)

	rr := doRequest(router, http.MethodGet, "/api/analysis/123", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, "level=WARN") || !strings.Contains(logs, "status=400") {
		t.Fatalf("expected warn log with status, got %q", logs)
	}
	for _, want := range []string{"error_code=INVALID_INPUT", "error_message=", "symbol=123"} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected %q in request log, got %q", want, logs)
		}
	}
}

func TestRequestLogIncludesChatSession(t *testing.T) {
	router, buf := routerWithLogBuffer(t)

	rr := doRequest(router, http.MethodPost, "/api/chat/s-42?user_id=u1", map[string]string{"content": "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	logs := buf.String()
	for _, want := range []string{"session_id=s-42", "user_id=u1"} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected %q in request log, got %q", want, logs)
		}
	}
	if strings.Contains(logs, "error_code=") {
		t.Errorf("successful request should not log an error code, got %q", logs)
	}
}

func TestRequestLogUsesCoreLogger(t *testing.T) {
	router, buf := routerWithLogBuffer(t)

	var defaultBuf bytes.Buffer
	oldDefault := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&defaultBuf, nil)))
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	doRequest(router, http.MethodGet, "/api/health", nil)

	if !strings.Contains(buf.String(), "http request completed") {
		t.Fatalf("expected logs written through core logger, got %q", buf.String())
	}
	if defaultBuf.Len() != 0 {
		t.Fatalf("expected no log written to slog default, got %q", defaultBuf.String())
	}
}

func TestRouterRecoversPanicWithStructuredLog(t *testing.T) {
	var buf bytes.Buffer
	oldDefault := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(oldDefault) })

	// A nil core panics inside the handler.
	router := NewRouter(nil)
	rr := doRequest(router, http.MethodGet, "/api/history", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.ErrorCode != string(finguard.ErrCodeInternal) || resp.Message != "internal server error" {
		t.Fatalf("unexpected error body %+v", resp)
	}

	logs := buf.String()
	for _, want := range []string{"panic recovered", "request_id=", "level=ERROR", "status=500"} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected %q in logs, got %q", want, logs)
		}
	}
}

func TestLevelForStatus(t *testing.T) {
	cases := map[int]slog.Level{
		http.StatusOK:                  slog.LevelInfo,
		http.StatusConflict:            slog.LevelWarn,
		http.StatusBadGateway:          slog.LevelError,
		http.StatusInternalServerError: slog.LevelError,
	}
	for status, want := range cases {
		if got := levelForStatus(status); got != want {
			t.Errorf("levelForStatus(%d) = %v, want %v", status, got, want)
		}
	}
}
