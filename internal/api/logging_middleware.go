package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finguard/pkg/finguard"
)

// errorRecorder is implemented by writers that keep the error written to
// the client so the request log can report it.
type errorRecorder interface {
	RecordError(code finguard.ErrorCode, message string)
}

type loggingResponseWriter struct {
	middleware.WrapResponseWriter
	errorCode    finguard.ErrorCode
	errorMessage string
}

func newLoggingResponseWriter(w http.ResponseWriter, r *http.Request) *loggingResponseWriter {
	return &loggingResponseWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

func (w *loggingResponseWriter) RecordError(code finguard.ErrorCode, message string) {
	w.errorCode = code
	w.errorMessage = message
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newLoggingResponseWriter(w, r)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := append(requestFields(r),
				"status", status,
				"bytes", wrapped.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			if wrapped.errorMessage != "" {
				if wrapped.errorCode != "" {
					fields = append(fields, "error_code", string(wrapped.errorCode))
				}
				fields = append(fields, "error_message", wrapped.errorMessage)
			}

			logger.Log(r.Context(), levelForStatus(status), "http request completed", fields...)
		})
	}
}

func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				fields := append(requestFields(r),
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				logger.Error("panic recovered", fields...)

				// Headers already went out; the client sees a truncated body.
				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeErrorResponse(w, r, http.StatusInternalServerError,
					finguard.NewError(finguard.ErrCodeInternal, "internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// requestFields describes the request, including whichever stock symbol,
// chat session and user it concerns.
func requestFields(r *http.Request) []any {
	fields := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"route", routePattern(r),
		"remote_ip", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	}
	if symbol := chi.URLParam(r, "symbol"); symbol != "" {
		fields = append(fields, "symbol", symbol)
	}
	if sessionID := chi.URLParam(r, "sessionID"); sessionID != "" {
		fields = append(fields, "session_id", sessionID)
	}
	if user := r.URL.Query().Get("user_id"); user != "" {
		fields = append(fields, "user_id", user)
	}
	return fields
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
