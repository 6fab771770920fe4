package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"finguard/pkg/finguard"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Data: data})
}

func writeSuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: message, Data: data})
}

// writeErrorResponse writes err as an ErrorResponse. A *finguard.Error
// anywhere in the chain decides the status; otherwise fallback is used.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, fallback int, err error) {
	status := fallback
	response := ErrorResponse{Message: err.Error()}

	var fgErr *finguard.Error
	if errors.As(err, &fgErr) {
		response.ErrorCode = string(fgErr.Code)
		status = mapErrorCodeToHTTPStatus(fgErr.Code)
	}
	response.Code = status
	if r != nil {
		response.RequestID = middleware.GetReqID(r.Context())
	}
	if recorder, ok := w.(errorRecorder); ok {
		recorder.RecordError(finguard.ErrorCode(response.ErrorCode), response.Message)
	}
	writeJSON(w, status, response)
}

func mapErrorCodeToHTTPStatus(code finguard.ErrorCode) int {
	switch code {
	case finguard.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case finguard.ErrCodeNotFound:
		return http.StatusNotFound
	case finguard.ErrCodeSessionBusy:
		return http.StatusConflict
	case finguard.ErrCodeAnalysisFailed:
		return http.StatusBadGateway
	case finguard.ErrCodeDatabase, finguard.ErrCodeInternal:
		return http.StatusInternalServerError
	case finguard.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
