package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finguard/pkg/finguard"
)

func TestWriteSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	writeSuccessWithMessage(rr, "done", map[string]string{"ok": "yes"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != 0 || resp.Message != "done" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["ok"] != "yes" {
		t.Fatalf("unexpected data payload: %v", resp.Data)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Run("wrapped structured error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := fmt.Errorf("chat: %w", finguard.WrapError(finguard.ErrCodeSessionBusy, "busy", finguard.ErrSessionBusy))
		writeErrorResponse(rr, nil, http.StatusInternalServerError, err)

		if rr.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rr.Code)
		}
		var resp ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != string(finguard.ErrCodeSessionBusy) || resp.Code != http.StatusConflict {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		writeErrorResponse(rr, nil, http.StatusBadRequest, errors.New("bad input"))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code finguard.ErrorCode
		want int
	}{
		{finguard.ErrCodeInvalidInput, http.StatusBadRequest},
		{finguard.ErrCodeNotFound, http.StatusNotFound},
		{finguard.ErrCodeSessionBusy, http.StatusConflict},
		{finguard.ErrCodeAnalysisFailed, http.StatusBadGateway},
		{finguard.ErrCodeDatabase, http.StatusInternalServerError},
		{finguard.ErrCodeInternal, http.StatusInternalServerError},
		{finguard.ErrCodeUnsupported, http.StatusNotImplemented},
		{finguard.ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := mapErrorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
