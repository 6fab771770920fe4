package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"finguard/pkg/finguard"
)

const maxChatBodyBytes = 64 << 10

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.AnalyzeSymbol(r.Context(), userID(r), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getRisk(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.Risk(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getSentiment(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.Sentiment(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntDefault(r.URL.Query().Get("limit"), 0)
	if err != nil || limit < 0 {
		writeErrorResponse(w, r, http.StatusBadRequest,
			finguard.NewError(finguard.ErrCodeInvalidInput, "limit must be a non-negative integer"))
		return
	}
	user := userID(r)
	writeSuccess(w, historyResponse{
		UserID: user,
		Items:  h.core.History(r.Context(), user, limit),
	})
}

func (h *handler) getChat(w http.ResponseWriter, r *http.Request) {
	session := h.core.Session(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	writeSuccess(w, chatResponse{
		SessionID: session.ID(),
		State:     session.State().String(),
		Turns:     session.Turns(),
	})
}

func (h *handler) postChat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest,
			finguard.WrapError(finguard.ErrCodeInvalidInput, "invalid request body", err))
		return
	}

	session := h.core.Session(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	result, err := session.Submit(r.Context(), payload.Content)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if result.PersistErr != nil {
		h.logger.Warn("chat turn not persisted", "session_id", session.ID(), "err", result.PersistErr)
	}

	response := submitResponse{
		SessionID: session.ID(),
		UserTurn:  result.UserTurn,
		Reply:     result.Reply,
		Symbol:    result.Symbol,
		Snapshot:  result.Snapshot,
	}
	if result.AnalysisErr != nil {
		response.AnalysisError = result.AnalysisErr.Error()
	}
	writeSuccess(w, response)
}

func (h *handler) clearChat(w http.ResponseWriter, r *http.Request) {
	session := h.core.Session(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	session.Clear(r.Context())
	writeSuccessWithMessage(w, "conversation cleared", chatResponse{
		SessionID: session.ID(),
		State:     session.State().String(),
		Turns:     session.Turns(),
	})
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if decoder.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

func parseIntDefault(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
