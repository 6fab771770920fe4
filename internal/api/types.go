package api

import "finguard/pkg/finguard"

type chatPayload struct {
	Content string `json:"content"`
}

type chatResponse struct {
	SessionID string              `json:"session_id"`
	State     string              `json:"state"`
	Turns     []finguard.ChatTurn `json:"turns"`
}

type submitResponse struct {
	SessionID string                  `json:"session_id"`
	UserTurn  finguard.ChatTurn       `json:"user_turn"`
	Reply     finguard.ChatTurn       `json:"reply"`
	Symbol    string                  `json:"symbol,omitempty"`
	Snapshot  *finguard.StockSnapshot `json:"snapshot,omitempty"`
	// AnalysisError is set when the reply fell back to a canned answer.
	AnalysisError string `json:"analysis_error,omitempty"`
}

type historyResponse struct {
	UserID string                   `json:"user_id"`
	Items  []finguard.HistoryRecord `json:"items"`
}
