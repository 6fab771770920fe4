package mobile

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func setupMobileCore(t *testing.T) *Core {
	t.Helper()
	core, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = core.Close() })
	return core
}

func TestMobileAnalyzeAndHistory(t *testing.T) {
	core := setupMobileCore(t)

	resp, err := core.AnalyzeJSON("u1", "amzn")
	if err != nil {
		t.Fatalf("AnalyzeJSON: %v", err)
	}
	var analysis struct {
		Snapshot struct {
			Symbol    string `json:"symbol"`
			RiskLevel string `json:"risk_level"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal([]byte(resp), &analysis); err != nil {
		t.Fatalf("unmarshal analysis: %v", err)
	}
	if analysis.Snapshot.Symbol != "AMZN" || analysis.Snapshot.RiskLevel != "Moderate" {
		t.Fatalf("unexpected analysis %s", resp)
	}

	resp, err = core.HistoryJSON("u1", 0)
	if err != nil {
		t.Fatalf("HistoryJSON: %v", err)
	}
	var history []map[string]any
	if err := json.Unmarshal([]byte(resp), &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) == 0 || !strings.Contains(resp, `"AMZN"`) {
		t.Fatalf("expected AMZN in history, got %s", resp)
	}

	if _, err := core.AnalyzeJSON("u1", "not a symbol"); err == nil {
		t.Fatalf("expected error for invalid symbol")
	}
}

func TestMobileConversation(t *testing.T) {
	core := setupMobileCore(t)

	resp, err := core.SendMessageJSON("s1", "u1", "any mutual fund ideas?")
	if err != nil {
		t.Fatalf("SendMessageJSON: %v", err)
	}
	if !strings.Contains(resp, `"role":"assistant"`) {
		t.Fatalf("expected assistant reply, got %s", resp)
	}
	if _, err := core.SendMessageJSON("s1", "u1", "  "); err == nil {
		t.Fatalf("expected error for empty message")
	}

	resp, err = core.ConversationJSON("s1", "u1")
	if err != nil {
		t.Fatalf("ConversationJSON: %v", err)
	}
	var turns []map[string]any
	if err := json.Unmarshal([]byte(resp), &turns); err != nil {
		t.Fatalf("unmarshal turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	core.ClearConversation("s1", "u1")
	resp, _ = core.ConversationJSON("s1", "u1")
	if resp != "[]" {
		t.Fatalf("expected empty conversation, got %s", resp)
	}
}

func TestMobileCloseNil(t *testing.T) {
	var c *Core
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil core: %v", err)
	}
}
