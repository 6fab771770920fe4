package mobile

import (
	"context"
	"encoding/json"

	"finguard/pkg/finguard"
)

// Core wraps the FinGuard core for gomobile bindings. Results cross the
// binding as JSON strings.
type Core struct {
	core *finguard.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := finguard.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// AnalyzeJSON runs a dashboard analysis for a typed symbol. It returns once
// the history write has finished, since the host app may suspend right after.
func (c *Core) AnalyzeJSON(userID, symbol string) (string, error) {
	result, err := c.core.AnalyzeSymbol(context.Background(), userID, symbol)
	if err != nil {
		return "", err
	}
	// Write failures are logged by the core and do not fail the analysis.
	<-result.Saved
	return marshalJSON(result)
}

// HistoryJSON returns the user's recent analyses; limit <= 0 uses the default.
func (c *Core) HistoryJSON(userID string, limit int) (string, error) {
	return marshalJSON(c.core.History(context.Background(), userID, limit))
}

// SendMessageJSON submits chat text and returns the assistant reply turn.
func (c *Core) SendMessageJSON(sessionID, userID, text string) (string, error) {
	result, err := c.core.Session(context.Background(), sessionID, userID).Submit(context.Background(), text)
	if err != nil {
		return "", err
	}
	return marshalJSON(messageResult{
		Reply:    result.Reply,
		Symbol:   result.Symbol,
		Snapshot: result.Snapshot,
	})
}

// ConversationJSON returns all turns of a session.
func (c *Core) ConversationJSON(sessionID, userID string) (string, error) {
	return marshalJSON(c.core.Session(context.Background(), sessionID, userID).Turns())
}

// ClearConversation empties a session.
func (c *Core) ClearConversation(sessionID, userID string) {
	c.core.Session(context.Background(), sessionID, userID).Clear(context.Background())
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type messageResult struct {
	Reply    finguard.ChatTurn       `json:"reply"`
	Symbol   string                  `json:"symbol,omitempty"`
	Snapshot *finguard.StockSnapshot `json:"snapshot,omitempty"`
}
