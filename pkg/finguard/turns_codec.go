package finguard

import (
	"encoding/json"
	"fmt"
	"time"
)

type turnRecord struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// EncodeTurns serializes turns in order with RFC 3339 timestamps.
func EncodeTurns(turns []ChatTurn) ([]byte, error) {
	records := make([]turnRecord, 0, len(turns))
	for _, t := range turns {
		records = append(records, turnRecord{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return json.Marshal(records)
}

// DecodeTurns parses the output of EncodeTurns. A timestamp that does not
// parse is replaced with loadTime; malformed JSON or an unknown role fails
// the whole decode.
func DecodeTurns(data []byte, loadTime time.Time) ([]ChatTurn, error) {
	var records []turnRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	turns := make([]ChatTurn, 0, len(records))
	for i, r := range records {
		if !r.Role.Valid() {
			return nil, fmt.Errorf("decode turns: turn %d has unknown role %q", i, r.Role)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			createdAt = loadTime
		}
		turns = append(turns, ChatTurn{
			ID:        r.ID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: createdAt,
		})
	}
	return turns, nil
}
