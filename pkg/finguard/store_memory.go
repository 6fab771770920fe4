package finguard

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process SessionStore and HistoryStore. Sessions are
// kept in their encoded form so rehydration matches the SQLite backend.
type MemoryStore struct {
	now func() time.Time

	mu       sync.Mutex
	sessions map[string][]byte
	saved    map[string]time.Time
	history  map[string][]HistoryRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		sessions: map[string][]byte{},
		saved:    map[string]time.Time{},
		history:  map[string][]HistoryRecord{},
	}
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, turns []ChatTurn) error {
	data, err := EncodeTurns(turns)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = data
	m.saved[sessionID] = m.now()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	m.mu.Lock()
	data, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return []ChatTurn{}, nil
	}
	return DecodeTurns(data, m.now())
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.saved, sessionID)
	return nil
}

// PruneSessions deletes sessions last saved before idleBefore.
func (m *MemoryStore) PruneSessions(ctx context.Context, idleBefore time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, at := range m.saved {
		if at.Before(idleBefore) {
			ids = append(ids, id)
			delete(m.sessions, id)
			delete(m.saved, id)
		}
	}
	return ids, nil
}

// Append prepends the record so listings are most recent first.
func (m *MemoryStore) Append(ctx context.Context, userID string, record HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append([]HistoryRecord{record}, m.history[userID]...)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, limit int) ([]HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := m.history[userID]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]HistoryRecord, len(records))
	copy(out, records)
	return out, nil
}
