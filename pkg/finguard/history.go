package finguard

import (
	"context"
	"sync"
	"time"
)

// DefaultHistoryLimit is the size of a default history listing.
const DefaultHistoryLimit = 3

// HistoryStore persists analysis history per user.
type HistoryStore interface {
	// Append records one analysis for userID.
	Append(ctx context.Context, userID string, record HistoryRecord) error
	// List returns up to limit records, most recent first. limit <= 0 means all.
	List(ctx context.Context, userID string, limit int) ([]HistoryRecord, error)
}

// HistoryCache is an ordered, symbol-deduplicated list of analyses, most
// recently inserted first. Entries are never replaced once present.
type HistoryCache struct {
	now func() time.Time

	mu      sync.RWMutex
	entries []HistoryRecord
}

// NewHistoryCache builds a cache from records already ordered most recent
// first. Later duplicates of a symbol are dropped.
func NewHistoryCache(records ...HistoryRecord) *HistoryCache {
	c := &HistoryCache{now: time.Now}
	for _, r := range records {
		if c.indexOf(r.Snapshot.Symbol) >= 0 {
			continue
		}
		c.entries = append(c.entries, r)
	}
	return c
}

// UpsertIfAbsent inserts snapshot at the front unless its symbol is already
// present. It reports whether an entry was added.
func (c *HistoryCache) UpsertIfAbsent(snapshot StockSnapshot) bool {
	return c.AddRecord(HistoryRecord{Snapshot: snapshot, RecordedAt: c.now()})
}

// AddRecord is UpsertIfAbsent for a record that already carries a name and time.
func (c *HistoryCache) AddRecord(record HistoryRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(record.Snapshot.Symbol) >= 0 {
		return false
	}
	c.entries = append([]HistoryRecord{record}, c.entries...)
	return true
}

// List returns a copy of the entries, most recent first.
func (c *HistoryCache) List() []HistoryRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]HistoryRecord, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *HistoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// callers hold mu.
func (c *HistoryCache) indexOf(symbol string) int {
	for i, e := range c.entries {
		if e.Snapshot.Symbol == symbol {
			return i
		}
	}
	return -1
}
