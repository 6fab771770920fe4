package finguard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// DefaultUserID is used when a caller does not identify the user.
const DefaultUserID = "anonymous"

// Options controls Core initialization.
type Options struct {
	// DBPath is required for the sqlite backend.
	DBPath  string
	Storage string
	Logger  *slog.Logger
	// Risk and Sentiment default to the demonstration catalog.
	Risk         RiskFetcher
	Sentiment    SentimentFetcher
	HistoryLimit int
	Now          func() time.Time
}

// Core wires the analysis provider, stores and the per-user and
// per-session registries.
type Core struct {
	logger       *slog.Logger
	provider     *AnalysisProvider
	catalog      *Catalog
	sessions     SessionStore
	history      HistoryStore
	sqlite       *SQLiteStore
	historyLimit int
	now          func() time.Time

	mu           sync.Mutex
	openSessions map[string]*ConversationSession
	userHistory  map[string]*HistoryCache
}

// Open initializes a Core backed by SQLite at dbPath.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Core{
		logger:       logger,
		catalog:      NewCatalog(CatalogOptions{}),
		historyLimit: defaultInt(opts.HistoryLimit, DefaultHistoryLimit),
		now:          now,
		openSessions: map[string]*ConversationSession{},
		userHistory:  map[string]*HistoryCache{},
	}

	switch strings.ToLower(strings.TrimSpace(opts.Storage)) {
	case "", StorageSQLite:
		store, err := OpenSQLiteStore(opts.DBPath, logger)
		if err != nil {
			return nil, err
		}
		store.now = now
		c.sqlite = store
		c.sessions = store
		c.history = store
	case StorageMemory:
		store := NewMemoryStore()
		store.now = now
		c.sessions = store
		c.history = store
	default:
		return nil, NewError(ErrCodeUnsupported, fmt.Sprintf("unsupported storage %q", opts.Storage))
	}

	risk := opts.Risk
	if risk == nil {
		risk = c.catalog
	}
	sentiment := opts.Sentiment
	if sentiment == nil {
		sentiment = c.catalog
	}
	provider, err := NewAnalysisProvider(ProviderOptions{
		Risk:      risk,
		Sentiment: sentiment,
		History:   c.history,
		Namer:     c.catalog,
		Logger:    logger,
		Now:       now,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.provider = provider
	return c, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.sqlite == nil {
		return nil
	}
	return c.sqlite.Close()
}

// Provider exposes the analysis facade.
func (c *Core) Provider() *AnalysisProvider { return c.provider }

// Logger returns the core logger.
func (c *Core) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// DashboardAnalysis is the direct-query result for one symbol.
type DashboardAnalysis struct {
	Snapshot       StockSnapshot  `json:"snapshot"`
	Name           string         `json:"name,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	Alert          Alert          `json:"alert"`
	// Saved reports the detached history write; see FullAnalysis.
	Saved <-chan error `json:"-"`
}

// AnalyzeSymbol runs a full analysis for user input typed into a search box.
// The input is trimmed and uppercased first; failures are returned to the
// caller rather than softened.
func (c *Core) AnalyzeSymbol(ctx context.Context, userID, input string) (DashboardAnalysis, error) {
	symbol, err := NormalizeSymbol(input)
	if err != nil {
		return DashboardAnalysis{}, err
	}
	userID = normalizeUserID(userID)
	cache := c.historyCache(ctx, userID)

	full, err := c.provider.FullAnalysis(ctx, userID, symbol)
	if err != nil {
		return DashboardAnalysis{}, err
	}
	cache.AddRecord(full.Record)

	return DashboardAnalysis{
		Snapshot:       full.Snapshot,
		Name:           full.Record.Name,
		Recommendation: RecommendFor(full.Snapshot),
		Alert:          AlertFor(full.Snapshot),
		Saved:          full.Saved,
	}, nil
}

// Risk runs the risk sub-fetch for direct user input.
func (c *Core) Risk(ctx context.Context, input string) (RiskMetrics, error) {
	symbol, err := NormalizeSymbol(input)
	if err != nil {
		return RiskMetrics{}, err
	}
	risk, err := c.provider.FetchRisk(ctx, symbol)
	if err != nil {
		return RiskMetrics{}, analysisFailed(symbol, err)
	}
	return risk, nil
}

// Sentiment runs the sentiment sub-fetch for direct user input.
func (c *Core) Sentiment(ctx context.Context, input string) (SentimentMetrics, error) {
	symbol, err := NormalizeSymbol(input)
	if err != nil {
		return SentimentMetrics{}, err
	}
	sentiment, err := c.provider.FetchSentiment(ctx, symbol)
	if err != nil {
		return SentimentMetrics{}, analysisFailed(symbol, err)
	}
	return sentiment, nil
}

// History returns up to limit entries of the user's history cache, most
// recent first. limit <= 0 uses the configured default. A user with no
// analyses sees the demonstration set.
func (c *Core) History(ctx context.Context, userID string, limit int) []HistoryRecord {
	if limit <= 0 {
		limit = c.historyLimit
	}
	records := c.historyCache(ctx, normalizeUserID(userID)).List()
	if len(records) == 0 {
		return c.catalog.DemoHistory(limit, c.now())
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Session returns the conversation for sessionID, opening and rehydrating
// it on first use. A session ID belongs to the user that first opened it:
// its chat analyses feed that user's history cache, and userID is ignored
// on later calls.
func (c *Core) Session(ctx context.Context, sessionID, userID string) *ConversationSession {
	c.mu.Lock()
	s, ok := c.openSessions[sessionID]
	c.mu.Unlock()
	if ok {
		return s
	}

	cache := c.historyCache(ctx, normalizeUserID(userID))
	opened := OpenSession(ctx, sessionID, SessionOptions{
		Analyzer: c.provider,
		Store:    c.sessions,
		History:  cache,
		Logger:   c.logger.With("session_id", sessionID),
		Now:      c.now,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another request may have opened it meanwhile.
	if existing, ok := c.openSessions[sessionID]; ok {
		return existing
	}
	c.openSessions[sessionID] = opened
	return opened
}

type sessionPruner interface {
	PruneSessions(ctx context.Context, idleBefore time.Time) ([]string, error)
}

// PruneSessions removes conversations idle for longer than maxIdle from the
// store and from the open-session registry. Sessions awaiting a reply stay
// registered and are saved again when the reply lands.
func (c *Core) PruneSessions(ctx context.Context, maxIdle time.Duration) (int, error) {
	pruner, ok := c.sessions.(sessionPruner)
	if !ok || maxIdle <= 0 {
		return 0, nil
	}
	ids, err := pruner.PruneSessions(ctx, c.now().Add(-maxIdle))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if s, ok := c.openSessions[id]; ok && s.State() == StateIdle {
			delete(c.openSessions, id)
		}
	}
	return len(ids), nil
}

// historyCache loads the user's cache from the store on first use.
func (c *Core) historyCache(ctx context.Context, userID string) *HistoryCache {
	c.mu.Lock()
	cache, ok := c.userHistory[userID]
	c.mu.Unlock()
	if ok {
		return cache
	}

	records, err := c.history.List(ctx, userID, 0)
	if err != nil {
		c.logger.Warn("history load failed", "user_id", userID, "err", err)
	}
	loaded := NewHistoryCache(records...)
	loaded.now = c.now

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.userHistory[userID]; ok {
		return existing
	}
	c.userHistory[userID] = loaded
	return loaded
}

func normalizeUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DefaultUserID
	}
	return userID
}
