package finguard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionState is the phase of a conversation turn.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateAwaitingReply
)

func (s SessionState) String() string {
	if s == StateAwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// SessionStore persists the full turn sequence of a session.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, turns []ChatTurn) error
	// Load returns the stored turns, or an empty slice when none exist.
	Load(ctx context.Context, sessionID string) ([]ChatTurn, error)
	Delete(ctx context.Context, sessionID string) error
}

// Analyzer produces a snapshot for a symbol. AnalysisProvider implements it.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (StockSnapshot, error)
}

// SessionOptions configures a ConversationSession.
type SessionOptions struct {
	Analyzer Analyzer
	Store    SessionStore
	// History, when set, receives every successfully analyzed snapshot.
	History *HistoryCache
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// ConversationSession is an ordered chat log for one user context. Submit
// calls are serialized by state: a call made while a reply is pending is
// rejected, not queued.
type ConversationSession struct {
	id       string
	analyzer Analyzer
	store    SessionStore
	history  *HistoryCache
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	state atomic.Int32

	// persistMu orders store writes against Clear's delete.
	persistMu sync.Mutex

	mu    sync.RWMutex
	turns []ChatTurn
	// generation increments on Clear so a reply in flight is dropped.
	generation uint64
}

// SubmitResult describes one completed Submit. AnalysisErr is set when a
// symbol was found but analysis failed and the canned reply was used instead.
// PersistErr collects session store failures; they never fail Submit.
type SubmitResult struct {
	UserTurn    ChatTurn
	Reply       ChatTurn
	Symbol      string
	Snapshot    *StockSnapshot
	AnalysisErr error
	PersistErr  error
}

// OpenSession creates a session, rehydrating any stored turns. A load or
// decode failure is logged and the session starts empty.
func OpenSession(ctx context.Context, sessionID string, opts SessionOptions) *ConversationSession {
	s := &ConversationSession{
		id:       sessionID,
		analyzer: opts.Analyzer,
		store:    opts.Store,
		history:  opts.History,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.store != nil {
		turns, err := s.store.Load(ctx, sessionID)
		if err != nil {
			s.logger.Warn("session rehydrate failed, starting empty", "session_id", sessionID, "err", err)
		} else {
			s.turns = turns
		}
	}
	return s
}

// ID returns the session id.
func (s *ConversationSession) ID() string { return s.id }

// State returns the current phase.
func (s *ConversationSession) State() SessionState {
	return SessionState(s.state.Load())
}

// Turns returns a copy of the turn log in append order.
func (s *ConversationSession) Turns() []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Submit appends the user's text, answers it and appends the reply. Empty
// text and calls made while a reply is pending are rejected without any
// state change.
func (s *ConversationSession) Submit(ctx context.Context, text string) (SubmitResult, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return SubmitResult{}, WrapError(ErrCodeInvalidInput, "message is empty", ErrEmptyMessage)
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingReply)) {
		return SubmitResult{}, WrapError(ErrCodeSessionBusy, "a reply is still pending", ErrSessionBusy)
	}
	defer s.state.Store(int32(StateIdle))

	var result SubmitResult
	var generation uint64
	result.UserTurn, generation = s.appendTurn(RoleUser, content)
	result.PersistErr = s.persist(ctx, generation)

	reply := s.answer(ctx, content, &result)

	turn, ok := s.appendTurnIf(generation, RoleAssistant, reply)
	if !ok {
		s.logger.Info("session cleared while awaiting reply, dropping reply", "session_id", s.id)
		return result, nil
	}
	result.Reply = turn
	if err := s.persist(ctx, generation); err != nil && result.PersistErr == nil {
		result.PersistErr = err
	}
	return result, nil
}

func (s *ConversationSession) answer(ctx context.Context, content string, result *SubmitResult) string {
	symbol, ok := ExtractSymbol(content)
	if !ok || s.analyzer == nil {
		return CannedReply(content)
	}
	result.Symbol = symbol
	snapshot, err := s.analyzer.Analyze(ctx, symbol)
	if err != nil {
		result.AnalysisErr = err
		s.logger.Warn("chat analysis failed, using canned reply", "session_id", s.id, "symbol", symbol, "err", err)
		return CannedReply(content)
	}
	result.Snapshot = &snapshot
	if s.history != nil {
		s.history.UpsertIfAbsent(snapshot)
	}
	return FormatStockReply(snapshot)
}

// Clear empties the log and deletes the stored copy. It always succeeds
// locally; a store failure is only logged.
func (s *ConversationSession) Clear(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.turns = nil
	s.generation++
	s.mu.Unlock()
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, s.id); err != nil {
		s.logger.Warn("session delete failed", "session_id", s.id, "err", err)
	}
}

func (s *ConversationSession) appendTurn(role Role, content string) (ChatTurn, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn := s.newTurn(role, content)
	s.turns = append(s.turns, turn)
	return turn, s.generation
}

func (s *ConversationSession) appendTurnIf(generation uint64, role Role, content string) (ChatTurn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return ChatTurn{}, false
	}
	turn := s.newTurn(role, content)
	s.turns = append(s.turns, turn)
	return turn, true
}

// callers hold mu.
func (s *ConversationSession) newTurn(role Role, content string) ChatTurn {
	return ChatTurn{ID: s.newID(), Role: role, Content: content, CreatedAt: s.now()}
}

// persist saves the log unless a Clear has happened since generation.
func (s *ConversationSession) persist(ctx context.Context, generation uint64) error {
	if s.store == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	if s.generation != generation {
		s.mu.RUnlock()
		return nil
	}
	turns := make([]ChatTurn, len(s.turns))
	copy(turns, s.turns)
	s.mu.RUnlock()

	if err := s.store.Save(ctx, s.id, turns); err != nil {
		s.logger.Warn("session save failed", "session_id", s.id, "turns", len(turns), "err", err)
		return err
	}
	return nil
}
