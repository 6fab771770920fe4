package finguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions and analysis history in a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &SQLiteStore{db: db, path: cleanPath, logger: logger, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID string, turns []ChatTurn) error {
	data, err := EncodeTurns(turns)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, turns, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET turns = excluded.turns, updated_at = excluded.updated_at
	`, sessionID, string(data), sqliteTime(s.now()))
	if err != nil {
		return WrapError(ErrCodeDatabase, "save session", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT turns FROM chat_sessions WHERE session_id = ?", sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []ChatTurn{}, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load session", err)
	}
	return DecodeTurns([]byte(data), s.now())
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_sessions WHERE session_id = ?", sessionID); err != nil {
		return WrapError(ErrCodeDatabase, "delete session", err)
	}
	return nil
}

// PruneSessions deletes sessions last saved before idleBefore and returns
// their ids.
func (s *SQLiteStore) PruneSessions(ctx context.Context, idleBefore time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := sqliteTime(idleBefore)
	rows, err := tx.QueryContext(ctx, "SELECT session_id FROM chat_sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chat_sessions WHERE updated_at < ?", cutoff); err != nil {
		return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "prune sessions", err)
	}
	return ids, nil
}

// sqliteTime matches the CURRENT_TIMESTAMP layout so stored and computed
// values compare as text.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func (s *SQLiteStore) Append(ctx context.Context, userID string, record HistoryRecord) error {
	snap := record.Snapshot
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_history
			(user_id, symbol, name, risk_level, cagr, volatility, sentiment_score, market_sentiment, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, userID, snap.Symbol, nullableString(record.Name), snap.RiskLevel.String(), snap.CAGR, snap.Volatility,
		snap.SentimentScore, snap.MarketSentiment.String(), record.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return WrapError(ErrCodeDatabase, "append history", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string, limit int) ([]HistoryRecord, error) {
	query := `
		SELECT symbol, name, risk_level, cagr, volatility, sentiment_score, market_sentiment, recorded_at
		FROM analysis_history
		WHERE user_id = ?
		ORDER BY id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list history", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var (
			rec        HistoryRecord
			name       sql.NullString
			risk       string
			sentiment  string
			recordedAt string
		)
		if err := rows.Scan(&rec.Snapshot.Symbol, &name, &risk, &rec.Snapshot.CAGR, &rec.Snapshot.Volatility,
			&rec.Snapshot.SentimentScore, &sentiment, &recordedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan history", err)
		}
		if rec.Snapshot.RiskLevel, err = ParseRiskLevel(risk); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan history", err)
		}
		if rec.Snapshot.MarketSentiment, err = ParseMarketSentiment(sentiment); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan history", err)
		}
		rec.Name = name.String
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			s.logger.Warn("history row has bad timestamp", "user_id", userID, "symbol", rec.Snapshot.Symbol, "err", err)
			rec.RecordedAt = s.now()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "list history", err)
	}
	return records, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
