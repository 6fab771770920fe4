package finguard

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			session_id TEXT PRIMARY KEY,
			turns TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS analysis_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			risk_level TEXT NOT NULL CHECK(risk_level IN ('Low', 'Moderate', 'High')),
			cagr REAL NOT NULL,
			volatility REAL NOT NULL,
			sentiment_score REAL NOT NULL,
			market_sentiment TEXT NOT NULL CHECK(market_sentiment IN ('Normal', 'Overhype', 'Manipulation')),
			recorded_at TEXT NOT NULL
		)
	`); err != nil {
		return err
	}

	// Early databases stored no company name.
	hasName, err := tableHasColumn(tx, "analysis_history", "name")
	if err != nil {
		return err
	}
	if !hasName {
		if err := exec(tx, "ALTER TABLE analysis_history ADD COLUMN name TEXT"); err != nil {
			return err
		}
	}

	if err := exec(tx, "CREATE INDEX IF NOT EXISTS idx_analysis_history_user ON analysis_history(user_id, id DESC)"); err != nil {
		return err
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
