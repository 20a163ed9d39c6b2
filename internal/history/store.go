// Package history archives finished sessions to a local SQLite journal so
// past conversations stay browsable offline.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"guardian/internal/domain"

	_ "modernc.org/sqlite"
)

// SessionRecord is one archived session.
type SessionRecord struct {
	ConversationID string
	Title          string
	Turns          int
	SummaryFired   bool
	ArchivedAt     time.Time
}

// SQLiteStore persists session archives to a single local database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		conversation_id TEXT PRIMARY KEY,
		title           TEXT,
		turns           INTEGER NOT NULL DEFAULT 0,
		summary_fired   INTEGER NOT NULL DEFAULT 0,
		archived_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES sessions(conversation_id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT,
		voice_origin    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(conversation_id, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Archive stores a finished session and its transcript. Re-archiving the
// same conversation replaces the previous snapshot.
func (s *SQLiteStore) Archive(ctx context.Context, conversationID, title string, msgs []domain.Message, summaryFired bool) error {
	if conversationID == "" {
		conversationID = "local-" + time.Now().Format("20060102-150405")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (conversation_id, title, turns, summary_fired, archived_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET
		   title=excluded.title, turns=excluded.turns,
		   summary_fired=excluded.summary_fired, archived_at=excluded.archived_at`,
		conversationID, title, len(msgs), summaryFired, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear previous snapshot: %w", err)
	}
	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, position, role, content, voice_origin)
			 VALUES (?, ?, ?, ?, ?)`,
			conversationID, i, string(m.Role), m.Text, m.VoiceOrigin,
		)
		if err != nil {
			return fmt.Errorf("archive message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	s.logger.Info("session archived", "conversation", conversationID, "turns", len(msgs))
	return nil
}

// ListSessions returns the most recently archived sessions.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, title, turns, summary_fired, archived_at
		 FROM sessions ORDER BY archived_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ConversationID, &rec.Title, &rec.Turns, &rec.SummaryFired, &rec.ArchivedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Messages returns an archived transcript in order.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, voice_origin FROM messages
		 WHERE conversation_id = ? ORDER BY position`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&role, &m.Text, &m.VoiceOrigin); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
