// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Keeps per-conversation turn counters with automatic schema creation

package store

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

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection serializes writers, and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation_state (
			protocol        TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			turn_count      INTEGER NOT NULL DEFAULT 0,
			updated_at      TEXT NOT NULL,
			PRIMARY KEY (protocol, conversation_id)
		);

		CREATE INDEX IF NOT EXISTS idx_conversation_state_updated
			ON conversation_state(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetConversationState implements Store.
func (s *SQLiteStore) GetConversationState(ctx context.Context, protocol, conversationID string) (*ConversationState, error) {
	var (
		st      ConversationState
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT protocol, conversation_id, turn_count, updated_at
		FROM conversation_state
		WHERE protocol = ? AND conversation_id = ?
	`, protocol, conversationID).Scan(&st.Protocol, &st.ConversationID, &st.TurnCount, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation state: %w", err)
	}

	st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &st, nil
}

// IncrementTurnCount implements Store.
func (s *SQLiteStore) IncrementTurnCount(ctx context.Context, protocol, conversationID string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var count int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO conversation_state (protocol, conversation_id, turn_count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (protocol, conversation_id)
		DO UPDATE SET turn_count = turn_count + 1, updated_at = excluded.updated_at
		RETURNING turn_count
	`, protocol, conversationID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing turn count: %w", err)
	}
	return count, nil
}

// ClearConversationState implements Store.
func (s *SQLiteStore) ClearConversationState(ctx context.Context, protocol, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM conversation_state WHERE protocol = ? AND conversation_id = ?
	`, protocol, conversationID)
	if err != nil {
		return fmt.Errorf("clearing conversation state: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}
