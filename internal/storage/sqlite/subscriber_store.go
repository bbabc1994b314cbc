// Package sqlite persists the subscriber list in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"solana-transfer-watch/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
	chat_id INTEGER PRIMARY KEY
);
`

// SubscriberStore is a SQLite-backed implementation of
// storage.SubscriberStore.
type SubscriberStore struct {
	db *sql.DB
}

// NewSubscriberStore opens (and if needed creates) the database at path.
func NewSubscriberStore(path string) (*SubscriberStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", storage.ErrInvalidInput)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SubscriberStore{db: db}, nil
}

// Add registers a chat id. Adding an existing id is a no-op.
func (s *SubscriberStore) Add(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO subscribers (chat_id) VALUES (?) ON CONFLICT (chat_id) DO NOTHING", chatID)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// Remove deletes a chat id. Returns ErrNotFound for unknown ids.
func (s *SubscriberStore) Remove(ctx context.Context, chatID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscribers WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns all subscribed chat ids in ascending order.
func (s *SubscriberStore) List(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chat_id FROM subscribers ORDER BY chat_id ASC")
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return ids, nil
}

// Close closes the database.
func (s *SubscriberStore) Close() error {
	return s.db.Close()
}
