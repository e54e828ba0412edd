package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	created_at TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	original_content_preview TEXT NOT NULL DEFAULT '',
	has_screenshot INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS memories_id_idx ON memories (id);
`

type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]store.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, timestamp, created_at, type, url, title, original_content_preview, has_screenshot
		FROM memories
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []store.Memory{}
	for rows.Next() {
		var mem store.Memory
		if err := rows.Scan(&mem.ID, &mem.Content, &mem.Timestamp, &mem.CreatedAt, &mem.Type, &mem.URL, &mem.Title, &mem.OriginalContentPreview, &mem.HasScreenshot); err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	return memories, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, memories []store.Memory) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM memories"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memories (position, id, content, timestamp, created_at, type, url, title, original_content_preview, has_screenshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, mem := range memories {
		if _, err = stmt.ExecContext(ctx, i, mem.ID, mem.Content, mem.Timestamp, mem.CreatedAt, mem.Type, mem.URL, mem.Title, mem.OriginalContentPreview, mem.HasScreenshot); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
