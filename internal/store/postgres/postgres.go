package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

// Schema creates the memories table. It matches infra/migrations/001_memories.sql.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	created_at TEXT NOT NULL,
	type TEXT,
	url TEXT,
	title TEXT,
	original_content_preview TEXT,
	has_screenshot BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS memories_id_idx ON memories (id);
`

type PostgresStore struct {
	db *sql.DB
}

var openDB = sql.Open

func New(conn string) (*PostgresStore, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema applies Schema. New does not call it; deployments run the
// migration, tests and the serve command's --migrate flag use this.
func EnsureSchema(ctx context.Context, conn string) error {
	db, err := openDB("pgx", conn)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, Schema)
	return err
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	var regclass sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", "public.memories").Scan(&regclass); err != nil {
		return err
	}
	if !regclass.Valid {
		return fmt.Errorf("database schema missing: memories table not found (run infra/migrations/001_memories.sql)")
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Load(ctx context.Context) ([]store.Memory, error) {
	const query = `
		SELECT id, content, timestamp, created_at, type, url, title, original_content_preview, has_screenshot
		FROM memories
		ORDER BY position ASC
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []store.Memory{}
	for rows.Next() {
		var (
			mem                                 store.Memory
			memType, url, title, contentPreview sql.NullString
		)
		if err := rows.Scan(&mem.ID, &mem.Content, &mem.Timestamp, &mem.CreatedAt, &memType, &url, &title, &contentPreview, &mem.HasScreenshot); err != nil {
			return nil, err
		}
		mem.Type = memType.String
		mem.URL = url.String
		mem.Title = title.String
		mem.OriginalContentPreview = contentPreview.String
		memories = append(memories, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

// Save replaces the table contents in one transaction so concurrent readers
// never observe a partially written collection.
func (p *PostgresStore) Save(ctx context.Context, memories []store.Memory) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
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
	const insert = `
		INSERT INTO memories (
			position,
			id,
			content,
			timestamp,
			created_at,
			type,
			url,
			title,
			original_content_preview,
			has_screenshot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, mem := range memories {
		if _, err = tx.ExecContext(
			ctx,
			insert,
			i,
			mem.ID,
			mem.Content,
			mem.Timestamp,
			mem.CreatedAt,
			nullString(mem.Type),
			nullString(mem.URL),
			nullString(mem.Title),
			nullString(mem.OriginalContentPreview),
			mem.HasScreenshot,
		); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
