package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"whoopmcp/internal/whoop"
)

// SQLite stores the token pair in a single-row sqlite table. Useful when
// the server runs somewhere a dotenv file is awkward to manage.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the sqlite database at dbPath
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS whoop_tokens (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Load returns the stored token pair
func (s *SQLite) Load(ctx context.Context) (*whoop.TokenPair, error) {
	var pair whoop.TokenPair

	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at
		FROM whoop_tokens WHERE id = 1
	`).Scan(&pair.AccessToken, &pair.RefreshToken, &pair.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: token table is empty", whoop.ErrNoTokens)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	return &pair, nil
}

// Save upserts the token pair into the single row
func (s *SQLite) Save(ctx context.Context, pair *whoop.TokenPair) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whoop_tokens (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, pair.AccessToken, pair.RefreshToken, pair.ExpiresAt.UTC(), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLite) Close() error {
	return s.db.Close()
}
