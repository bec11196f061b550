package lists

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists list entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed list store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the list_entries table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS list_entries (
			tag         VARCHAR(5)   NOT NULL CHECK (tag IN ('ALLOW', 'DENY')),
			pattern     VARCHAR(255) NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tag, pattern)
		);
	`)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, pattern, created_at
		FROM list_entries
		ORDER BY tag, pattern
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Tag, &e.Pattern, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan list entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Add(ctx context.Context, entry Entry) error {
	if !entry.Tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, entry.Tag)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_entries (tag, pattern)
		VALUES ($1, $2)
		ON CONFLICT (tag, pattern) DO NOTHING
	`, string(entry.Tag), entry.Pattern)
	if err != nil {
		return fmt.Errorf("failed to add list entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, tag Tag, pattern string) error {
	if !tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, tag)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM list_entries WHERE tag = $1 AND pattern = $2
	`, string(tag), pattern)
	if err != nil {
		return fmt.Errorf("failed to remove list entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove list entry: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Tag: tag, Pattern: pattern}
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, tag Tag, patterns []string) error {
	if !tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, tag)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin list replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM list_entries WHERE tag = $1`, string(tag)); err != nil {
		return fmt.Errorf("failed to clear %s list: %w", tag, err)
	}
	if len(patterns) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO list_entries (tag, pattern)
			SELECT $1, unnest($2::text[])
			ON CONFLICT (tag, pattern) DO NOTHING
		`, string(tag), pq.Array(patterns))
		if err != nil {
			return fmt.Errorf("failed to insert %s list: %w", tag, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit list replace: %w", err)
	}
	return nil
}
