package reports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mbd888/fountainscan/internal/pagination"
)

// PostgresStore persists reports in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed report store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the reports table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id          VARCHAR(40)  PRIMARY KEY,
			url         TEXT         NOT NULL,
			host        VARCHAR(255) NOT NULL DEFAULT '',
			reason      TEXT         NOT NULL,
			risk_level  VARCHAR(20)  NOT NULL DEFAULT '',
			risk_score  INTEGER      NOT NULL DEFAULT 0,
			forwarded   BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_reports_created
			ON reports (created_at DESC, id DESC);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, url, host, reason, risk_level, risk_score, forwarded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.URL, r.Host, r.Reason, string(r.RiskLevel), r.RiskScore, r.Forwarded, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int, after *pagination.Cursor) ([]*Report, error) {
	var (
		rows *sql.Rows
		err  error
	)
	const cols = `id, url, host, reason, risk_level, risk_score, forwarded, created_at`
	if after == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+cols+`
			FROM reports
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+cols+`
			FROM reports
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.URL, &r.Host, &r.Reason, &r.RiskLevel, &r.RiskScore, &r.Forwarded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (s *PostgresStore) MarkForwarded(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reports SET forwarded = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark report forwarded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
