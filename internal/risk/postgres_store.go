package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists verdicts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed verdict store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the verdicts table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS verdicts (
			id           VARCHAR(40)  PRIMARY KEY,
			target       TEXT         NOT NULL,
			host         VARCHAR(255) NOT NULL,
			risk_score   INTEGER      NOT NULL,
			risk_level   VARCHAR(20)  NOT NULL,
			issues       JSONB        NOT NULL DEFAULT '[]',
			computed_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_verdicts_host
			ON verdicts (host, computed_at DESC);

		CREATE INDEX IF NOT EXISTS idx_verdicts_blocked
			ON verdicts (computed_at DESC) WHERE risk_level IN ('HIGH', 'OVERRIDE_BLOCKED');
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, v *Verdict) error {
	issuesJSON, err := json.Marshal(v.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, target, host, risk_score, risk_level, issues, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		v.ID,
		v.Target,
		v.Host,
		v.RiskScore,
		string(v.RiskLevel),
		issuesJSON,
		v.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record verdict: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByHost(ctx context.Context, host string, limit int) ([]*Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, host, risk_score, risk_level, issues, computed_at
		FROM verdicts
		WHERE host = $1
		ORDER BY computed_at DESC
		LIMIT $2
	`, host, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Verdict
	for rows.Next() {
		var v Verdict
		var issuesJSON []byte

		if err := rows.Scan(&v.ID, &v.Target, &v.Host, &v.RiskScore, &v.RiskLevel, &issuesJSON, &v.ComputedAt); err != nil {
			continue
		}
		v.Issues = []Issue{}
		_ = json.Unmarshal(issuesJSON, &v.Issues)
		result = append(result, &v)
	}
	return result, nil
}
