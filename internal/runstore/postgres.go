// internal/runstore/postgres.go
package runstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// DBPool abstracts the pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id         TEXT PRIMARY KEY,
    goal       TEXT NOT NULL,
    target_url TEXT NOT NULL,
    status     TEXT NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at   TIMESTAMPTZ,
    record     JSONB NOT NULL
);`

const upsertRun = `
INSERT INTO runs (id, goal, target_url, status, started_at, ended_at, record)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    ended_at = EXCLUDED.ended_at,
    record = EXCLUDED.record;`

// PostgresStore keeps run records in a single JSONB-backed table, with the
// hot listing columns denormalized for queries.
type PostgresStore struct {
	pool      DBPool
	log       *zap.Logger
	closePool func()
}

// NewPostgresStore verifies the connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createRunsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure runs table: %w", err)
	}
	return &PostgresStore{pool: pool, log: logger.Named("pg_store")}, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, record *schemas.RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no id")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	_, err = s.pool.Exec(ctx, upsertRun,
		record.ID, record.Goal, record.TargetURL,
		string(record.Outcome.Status),
		record.StartedAt.UTC(), record.EndedAt.UTC(),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to persist run %q: %w", record.ID, err)
	}

	s.log.Info("Run saved", zap.String("run_id", record.ID))
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*schemas.RunRecord, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM runs WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %q not found", id)
		}
		return nil, fmt.Errorf("failed to load run %q: %w", id, err)
	}

	var record schemas.RunRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("run %q is corrupt: %w", id, err)
	}
	return &record, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, goal, target_url, status, started_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.Goal, &s.TargetURL, &s.Status, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) Close() {
	if s.closePool != nil {
		s.closePool()
	}
}
