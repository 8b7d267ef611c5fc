// Package runstore persists completed run records. Two backends exist: a
// filesystem store writing one JSON document per run, and a PostgreSQL
// store for shared deployments.
package runstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
)

// Store is the persistence contract for run records.
type Store interface {
	SaveRun(ctx context.Context, record *schemas.RunRecord) error
	GetRun(ctx context.Context, id string) (*schemas.RunRecord, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	Close()
}

// RunSummary is the listing row for a stored run.
type RunSummary struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	TargetURL string    `json:"target_url"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// NewFromConfig builds the store selected by configuration.
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, artifactDir string, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case "filesystem", "":
		return NewFilesystemStore(artifactDir, logger)
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		store.closePool = pool.Close
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store type %q (want filesystem or postgres)", cfg.Type)
	}
}
