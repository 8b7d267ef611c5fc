// internal/runstore/fs.go
package runstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

const runFileName = "run.json"

// FilesystemStore writes each run to <dir>/<run-id>/run.json, next to the
// run's screenshots.
type FilesystemStore struct {
	dir    string
	logger *zap.Logger
}

func NewFilesystemStore(dir string, logger *zap.Logger) (*FilesystemStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("filesystem store requires an artifact directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %q: %w", dir, err)
	}
	return &FilesystemStore{dir: dir, logger: logger.Named("fs_store")}, nil
}

func (s *FilesystemStore) SaveRun(ctx context.Context, record *schemas.RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no id")
	}

	runDir := filepath.Join(s.dir, record.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	// Write-then-rename so a crash never leaves a truncated record behind.
	tmp := filepath.Join(runDir, runFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(runDir, runFileName)); err != nil {
		return fmt.Errorf("failed to finalize run record: %w", err)
	}

	s.logger.Info("Run saved", zap.String("run_id", record.ID), zap.String("path", runDir))
	return nil
}

func (s *FilesystemStore) GetRun(ctx context.Context, id string) (*schemas.RunRecord, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid run id %q", id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id, runFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q not found", id)
		}
		return nil, fmt.Errorf("failed to read run %q: %w", id, err)
	}

	var record schemas.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("run %q is corrupt: %w", id, err)
	}
	return &record, nil
}

func (s *FilesystemStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact directory: %w", err)
	}

	var summaries []RunSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record, err := s.GetRun(ctx, entry.Name())
		if err != nil {
			s.logger.Warn("Skipping unreadable run directory", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		summaries = append(summaries, RunSummary{
			ID:        record.ID,
			Goal:      record.Goal,
			TargetURL: record.TargetURL,
			Status:    string(record.Outcome.Status),
			StartedAt: record.StartedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

func (s *FilesystemStore) Close() {}
