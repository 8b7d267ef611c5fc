package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

func sampleRecord(started time.Time) *schemas.RunRecord {
	return &schemas.RunRecord{
		ID:        uuid.NewString(),
		Goal:      "find the pricing page",
		TargetURL: "https://site.test",
		StartedAt: started,
		EndedAt:   started.Add(2 * time.Minute),
		Outcome:   schemas.RunOutcome{Status: schemas.StatusSuccess, Reason: "success hints satisfied"},
		Steps: []schemas.StepRecord{
			{Index: 0, Timestamp: started, URL: "https://site.test/", Action: schemas.ActionSummary{Type: "click", Target: "nav_1"}},
		},
		Metrics: schemas.RunMetrics{TotalSteps: 1, PageTransitions: 1},
	}
}

func TestFilesystemStore_RoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	record := sampleRecord(time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.SaveRun(context.Background(), record))

	loaded, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(record, loaded); diff != "" {
		t.Errorf("loaded record differs from saved (-want +got):\n%s", diff)
	}
}

func TestFilesystemStore_SaveIsIdempotent(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	record := sampleRecord(time.Now().UTC())
	require.NoError(t, store.SaveRun(context.Background(), record))

	record.Outcome.Status = schemas.StatusPartial
	require.NoError(t, store.SaveRun(context.Background(), record))

	loaded, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusPartial, loaded.Outcome.Status)
}

func TestFilesystemStore_ListRunsNewestFirst(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Second)
	older := sampleRecord(base.Add(-time.Hour))
	newer := sampleRecord(base)
	require.NoError(t, store.SaveRun(context.Background(), older))
	require.NoError(t, store.SaveRun(context.Background(), newer))

	summaries, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, newer.ID, summaries[0].ID)
	assert.Equal(t, older.ID, summaries[1].ID)
}

func TestFilesystemStore_Errors(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = store.GetRun(context.Background(), "does-not-exist")
	assert.Error(t, err)

	_, err = store.GetRun(context.Background(), "../escape")
	assert.Error(t, err)

	err = store.SaveRun(context.Background(), &schemas.RunRecord{})
	assert.Error(t, err)
}
