package runstore

import (
	"context"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

func newMockedStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store, err := NewPostgresStore(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_SaveRun(t *testing.T) {
	store, mock := newMockedStore(t)

	record := sampleRecord(time.Now().UTC())
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(record.ID, record.Goal, record.TargetURL, "success",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveRun(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRunRequiresID(t *testing.T) {
	store, _ := newMockedStore(t)
	assert.Error(t, store.SaveRun(context.Background(), &schemas.RunRecord{}))
}

func TestPostgresStore_GetRun(t *testing.T) {
	store, mock := newMockedStore(t)

	record := sampleRecord(time.Now().UTC())
	payload, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM runs").
		WithArgs(record.ID).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(payload))

	loaded, err := store.GetRun(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, record.Goal, loaded.Goal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRunNotFound(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectQuery("SELECT record FROM runs").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"record"}))

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestPostgresStore_ListRuns(t *testing.T) {
	store, mock := newMockedStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, goal, target_url, status, started_at FROM runs").
		WillReturnRows(pgxmock.NewRows([]string{"id", "goal", "target_url", "status", "started_at"}).
			AddRow("run-2", "goal b", "https://b.test", "partial", now).
			AddRow("run-1", "goal a", "https://a.test", "success", now.Add(-time.Hour)))

	summaries, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "run-2", summaries[0].ID)
	assert.Equal(t, "success", summaries[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
