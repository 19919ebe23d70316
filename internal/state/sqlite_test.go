package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func TestCreateAndGetRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("pipeline.dtl")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "pipeline.dtl", run.Script)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "pipeline.dtl", got.Script)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.OutputPath)
	assert.Empty(t, got.Error)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestCompleteRun(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("pipeline.dtl")
	require.NoError(t, err)

	err = store.CompleteRun(run.ID, RunUpdate{
		Status:     RunStatusCompleted,
		OutputPath: "out.csv",
		Warnings:   2,
	})
	require.NoError(t, err)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, "out.csv", got.OutputPath)
	assert.Equal(t, 2, got.Warnings)
	assert.Equal(t, 0, got.Errors)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestCompleteRunFailed(t *testing.T) {
	store := newTestStore(t)

	run, err := store.CreateRun("broken.dtl")
	require.NoError(t, err)

	err = store.CompleteRun(run.ID, RunUpdate{
		Status: RunStatusFailed,
		Errors: 3,
		Error:  "semantic analysis failed",
	})
	require.NoError(t, err)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, 3, got.Errors)
	assert.Equal(t, "semantic analysis failed", got.Error)
	assert.Empty(t, got.OutputPath)
}

func TestCompleteRunNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.CompleteRun("no-such-id", RunUpdate{Status: RunStatusCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	var ids []string
	for _, script := range []string{"first.dtl", "second.dtl", "third.dtl"} {
		run, err := store.CreateRun(script)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond) // distinct started_at timestamps
	}

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, ids[0], runs[2].ID)
}

func TestRecentRunsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := store.CreateRun("s.dtl")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.RecentRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecentRunsEmpty(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreRequiresOpen(t *testing.T) {
	store := NewSQLiteStore()

	_, err := store.CreateRun("s.dtl")
	require.Error(t, err)

	require.NoError(t, store.Close())
}

func TestOpenOnDisk(t *testing.T) {
	path := t.TempDir() + "/state.db"
	store := NewSQLiteStore()
	require.NoError(t, store.Open(path))
	defer store.Close()
	require.NoError(t, store.Migrate())

	run, err := store.CreateRun("s.dtl")
	require.NoError(t, err)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}
