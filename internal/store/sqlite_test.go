package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-intel/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "gemini", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, st.FinishRun(ctx, run.ID, RunStatusInterrupted))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Provider)
	assert.Equal(t, 3, got.Seeds)
	assert.Equal(t, RunStatusInterrupted, got.Status)
	require.NotNil(t, got.FinishedAt)

	second, err := st.CreateRun(ctx, "anthropic", 1)
	require.NoError(t, err)
	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.ErrorContains(t, err, "run not found")

	err = st.FinishRun(ctx, "missing", RunStatusComplete)
	assert.ErrorContains(t, err, "run not found")
}

func TestSQLite_Outcomes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "evidence", 2)
	require.NoError(t, err)

	rec := model.ExtractionRecord{Specialty: "Psychiatry", Modalities: "CBT", Location: "Austin, TX", ClinicSize: "unknown"}
	saved, err := st.SaveOutcome(ctx, Outcome{RunID: run.ID, URL: "https://a.example/", Status: OutcomeOK, Record: rec, Attempts: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = st.SaveOutcome(ctx, Outcome{RunID: run.ID, URL: "https://b.example/", Status: OutcomeFailed, Error: "crawl: no pages fetched"})
	require.NoError(t, err)

	other, err := st.CreateRun(ctx, "evidence", 1)
	require.NoError(t, err)
	_, err = st.SaveOutcome(ctx, Outcome{RunID: other.ID, URL: "https://c.example/", Status: OutcomeOK})
	require.NoError(t, err)

	list, err := st.ListOutcomes(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "https://a.example/", list[0].URL)
	assert.Equal(t, OutcomeOK, list[0].Status)
	assert.Equal(t, rec, list[0].Record)
	assert.Equal(t, 2, list[0].Attempts)
	assert.Equal(t, model.ClinicResult{URL: "https://a.example/", ClinicInfo: rec}, list[0].Result())

	assert.Equal(t, OutcomeFailed, list[1].Status)
	assert.Equal(t, "crawl: no pages fetched", list[1].Error)
}
