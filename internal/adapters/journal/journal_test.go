package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sweeper/internal/core"
)

func sampleRun(id string, finished time.Time) *core.RunReport {
	return &core.RunReport{
		RunID:      id,
		Mode:       "query",
		Query:      `from:"a@b.com"`,
		State:      core.PhaseDone,
		Fetched:    3,
		Candidates: []core.DeletionCandidate{{ID: "m1", Sender: "a@b.com", Subject: "Sale", Reason: "Blocked sender"}},
		Deleted:    1,
		Failed:     1,
		Failures:   []core.DeletionFailure{{ID: "m2", Reason: "not found"}},
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestSQLiteJournal(t *testing.T) {
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"), nil, 24*time.Hour, 0)
	require.NoError(t, err)
	defer j.Stop()

	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	require.NoError(t, j.Record(ctx, sampleRun("old", now.Add(-48*time.Hour))))
	require.NoError(t, j.Record(ctx, sampleRun("first", now.Add(-time.Hour))))
	require.NoError(t, j.Record(ctx, sampleRun("second", now)))

	runs, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].RunID)
	assert.Equal(t, "first", runs[1].RunID)
	assert.Equal(t, core.PhaseDone, runs[0].State)
	assert.Equal(t, "Blocked sender", runs[0].Candidates[0].Reason)
	assert.Equal(t, "m2", runs[0].Failures[0].ID)

	require.NoError(t, j.Cleanup(ctx))
	runs, err = j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteJournalRejectsAnonymousRun(t *testing.T) {
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"), nil, 0, 0)
	require.NoError(t, err)
	defer j.Stop()

	assert.Error(t, j.Record(context.Background(), &core.RunReport{}))
	assert.Error(t, j.Record(context.Background(), nil))
}

func TestMemoryJournal(t *testing.T) {
	j := NewMemoryJournal(nil, time.Hour, 0)
	defer j.Stop()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, sampleRun("a", now.Add(-2*time.Hour))))
	require.NoError(t, j.Record(ctx, sampleRun("b", now.Add(-time.Minute))))
	require.NoError(t, j.Record(ctx, sampleRun("c", now)))

	runs, err := j.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})

	require.NoError(t, j.Cleanup(ctx))
	runs, err = j.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
