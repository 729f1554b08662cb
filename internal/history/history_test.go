package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mergedRun(t *testing.T) merge.Result {
	t.Helper()
	a, _ := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "Yes"}},
		"notes":   "first pass",
	})
	b, _ := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "No"}},
	})
	r := merge.Merge([]merge.Input{
		{Snapshot: a, Source: "a.json"},
		{Snapshot: b, Source: "b.json"},
	}, merge.NonDefaultWins)
	require.True(t, r.HasConflicts())
	return r
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := mergedRun(t)

	id, err := s.SaveRun(ctx, &Run{
		Policy:    string(merge.NonDefaultWins),
		BatchHash: "abc123",
		Sources:   r.Sources,
		Stats:     r.Stats,
		Merged:    r.Merged,
		Conflicts: r.Conflicts,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id, "an ID is generated when the caller supplies none")

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, string(merge.NonDefaultWins), got.Policy)
	assert.Equal(t, "abc123", got.BatchHash)
	assert.Equal(t, []string{"a.json", "b.json"}, got.Sources)
	assert.Equal(t, r.Stats, got.Stats)
	assert.Equal(t, "first pass", got.Merged.Notes)

	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, r.Conflicts[0].Section.String(), got.Conflicts[0].Section.String(),
		"structured conflict paths survive persistence")
	assert.Len(t, got.Conflicts[0].Values, 2)
}

func TestStore_ReloadedConflictsStillResolve(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := mergedRun(t)

	id, err := s.SaveRun(ctx, &Run{
		Policy: string(merge.NonDefaultWins), Sources: r.Sources,
		Stats: r.Stats, Merged: r.Merged, Conflicts: r.Conflicts,
	})
	require.NoError(t, err)

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)

	resolved, report := merge.Apply(got.Merged, got.Conflicts, map[int]int{0: 1})
	assert.Equal(t, 1, report.Applied)
	primary := resolved.Answers["Q1"].AsMapping()["primary"]
	assert.Equal(t, "No", primary.AsScalar())
}

func TestStore_GetRunUnknownID(t *testing.T) {
	s := openStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := mergedRun(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.SaveRun(ctx, &Run{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Policy:    string(merge.NonDefaultWins),
			Sources:   r.Sources,
			Stats:     r.Stats,
			Merged:    r.Merged,
			Conflicts: r.Conflicts,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)
	assert.Equal(t, 1, all[0].Conflicts)

	two, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStore_SaveAndListResolutions(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := mergedRun(t)

	id, err := s.SaveRun(ctx, &Run{
		Policy: string(merge.NonDefaultWins), Sources: r.Sources,
		Stats: r.Stats, Merged: r.Merged, Conflicts: r.Conflicts,
	})
	require.NoError(t, err)

	resolved, report := merge.Apply(r.Merged, r.Conflicts, map[int]int{0: 1})
	require.NoError(t, s.SaveResolution(ctx, id, &Resolution{
		Choices:  map[int]int{0: 1},
		Report:   report,
		Resolved: resolved,
	}))

	got, err := s.Resolutions(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[int]int{0: 1}, got[0].Choices)
	assert.Equal(t, 1, got[0].Report.Applied)
	primary := got[0].Resolved.Answers["Q1"].AsMapping()["primary"]
	assert.Equal(t, "No", primary.AsScalar())
}

func TestStore_SaveResolutionUnknownRun(t *testing.T) {
	s := openStore(t)
	err := s.SaveResolution(context.Background(), "nope", &Resolution{Choices: map[int]int{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ResolutionsEmptyForFreshRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	r := mergedRun(t)

	id, err := s.SaveRun(ctx, &Run{
		Policy: string(merge.NonDefaultWins), Sources: r.Sources,
		Stats: r.Stats, Merged: r.Merged, Conflicts: r.Conflicts,
	})
	require.NoError(t, err)

	got, err := s.Resolutions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}
