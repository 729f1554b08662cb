package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/registry"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

func resultWithConflict(t *testing.T) merge.Result {
	t.Helper()

	a, issues := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "Yes"}},
	})
	require.Empty(t, issues)
	b, issues := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "No"}},
	})
	require.Empty(t, issues)

	r := merge.Merge([]merge.Input{
		{Snapshot: a, Source: "a.json"},
		{Snapshot: b, Source: "b.json"},
	}, merge.NonDefaultWins)
	require.True(t, r.HasConflicts())
	return r
}

func TestWriteMerged_JSONRoundTrips(t *testing.T) {
	r := resultWithConflict(t)
	path := filepath.Join(t.TempDir(), "out", "merged.json")

	require.NoError(t, WriteMerged(path, r.Merged), "writer creates missing parent dirs")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	got, issues := scorecard.FromDocument(doc)
	require.Empty(t, issues)
	assert.True(t, got.Answers["Q1"].Equal(r.Merged.Answers["Q1"]))
}

func TestWriteMerged_YAMLByExtension(t *testing.T) {
	r := resultWithConflict(t)
	path := filepath.Join(t.TempDir(), "merged.yaml")

	require.NoError(t, WriteMerged(path, r.Merged))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Contains(t, doc, "answers")
}

func TestBuildRun_CarriesConflictsAndStats(t *testing.T) {
	r := resultWithConflict(t)

	run := BuildRun(r, merge.NonDefaultWins, nil)

	assert.Equal(t, string(merge.NonDefaultWins), run.Policy)
	assert.Equal(t, []string{"a.json", "b.json"}, run.Sources)
	assert.Equal(t, 2, run.Stats.SnapshotsMerged)
	require.Len(t, run.Conflicts, 1)
	assert.Equal(t, "primary", run.Conflicts[0].Key)
	assert.Nil(t, run.Conflicts[0].Label, "no catalog means no labels")
	assert.Len(t, run.Conflicts[0].Values, 2)
}

func TestBuildRun_LabelsFromCatalog(t *testing.T) {
	r := resultWithConflict(t)
	reg := registry.New()
	reg.LoadCSVBytes([]byte("question_id,question_text,section\nQ1,Did we ship?,Delivery\n"))

	run := BuildRun(r, merge.NonDefaultWins, reg)

	require.Len(t, run.Conflicts, 1)
	require.NotNil(t, run.Conflicts[0].Label)
	assert.Equal(t, "Delivery: Did we ship?", run.Conflicts[0].Label.Header())
}

func TestConflictReport_NumbersMatchResolutionIndices(t *testing.T) {
	r := resultWithConflict(t)

	report := ConflictReport(r.Conflicts, nil)

	assert.Contains(t, report, "# Merge conflicts (1)")
	assert.Contains(t, report, "## 0. ")
	assert.Contains(t, report, "- [0] previous: `Yes`")
	assert.Contains(t, report, "- [1] b.json: `No`")
}

func TestConflictReport_Empty(t *testing.T) {
	assert.Equal(t, "No conflicts detected.\n", ConflictReport(nil, nil))
}

func TestWriteRun_ConflictPathsRoundTrip(t *testing.T) {
	r := resultWithConflict(t)
	path := filepath.Join(t.TempDir(), "run.json")

	require.NoError(t, WriteRun(path, BuildRun(r, merge.NonDefaultWins, nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got RunExport
	require.NoError(t, json.Unmarshal(data, &got))

	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, r.Conflicts[0].Section.String(), got.Conflicts[0].Section.String(),
		"structured paths survive the export round trip")
}
