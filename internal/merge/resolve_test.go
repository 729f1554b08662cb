package merge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

func mergedWithKpiConflict(t *testing.T) Result {
	t.Helper()
	a := snap(t, "a.json", kpiDoc(100.0))
	b := snap(t, "b.json", kpiDoc(150.0))
	r := Merge([]Input{a, b}, NonDefaultWins)
	require.Len(t, r.Conflicts, 1)
	return r
}

func TestApply_KpiChoiceRoundTrip(t *testing.T) {
	r := mergedWithKpiConflict(t)

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{0: 0})
	assert.Equal(t, 1, rep.Applied)
	f, _ := resolved.KpiLines[0].Actual.Float()
	assert.Equal(t, 100.0, f)

	resolved, rep = Apply(r.Merged, r.Conflicts, map[int]int{0: 1})
	assert.Equal(t, 1, rep.Applied)
	f, _ = resolved.KpiLines[0].Actual.Float()
	assert.Equal(t, 150.0, f)

	// Serialization round-trip preserves the chosen value exactly.
	raw, err := json.Marshal(resolved.Document())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	back, issues := scorecard.FromDocument(doc)
	require.Empty(t, issues)
	f, _ = back.KpiLines[0].Actual.Float()
	assert.Equal(t, 150.0, f)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	r := mergedWithKpiConflict(t)

	_, _ = Apply(r.Merged, r.Conflicts, map[int]int{0: 0})
	f, _ := r.Merged.KpiLines[0].Actual.Float()
	assert.Equal(t, 150.0, f, "Apply must operate on a copy")
}

func TestApply_Idempotent(t *testing.T) {
	r := mergedWithKpiConflict(t)

	once, _ := Apply(r.Merged, r.Conflicts, map[int]int{0: 0})
	twice, _ := Apply(once, r.Conflicts, map[int]int{0: 0})
	assert.Equal(t, once.Document(), twice.Document())
}

func TestApply_OutOfRangeIndicesIgnored(t *testing.T) {
	r := mergedWithKpiConflict(t)

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{
		0:  99, // stale choice index
		7:  0,  // stale conflict index
		-1: 0,
	})
	assert.Equal(t, 0, rep.Applied)
	assert.Equal(t, 3, rep.OutOfRange)
	f, _ := resolved.KpiLines[0].Actual.Float()
	assert.Equal(t, 150.0, f, "the merge-time fallback stays in place")
}

func TestApply_UnresolvedConflictsKeepFallback(t *testing.T) {
	r := mergedWithKpiConflict(t)

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{})
	assert.Equal(t, 0, rep.Applied)
	f, _ := resolved.KpiLines[0].Actual.Float()
	assert.Equal(t, 150.0, f)
}

func TestApply_UnmatchableKpiKeyIsObservableNoOp(t *testing.T) {
	r := mergedWithKpiConflict(t)
	r.Merged.KpiLines = nil // the line vanished between merge and resolution

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{0: 0})
	assert.Equal(t, 0, rep.Applied)
	assert.Equal(t, 1, rep.Unmatched)
	require.Len(t, rep.Warnings, 1)
	assert.Empty(t, resolved.KpiLines)
}

func TestApply_AnswerConflict(t *testing.T) {
	a := snap(t, "a.json", map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "Yes"}},
	})
	b := snap(t, "b.json", map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": "No"}},
	})
	r := Merge([]Input{a, b}, NonDefaultWins)
	require.Len(t, r.Conflicts, 1)

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{0: 1})
	assert.Equal(t, 1, rep.Applied)
	assert.Equal(t, "No", resolved.Answers["Q1"].AsMapping()["primary"].AsScalar())
}

func TestApply_PerScopeConflict_KeysWithSeparators(t *testing.T) {
	// Scope keys carry the same delimiter the display path uses; the typed
	// path must still address the right bucket.
	scope := "Artistic::Swan.Lake"
	a := snap(t, "a.json", map[string]any{
		"per_scope_answers": map[string]any{
			scope: map[string]any{"Q.7": map[string]any{"primary": "old"}},
		},
	})
	b := snap(t, "b.json", map[string]any{
		"per_scope_answers": map[string]any{
			scope: map[string]any{"Q.7": map[string]any{"primary": "new"}},
		},
	})
	r := Merge([]Input{a, b}, NonDefaultWins)
	require.Len(t, r.Conflicts, 1)

	resolved, rep := Apply(r.Merged, r.Conflicts, map[int]int{0: 1})
	assert.Equal(t, 1, rep.Applied)
	assert.Equal(t, "new",
		resolved.PerScope[scope]["Q.7"].AsMapping()["primary"].AsScalar())
}

func TestApply_MissingScopeIsNoOp(t *testing.T) {
	a := snap(t, "a.json", map[string]any{
		"per_scope_answers": map[string]any{
			"S1": map[string]any{"Q1": map[string]any{"primary": "x"}},
		},
	})
	b := snap(t, "b.json", map[string]any{
		"per_scope_answers": map[string]any{
			"S1": map[string]any{"Q1": map[string]any{"primary": "y"}},
		},
	})
	r := Merge([]Input{a, b}, NonDefaultWins)
	require.Len(t, r.Conflicts, 1)

	delete(r.Merged.PerScope, "S1")
	_, rep := Apply(r.Merged, r.Conflicts, map[int]int{0: 1})
	assert.Equal(t, 1, rep.Unmatched, "a vanished scope must not be re-invented")
}
