package scorecard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() map[string]any {
	return map[string]any{
		"meta": map[string]any{
			"department": "Artistic",
			"scope":      "Nutcracker",
			"period":     "2026-07",
		},
		"answers": map[string]any{
			"Q1": map[string]any{"primary": "Yes", "description": "on schedule"},
		},
		"per_scope_answers": map[string]any{
			"Artistic::Nutcracker": map[string]any{
				"Q2": map[string]any{"primary": 4.0},
			},
		},
		"kpi_lines": []any{
			map[string]any{
				"area":         "Ticketing",
				"category":     "Revenue",
				"sub_category": "Subscriptions",
				"actual":       125000.0,
				"target":       150000.0,
				"owner":        "box office",
			},
		},
		"notes":            "strong month",
		"narrative_result": map[string]any{"overall_summary": "..."},
	}
}

func TestFromDocument_FullShape(t *testing.T) {
	s, issues := FromDocument(sampleDoc())
	require.Empty(t, issues)

	assert.Equal(t, "Artistic", s.Meta["department"])
	assert.Equal(t, "Yes", s.Answers["Q1"].AsMapping()["primary"].AsScalar())
	assert.Contains(t, s.PerScope, "Artistic::Nutcracker")

	require.Len(t, s.KpiLines, 1)
	line := s.KpiLines[0]
	assert.Equal(t, "Ticketing", line.Area)
	f, ok := line.Actual.Float()
	require.True(t, ok)
	assert.Equal(t, 125000.0, f)
	assert.Equal(t, "box office", line.Extra["owner"].AsScalar(),
		"descriptive columns are carried through unchanged")

	assert.Equal(t, "strong month", s.Notes)
	assert.False(t, s.Narrative.IsNil())
}

func TestFromDocument_AbsentSectionsAreEmptyWithoutIssues(t *testing.T) {
	s, issues := FromDocument(map[string]any{})
	assert.Empty(t, issues, "absence is not malformation")
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.KpiLines)
	assert.True(t, s.Narrative.IsNil())
}

func TestFromDocument_MalformedSectionsReported(t *testing.T) {
	s, issues := FromDocument(map[string]any{
		"meta":              []any{"not", "a", "mapping"},
		"answers":           42.0,
		"per_scope_answers": map[string]any{"ok-scope": map[string]any{"Q1": "fine"}, "bad-scope": "oops"},
		"kpi_lines":         []any{map[string]any{"area": "A"}, "not a line"},
		"notes":             map[string]any{"wrong": true},
	})

	sections := make([]string, 0, len(issues))
	for _, issue := range issues {
		sections = append(sections, issue.Section)
	}
	assert.ElementsMatch(t,
		[]string{"meta", "answers", "per_scope_answers", "kpi_lines", "notes"},
		sections)

	// The readable parts still land.
	assert.Contains(t, s.PerScope, "ok-scope")
	require.Len(t, s.KpiLines, 1)
	assert.Equal(t, "A", s.KpiLines[0].Area)
}

func TestFromDocument_MetaScalarsStringified(t *testing.T) {
	s, issues := FromDocument(map[string]any{
		"meta": map[string]any{"year": 2026.0, "final": true, "blank": nil},
	})
	require.Empty(t, issues)
	assert.Equal(t, "2026", s.Meta["year"])
	assert.Equal(t, "true", s.Meta["final"])
	assert.Equal(t, "", s.Meta["blank"])
}

func TestDocument_RoundTripThroughJSON(t *testing.T) {
	s, _ := FromDocument(sampleDoc())

	raw, err := json.Marshal(s.Document())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	back, issues := FromDocument(doc)
	require.Empty(t, issues)

	assert.Equal(t, s.Meta, back.Meta)
	assert.Equal(t, s.Notes, back.Notes)
	assert.True(t, s.Answers["Q1"].Equal(back.Answers["Q1"]))
	assert.True(t, s.Narrative.Equal(back.Narrative))
	require.Len(t, back.KpiLines, 1)
	assert.Equal(t, s.KpiLines[0].Area, back.KpiLines[0].Area)
	assert.True(t, s.KpiLines[0].Actual.Equal(back.KpiLines[0].Actual))
	assert.True(t, s.KpiLines[0].Extra["target"].Equal(back.KpiLines[0].Extra["target"]))
}

func TestSnapshot_CloneSharesNothing(t *testing.T) {
	s, _ := FromDocument(sampleDoc())
	cp := s.Clone()

	s.Meta["department"] = "School"
	s.Answers["Q1"].AsMapping()["primary"] = String("No")
	s.KpiLines[0].Actual = Number(0)
	s.PerScope["Artistic::Nutcracker"]["Q2"] = String("changed")

	assert.Equal(t, "Artistic", cp.Meta["department"])
	assert.Equal(t, "Yes", cp.Answers["Q1"].AsMapping()["primary"].AsScalar())
	f, _ := cp.KpiLines[0].Actual.Float()
	assert.Equal(t, 125000.0, f)
	assert.Equal(t, 4.0, cp.PerScope["Artistic::Nutcracker"]["Q2"].AsMapping()["primary"].AsScalar())
}
