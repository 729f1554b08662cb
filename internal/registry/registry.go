// Package registry translates the merge engine's structured conflicts into
// human-readable labels using the question catalog (the same CSV the form UI
// is built from). The engine itself owns no presentation; this package is
// one of its display-side consumers.
package registry

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// Question is one row of the question catalog.
type Question struct {
	ID      string
	Text    string
	Section string
	Pillar  string
}

// Registry indexes the question catalog by question identifier. A Registry
// with no catalog loaded still resolves labels, falling back to humanized
// keys; label resolution never fails.
type Registry struct {
	byID map[string]Question
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byID: map[string]Question{}}
}

// LoadCSV reads catalog rows from r. The header row names the columns;
// question_id and question_text are the ones that matter, section and
// strategic_pillar feed section labels. Unreadable input loads nothing and
// reports nothing: a broken catalog degrades to humanized keys.
func (r *Registry) LoadCSV(rd io.Reader) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	idCol, ok := col["question_id"]
	if !ok {
		return
	}

	for {
		row, err := cr.Read()
		if err != nil {
			return // EOF or malformed row; keep whatever loaded so far
		}
		id := strings.TrimSpace(field(row, idCol))
		if id == "" {
			continue
		}
		r.byID[id] = Question{
			ID:      id,
			Text:    field(row, col["question_text"]),
			Section: field(row, col["section"]),
			Pillar:  field(row, col["strategic_pillar"]),
		}
	}
}

// LoadCSVBytes is LoadCSV over an in-memory catalog.
func (r *Registry) LoadCSVBytes(data []byte) {
	r.LoadCSV(bytes.NewReader(data))
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Has reports whether the catalog knows the question identifier.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// QuestionText returns the catalog text for id.
func (r *Registry) QuestionText(id string) (string, bool) {
	q, ok := r.byID[id]
	if !ok || q.Text == "" {
		return "", false
	}
	return q.Text, true
}

// SectionLabel returns the display section for a question: its form section,
// else its strategic pillar, else "General".
func (r *Registry) SectionLabel(id string) string {
	q := r.byID[id]
	if s := strings.TrimSpace(q.Section); s != "" {
		return s
	}
	if p := strings.TrimSpace(q.Pillar); p != "" {
		return p
	}
	return "General"
}

// Label is the display form of one conflict.
type Label struct {
	Section  string `json:"section"`
	Question string `json:"question"`
	Field    string `json:"field"`
	DebugKey string `json:"debug_key"`
}

// Header is the one-line heading shown above a conflict.
func (l Label) Header() string {
	return l.Section + ": " + l.Question
}

// Subheader names the specific field plus the raw address for support use.
func (l Label) Subheader() string {
	if l.Field == "" {
		return "(debug: " + l.DebugKey + ")"
	}
	return l.Field + " (debug: " + l.DebugKey + ")"
}

// fieldLabels maps the well-known answer fields to display names.
var fieldLabels = map[string]string{
	"primary":     "Primary answer",
	"description": "Description",
	"actual":      "Actual value",
}

// Resolve produces a display label for a conflict. Unknown question IDs and
// fields fall back to humanized forms of the raw keys.
func (r *Registry) Resolve(c merge.Conflict) Label {
	label := Label{DebugKey: c.Display()}

	if line, ok := kpiLineOf(c); ok {
		label.Section = "Financial KPIs"
		label.Question = strings.TrimSpace(line.Area + " — " + line.Category)
		if line.SubCategory != "" {
			label.Question += " / " + line.SubCategory
		}
		label.Field = fieldLabels["actual"]
		return label
	}

	scope, qid := questionOf(c)
	if text, ok := r.QuestionText(qid); ok {
		label.Question = text
		label.Section = r.SectionLabel(qid)
	} else {
		label.Question = Humanize(qid)
		label.Section = "General"
	}
	if scope != "" {
		label.Section = scope + " — " + label.Section
	}

	if f, ok := fieldLabels[c.Key]; ok {
		label.Field = f
	} else {
		label.Field = Humanize(c.Key)
	}
	return label
}

// kpiLineOf extracts the composite key when the conflict addresses the KPI
// section.
func kpiLineOf(c merge.Conflict) (merge.LineKey, bool) {
	for _, seg := range c.Section {
		if seg.Kind == merge.SegmentLine {
			return seg.Line, true
		}
	}
	if len(c.Section) > 0 && c.Section[0].Kind == merge.SegmentKey &&
		c.Section[0].Key == scorecard.SectionKpiLines {
		if key, ok := merge.ParseLineKey(c.Key); ok {
			return key, true
		}
	}
	return merge.LineKey{}, false
}

// questionOf pulls the scope (if any) and the question identifier out of an
// answers or per-scope conflict path.
func questionOf(c merge.Conflict) (scope, qid string) {
	keys := make([]string, 0, len(c.Section))
	for _, seg := range c.Section {
		if seg.Kind != merge.SegmentKey {
			return "", c.Key
		}
		keys = append(keys, seg.Key)
	}
	if len(keys) == 0 {
		return "", c.Key
	}

	switch keys[0] {
	case scorecard.SectionPerScope:
		if len(keys) >= 3 {
			return keys[1], keys[len(keys)-1]
		}
		if len(keys) == 2 {
			return keys[1], c.Key
		}
	case scorecard.SectionAnswers:
		if len(keys) >= 2 {
			return "", keys[len(keys)-1]
		}
		return "", c.Key
	}
	return "", keys[len(keys)-1]
}

// Humanize turns an identifier into a display phrase: underscores become
// spaces, camelCase boundaries split, and words are title-cased.
func Humanize(key string) string {
	if key == "" {
		return ""
	}

	var words []string
	for _, chunk := range strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		words = append(words, splitCamel(chunk)...)
	}

	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return words
}
