package scorecard

import (
	"fmt"
	"sort"
	"strconv"
)

// Document field names shared by every snapshot producer and consumer.
const (
	SectionMeta      = "meta"
	SectionAnswers   = "answers"
	SectionPerScope  = "per_scope_answers"
	SectionKpiLines  = "kpi_lines"
	SectionNotes     = "notes"
	SectionNarrative = "narrative_result"
)

// KpiLine is one row of the numeric KPI section. Identity for merging is the
// (Area, Category, SubCategory) triple, never the row's position or its full
// contents. Extra carries descriptive columns through unchanged.
type KpiLine struct {
	Area        string
	Category    string
	SubCategory string
	Actual      Value
	Extra       map[string]Value
}

// Clone returns a deep copy of the line.
func (l KpiLine) Clone() KpiLine {
	out := KpiLine{
		Area:        l.Area,
		Category:    l.Category,
		SubCategory: l.SubCategory,
		Actual:      l.Actual.Clone(),
	}
	if l.Extra != nil {
		out.Extra = make(map[string]Value, len(l.Extra))
		for k, v := range l.Extra {
			out.Extra[k] = v.Clone()
		}
	}
	return out
}

// Snapshot is one contributor's full draft of a monthly report. Snapshots
// are read-only inputs to the merge engine; the engine deep-copies whatever
// it keeps.
type Snapshot struct {
	Meta      map[string]string
	Answers   map[string]Value
	PerScope  map[string]map[string]Value
	KpiLines  []KpiLine
	Notes     string
	Narrative Value
}

// New returns an empty snapshot with all containers allocated, ready to be
// used as a merge accumulator.
func New() Snapshot {
	return Snapshot{
		Meta:     map[string]string{},
		Answers:  map[string]Value{},
		PerScope: map[string]map[string]Value{},
		KpiLines: []KpiLine{},
	}
}

// Clone returns a deep copy sharing nothing with the receiver.
func (s Snapshot) Clone() Snapshot {
	out := New()
	for k, v := range s.Meta {
		out.Meta[k] = v
	}
	for k, v := range s.Answers {
		out.Answers[k] = v.Clone()
	}
	for scope, tree := range s.PerScope {
		cp := make(map[string]Value, len(tree))
		for k, v := range tree {
			cp[k] = v.Clone()
		}
		out.PerScope[scope] = cp
	}
	for _, line := range s.KpiLines {
		out.KpiLines = append(out.KpiLines, line.Clone())
	}
	out.Notes = s.Notes
	out.Narrative = s.Narrative.Clone()
	return out
}

// SectionIssue records a section that could not be read from a document and
// was treated as empty. Issues are observable (counted in merge stats) but
// never fatal; one malformed draft must not block everyone else's work.
type SectionIssue struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

// FromDocument builds a Snapshot from a decoded JSON/YAML document.
// Sections with the wrong shape are reported as issues and treated as empty;
// absent sections are simply empty with no issue.
func FromDocument(doc map[string]any) (Snapshot, []SectionIssue) {
	s := New()
	var issues []SectionIssue

	if raw, ok := doc[SectionMeta]; ok && raw != nil {
		if m, ok := asStringMap(raw); ok {
			for k, v := range m {
				s.Meta[k] = scalarString(v)
			}
		} else {
			issues = append(issues, SectionIssue{SectionMeta, fmt.Sprintf("expected mapping, got %T", raw)})
		}
	}

	if raw, ok := doc[SectionAnswers]; ok && raw != nil {
		if m, ok := asStringMap(raw); ok {
			for k, v := range m {
				s.Answers[k] = FromAny(v)
			}
		} else {
			issues = append(issues, SectionIssue{SectionAnswers, fmt.Sprintf("expected mapping, got %T", raw)})
		}
	}

	if raw, ok := doc[SectionPerScope]; ok && raw != nil {
		if m, ok := asStringMap(raw); ok {
			// Deterministic issue order regardless of map iteration.
			scopes := make([]string, 0, len(m))
			for scope := range m {
				scopes = append(scopes, scope)
			}
			sort.Strings(scopes)
			for _, scope := range scopes {
				inner, ok := asStringMap(m[scope])
				if !ok {
					issues = append(issues, SectionIssue{
						SectionPerScope,
						fmt.Sprintf("scope %q: expected mapping, got %T", scope, m[scope]),
					})
					continue
				}
				tree := make(map[string]Value, len(inner))
				for k, v := range inner {
					tree[k] = FromAny(v)
				}
				s.PerScope[scope] = tree
			}
		} else {
			issues = append(issues, SectionIssue{SectionPerScope, fmt.Sprintf("expected mapping, got %T", raw)})
		}
	}

	if raw, ok := doc[SectionKpiLines]; ok && raw != nil {
		if items, ok := raw.([]any); ok {
			for i, item := range items {
				m, ok := asStringMap(item)
				if !ok {
					issues = append(issues, SectionIssue{
						SectionKpiLines,
						fmt.Sprintf("line %d: expected mapping, got %T", i, item),
					})
					continue
				}
				s.KpiLines = append(s.KpiLines, lineFromMap(m))
			}
		} else {
			issues = append(issues, SectionIssue{SectionKpiLines, fmt.Sprintf("expected sequence, got %T", raw)})
		}
	}

	if raw, ok := doc[SectionNotes]; ok && raw != nil {
		if str, ok := raw.(string); ok {
			s.Notes = str
		} else {
			issues = append(issues, SectionIssue{SectionNotes, fmt.Sprintf("expected string, got %T", raw)})
		}
	}

	if raw, ok := doc[SectionNarrative]; ok && raw != nil {
		// Opaque blob produced by the narrative generator; carried, not inspected.
		s.Narrative = FromAny(raw)
	}

	return s, issues
}

// Document converts the snapshot back to the generic wire shape, preserving
// the round-trip property: a merged record can be re-submitted as a draft.
func (s Snapshot) Document() map[string]any {
	doc := map[string]any{}

	meta := make(map[string]any, len(s.Meta))
	for k, v := range s.Meta {
		meta[k] = v
	}
	doc[SectionMeta] = meta

	answers := make(map[string]any, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v.ToAny()
	}
	doc[SectionAnswers] = answers

	perScope := make(map[string]any, len(s.PerScope))
	for scope, tree := range s.PerScope {
		inner := make(map[string]any, len(tree))
		for k, v := range tree {
			inner[k] = v.ToAny()
		}
		perScope[scope] = inner
	}
	doc[SectionPerScope] = perScope

	lines := make([]any, 0, len(s.KpiLines))
	for _, line := range s.KpiLines {
		lines = append(lines, line.toMap())
	}
	doc[SectionKpiLines] = lines

	if s.Notes != "" {
		doc[SectionNotes] = s.Notes
	}
	if !s.Narrative.IsNil() {
		doc[SectionNarrative] = s.Narrative.ToAny()
	}
	return doc
}

func lineFromMap(m map[string]any) KpiLine {
	line := KpiLine{
		Area:        scalarString(m["area"]),
		Category:    scalarString(m["category"]),
		SubCategory: scalarString(m["sub_category"]),
		Actual:      FromAny(m["actual"]),
	}
	for k, v := range m {
		switch k {
		case "area", "category", "sub_category", "actual":
			continue
		}
		if line.Extra == nil {
			line.Extra = map[string]Value{}
		}
		line.Extra[k] = FromAny(v)
	}
	return line
}

func (l KpiLine) toMap() map[string]any {
	m := map[string]any{
		"area":         l.Area,
		"category":     l.Category,
		"sub_category": l.SubCategory,
		"actual":       l.Actual.ToAny(),
	}
	for k, v := range l.Extra {
		m[k] = v.ToAny()
	}
	return m
}

// asStringMap accepts both JSON-style and YAML-style decoded mappings.
func asStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[fmt.Sprintf("%v", k)] = item
		}
		return m, true
	}
	return nil, false
}

// scalarString renders a scalar for the meta section, which is string-typed
// on the wire even when producers send numbers.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
