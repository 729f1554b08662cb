package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// Policy selects how leaf disagreements are settled. It applies to the whole
// merge run; there is no per-field override.
type Policy string

const (
	// NonDefaultWins prefers real values over defaults and records a
	// conflict when two real values disagree. This is the default.
	NonDefaultWins Policy = "non-default-wins"
	// LastWins lets a later snapshot overwrite unconditionally.
	LastWins Policy = "last-wins"
	// FirstWins keeps whatever arrived first.
	FirstWins Policy = "first-wins"
)

// ParsePolicy validates a policy name from a flag or request body.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case NonDefaultWins, LastWins, FirstWins:
		return Policy(s), nil
	case "":
		return NonDefaultWins, nil
	}
	return "", fmt.Errorf("unknown merge policy %q (want %s, %s, or %s)",
		s, NonDefaultWins, LastWins, FirstWins)
}

// Input pairs a snapshot with its provenance. Issues carries any sections of
// the original document that could not be parsed and were treated as empty.
type Input struct {
	Snapshot scorecard.Snapshot
	Source   string
	Issues   []scorecard.SectionIssue
}

// Stats summarizes a merge run.
type Stats struct {
	SnapshotsMerged   int `json:"snapshots_merged"`
	AnswerKeys        int `json:"answer_keys"`
	KpiLines          int `json:"kpi_lines"`
	Conflicts         int `json:"conflicts_detected"`
	MalformedSections int `json:"malformed_sections"`
}

// Result is the outcome of one merge invocation. It shares no memory with
// the inputs; mutating a snapshot after merging cannot alter it.
type Result struct {
	Merged    scorecard.Snapshot
	Conflicts []Conflict
	Sources   []string
	Stats     Stats
}

// HasConflicts reports whether any field needs human resolution.
func (r Result) HasConflicts() bool { return len(r.Conflicts) > 0 }

// Merge folds the snapshots left to right into one record. The fold is
// strictly sequential: later snapshots' precedence in tie-breaking depends
// on order, so the inputs slice order is the contract. The accumulator is
// local to this call; concurrent merges of independent batches are safe.
func Merge(inputs []Input, policy Policy) Result {
	sources := make([]string, 0, len(inputs))
	malformed := 0
	for _, in := range inputs {
		sources = append(sources, in.Source)
		malformed += len(in.Issues)
	}

	if len(inputs) == 0 {
		return Result{Merged: scorecard.New(), Conflicts: []Conflict{}, Sources: sources}
	}

	if len(inputs) == 1 {
		merged := inputs[0].Snapshot.Clone()
		r := Result{Merged: merged, Conflicts: []Conflict{}, Sources: sources}
		r.Stats = statsFor(merged, 1, 0, malformed)
		return r
	}

	acc := scorecard.New()
	cs := newConflictSet()

	for _, in := range inputs {
		foldSnapshot(&acc, in.Snapshot, in.Source, policy, cs)
	}

	conflicts := cs.slice()
	r := Result{Merged: acc, Conflicts: conflicts, Sources: sources}
	r.Stats = statsFor(acc, len(inputs), len(conflicts), malformed)
	return r
}

// foldSnapshot merges one snapshot into the accumulator, section by section.
func foldSnapshot(acc *scorecard.Snapshot, s scorecard.Snapshot, source string, policy Policy, cs *conflictSet) {
	// Meta: shallow union; a later value overwrites only when non-empty.
	// Meta disagreement is not tracked as a conflict.
	metaKeys := make([]string, 0, len(s.Meta))
	for k := range s.Meta {
		metaKeys = append(metaKeys, k)
	}
	sort.Strings(metaKeys)
	for _, k := range metaKeys {
		v := s.Meta[k]
		if _, exists := acc.Meta[k]; !exists || v != "" {
			acc.Meta[k] = v
		}
	}

	mergeTree(acc.Answers, s.Answers, source, Path{Key(scorecard.SectionAnswers)}, policy, cs)

	scopes := make([]string, 0, len(s.PerScope))
	for scope := range s.PerScope {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		bucket, ok := acc.PerScope[scope]
		if !ok {
			bucket = map[string]scorecard.Value{}
			acc.PerScope[scope] = bucket
		}
		mergeTree(bucket, s.PerScope[scope], source,
			Path{Key(scorecard.SectionPerScope), Key(scope)}, policy, cs)
	}

	for _, line := range s.KpiLines {
		key := KeyOf(line)
		if idx := FindLine(acc.KpiLines, key); idx >= 0 {
			acc.KpiLines[idx] = mergeLines(acc.KpiLines[idx], line, source, policy, cs)
		} else {
			acc.KpiLines = append(acc.KpiLines, line.Clone())
		}
	}

	// A regenerated narrative always supersedes an older one.
	if !s.Narrative.IsNil() {
		acc.Narrative = s.Narrative.Clone()
	}

	// Free text concatenates across contributors rather than overwriting.
	if strings.TrimSpace(s.Notes) != "" {
		if acc.Notes == "" {
			acc.Notes = s.Notes
		} else {
			acc.Notes += "\n\n" + s.Notes
		}
	}
}

func statsFor(s scorecard.Snapshot, snapshots, conflicts, malformed int) Stats {
	return Stats{
		SnapshotsMerged:   snapshots,
		AnswerKeys:        len(s.Answers),
		KpiLines:          len(s.KpiLines),
		Conflicts:         conflicts,
		MalformedSections: malformed,
	}
}
