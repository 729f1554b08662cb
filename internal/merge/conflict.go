package merge

import (
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// PreviousSource labels the accumulator side of a conflict: the value that
// was already in the merged record when the disagreement was discovered.
const PreviousSource = "previous"

// Alternative is one candidate value of a conflict together with its
// provenance (a source label supplied by the caller, surfaced verbatim).
type Alternative struct {
	Value  scorecard.Value `json:"value"`
	Source string          `json:"source"`
}

// Conflict records a field where two or more snapshots supplied differing
// real values. Section is a structured, re-addressable path into the merged
// record; Key is the leaf field (or, for KPI conflicts, the composite key in
// its wire form). A conflict is immutable once the merge returns; during the
// fold additional distinct values accumulate onto the same conflict rather
// than fanning out into new ones.
type Conflict struct {
	Section Path          `json:"section"`
	Key     string        `json:"key"`
	Values  []Alternative `json:"values"`
}

// Display renders a human-oriented address for the conflict. It is never
// used for re-addressing.
func (c Conflict) Display() string {
	return c.Section.String() + " › " + c.Key
}

// conflictSet accumulates conflicts during a fold, keeping at most one
// conflict per field while preserving discovery order.
type conflictSet struct {
	conflicts []*Conflict
	index     map[string]*Conflict
}

func newConflictSet() *conflictSet {
	return &conflictSet{index: map[string]*Conflict{}}
}

// record registers a disagreement on the field addressed by (section, key).
// The first disagreement creates a conflict holding both alternatives; later
// disagreements on the same field append the new alternative if its value is
// not already recorded.
func (cs *conflictSet) record(section Path, key string, prev, next Alternative) {
	addr := section.canonical() + "\x1f" + key

	if c, ok := cs.index[addr]; ok {
		for _, alt := range c.Values {
			if alt.Value.Equal(next.Value) {
				return
			}
		}
		c.Values = append(c.Values, next)
		return
	}

	c := &Conflict{Section: section, Key: key, Values: []Alternative{prev, next}}
	cs.index[addr] = c
	cs.conflicts = append(cs.conflicts, c)
}

// slice returns the accumulated conflicts in discovery order.
func (cs *conflictSet) slice() []Conflict {
	out := make([]Conflict, len(cs.conflicts))
	for i, c := range cs.conflicts {
		out[i] = *c
	}
	return out
}
