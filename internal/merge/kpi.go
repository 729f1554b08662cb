package merge

import (
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// mergeLines merges incoming into existing for two lines that share a
// composite key (matching is the orchestrator's job). Only the actual field
// is compared; whichever line supplies the winning actual is carried whole,
// so a line's descriptive fields never mix provenance.
//
// Under NonDefaultWins a disagreement between two real actuals keeps the
// most recent non-default value in the merged record and records the
// alternatives in cs. A later snapshot bringing yet another distinct value
// extends the same conflict instead of opening a new one.
func mergeLines(existing, incoming scorecard.KpiLine, source string, policy Policy, cs *conflictSet) scorecard.KpiLine {
	switch policy {
	case LastWins:
		return incoming.Clone()
	case FirstWins:
		return existing
	}

	existingDefault := IsDefault(existing.Actual, FieldNumeric)
	incomingDefault := IsDefault(incoming.Actual, FieldNumeric)

	switch {
	case existingDefault && !incomingDefault:
		return incoming.Clone()
	case !existingDefault && incomingDefault:
		return existing
	case existingDefault && incomingDefault:
		return existing
	}

	if existing.Actual.Equal(incoming.Actual) {
		return existing
	}

	key := KeyOf(existing)
	section := Path{Key(scorecard.SectionKpiLines), Line(key)}
	cs.record(section, key.String(),
		Alternative{Value: existing.Actual.Clone(), Source: PreviousSource},
		Alternative{Value: incoming.Actual.Clone(), Source: source})

	// Most recent non-default wins in the merged record.
	return incoming.Clone()
}
