package merge

import (
	"sort"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// ApplyReport accounts for every requested resolution: applied, ignored
// because an index was stale, or dropped because the conflict's field could
// no longer be located. Nothing here is fatal; the counts exist so callers
// and tests can observe degraded applications.
type ApplyReport struct {
	Applied    int      `json:"applied"`
	OutOfRange int      `json:"out_of_range"`
	Unmatched  int      `json:"unmatched"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Apply rewrites the merged record so each chosen conflict holds exactly the
// chosen alternative. choices maps a conflict's index in conflicts to the
// index of the winning value. The input snapshot is not mutated; conflicts
// absent from choices keep the value the merge retained. Applying the same
// choices twice yields the same record.
func Apply(merged scorecard.Snapshot, conflicts []Conflict, choices map[int]int) (scorecard.Snapshot, ApplyReport) {
	result := merged.Clone()
	var report ApplyReport

	// Deterministic application order regardless of map iteration.
	idxs := make([]int, 0, len(choices))
	for i := range choices {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	for _, ci := range idxs {
		if ci < 0 || ci >= len(conflicts) {
			report.OutOfRange++
			continue
		}
		conflict := conflicts[ci]

		vi := choices[ci]
		if vi < 0 || vi >= len(conflict.Values) {
			report.OutOfRange++
			continue
		}
		chosen := conflict.Values[vi].Value.Clone()

		if applyOne(&result, conflict, chosen) {
			report.Applied++
		} else {
			report.Unmatched++
			report.Warnings = append(report.Warnings,
				"no such field in merged record: "+conflict.Display())
		}
	}

	return result, report
}

// applyOne navigates the conflict's structured path and overwrites the
// addressed field. It reports false when the field cannot be located.
func applyOne(result *scorecard.Snapshot, conflict Conflict, chosen scorecard.Value) bool {
	if len(conflict.Section) == 0 {
		return false
	}
	head := conflict.Section[0]
	if head.Kind != SegmentKey {
		return false
	}

	switch head.Key {
	case scorecard.SectionKpiLines:
		return applyKpi(result, conflict, chosen)

	case scorecard.SectionAnswers:
		keys := mappingKeys(conflict.Section[1:])
		if keys == nil {
			return false
		}
		setInTree(result.Answers, keys, conflict.Key, chosen)
		return true

	case scorecard.SectionPerScope:
		rest := conflict.Section[1:]
		if len(rest) == 0 || rest[0].Kind != SegmentKey {
			return false
		}
		scope := rest[0].Key
		bucket, ok := result.PerScope[scope]
		if !ok {
			// The scope disappeared between merge and resolution; a stale
			// choice must not invent a scope.
			return false
		}
		keys := mappingKeys(rest[1:])
		if keys == nil {
			return false
		}
		setInTree(bucket, keys, conflict.Key, chosen)
		return true
	}

	return false
}

// applyKpi locates the KPI line by composite key and overwrites only its
// actual field. The typed path segment is authoritative; the conflict key's
// wire form is the fallback for paths that carry no line segment.
func applyKpi(result *scorecard.Snapshot, conflict Conflict, chosen scorecard.Value) bool {
	var key LineKey
	found := false
	for _, seg := range conflict.Section {
		if seg.Kind == SegmentLine {
			key = seg.Line
			found = true
			break
		}
	}
	if !found {
		parsed, ok := ParseLineKey(conflict.Key)
		if !ok {
			return false
		}
		key = parsed
	}

	idx := FindLine(result.KpiLines, key)
	if idx < 0 {
		return false
	}
	result.KpiLines[idx].Actual = chosen
	return true
}

// mappingKeys extracts plain mapping keys from path segments, reporting nil
// if any segment is not a mapping key.
func mappingKeys(segments []Segment) []string {
	keys := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind != SegmentKey {
			return nil
		}
		keys = append(keys, seg.Key)
	}
	return keys
}

// setInTree walks keys into tree, creating intermediate mappings as needed,
// and sets leafKey to v at the final level.
func setInTree(tree map[string]scorecard.Value, keys []string, leafKey string, v scorecard.Value) {
	cur := tree
	for _, k := range keys {
		node, ok := cur[k]
		if !ok || node.Kind() != scorecard.KindMapping {
			next := map[string]scorecard.Value{}
			cur[k] = scorecard.Mapping(next)
			cur = next
			continue
		}
		cur = node.AsMapping()
	}
	cur[leafKey] = v
}
