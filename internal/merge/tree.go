package merge

import (
	"sort"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// mergeTree folds incoming into target, mutating target in place and
// recording conflicts into cs. Keys are visited in sorted order so conflict
// discovery never depends on map iteration order.
func mergeTree(target, incoming map[string]scorecard.Value, source string, section Path, policy Policy, cs *conflictSet) {
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		iv := incoming[key]
		tv, exists := target[key]
		if !exists {
			target[key] = iv.Clone()
			continue
		}

		// Two mappings recurse; everything else is a leaf decision.
		if tv.Kind() == scorecard.KindMapping && iv.Kind() == scorecard.KindMapping {
			mergeTree(tv.AsMapping(), iv.AsMapping(), source, section.Child(key), policy, cs)
			continue
		}

		switch policy {
		case LastWins:
			target[key] = iv.Clone()
		case FirstWins:
			// Target is never overwritten.
		default: // NonDefaultWins
			targetDefault := IsDefault(tv, FieldGeneral)
			incomingDefault := IsDefault(iv, FieldGeneral)

			switch {
			case targetDefault && !incomingDefault:
				target[key] = iv.Clone()
			case !targetDefault && incomingDefault:
				// Keep the real value already held.
			case targetDefault && incomingDefault:
				// Both untouched; keep target for determinism.
			default:
				if !tv.Equal(iv) {
					cs.record(section, key,
						Alternative{Value: tv.Clone(), Source: PreviousSource},
						Alternative{Value: iv.Clone(), Source: source})
				}
				// The accumulator's value stands; conflicts never
				// auto-resolve to the incoming side.
			}
		}
	}
}
