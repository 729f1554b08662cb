package merge

import (
	"fmt"
	"strings"
)

// FormatConflicts renders an ordered, human-readable conflict list. The
// numbering matches the indices the Resolution Applier expects.
func FormatConflicts(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return "No conflicts detected."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d conflict(s) detected:\n", len(conflicts))
	for i, c := range conflicts {
		fmt.Fprintf(&b, "\n%d. %s\n", i, c.Display())
		for j, alt := range c.Values {
			fmt.Fprintf(&b, "   [%d] %s: %v\n", j, alt.Source, alt.Value.ToAny())
		}
	}
	return b.String()
}
