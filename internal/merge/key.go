package merge

import (
	"strings"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// LineKey identifies a KPI line independent of its list position. Equality
// is exact string equality on all three fields; category labels are expected
// to arrive already normalized.
type LineKey struct {
	Area        string `json:"area"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

// KeyOf extracts the composite key of a KPI line.
func KeyOf(line scorecard.KpiLine) LineKey {
	return LineKey{Area: line.Area, Category: line.Category, SubCategory: line.SubCategory}
}

// String renders the key in its wire form, area/category/sub_category.
func (k LineKey) String() string {
	return k.Area + "/" + k.Category + "/" + k.SubCategory
}

// ParseLineKey reverses String. It reports false unless the input has
// exactly three segments.
func ParseLineKey(s string) (LineKey, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return LineKey{}, false
	}
	return LineKey{Area: parts[0], Category: parts[1], SubCategory: parts[2]}, true
}

// FindLine returns the index of the line matching key, or -1.
func FindLine(lines []scorecard.KpiLine, key LineKey) int {
	for i, line := range lines {
		if KeyOf(line) == key {
			return i
		}
	}
	return -1
}
