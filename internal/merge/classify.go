package merge

import (
	"strings"

	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// FieldKind hints how a field's default should be judged. Numeric fields
// treat zero as untouched; everything else follows the general rules.
type FieldKind int

const (
	FieldGeneral FieldKind = iota
	FieldNumeric
)

// IsDefault reports whether a value is indistinguishable from "never
// touched": nil, empty containers, blank strings, and (for numeric fields)
// zero. Classification never fails; anything it cannot read is treated as a
// real value, because discarding unusual user input is worse than an
// occasional spurious conflict.
func IsDefault(v scorecard.Value, kind FieldKind) bool {
	switch v.Kind() {
	case scorecard.KindMapping:
		return len(v.AsMapping()) == 0
	case scorecard.KindSequence:
		return len(v.AsSequence()) == 0
	}

	if v.IsNil() {
		return true
	}

	if kind == FieldNumeric {
		if f, ok := v.Float(); ok {
			return f == 0
		}
		return false
	}

	if s, ok := v.AsScalar().(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
