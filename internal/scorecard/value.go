package scorecard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the three shapes an answer value can take. Keeping the
// variant closed lets the merge engine branch exhaustively instead of
// duck-typing on whatever a decoder produced.
type Kind int

const (
	// KindScalar covers strings, numbers, booleans, and nil.
	KindScalar Kind = iota
	// KindMapping is a string-keyed object (nested answer trees).
	KindMapping
	// KindSequence is an ordered list.
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	}
	return "unknown"
}

// Value is a tagged variant over the shapes found in a deserialized snapshot
// document. The zero Value is a nil scalar, which the classifier treats as a
// default (never-touched) field.
type Value struct {
	kind     Kind
	scalar   any
	mapping  map[string]Value
	sequence []Value
}

// Scalar wraps a leaf value. Containers passed here are normalized through
// FromAny so a Value's kind always matches its payload.
func Scalar(v any) Value {
	switch v.(type) {
	case map[string]any, map[any]any, []any:
		return FromAny(v)
	}
	return Value{kind: KindScalar, scalar: v}
}

// String wraps a string leaf.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Number wraps a numeric leaf.
func Number(f float64) Value { return Value{kind: KindScalar, scalar: f} }

// Mapping wraps a string-keyed object. The map is used as-is; callers that
// need isolation should Clone.
func Mapping(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMapping, mapping: m}
}

// Sequence wraps an ordered list of values.
func Sequence(items ...Value) Value {
	return Value{kind: KindSequence, sequence: items}
}

// FromAny converts a decoded JSON/YAML value into a Value. YAML's
// map[any]any keys are stringified; unknown container shapes degrade to
// scalars rather than erroring.
func FromAny(v any) Value {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return Value{kind: KindMapping, mapping: m}
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[fmt.Sprintf("%v", k)] = FromAny(item)
		}
		return Value{kind: KindMapping, mapping: m}
	case []any:
		s := make([]Value, 0, len(t))
		for _, item := range t {
			s = append(s, FromAny(item))
		}
		return Value{kind: KindSequence, sequence: s}
	default:
		return Value{kind: KindScalar, scalar: v}
	}
}

// Kind reports which arm of the variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// AsScalar returns the scalar payload; nil for non-scalar values.
func (v Value) AsScalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// AsMapping returns the mapping payload; nil for non-mapping values.
func (v Value) AsMapping() map[string]Value {
	if v.kind != KindMapping {
		return nil
	}
	return v.mapping
}

// AsSequence returns the sequence payload; nil for non-sequence values.
func (v Value) AsSequence() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.sequence
}

// IsNil reports whether the value is the nil scalar (an absent field).
func (v Value) IsNil() bool { return v.kind == KindScalar && v.scalar == nil }

// Float attempts a numeric reading of a scalar. Numbers, json.Number, and
// numeric strings all convert; everything else reports false.
func (v Value) Float() (float64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	switch t := v.scalar.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Clone returns a deep copy sharing no containers with the receiver.
func (v Value) Clone() Value {
	switch v.kind {
	case KindMapping:
		m := make(map[string]Value, len(v.mapping))
		for k, item := range v.mapping {
			m[k] = item.Clone()
		}
		return Value{kind: KindMapping, mapping: m}
	case KindSequence:
		s := make([]Value, len(v.sequence))
		for i, item := range v.sequence {
			s[i] = item.Clone()
		}
		return Value{kind: KindSequence, sequence: s}
	default:
		return v
	}
}

// Equal reports deep equality. Scalars that both read as numbers compare
// numerically, so a re-decoded 150 equals 150.0; otherwise comparison is
// exact.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		if vf, ok := v.Float(); ok {
			if of, ok2 := o.Float(); ok2 {
				return vf == of
			}
			return false
		}
		if _, ok := o.Float(); ok {
			return false
		}
		return v.scalar == o.scalar
	case KindMapping:
		if len(v.mapping) != len(o.mapping) {
			return false
		}
		for k, item := range v.mapping {
			other, ok := o.mapping[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(v.sequence) != len(o.sequence) {
			return false
		}
		for i, item := range v.sequence {
			if !item.Equal(o.sequence[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ToAny converts back to the generic shape encoders expect.
func (v Value) ToAny() any {
	switch v.kind {
	case KindMapping:
		m := make(map[string]any, len(v.mapping))
		for k, item := range v.mapping {
			m[k] = item.ToAny()
		}
		return m
	case KindSequence:
		s := make([]any, 0, len(v.sequence))
		for _, item := range v.sequence {
			s = append(s, item.ToAny())
		}
		return s
	default:
		return v.scalar
	}
}

// MarshalJSON encodes the underlying payload, not the variant wrapper.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes any JSON value into the variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
