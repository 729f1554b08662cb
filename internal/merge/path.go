package merge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SegmentKind discriminates the two ways a path step can address data.
type SegmentKind string

const (
	// SegmentKey addresses a mapping entry by its key.
	SegmentKey SegmentKind = "key"
	// SegmentLine addresses a KPI line by its composite key.
	SegmentLine SegmentKind = "line"
)

// Segment is one step of a structured conflict address. Paths are built from
// typed segments rather than pre-joined strings so that keys containing
// separator characters can never misaddress a resolution.
type Segment struct {
	Kind SegmentKind
	Key  string  // set when Kind == SegmentKey
	Line LineKey // set when Kind == SegmentLine
}

// Key returns a mapping-key segment.
func Key(k string) Segment { return Segment{Kind: SegmentKey, Key: k} }

// Line returns a KPI-line segment.
func Line(k LineKey) Segment { return Segment{Kind: SegmentLine, Line: k} }

type segmentJSON struct {
	Kind SegmentKind `json:"kind"`
	Key  string      `json:"key,omitempty"`
	Line *LineKey    `json:"line,omitempty"`
}

// MarshalJSON keeps persisted paths structured, not flattened to a string.
func (s Segment) MarshalJSON() ([]byte, error) {
	out := segmentJSON{Kind: s.Kind}
	switch s.Kind {
	case SegmentLine:
		line := s.Line
		out.Line = &line
	default:
		out.Key = s.Key
	}
	return json.Marshal(out)
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Kind = raw.Kind
	s.Key = raw.Key
	if raw.Line != nil {
		s.Line = *raw.Line
	}
	return nil
}

// Path is the structured address of a field inside a merged record.
type Path []Segment

// Child returns a new path extended by a mapping key. The underlying array
// is always copied so recursion never aliases sibling paths.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = Key(key)
	return out
}

// String renders a display form of the path. This is presentation only;
// re-addressing always uses the segments themselves.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		switch seg.Kind {
		case SegmentLine:
			parts[i] = fmt.Sprintf("[%s]", seg.Line)
		default:
			parts[i] = seg.Key
		}
	}
	return strings.Join(parts, ".")
}

// canonical is the collision-free internal form used to index conflicts by
// field. Segments and keys are joined with control characters that cannot
// appear in question identifiers.
func (p Path) canonical() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte(0x1f)
		if seg.Kind == SegmentLine {
			b.WriteByte(0x1e)
			b.WriteString(seg.Line.Area)
			b.WriteByte(0x1e)
			b.WriteString(seg.Line.Category)
			b.WriteByte(0x1e)
			b.WriteString(seg.Line.SubCategory)
		} else {
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}
