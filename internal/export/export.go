// Package export serializes merge results for downstream consumers: the
// merged record back into the snapshot wire shape (so it can be re-submitted
// as a draft), a full run export for archival, and a markdown conflict
// report for human review.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/registry"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// RunExport is the top-level JSON export of one merge run.
type RunExport struct {
	GeneratedAt string           `json:"generatedAt"`
	Policy      string           `json:"policy"`
	Sources     []string         `json:"sources"`
	Stats       merge.Stats      `json:"stats"`
	Merged      map[string]any   `json:"merged"`
	Conflicts   []ConflictExport `json:"conflicts"`
}

// ConflictExport is one conflict with both its structured address and its
// display forms.
type ConflictExport struct {
	Section merge.Path          `json:"section"`
	Key     string              `json:"key"`
	Display string              `json:"display"`
	Values  []merge.Alternative `json:"values"`
	Label   *registry.Label     `json:"label,omitempty"`
}

// BuildRun assembles the export structure. reg may be nil, in which case
// conflicts carry no catalog labels.
func BuildRun(r merge.Result, policy merge.Policy, reg *registry.Registry) *RunExport {
	out := &RunExport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Policy:      string(policy),
		Sources:     r.Sources,
		Stats:       r.Stats,
		Merged:      r.Merged.Document(),
		Conflicts:   ExportConflicts(r.Conflicts, reg),
	}
	return out
}

// ExportConflicts converts engine conflicts into their export form.
func ExportConflicts(conflicts []merge.Conflict, reg *registry.Registry) []ConflictExport {
	out := make([]ConflictExport, 0, len(conflicts))
	for _, c := range conflicts {
		ce := ConflictExport{
			Section: c.Section,
			Key:     c.Key,
			Display: c.Display(),
			Values:  c.Values,
		}
		if reg != nil {
			label := reg.Resolve(c)
			ce.Label = &label
		}
		out = append(out, ce)
	}
	return out
}

// WriteMergedJSON writes the merged record in the snapshot wire shape.
func WriteMergedJSON(path string, s scorecard.Snapshot) error {
	data, err := json.MarshalIndent(s.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged record: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// WriteMergedYAML writes the merged record as YAML.
func WriteMergedYAML(path string, s scorecard.Snapshot) error {
	data, err := yaml.Marshal(s.Document())
	if err != nil {
		return fmt.Errorf("marshal merged record: %w", err)
	}
	return writeFile(path, data)
}

// WriteMerged picks the format from the file extension (.yaml/.yml or JSON).
func WriteMerged(path string, s scorecard.Snapshot) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return WriteMergedYAML(path, s)
	default:
		return WriteMergedJSON(path, s)
	}
}

// ConflictReport renders the ordered conflict list as markdown. The item
// numbers are the conflict indices the resolution applier expects, and the
// value indices are the choice indices.
func ConflictReport(conflicts []merge.Conflict, reg *registry.Registry) string {
	if len(conflicts) == 0 {
		return "No conflicts detected.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Merge conflicts (%d)\n", len(conflicts))
	for i, c := range conflicts {
		b.WriteString("\n")
		if reg != nil {
			label := reg.Resolve(c)
			fmt.Fprintf(&b, "## %d. %s\n\n", i, label.Header())
			fmt.Fprintf(&b, "%s\n", label.Subheader())
		} else {
			fmt.Fprintf(&b, "## %d. %s\n", i, c.Display())
		}
		for j, alt := range c.Values {
			fmt.Fprintf(&b, "- [%d] %s: `%v`\n", j, alt.Source, alt.Value.ToAny())
		}
	}
	return b.String()
}

// WriteConflictReport writes the markdown report to path.
func WriteConflictReport(path string, conflicts []merge.Conflict, reg *registry.Registry) error {
	return writeFile(path, []byte(ConflictReport(conflicts, reg)))
}

// WriteRun writes the full run export as indented JSON.
func WriteRun(path string, run *RunExport) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run export: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
