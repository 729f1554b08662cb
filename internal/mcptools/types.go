package mcptools

// --- MCP tool types for the merge server mode (serve-mcp) ---
// These tools are exposed when the binary runs as an MCP server, letting an
// agent merge snapshot batches and resolve conflicts through structured calls
// instead of shelling out.

// SnapshotDocument is one named snapshot in a merge_snapshots call.
type SnapshotDocument struct {
	Source   string         `json:"source,omitempty" jsonschema:"label identifying where this snapshot came from"`
	Document map[string]any `json:"document" jsonschema:"the snapshot document (meta, answers, per_scope_answers, kpi_lines, notes)"`
}

// MergeSnapshotsInput is the input for the merge_snapshots MCP tool.
type MergeSnapshotsInput struct {
	Policy    string             `json:"policy,omitempty" jsonschema:"merge policy: non-default-wins (default), last-wins, or first-wins"`
	Snapshots []SnapshotDocument `json:"snapshots" jsonschema:"snapshot documents to fold, in order"`
}

// ValueOption is one candidate value of a conflict.
type ValueOption struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Value  any    `json:"value"`
}

// ConflictSummary is one conflict in a tool response, numbered so its index
// can be echoed back in apply_resolutions.
type ConflictSummary struct {
	Index    int           `json:"index"`
	Display  string        `json:"display"`
	Section  string        `json:"section,omitempty"`
	Question string        `json:"question,omitempty"`
	Field    string        `json:"field,omitempty"`
	Values   []ValueOption `json:"values"`
}

// MergeSnapshotsOutput is the result of the merge_snapshots MCP tool.
type MergeSnapshotsOutput struct {
	RunID     string            `json:"runId"`
	Policy    string            `json:"policy"`
	Sources   []string          `json:"sources"`
	Conflicts []ConflictSummary `json:"conflicts"`
	Merged    map[string]any    `json:"merged"`
}

// ApplyResolutionsInput is the input for the apply_resolutions MCP tool.
// Choices maps a conflict index (as a decimal string) to the index of the
// chosen value.
type ApplyResolutionsInput struct {
	RunID   string         `json:"runId" jsonschema:"identifier returned by merge_snapshots"`
	Choices map[string]int `json:"choices" jsonschema:"conflict index (decimal string) to chosen value index"`
}

// ApplyResolutionsOutput is the result of the apply_resolutions MCP tool.
type ApplyResolutionsOutput struct {
	RunID      string         `json:"runId"`
	Applied    int            `json:"applied"`
	OutOfRange int            `json:"outOfRange"`
	Unmatched  int            `json:"unmatched"`
	Warnings   []string       `json:"warnings,omitempty"`
	Resolved   map[string]any `json:"resolved"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum runs to return, newest first (0 = all)"`
}

// RunSummary is a brief overview of one persisted merge run.
type RunSummary struct {
	RunID     string   `json:"runId"`
	CreatedAt string   `json:"createdAt"`
	Policy    string   `json:"policy"`
	Sources   []string `json:"sources"`
	Conflicts int      `json:"conflicts"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []RunSummary `json:"runs"`
}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"identifier of the run to fetch"`
}

// GetRunOutput is the result of the get_run MCP tool.
type GetRunOutput struct {
	RunID     string            `json:"runId"`
	CreatedAt string            `json:"createdAt"`
	Policy    string            `json:"policy"`
	Sources   []string          `json:"sources"`
	Conflicts []ConflictSummary `json:"conflicts"`
	Merged    map[string]any    `json:"merged"`
}
