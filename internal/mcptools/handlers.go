package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/scoremerge/internal/history"
	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/registry"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// MergeService handles MCP tool calls for the merge server mode. It wraps the
// run archive and the optional question catalog.
type MergeService struct {
	store *history.Store
	reg   *registry.Registry
}

// NewMergeService creates a MergeService over the given store and catalog.
// reg may be nil; conflicts then carry only their raw display addresses.
func NewMergeService(store *history.Store, reg *registry.Registry) *MergeService {
	return &MergeService{store: store, reg: reg}
}

// MergeSnapshots folds the supplied snapshot documents into one record and
// persists the run.
func (s *MergeService) MergeSnapshots(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MergeSnapshotsInput,
) (*mcp.CallToolResult, MergeSnapshotsOutput, error) {
	if len(input.Snapshots) == 0 {
		return nil, MergeSnapshotsOutput{}, errors.New("no snapshots supplied")
	}

	policy, err := merge.ParsePolicy(input.Policy)
	if err != nil {
		return nil, MergeSnapshotsOutput{}, err
	}

	inputs := make([]merge.Input, 0, len(input.Snapshots))
	for i, doc := range input.Snapshots {
		source := doc.Source
		if source == "" {
			source = fmt.Sprintf("snapshot-%d", i)
		}
		snap, issues := scorecard.FromDocument(doc.Document)
		inputs = append(inputs, merge.Input{Snapshot: snap, Source: source, Issues: issues})
	}

	res := merge.Merge(inputs, policy)

	id, err := s.store.SaveRun(ctx, &history.Run{
		Policy:    string(policy),
		Sources:   res.Sources,
		Stats:     res.Stats,
		Merged:    res.Merged,
		Conflicts: res.Conflicts,
	})
	if err != nil {
		return nil, MergeSnapshotsOutput{}, fmt.Errorf("persist run: %w", err)
	}

	return nil, MergeSnapshotsOutput{
		RunID:     id,
		Policy:    string(policy),
		Sources:   res.Sources,
		Conflicts: s.summarize(res.Conflicts),
		Merged:    res.Merged.Document(),
	}, nil
}

// ApplyResolutions rewrites a persisted run's merged record with the chosen
// conflict values and records the resolution.
func (s *MergeService) ApplyResolutions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ApplyResolutionsInput,
) (*mcp.CallToolResult, ApplyResolutionsOutput, error) {
	choices := make(map[int]int, len(input.Choices))
	for raw, v := range input.Choices {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, ApplyResolutionsOutput{}, fmt.Errorf("bad conflict index %q", raw)
		}
		choices[idx] = v
	}

	run, err := s.store.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, ApplyResolutionsOutput{}, err
	}

	resolved, report := merge.Apply(run.Merged, run.Conflicts, choices)

	if err := s.store.SaveResolution(ctx, input.RunID, &history.Resolution{
		Choices:  choices,
		Report:   report,
		Resolved: resolved,
	}); err != nil {
		return nil, ApplyResolutionsOutput{}, fmt.Errorf("persist resolution: %w", err)
	}

	return nil, ApplyResolutionsOutput{
		RunID:      input.RunID,
		Applied:    report.Applied,
		OutOfRange: report.OutOfRange,
		Unmatched:  report.Unmatched,
		Warnings:   report.Warnings,
		Resolved:   resolved.Document(),
	}, nil
}

// ListRuns returns persisted run summaries, newest first.
func (s *MergeService) ListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	summaries, err := s.store.ListRuns(ctx, input.Limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	out := ListRunsOutput{Runs: make([]RunSummary, 0, len(summaries))}
	for _, sum := range summaries {
		out.Runs = append(out.Runs, RunSummary{
			RunID:     sum.ID,
			CreatedAt: sum.CreatedAt.Format(time.RFC3339),
			Policy:    sum.Policy,
			Sources:   sum.Sources,
			Conflicts: sum.Conflicts,
		})
	}
	return nil, out, nil
}

// GetRun fetches one persisted run with its conflicts and merged record.
func (s *MergeService) GetRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, GetRunOutput, error) {
	run, err := s.store.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, GetRunOutput{}, err
	}

	return nil, GetRunOutput{
		RunID:     run.ID,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
		Policy:    run.Policy,
		Sources:   run.Sources,
		Conflicts: s.summarize(run.Conflicts),
		Merged:    run.Merged.Document(),
	}, nil
}

// summarize numbers conflicts and attaches catalog labels when available.
func (s *MergeService) summarize(conflicts []merge.Conflict) []ConflictSummary {
	out := make([]ConflictSummary, 0, len(conflicts))
	for i, c := range conflicts {
		cs := ConflictSummary{Index: i, Display: c.Display()}
		if s.reg != nil {
			label := s.reg.Resolve(c)
			cs.Section = label.Section
			cs.Question = label.Question
			cs.Field = label.Field
		}
		for j, alt := range c.Values {
			cs.Values = append(cs.Values, ValueOption{
				Index:  j,
				Source: alt.Source,
				Value:  alt.Value.ToAny(),
			})
		}
		out = append(out, cs)
	}
	return out
}
