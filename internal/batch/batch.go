// Package batch merges independent snapshot groups concurrently. Each group
// folds sequentially (fold order is part of the merge contract) while groups
// run in parallel, since the merge accumulator is local to each call.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/scoremerge/internal/merge"
)

// Group is one independent merge unit, typically one scorecard's worth of
// uploaded drafts.
type Group struct {
	// Name identifies the group in results and progress events.
	Name string

	// Inputs are the snapshots to fold, in order.
	Inputs []merge.Input

	// Policy settles leaf disagreements within this group.
	Policy merge.Policy
}

// GroupResult holds the outcome of one group after the batch completes.
type GroupResult struct {
	// Name echoes the group name.
	Name string

	// Result is the merge outcome. Valid only when Err is nil.
	Result merge.Result

	// Err is non-nil when the group was abandoned before merging.
	Err error
}

// Status describes where a group is in its lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusWorking  Status = "working"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// ProgressEvent reports a group's status transition.
type ProgressEvent struct {
	Group     string
	Status    Status
	Conflicts int
	Message   string
}

// Runner executes merge groups with bounded parallelism.
type Runner struct {
	limit      int
	onProgress func(ProgressEvent)
}

// NewRunner creates a Runner merging at most limit groups at once; limit <= 0
// means unbounded. onProgress is called from worker goroutines and must be
// safe for concurrent use; it may be nil.
func NewRunner(limit int, onProgress func(ProgressEvent)) *Runner {
	return &Runner{limit: limit, onProgress: onProgress}
}

// Run merges every group. Results are returned in group order regardless of
// completion order. Merging itself cannot fail; the only group error is
// cancellation, and the first one cancels the remaining groups.
func (r *Runner) Run(ctx context.Context, groups []Group) ([]GroupResult, error) {
	results := make([]GroupResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for i, group := range groups {
		results[i].Name = group.Name
		r.emit(ProgressEvent{Group: group.Name, Status: StatusPending})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				r.emit(ProgressEvent{Group: group.Name, Status: StatusFailed, Message: err.Error()})
				return err
			}

			r.emit(ProgressEvent{Group: group.Name, Status: StatusWorking})
			res := merge.Merge(group.Inputs, group.Policy)
			results[i].Result = res
			r.emit(ProgressEvent{
				Group:     group.Name,
				Status:    StatusComplete,
				Conflicts: len(res.Conflicts),
			})
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func (r *Runner) emit(ev ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(ev)
	}
}
