// Package watch re-merges an inbox directory whenever its snapshot files
// change. Filesystem events are debounced so a burst of writes (an editor
// save, a multi-file drop) triggers one merge, not many.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/scoremerge/internal/export"
	"github.com/dusk-indust/scoremerge/internal/intake"
	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/registry"
)

// Outcome summarizes one watcher-triggered merge.
type Outcome struct {
	BatchHash string
	Snapshots int
	Conflicts int
	Err       error
}

// Watcher folds an inbox directory into merged output files on every change.
type Watcher struct {
	inbox     string
	outputDir string
	policy    merge.Policy
	reg       *registry.Registry

	// debounce is how long the inbox must stay quiet before re-merging.
	debounce time.Duration

	// onOutcome is called after every merge attempt; may be nil.
	onOutcome func(Outcome)

	// lastBatch skips rewrites when a change left the batch identical.
	lastBatch string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the default quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithRegistry attaches a question catalog for conflict labels.
func WithRegistry(reg *registry.Registry) Option {
	return func(w *Watcher) { w.reg = reg }
}

// WithOutcomeFunc registers a callback invoked after each merge attempt.
func WithOutcomeFunc(fn func(Outcome)) Option {
	return func(w *Watcher) { w.onOutcome = fn }
}

// New creates a Watcher that merges inbox into outputDir under policy.
func New(inbox, outputDir string, policy merge.Policy, opts ...Option) *Watcher {
	w := &Watcher{
		inbox:     inbox,
		outputDir: outputDir,
		policy:    policy,
		debounce:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run merges once immediately, then watches the inbox until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.inbox); err != nil {
		return fmt.Errorf("watch %s: %w", w.inbox, err)
	}

	w.mergeOnce()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch %s: %v", w.inbox, err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.mergeOnce()
		}
	}
}

// relevant filters events down to snapshot file changes.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// mergeOnce loads the inbox and writes merged output, skipping the write when
// the batch is byte-identical to the previous one.
func (w *Watcher) mergeOnce() {
	loaded, err := intake.LoadDir(w.inbox)
	if err != nil {
		w.report(Outcome{Err: err})
		return
	}
	if loaded.BatchHash == w.lastBatch {
		return
	}
	w.lastBatch = loaded.BatchHash

	if len(loaded.Inputs) == 0 {
		w.report(Outcome{BatchHash: loaded.BatchHash})
		return
	}

	res := merge.Merge(loaded.Inputs, w.policy)

	out := Outcome{
		BatchHash: loaded.BatchHash,
		Snapshots: len(loaded.Inputs),
		Conflicts: len(res.Conflicts),
	}
	if err := export.WriteMergedJSON(filepath.Join(w.outputDir, "merged.json"), res.Merged); err != nil {
		out.Err = err
		w.report(out)
		return
	}
	if err := export.WriteConflictReport(filepath.Join(w.outputDir, "conflicts.md"), res.Conflicts, w.reg); err != nil {
		out.Err = err
		w.report(out)
		return
	}

	log.Printf("merged %d snapshot(s) from %s: %d conflict(s)",
		len(loaded.Inputs), w.inbox, len(res.Conflicts))
	w.report(out)
}

func (w *Watcher) report(out Outcome) {
	if out.Err != nil {
		log.Printf("merge %s: %v", w.inbox, out.Err)
	}
	if w.onOutcome != nil {
		w.onOutcome(out)
	}
}
