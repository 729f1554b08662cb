package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/scoremerge/internal/export"
	"github.com/dusk-indust/scoremerge/internal/history"
	"github.com/dusk-indust/scoremerge/internal/merge"
)

func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	historyDB := fs.String("history", "", "SQLite run archive")
	runID := fs.String("run", "", "identifier of the run to resolve")
	choose := fs.String("choose", "", "conflict choices as index=value pairs, e.g. 0=1,2=0")
	out := fs.String("out", "resolved.json", "path for the resolved record (.json or .yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *runID == "" {
		return fmt.Errorf("usage: scoremerge resolve -run <id> -choose 0=1[,..]")
	}
	choices, err := parseChoices(*choose)
	if err != nil {
		return err
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(pick(*historyDB, cfg.HistoryDB))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, *runID)
	if err != nil {
		return err
	}

	resolved, report := merge.Apply(run.Merged, run.Conflicts, choices)

	if err := store.SaveResolution(ctx, *runID, &history.Resolution{
		Choices:  choices,
		Report:   report,
		Resolved: resolved,
	}); err != nil {
		return err
	}

	if err := export.WriteMerged(*out, resolved); err != nil {
		return err
	}

	fmt.Printf("applied %d choice(s) to run %s, wrote %s\n", report.Applied, *runID, *out)
	if report.OutOfRange > 0 {
		fmt.Printf("ignored %d out-of-range choice(s)\n", report.OutOfRange)
	}
	for _, warn := range report.Warnings {
		fmt.Printf("warning: %s\n", warn)
	}
	return nil
}

// parseChoices reads "0=1,2=0" into a conflict-index to value-index map.
func parseChoices(raw string) (map[int]int, error) {
	choices := map[int]int{}
	if strings.TrimSpace(raw) == "" {
		return choices, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("bad choice %q (want index=value)", pair)
		}
		ci, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad conflict index %q", k)
		}
		vi, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("bad value index %q", v)
		}
		choices[ci] = vi
	}
	return choices, nil
}
