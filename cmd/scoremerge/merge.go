package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dusk-indust/scoremerge/internal/export"
	"github.com/dusk-indust/scoremerge/internal/history"
	"github.com/dusk-indust/scoremerge/internal/intake"
	"github.com/dusk-indust/scoremerge/internal/merge"
)

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	policyFlag := fs.String("policy", "", "merge policy: non-default-wins, last-wins, or first-wins")
	inDir := fs.String("in", "", "merge every snapshot file in this directory instead of positional files")
	out := fs.String("out", "merged.json", "path for the merged record (.json or .yaml)")
	report := fs.String("report", "", "path for a markdown conflict report")
	questions := fs.String("questions", "", "question catalog CSV for conflict labels")
	historyDB := fs.String("history", "", "SQLite run archive; when set, the run is saved")
	verbose := fs.Bool("verbose", false, "print per-file intake details")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	policy, err := merge.ParsePolicy(pick(*policyFlag, cfg.Policy))
	if err != nil {
		return err
	}

	var loaded intake.Result
	switch {
	case *inDir != "":
		loaded, err = intake.LoadDir(*inDir)
	case fs.NArg() > 0:
		loaded, err = intake.LoadFiles(fs.Args())
	case cfg.InboxDir != "":
		loaded, err = intake.LoadDir(cfg.InboxDir)
	default:
		return fmt.Errorf("usage: scoremerge merge [flags] <file>...")
	}
	if err != nil {
		return err
	}

	if *verbose || cfg.Verbose {
		for _, dup := range loaded.Skipped {
			fmt.Fprintf(os.Stderr, "skipped %s: duplicate of %s\n", dup.Path, dup.DuplicateOf)
		}
	}
	for _, bad := range loaded.Unreadable {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", bad.Path, bad.Reason)
	}
	if len(loaded.Inputs) == 0 {
		return fmt.Errorf("no readable snapshot files")
	}

	res := merge.Merge(loaded.Inputs, policy)
	reg := openRegistry(pick(*questions, cfg.QuestionsCSV))

	if err := export.WriteMerged(*out, res.Merged); err != nil {
		return err
	}
	fmt.Printf("merged %d snapshot(s) into %s\n", res.Stats.SnapshotsMerged, *out)
	if res.Stats.MalformedSections > 0 {
		fmt.Printf("treated %d malformed section(s) as empty\n", res.Stats.MalformedSections)
	}

	if *report != "" {
		if err := export.WriteConflictReport(*report, res.Conflicts, reg); err != nil {
			return err
		}
		fmt.Printf("wrote conflict report to %s\n", *report)
	} else {
		fmt.Println(strings.TrimRight(merge.FormatConflicts(res.Conflicts), "\n"))
	}

	dbPath := pick(*historyDB, cfg.HistoryDB)
	if dbPath == "" {
		return nil
	}

	store, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(context.Background(), &history.Run{
		Policy:    string(policy),
		BatchHash: loaded.BatchHash,
		Sources:   res.Sources,
		Stats:     res.Stats,
		Merged:    res.Merged,
		Conflicts: res.Conflicts,
	})
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", id)
	return nil
}
