package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	historyDB := fs.String("history", "", "SQLite run archive")
	limit := fs.Int("limit", 20, "maximum runs to show (0 = all)")
	if err := fs.Parse(args); err != nil {
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

	runs, err := store.ListRuns(context.Background(), *limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No merge runs recorded.")
		fmt.Println("Run 'scoremerge merge -history <db> <file>...' to record one.")
		return nil
	}

	for i, run := range runs {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Run: %s\n", run.ID)
		fmt.Printf("  created:   %s\n", run.CreatedAt.Local().Format(time.RFC3339))
		fmt.Printf("  policy:    %s\n", run.Policy)
		fmt.Printf("  sources:   %s\n", strings.Join(run.Sources, ", "))
		fmt.Printf("  conflicts: %d\n", run.Conflicts)
	}
	return nil
}
