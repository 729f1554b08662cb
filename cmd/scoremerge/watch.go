package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/watch"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	inDir := fs.String("in", "", "inbox directory to watch")
	outDir := fs.String("out", "", "directory for merged.json and conflicts.md")
	policyFlag := fs.String("policy", "", "merge policy: non-default-wins, last-wins, or first-wins")
	questions := fs.String("questions", "", "question catalog CSV for conflict labels")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	inbox := pick(*inDir, cfg.InboxDir)
	if inbox == "" {
		return fmt.Errorf("usage: scoremerge watch -in <dir> [-out <dir>]")
	}
	output := pick(*outDir, cfg.OutputDir)
	if output == "" {
		output = "."
	}

	policy, err := merge.ParsePolicy(pick(*policyFlag, cfg.Policy))
	if err != nil {
		return err
	}
	reg := openRegistry(pick(*questions, cfg.QuestionsCSV))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("watching %s, writing merged output to %s\n", inbox, output)
	err = watch.New(inbox, output, policy, watch.WithRegistry(reg)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
