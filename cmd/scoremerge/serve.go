package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/scoremerge/internal/mcptools"
	"github.com/dusk-indust/scoremerge/internal/serve"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address (default :8080)")
	historyDB := fs.String("history", "", "SQLite run archive")
	questions := fs.String("questions", "", "question catalog CSV for conflict labels")
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
	reg := openRegistry(pick(*questions, cfg.QuestionsCSV))

	listen := pick(*addr, cfg.ListenAddr)
	if listen == "" {
		listen = ":8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = serve.NewServer(store, reg).ListenAndServe(ctx, listen)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runServeMCP(args []string) error {
	fs := flag.NewFlagSet("serve-mcp", flag.ContinueOnError)
	addr := fs.String("addr", "", "HTTP listen address; empty runs on stdio")
	historyDB := fs.String("history", "", "SQLite run archive")
	questions := fs.String("questions", "", "question catalog CSV for conflict labels")
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
	reg := openRegistry(pick(*questions, cfg.QuestionsCSV))

	svc := mcptools.NewMergeService(store, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *addr != "" {
		return mcptools.RunMCPServer(ctx, svc, *addr)
	}
	return mcptools.RunMCPServerStdio(ctx, mcptools.NewMergeMCPServer(svc))
}
