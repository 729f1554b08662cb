package main

import (
	"fmt"
	"os"

	"github.com/dusk-indust/scoremerge/internal/config"
	"github.com/dusk-indust/scoremerge/internal/history"
	"github.com/dusk-indust/scoremerge/internal/registry"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "merge":
		return runMerge(rest)
	case "resolve":
		return runResolve(rest)
	case "status":
		return runStatus(rest)
	case "serve":
		return runServe(rest)
	case "serve-mcp":
		return runServeMCP(rest)
	case "watch":
		return runWatch(rest)
	case "version", "-version", "--version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	}
	return fmt.Errorf("unknown command %q (run 'scoremerge help')", cmd)
}

func printUsage() {
	fmt.Println(`scoremerge merges scorecard snapshot files into one record.

Usage:
  scoremerge merge [flags] <file>...   merge snapshot files
  scoremerge resolve [flags]           apply conflict choices to a saved run
  scoremerge status [flags]            list saved merge runs
  scoremerge serve [flags]             run the HTTP merge API
  scoremerge serve-mcp [flags]         run as an MCP server
  scoremerge watch [flags]             re-merge an inbox directory on change
  scoremerge version                   print version and exit

Run 'scoremerge <command> -h' for command flags.`)
}

// loadProjectConfig reads scoremerge.yml from the working directory. A
// missing file yields defaults.
func loadProjectConfig() (*config.ProjectConfig, error) {
	return config.Load(".")
}

// openRegistry loads the question catalog named by the flag or the project
// config. An empty path yields a catalog-less registry; a broken catalog
// degrades to humanized labels.
func openRegistry(path string) *registry.Registry {
	reg := registry.New()
	if path == "" {
		return reg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: question catalog %s: %v\n", path, err)
		return reg
	}
	reg.LoadCSVBytes(data)
	return reg
}

// openStore opens the run archive at path, which must be non-empty.
func openStore(path string) (*history.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("no history database configured (set -history or historyDB in scoremerge.yml)")
	}
	return history.Open(path)
}

// pick returns the flag value when set, else the config fallback.
func pick(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
