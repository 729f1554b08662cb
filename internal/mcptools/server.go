package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMergeMCPServer creates an MCP server with the 4 merge tools registered:
// merge_snapshots, apply_resolutions, list_runs, and get_run.
func NewMergeMCPServer(svc *MergeService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "scoremerge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "merge_snapshots",
		Description: "Merge a batch of scorecard snapshot documents into one record. Folds snapshots in order under the chosen policy, returns the merged record plus numbered conflicts, and persists the run.",
	}, svc.MergeSnapshots)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_resolutions",
		Description: "Apply conflict choices to a persisted run. Choices map a conflict index to the index of the winning value; stale indices are ignored and counted.",
	}, svc.ApplyResolutions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List persisted merge runs, newest first, with source files and conflict counts.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Fetch one persisted merge run: its merged record, sources, and numbered conflicts.",
	}, svc.GetRun)

	return server
}

// RunMCPServer starts an HTTP server exposing the merge MCP tools.
func RunMCPServer(ctx context.Context, svc *MergeService, addr string) error {
	server := NewMergeMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
