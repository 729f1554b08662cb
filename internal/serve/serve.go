// Package serve exposes the merge engine over HTTP: submit a batch of
// snapshot documents, inspect past runs, and apply conflict resolutions.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dusk-indust/scoremerge/internal/export"
	"github.com/dusk-indust/scoremerge/internal/history"
	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/registry"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// Server handles the merge API. The history store is required; the question
// registry is optional and only enriches conflict labels.
type Server struct {
	store *history.Store
	reg   *registry.Registry
}

// NewServer wires a Server over its dependencies.
func NewServer(store *history.Store, reg *registry.Registry) *Server {
	return &Server{store: store, reg: reg}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/merge", s.handleMerge)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Post("/runs/{id}/resolutions", s.handleResolve)
	})
	return r
}

// ListenAndServe runs the API until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("merge API listening on %s", addr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}

// SnapshotUpload is one named snapshot document in a merge request.
type SnapshotUpload struct {
	Source   string         `json:"source"`
	Document map[string]any `json:"document"`
}

// MergeRequest is the body of POST /api/merge.
type MergeRequest struct {
	Policy    string           `json:"policy,omitempty"`
	Snapshots []SnapshotUpload `json:"snapshots"`
}

// MergeResponse echoes the persisted run.
type MergeResponse struct {
	ID        string                   `json:"id"`
	Policy    string                   `json:"policy"`
	Sources   []string                 `json:"sources"`
	Stats     merge.Stats              `json:"stats"`
	Merged    map[string]any           `json:"merged"`
	Conflicts []export.ConflictExport  `json:"conflicts"`
	Issues    []scorecard.SectionIssue `json:"issues,omitempty"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Snapshots) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no snapshots supplied"))
		return
	}

	policy, err := merge.ParsePolicy(req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	inputs := make([]merge.Input, 0, len(req.Snapshots))
	var issues []scorecard.SectionIssue
	for i, up := range req.Snapshots {
		source := up.Source
		if source == "" {
			source = fmt.Sprintf("snapshot-%d", i)
		}
		snap, snapIssues := scorecard.FromDocument(up.Document)
		inputs = append(inputs, merge.Input{Snapshot: snap, Source: source, Issues: snapIssues})
		issues = append(issues, snapIssues...)
	}

	res := merge.Merge(inputs, policy)

	run := &history.Run{
		Policy:    string(policy),
		Sources:   res.Sources,
		Stats:     res.Stats,
		Merged:    res.Merged,
		Conflicts: res.Conflicts,
	}
	id, err := s.store.SaveRun(r.Context(), run)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, MergeResponse{
		ID:        id,
		Policy:    string(policy),
		Sources:   res.Sources,
		Stats:     res.Stats,
		Merged:    res.Merged.Document(),
		Conflicts: export.ExportConflicts(res.Conflicts, s.reg),
		Issues:    issues,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", raw))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, MergeResponse{
		ID:        run.ID,
		Policy:    run.Policy,
		Sources:   run.Sources,
		Stats:     run.Stats,
		Merged:    run.Merged.Document(),
		Conflicts: export.ExportConflicts(run.Conflicts, s.reg),
	})
}

// ResolveRequest is the body of POST /api/runs/{id}/resolutions. Choices maps
// a conflict index to the index of the chosen alternative.
type ResolveRequest struct {
	Choices map[int]int `json:"choices"`
}

// ResolveResponse carries the rewritten record and the application report.
type ResolveResponse struct {
	ID       string            `json:"id"`
	Report   merge.ApplyReport `json:"report"`
	Resolved map[string]any    `json:"resolved"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resolved, report := merge.Apply(run.Merged, run.Conflicts, req.Choices)

	if err := s.store.SaveResolution(r.Context(), id, &history.Resolution{
		Choices:  req.Choices,
		Report:   report,
		Resolved: resolved,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{
		ID:       id,
		Report:   report,
		Resolved: resolved.Document(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
