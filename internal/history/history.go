// Package history persists merge runs and their resolutions in SQLite, so a
// run can be inspected, re-resolved, or audited after the process that
// produced it is gone.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// ErrNotFound is returned when a run identifier is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one persisted merge run.
type Run struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Policy    string             `json:"policy"`
	BatchHash string             `json:"batch_hash,omitempty"`
	Sources   []string           `json:"sources"`
	Stats     merge.Stats        `json:"stats"`
	Merged    scorecard.Snapshot `json:"-"`
	Conflicts []merge.Conflict   `json:"conflicts"`
}

// Summary is the listing view of a run.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Policy    string    `json:"policy"`
	Sources   []string  `json:"sources"`
	Conflicts int       `json:"conflicts"`
}

// Resolution is one recorded application of conflict choices to a run.
type Resolution struct {
	AppliedAt time.Time          `json:"applied_at"`
	Choices   map[int]int        `json:"choices"`
	Report    merge.ApplyReport  `json:"report"`
	Resolved  scorecard.Snapshot `json:"-"`
}

// Store is a SQLite-backed run archive. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	policy     TEXT NOT NULL,
	batch_hash TEXT NOT NULL DEFAULT '',
	sources    TEXT NOT NULL,
	stats      TEXT NOT NULL,
	merged     TEXT NOT NULL,
	conflicts  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);

CREATE TABLE IF NOT EXISTS resolutions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs (id),
	applied_at TEXT NOT NULL,
	choices    TEXT NOT NULL,
	report     TEXT NOT NULL,
	resolved   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS resolutions_run_id ON resolutions (run_id);
`

// Open opens (creating if needed) the run archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	// Single writer at a time keeps the WAL pragmas honest.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure history db: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a run. A missing ID or CreatedAt is filled in; the
// (possibly generated) ID is returned.
func (s *Store) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return "", fmt.Errorf("encode sources: %w", err)
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}
	merged, err := json.Marshal(run.Merged.Document())
	if err != nil {
		return "", fmt.Errorf("encode merged record: %w", err)
	}
	conflicts, err := json.Marshal(run.Conflicts)
	if err != nil {
		return "", fmt.Errorf("encode conflicts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, policy, batch_hash, sources, stats, merged, conflicts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Policy,
		run.BatchHash, string(sources), string(stats), string(merged), string(conflicts))
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, policy, batch_hash, sources, stats, merged, conflicts
		FROM runs WHERE id = ?`, id)

	var run Run
	var createdAt, sources, stats, merged, conflicts string
	err := row.Scan(&run.ID, &createdAt, &run.Policy, &run.BatchHash,
		&sources, &stats, &merged, &conflicts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("load run %s: bad created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
		return nil, fmt.Errorf("load run %s: decode sources: %w", id, err)
	}
	if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
		return nil, fmt.Errorf("load run %s: decode stats: %w", id, err)
	}
	if run.Merged, err = decodeSnapshot(merged); err != nil {
		return nil, fmt.Errorf("load run %s: decode merged record: %w", id, err)
	}
	if err := json.Unmarshal([]byte(conflicts), &run.Conflicts); err != nil {
		return nil, fmt.Errorf("load run %s: decode conflicts: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns run summaries newest first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	q := `SELECT id, created_at, policy, sources, stats FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		var createdAt, sources, stats string
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Policy, &sources, &stats); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("list runs: bad created_at: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &sum.Sources); err != nil {
			return nil, fmt.Errorf("list runs: decode sources: %w", err)
		}
		var st merge.Stats
		if err := json.Unmarshal([]byte(stats), &st); err != nil {
			return nil, fmt.Errorf("list runs: decode stats: %w", err)
		}
		sum.Conflicts = st.Conflicts
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// SaveResolution records one application of choices against a run.
func (s *Store) SaveResolution(ctx context.Context, runID string, res *Resolution) error {
	if res.AppliedAt.IsZero() {
		res.AppliedAt = time.Now().UTC()
	}

	choices, err := json.Marshal(res.Choices)
	if err != nil {
		return fmt.Errorf("encode choices: %w", err)
	}
	report, err := json.Marshal(res.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	resolved, err := json.Marshal(res.Resolved.Document())
	if err != nil {
		return fmt.Errorf("encode resolved record: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (run_id, applied_at, choices, report, resolved)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM runs WHERE id = ?)`,
		runID, res.AppliedAt.UTC().Format(time.RFC3339Nano),
		string(choices), string(report), string(resolved), runID)
	if err != nil {
		return fmt.Errorf("insert resolution for run %s: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Resolutions returns every resolution recorded for a run, oldest first.
func (s *Store) Resolutions(ctx context.Context, runID string) ([]Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT applied_at, choices, report, resolved
		FROM resolutions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list resolutions for run %s: %w", runID, err)
	}
	defer rows.Close()

	out := []Resolution{}
	for rows.Next() {
		var res Resolution
		var appliedAt, choices, report, resolved string
		if err := rows.Scan(&appliedAt, &choices, &report, &resolved); err != nil {
			return nil, fmt.Errorf("list resolutions for run %s: %w", runID, err)
		}
		if res.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			return nil, fmt.Errorf("list resolutions for run %s: bad applied_at: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(choices), &res.Choices); err != nil {
			return nil, fmt.Errorf("list resolutions for run %s: decode choices: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(report), &res.Report); err != nil {
			return nil, fmt.Errorf("list resolutions for run %s: decode report: %w", runID, err)
		}
		if res.Resolved, err = decodeSnapshot(resolved); err != nil {
			return nil, fmt.Errorf("list resolutions for run %s: decode resolved record: %w", runID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func decodeSnapshot(raw string) (scorecard.Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return scorecard.Snapshot{}, err
	}
	s, issues := scorecard.FromDocument(doc)
	if len(issues) > 0 {
		return scorecard.Snapshot{}, fmt.Errorf("stored record has %d malformed sections", len(issues))
	}
	return s, nil
}
