// Package intake loads snapshot documents from disk and prepares them for
// merging: JSON and YAML decoding, per-file content hashing, and dropping of
// byte-identical duplicates so a re-uploaded draft is never merged twice.
package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

// Duplicate records a file that was skipped because its bytes were already
// seen under another name in the same batch.
type Duplicate struct {
	Path        string `json:"path"`
	DuplicateOf string `json:"duplicate_of"`
}

// BadFile records a file that could not be decoded at all. Decoding failures
// are reported, not fatal: the rest of the batch still merges.
type BadFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is everything a loaded batch carries into a merge.
type Result struct {
	Inputs     []merge.Input
	Skipped    []Duplicate
	Unreadable []BadFile
	// BatchHash identifies this exact batch: the hash of all accepted file
	// contents in order. The same files in a different order hash
	// differently, because fold order changes merge outcomes.
	BatchHash string
}

// HashBytes returns the hex sha256 of b, the identity used for duplicate
// detection.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LoadFiles reads, hashes, deduplicates, and decodes the given snapshot
// files in order. Only I/O errors are returned; decode problems degrade into
// Result.Unreadable or per-section issues on the inputs.
func LoadFiles(paths []string) (Result, error) {
	var res Result
	seen := map[string]string{} // content hash -> first path
	batch := sha256.New()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("read snapshot %s: %w", path, err)
		}

		h := HashBytes(data)
		if first, dup := seen[h]; dup {
			res.Skipped = append(res.Skipped, Duplicate{Path: path, DuplicateOf: first})
			continue
		}
		seen[h] = path

		doc, err := decodeDocument(path, data)
		if err != nil {
			res.Unreadable = append(res.Unreadable, BadFile{Path: path, Reason: err.Error()})
			continue
		}
		batch.Write(data)

		s, issues := scorecard.FromDocument(doc)
		res.Inputs = append(res.Inputs, merge.Input{
			Snapshot: s,
			Source:   filepath.Base(path),
			Issues:   issues,
		})
	}

	res.BatchHash = hex.EncodeToString(batch.Sum(nil))
	return res, nil
}

// LoadDir loads every snapshot file directly under dir, in sorted filename
// order so merges over an inbox are reproducible.
func LoadDir(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isSnapshotFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return LoadFiles(paths)
}

// isSnapshotFile reports whether a filename looks like a snapshot document.
func isSnapshotFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	return doc, nil
}
