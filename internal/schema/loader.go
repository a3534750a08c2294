package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftline/driftline/database"
)

// LoadSnapshot reads a snapshot document from disk, validates it against the
// document schema and decodes it.
func LoadSnapshot(path string) (*database.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", path, err)
	}

	if err := ValidateSnapshotDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var snap database.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", path, err)
	}
	return &snap, nil
}

// SaveSnapshot writes a snapshot document to disk with stable formatting.
// The write is atomic (temp file + rename) so a crash never leaves a
// truncated baseline behind.
func SaveSnapshot(snap *database.Snapshot, path string) error {
	// Nil slices would serialize as null and fail document validation on
	// reload; the document shape wants empty arrays.
	out := *snap
	if out.Tables == nil {
		out.Tables = []database.Table{}
	}
	if out.Columns == nil {
		out.Columns = []database.Column{}
	}
	if out.Indexes == nil {
		out.Indexes = []database.Index{}
	}
	if out.ForeignKeys == nil {
		out.ForeignKeys = []database.ForeignKey{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize snapshot file: %w", err)
	}
	return nil
}
