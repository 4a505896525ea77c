// Package jsonfile implements the whole-file JSON persistence used for all
// pipeline state documents: read the entire file, unmarshal, mutate in
// memory, marshal, rewrite the entire file. There are no partial updates and
// no cross-process locking; each document has a single writer inside this
// process.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads path into v. A missing file returns fs.ErrNotExist so callers
// can fall back to defaults; malformed JSON returns a wrapped error and
// callers are expected to discard and fall back rather than abort.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("jsonfile: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", path, err)
	}
	return nil
}

// Save marshals v and rewrites path in full, creating parent directories as
// needed.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("jsonfile: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", path, err)
	}
	return nil
}
