package ingest

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/kunren-ai/kunren/internal/jsonfile"
	"github.com/kunren-ai/kunren/internal/model"
)

// LatestStore holds the most recent pull-cycle output: a JSON array of
// training examples, rewritten whole on each replace. Only the pull cycle
// writes it; the fine-tuning scheduler and the API read it.
type LatestStore struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	examples []model.TrainingExample
}

// NewLatestStore loads the latest-results file at path, falling back to an
// empty set when the file is missing or corrupt.
func NewLatestStore(path string, logger *slog.Logger) *LatestStore {
	s := &LatestStore{path: path, logger: logger}

	var examples []model.TrainingExample
	if err := jsonfile.Load(path, &examples); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("ingest: latest results load failed, starting empty", "path", path, "error", err)
		}
		return s
	}
	s.examples = examples
	return s
}

// Replace swaps in a new result set and persists it. Persistence failures are
// logged and swallowed; the in-memory copy stays authoritative until restart.
func (s *LatestStore) Replace(examples []model.TrainingExample) {
	s.mu.Lock()
	s.examples = examples
	s.mu.Unlock()

	if err := jsonfile.Save(s.path, examples); err != nil {
		s.logger.Error("ingest: latest results save failed", "path", s.path, "error", err)
	}
}

// Latest returns a copy of the current result set.
func (s *LatestStore) Latest() []model.TrainingExample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TrainingExample, len(s.examples))
	copy(out, s.examples)
	return out
}
