// Package watermark tracks, per telemetry source, the exclusive upper time
// bound of the last successfully classified fetch window.
package watermark

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/kunren-ai/kunren/internal/jsonfile"
	"github.com/kunren-ai/kunren/internal/model"
)

// defaultLookback is how far back a source with no prior state starts.
const defaultLookback = 24 * time.Hour

// Store holds one watermark per source kind, persisted as a JSON object of
// source → RFC 3339 instant. Advancing is an unconditional overwrite, not a
// max-merge: the pull cycle is the only writer and always passes a value at
// or beyond the current one.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	marks map[model.SourceKind]time.Time
}

// New loads the watermark file at path, falling back to empty state when the
// file is missing or corrupt. Corruption is logged and discarded; the next
// Save rewrites the file whole.
func New(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger,
		marks:  make(map[model.SourceKind]time.Time),
	}

	var raw map[model.SourceKind]string
	if err := jsonfile.Load(path, &raw); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("watermark: load failed, falling back to defaults", "path", path, "error", err)
		}
		return s
	}
	for source, stamp := range raw {
		t, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			logger.Error("watermark: unparseable instant, dropping entry", "source", source, "value", stamp)
			continue
		}
		s.marks[source] = t
	}
	return s
}

// Get returns the watermark for source, or now minus one day when unset.
func (s *Store) Get(source model.SourceKind) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.marks[source]; ok {
		return t
	}
	return time.Now().Add(-defaultLookback)
}

// Advance overwrites the watermark for source. Callers are responsible for
// passing a value at or beyond the current watermark.
func (s *Store) Advance(source model.SourceKind, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[source] = t
}

// Save persists all watermarks. Failures are logged and swallowed: a restart
// after a failed save re-processes the prior window, which is safe because
// classification output carries no unique identity (at-least-once).
func (s *Store) Save() {
	s.mu.Lock()
	raw := make(map[model.SourceKind]string, len(s.marks))
	for source, t := range s.marks {
		raw[source] = t.Format(time.RFC3339Nano)
	}
	s.mu.Unlock()

	if err := jsonfile.Save(s.path, raw); err != nil {
		s.logger.Error("watermark: save failed", "path", s.path, "error", err)
	}
}
