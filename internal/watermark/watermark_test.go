package watermark

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunren-ai/kunren/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGetDefaultsToOneDayAgo(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "watermarks.json"), testLogger())

	got := s.Get(model.SourceApplicationLogs)
	want := time.Now().Add(-24 * time.Hour)

	assert.WithinDuration(t, want, got, 5*time.Second)
}

func TestAdvanceOverwritesUnconditionally(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "watermarks.json"), testLogger())

	later := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.Advance(model.SourceNginxAccess, later)
	s.Advance(model.SourceNginxAccess, earlier)

	// Overwrite semantics, not max-merge: callers own monotonicity.
	assert.Equal(t, earlier, s.Get(model.SourceNginxAccess))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermarks.json")
	s := New(path, testLogger())

	stamps := map[model.SourceKind]time.Time{
		model.SourceApplicationLogs: time.Date(2025, 3, 10, 14, 5, 6, 0, time.UTC),
		model.SourceNginxAccess:     time.Date(2025, 3, 10, 14, 5, 7, 0, time.UTC),
		model.SourceSystemMetrics:   time.Date(2025, 3, 10, 14, 5, 8, 0, time.UTC),
	}
	for source, stamp := range stamps {
		s.Advance(source, stamp)
	}
	s.Save()

	reloaded := New(path, testLogger())
	for source, stamp := range stamps {
		assert.True(t, stamp.Equal(reloaded.Get(source)), "source %s", source)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermarks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, testLogger())

	got := s.Get(model.SourceSystemMetrics)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), got, 5*time.Second)
}
