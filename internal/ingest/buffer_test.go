package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchBufferFlushOnSize(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	buf := newBatchBuffer(3, time.Minute, start)

	buf.add(map[string]any{"n": 1})
	buf.add(map[string]any{"n": 2})
	assert.False(t, buf.shouldFlush(start.Add(time.Second)))

	buf.add(map[string]any{"n": 3})
	assert.True(t, buf.shouldFlush(start.Add(time.Second)))
}

func TestBatchBufferFlushOnAge(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	buf := newBatchBuffer(100, time.Minute, start)

	buf.add(map[string]any{"n": 1})
	assert.False(t, buf.shouldFlush(start.Add(59*time.Second)))
	assert.True(t, buf.shouldFlush(start.Add(time.Minute)))
}

func TestBatchBufferAgeFlushWithEmptyBuffer(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	buf := newBatchBuffer(100, time.Minute, start)

	// Aged out with nothing pending still reports a flush; drain returns nil
	// and the caller skips the empty batch.
	assert.True(t, buf.shouldFlush(start.Add(2*time.Minute)))
	assert.Empty(t, buf.drain(start.Add(2*time.Minute)))
}

func TestBatchBufferDrainResetsClock(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	buf := newBatchBuffer(100, time.Minute, start)

	buf.add(map[string]any{"n": 1})
	flushAt := start.Add(90 * time.Second)
	records := buf.drain(flushAt)
	assert.Len(t, records, 1)
	assert.Zero(t, buf.len())

	// The age window restarts at the flush instant.
	assert.False(t, buf.shouldFlush(flushAt.Add(59*time.Second)))
	assert.True(t, buf.shouldFlush(flushAt.Add(time.Minute)))
}
