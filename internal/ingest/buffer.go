package ingest

import "time"

// batchBuffer accumulates raw stream records until either the size threshold
// or the age threshold is reached. Not safe for concurrent use; the stream
// consumer loop is its only caller.
type batchBuffer struct {
	maxSize int
	timeout time.Duration

	pending   []map[string]any
	lastFlush time.Time
}

func newBatchBuffer(maxSize int, timeout time.Duration, now time.Time) *batchBuffer {
	return &batchBuffer{
		maxSize:   maxSize,
		timeout:   timeout,
		lastFlush: now,
	}
}

func (b *batchBuffer) add(record map[string]any) {
	b.pending = append(b.pending, record)
}

// shouldFlush reports whether the buffer must be drained: the size check wins
// the tie-break over the age check.
func (b *batchBuffer) shouldFlush(now time.Time) bool {
	if len(b.pending) >= b.maxSize {
		return true
	}
	return now.Sub(b.lastFlush) >= b.timeout
}

// drain empties the buffer and resets the last-flush instant to the flush
// time (not to whenever the buffer next becomes non-empty).
func (b *batchBuffer) drain(now time.Time) []map[string]any {
	records := b.pending
	b.pending = nil
	b.lastFlush = now
	return records
}

func (b *batchBuffer) len() int {
	return len(b.pending)
}
