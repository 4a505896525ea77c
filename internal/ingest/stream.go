package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/kunren-ai/kunren/internal/classify"
	"github.com/kunren-ai/kunren/internal/model"
	"github.com/kunren-ai/kunren/internal/telemetry"
)

// Transport yields raw stream records as untyped field mappings, each
// carrying a "type" discriminator. Receive blocks until a record arrives,
// the context is cancelled, or the stream ends (io.EOF).
type Transport interface {
	Receive(ctx context.Context) (map[string]any, error)
	Close() error
}

// Sink receives the examples classified from one flushed batch. The stream
// cycle never persists its output or advances watermarks; unless a sink is
// installed that keeps them, stream-classified examples are computed and
// dropped. That decoupling from the pull cycle is intentional — the push
// path is reserved for future wiring.
type Sink func(ctx context.Context, examples []model.TrainingExample)

// StreamConsumer owns the long-lived stream loop: receive, buffer, and flush
// classified batches on a size-or-age trigger.
type StreamConsumer struct {
	transport    Transport
	engine       *classify.Engine
	logger       *slog.Logger
	batchSize    int
	batchTimeout time.Duration
	sink         Sink
	now          func() time.Time

	depth        atomic.Int64 // records currently buffered
	flushedTotal atomic.Int64 // batches flushed since start

	cancelLoop context.CancelFunc
	done       chan struct{}
}

// NewStreamConsumer creates a stream consumer. A nil sink installs the
// default drop sink.
func NewStreamConsumer(transport Transport, engine *classify.Engine, logger *slog.Logger, batchSize int, batchTimeout time.Duration, sink Sink) *StreamConsumer {
	c := &StreamConsumer{
		transport:    transport,
		engine:       engine,
		logger:       logger,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		sink:         sink,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	if c.sink == nil {
		c.sink = c.dropSink
	}
	return c
}

// Start begins the background consume loop. Call Drain to stop.
func (c *StreamConsumer) Start(ctx context.Context) {
	c.registerMetrics()
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelLoop = cancel
	go c.run(loopCtx)
}

// Drain cancels the consume loop and waits for its final flush, bounded by
// the given context.
func (c *StreamConsumer) Drain(ctx context.Context) {
	if c.cancelLoop != nil {
		c.cancelLoop()
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		c.logger.Warn("stream: drain timed out waiting for consume loop")
	}
}

func (c *StreamConsumer) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if err := c.transport.Close(); err != nil {
			c.logger.Error("stream: transport close failed", "error", err)
		}
	}()

	buf := newBatchBuffer(c.batchSize, c.batchTimeout, c.now())

	for {
		// Cooperative stop, checked once per received record. A blocked
		// receive is unblocked by context cancellation, not preempted.
		if ctx.Err() != nil {
			break
		}

		record, err := c.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("stream: transport ended")
				break
			}
			c.logger.Error("stream: receive failed", "error", err)
			continue
		}

		buf.add(record)
		c.depth.Store(int64(buf.len()))

		if buf.shouldFlush(c.now()) {
			c.flush(ctx, buf.drain(c.now()))
			c.depth.Store(0)
		}
	}

	// Flush the remainder unconditionally on termination. The loop context
	// is already cancelled at this point, so the final flush runs on its
	// own bounded context.
	if remainder := buf.drain(c.now()); len(remainder) > 0 {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c.flush(flushCtx, remainder)
		cancel()
		c.depth.Store(0)
	}
}

// flush routes one batch by its "type" discriminator into the three source
// groups, classifies each with the shared engine, and hands the combined
// examples to the sink. Records with an unknown kind are silently dropped.
func (c *StreamConsumer) flush(ctx context.Context, records []map[string]any) {
	if len(records) == 0 {
		return
	}

	var appLogs []model.ApplicationLogRecord
	var accessLogs []model.AccessLogRecord
	var metrics []model.MetricRecord
	for _, record := range records {
		kind, _ := record["type"].(string)
		switch kind {
		case model.StreamTypeApplication:
			appLogs = append(appLogs, model.ParseApplicationLog(record))
		case model.StreamTypeNginxAccess:
			accessLogs = append(accessLogs, model.ParseAccessLog(record))
		case model.StreamTypeBeats:
			metrics = append(metrics, model.ParseMetric(record))
		}
	}

	var examples []model.TrainingExample
	examples = append(examples, c.engine.ApplicationLogs(appLogs)...)
	examples = append(examples, c.engine.AccessLogs(accessLogs)...)
	examples = append(examples, c.engine.SystemMetrics(metrics)...)

	c.flushedTotal.Add(1)
	c.logger.Info("stream: batch flushed",
		"records", len(records),
		"application", len(appLogs),
		"access", len(accessLogs),
		"metrics", len(metrics),
		"examples", len(examples),
	)

	c.sink(ctx, examples)
}

func (c *StreamConsumer) dropSink(_ context.Context, examples []model.TrainingExample) {
	if len(examples) > 0 {
		c.logger.Debug("stream: dropping classified examples (no sink installed)", "examples", len(examples))
	}
}

func (c *StreamConsumer) registerMetrics() {
	meter := telemetry.Meter("kunren/stream")

	_, _ = meter.Int64ObservableGauge("kunren.stream.buffer_depth",
		metric.WithDescription("Records currently held in the stream batch buffer"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(c.depth.Load())
			return nil
		}),
	)

	_, _ = meter.Int64ObservableGauge("kunren.stream.flushed_batches_total",
		metric.WithDescription("Total batches flushed from the stream buffer"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(c.flushedTotal.Load())
			return nil
		}),
	)
}
