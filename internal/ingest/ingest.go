// Package ingest ties the watermark store, source fetcher, and classification
// engine into the two ingestion protocols: the watermark-tracked pull cycle
// and the stream-fed push cycle. The two are deliberately decoupled — only
// the pull cycle advances watermarks and persists latest results.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kunren-ai/kunren/internal/classify"
	"github.com/kunren-ai/kunren/internal/model"
	"github.com/kunren-ai/kunren/internal/search"
	"github.com/kunren-ai/kunren/internal/watermark"
)

// CycleResult is the outcome of one pull cycle. FetchErrors distinguishes
// "window was empty" from "window fetch failed"; the watermark advances in
// both cases, but callers that need the distinction have it.
type CycleResult struct {
	Examples    []model.TrainingExample
	FetchErrors map[model.SourceKind]error
}

// Orchestrator runs the pull-based ingestion cycle.
type Orchestrator struct {
	searcher   search.Searcher
	engine     *classify.Engine
	watermarks *watermark.Store
	latest     *LatestStore
	logger     *slog.Logger
	now        func() time.Time

	// mu makes fetch → classify → advance → persist one atomic unit, so
	// concurrent pull triggers cannot interleave and skip or double-count
	// a window.
	mu sync.Mutex
}

// NewOrchestrator creates a pull-cycle orchestrator.
func NewOrchestrator(searcher search.Searcher, engine *classify.Engine, marks *watermark.Store, latest *LatestStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		searcher:   searcher,
		engine:     engine,
		watermarks: marks,
		latest:     latest,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessNewLogs runs one pull cycle: for each source, fetch the window from
// its watermark up to a single "now", classify, and concatenate in fixed
// source order (application, access, metrics). All three watermarks advance
// to "now" unconditionally — a failed or empty fetch is treated as "no data
// in window" so ingestion always makes progress. The combined set replaces
// the persisted latest results when non-empty.
func (o *Orchestrator) ProcessNewLogs(ctx context.Context) CycleResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	result := CycleResult{FetchErrors: make(map[model.SourceKind]error)}

	for _, source := range model.Sources() {
		start := o.watermarks.Get(source)
		records, err := o.searcher.Fetch(ctx, search.IndexPattern(source), start, now)
		if err != nil {
			o.logger.Error("ingest: fetch failed, treating window as empty",
				"source", source, "start", start, "end", now, "error", err)
			result.FetchErrors[source] = err
			records = nil
		} else {
			o.logger.Info("ingest: fetched window",
				"source", source, "records", len(records), "start", start, "end", now)
		}
		result.Examples = append(result.Examples, o.classifySource(source, records)...)
	}

	for _, source := range model.Sources() {
		o.watermarks.Advance(source, now)
	}
	o.watermarks.Save()

	if len(result.Examples) > 0 {
		o.latest.Replace(result.Examples)
	}

	o.logger.Info("ingest: pull cycle complete", "examples", len(result.Examples))
	return result
}

// Latest returns the most recently persisted pull-cycle output.
func (o *Orchestrator) Latest() []model.TrainingExample {
	return o.latest.Latest()
}

func (o *Orchestrator) classifySource(source model.SourceKind, records []map[string]any) []model.TrainingExample {
	switch source {
	case model.SourceApplicationLogs:
		parsed := make([]model.ApplicationLogRecord, 0, len(records))
		for _, fields := range records {
			parsed = append(parsed, model.ParseApplicationLog(fields))
		}
		return o.engine.ApplicationLogs(parsed)
	case model.SourceNginxAccess:
		parsed := make([]model.AccessLogRecord, 0, len(records))
		for _, fields := range records {
			parsed = append(parsed, model.ParseAccessLog(fields))
		}
		return o.engine.AccessLogs(parsed)
	case model.SourceSystemMetrics:
		parsed := make([]model.MetricRecord, 0, len(records))
		for _, fields := range records {
			parsed = append(parsed, model.ParseMetric(fields))
		}
		return o.engine.SystemMetrics(parsed)
	}
	return nil
}
