package finetune

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/kunren-ai/kunren/internal/model"
)

// LatestSource provides the current candidate training set for a scheduled
// pass.
type LatestSource interface {
	Latest() []model.TrainingExample
}

// Scheduler triggers a fine-tuning pass on a cron schedule, feeding it the
// latest classified examples. An empty candidate set skips the pass.
type Scheduler struct {
	cron   *cron.Cron
	tuner  *Tuner
	source LatestSource
	logger *slog.Logger
}

// NewScheduler wires the tuner to a cron expression (standard five-field
// syntax, e.g. "0 2 * * *" for a daily 02:00 run).
func NewScheduler(spec string, tuner *Tuner, source LatestSource, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		tuner:  tuner,
		source: source,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return nil, fmt.Errorf("finetune: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing scheduled passes in the background.
func (s *Scheduler) Start() {
	s.logger.Info("finetune: scheduler started")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish, bounded by
// the given context.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warn("finetune: stop timed out waiting for running pass")
	}
}

func (s *Scheduler) runScheduled() {
	s.RunOnce(context.Background())
}

// RunOnce executes one pass over the current latest examples immediately.
// Returns false when there was nothing to train on or every task failed.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	examples := s.source.Latest()
	if len(examples) == 0 {
		s.logger.Info("finetune: no examples available, skipping pass")
		return false
	}
	return s.tuner.FineTune(ctx, examples)
}
