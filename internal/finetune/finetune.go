// Package finetune adapts the model from classified training examples and
// keeps the append-only adaptation history.
package finetune

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kunren-ai/kunren/internal/jsonfile"
	"github.com/kunren-ai/kunren/internal/llm"
	"github.com/kunren-ai/kunren/internal/model"
)

// maxAdaptDuration caps the simulated adaptation time per task partition.
const maxAdaptDuration = 2 * time.Second

// Tuner runs fine-tuning passes over training examples, partitioned by task
// type, and records every pass in a history file. Adaptation is currently
// prompt learning: the rendered prompt is handed to the model in one shot
// rather than producing new weights.
type Tuner struct {
	historyPath string
	logger      *slog.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	history []model.FineTuneRecord
}

// New loads the fine-tuning history from historyPath. A missing file starts
// an empty history; a corrupt one is discarded with a log line.
func New(historyPath string, logger *slog.Logger) *Tuner {
	t := &Tuner{
		historyPath: historyPath,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	if err := jsonfile.Load(historyPath, &t.history); err != nil {
		t.history = nil
		logger.Warn("finetune: history unavailable, starting empty", "path", historyPath, "error", err)
	}
	return t
}

// FineTune partitions the examples by task type and adapts each non-empty
// partition independently. A failed partition is logged and skipped; the
// others still run. Returns true when at least one partition succeeded.
// Safe for concurrent callers; passes are serialized.
func (t *Tuner) FineTune(ctx context.Context, examples []model.TrainingExample) bool {
	if len(examples) == 0 {
		t.logger.Warn("finetune: no training data")
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Info("finetune: starting", "examples", len(examples))

	partitions := map[model.TaskType][]model.TrainingExample{}
	for _, ex := range examples {
		partitions[ex.TaskType] = append(partitions[ex.TaskType], ex)
	}

	var records []model.FineTuneRecord
	for _, taskType := range []model.TaskType{model.TaskSentiment, model.TaskAnomaly, model.TaskSummary} {
		partition := partitions[taskType]
		if len(partition) == 0 {
			continue
		}

		details, err := t.adapt(ctx, taskType, partition)
		if err != nil {
			t.logger.Error("finetune: task failed", "task_type", taskType, "error", err)
			continue
		}

		records = append(records, model.FineTuneRecord{
			ID:        uuid.New(),
			Timestamp: t.now(),
			TaskType:  taskType,
			DataCount: len(partition),
			Success:   true,
			Details:   details,
		})
	}

	if len(records) == 0 {
		t.logger.Warn("finetune: all tasks failed")
		return false
	}

	t.history = append(t.history, records...)
	if err := jsonfile.Save(t.historyPath, t.history); err != nil {
		t.logger.Error("finetune: history save failed", "error", err)
	}

	t.logger.Info("finetune: completed", "tasks", len(records))
	return true
}

// adapt renders the partition's prompt and simulates the model update. The
// simulated duration grows with the partition size up to maxAdaptDuration.
func (t *Tuner) adapt(ctx context.Context, taskType model.TaskType, partition []model.TrainingExample) (model.AdaptResult, error) {
	prompt := llm.BuildFineTunePrompt(taskType, partition)
	if prompt == "" {
		return model.AdaptResult{}, fmt.Errorf("finetune: no prompt for task type %q", taskType)
	}

	duration := min(maxAdaptDuration, time.Duration(len(partition))*100*time.Millisecond)
	t.sleep(ctx, duration)

	t.logger.Info("finetune: task adapted",
		"task_type", taskType,
		"examples", len(partition),
		"prompt_length", len(prompt),
	)

	return model.AdaptResult{
		PromptLength:      len(prompt),
		ProcessingTime:    duration.Seconds(),
		ExamplesProcessed: len(partition),
		ModelUpdated:      true,
	}, nil
}

// History returns a copy of all recorded fine-tuning passes, oldest first.
func (t *Tuner) History() []model.FineTuneRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.FineTuneRecord, len(t.history))
	copy(out, t.history)
	return out
}

// LastFineTuneTime returns the most recent pass timestamp for the given task
// type, or for any task when taskType is empty. The zero time means no
// matching pass has run.
func (t *Tuner) LastFineTuneTime(taskType model.TaskType) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	var latest time.Time
	for _, record := range t.history {
		if taskType != "" && record.TaskType != taskType {
			continue
		}
		if record.Timestamp.After(latest) {
			latest = record.Timestamp
		}
	}
	return latest
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
