package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kunren-ai/kunren/internal/model"
)

func TestBuildFineTunePrompt(t *testing.T) {
	anomaly := model.TrainingExample{
		TaskType:       model.TaskAnomaly,
		LogText:        "t1 auth ERROR boom",
		AnomalyStatus:  model.SeverityCritical,
		DetectedIssues: []string{"error occurred"},
		Explanation:    "service 'auth' reported an error: boom",
	}
	summary := model.TrainingExample{
		TaskType:     model.TaskSummary,
		OriginalText: "t1 auth started\nt2 auth ready",
		Summary:      "activity summary for service 'auth': 2 similar log messages observed",
	}

	t.Run("anomaly", func(t *testing.T) {
		prompt := BuildFineTunePrompt(model.TaskAnomaly, []model.TrainingExample{anomaly, anomaly})
		assert.Contains(t, prompt, "# Anomaly detection training")
		assert.Contains(t, prompt, "## Example 1")
		assert.Contains(t, prompt, "## Example 2")
		assert.Contains(t, prompt, "Log: t1 auth ERROR boom")
		assert.Contains(t, prompt, "Detected issues: error occurred")
	})

	t.Run("summary", func(t *testing.T) {
		prompt := BuildFineTunePrompt(model.TaskSummary, []model.TrainingExample{summary})
		assert.Contains(t, prompt, "# Text summarization training")
		assert.Contains(t, prompt, "Original text: t1 auth started\nt2 auth ready")
		assert.Contains(t, prompt, "Summary: activity summary")
	})

	t.Run("sentiment", func(t *testing.T) {
		prompt := BuildFineTunePrompt(model.TaskSentiment, []model.TrainingExample{anomaly})
		assert.Contains(t, prompt, "# Sentiment analysis training")
	})

	t.Run("unknown task type", func(t *testing.T) {
		assert.Empty(t, BuildFineTunePrompt(model.TaskType("translation"), nil))
	})
}
