package llm

import (
	"fmt"
	"strings"

	"github.com/kunren-ai/kunren/internal/model"
)

// BuildFineTunePrompt renders a prompt-learning document for one task type
// from a batch of training examples. Unknown task types yield an empty
// prompt.
func BuildFineTunePrompt(taskType model.TaskType, examples []model.TrainingExample) string {
	switch taskType {
	case model.TaskSentiment:
		return buildSentimentPrompt(examples)
	case model.TaskAnomaly:
		return buildAnomalyPrompt(examples)
	case model.TaskSummary:
		return buildSummaryPrompt(examples)
	default:
		return ""
	}
}

func buildSentimentPrompt(examples []model.TrainingExample) string {
	var b strings.Builder
	b.WriteString("# Sentiment analysis training\n\n")
	b.WriteString("The following are examples of analyzing the sentiment of a text. Learn from each example to improve your sentiment analysis.\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\n## Example %d\n", i+1)
		fmt.Fprintf(&b, "Text: %s\n", ex.LogText)
		fmt.Fprintf(&b, "Sentiment: %s\n", ex.AnomalyStatus)
		fmt.Fprintf(&b, "Reason: %s\n", ex.Explanation)
	}
	b.WriteString("\nYou can now analyze the sentiment of a text more accurately.\n")
	return b.String()
}

func buildAnomalyPrompt(examples []model.TrainingExample) string {
	var b strings.Builder
	b.WriteString("# Anomaly detection training\n\n")
	b.WriteString("The following are examples of detecting anomalies in log text. Learn from each example to improve your anomaly detection.\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\n## Example %d\n", i+1)
		fmt.Fprintf(&b, "Log: %s\n", ex.LogText)
		fmt.Fprintf(&b, "Anomaly status: %s\n", ex.AnomalyStatus)
		fmt.Fprintf(&b, "Detected issues: %s\n", strings.Join(ex.DetectedIssues, ", "))
		fmt.Fprintf(&b, "Explanation: %s\n", ex.Explanation)
	}
	b.WriteString("\nYou can now detect anomalies in logs more accurately.\n")
	return b.String()
}

func buildSummaryPrompt(examples []model.TrainingExample) string {
	var b strings.Builder
	b.WriteString("# Text summarization training\n\n")
	b.WriteString("The following are examples of summarizing a text. Learn from each example to improve your summarization.\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "\n## Example %d\n", i+1)
		fmt.Fprintf(&b, "Original text: %s\n", ex.OriginalText)
		fmt.Fprintf(&b, "Summary: %s\n", ex.Summary)
	}
	b.WriteString("\nYou can now summarize a text more effectively.\n")
	return b.String()
}
