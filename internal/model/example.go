package model

// TaskType partitions training examples by the downstream adaptation task.
type TaskType string

const (
	// TaskSentiment is declared but dormant: no classifier emits it today.
	// The fine-tuning orchestrator still partitions on it so sentiment
	// examples injected by other producers are handled uniformly.
	TaskSentiment TaskType = "sentiment"
	TaskAnomaly   TaskType = "anomaly"
	TaskSummary   TaskType = "summary"
)

// Severity grades an anomaly example.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// TrainingExample is a classified, labeled unit of text derived from raw
// telemetry. TaskType discriminates the two produced shapes: anomaly examples
// populate LogText/AnomalyStatus/DetectedIssues/Explanation, summary examples
// populate OriginalText/Summary. Examples carry no unique identity — duplicate
// classification under at-least-once reprocessing is harmless extra signal.
type TrainingExample struct {
	TaskType TaskType `json:"task_type"`

	// Anomaly fields.
	LogText        string   `json:"log_text,omitempty"`
	AnomalyStatus  Severity `json:"anomaly_status,omitempty"`
	DetectedIssues []string `json:"detected_issues,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`

	// Summary fields.
	OriginalText string `json:"original_text,omitempty"`
	Summary      string `json:"summary,omitempty"`
}
