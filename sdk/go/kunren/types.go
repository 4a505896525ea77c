package kunren

import "time"

// OllamaStatus reports the model backend's reachability.
type OllamaStatus struct {
	Online bool `json:"online"`
	Models int  `json:"models"`
}

// Health is the service health report.
type Health struct {
	Status       string       `json:"status"`
	Version      string       `json:"version"`
	Ollama       OllamaStatus `json:"ollama"`
	LastFineTune *time.Time   `json:"last_fine_tune,omitempty"`
}

type analyzeRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SentimentResult is the outcome of a sentiment analysis request.
type SentimentResult struct {
	Sentiment   string  `json:"sentiment"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	RawResponse string  `json:"raw_response,omitempty"`
}

// AnomalyResult is the outcome of an anomaly detection request.
type AnomalyResult struct {
	Status         string   `json:"anomaly_status"`
	Confidence     float64  `json:"confidence"`
	DetectedIssues []string `json:"detected_issues"`
	Explanation    string   `json:"explanation"`
	RawResponse    string   `json:"raw_response,omitempty"`
}

// SummaryResult is the outcome of a summarization request.
type SummaryResult struct {
	Summary   string `json:"summary"`
	EvalCount int    `json:"eval_count"`
}

// IngestResult reports one pull cycle.
type IngestResult struct {
	Examples    int               `json:"examples"`
	FetchErrors map[string]string `json:"fetch_errors,omitempty"`
}

// TrainingExample is one classified, labeled unit of telemetry.
type TrainingExample struct {
	TaskType       string   `json:"task_type"`
	LogText        string   `json:"log_text,omitempty"`
	AnomalyStatus  string   `json:"anomaly_status,omitempty"`
	DetectedIssues []string `json:"detected_issues,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
	OriginalText   string   `json:"original_text,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}

// AdaptDetails describes the adaptation step for one task partition.
type AdaptDetails struct {
	PromptLength      int     `json:"prompt_length"`
	ProcessingTime    float64 `json:"processing_time"`
	ExamplesProcessed int     `json:"examples_processed"`
	ModelUpdated      bool    `json:"model_updated"`
}

// FineTuneRecord is one fine-tuning history entry.
type FineTuneRecord struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	TaskType  string       `json:"task_type"`
	DataCount int          `json:"data_count"`
	Success   bool         `json:"success"`
	Details   AdaptDetails `json:"details"`
}
