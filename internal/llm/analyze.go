package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SentimentResult is the parsed outcome of a sentiment analysis request.
type SentimentResult struct {
	Sentiment   string  `json:"sentiment"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	RawResponse string  `json:"raw_response,omitempty"`
}

// AnomalyResult is the parsed outcome of an anomaly detection request.
type AnomalyResult struct {
	Status         string   `json:"anomaly_status"`
	Confidence     float64  `json:"confidence"`
	DetectedIssues []string `json:"detected_issues"`
	Explanation    string   `json:"explanation"`
	RawResponse    string   `json:"raw_response,omitempty"`
}

// SummaryResult is the outcome of a summarization request.
type SummaryResult struct {
	Summary      string        `json:"summary"`
	EvalCount    int           `json:"eval_count"`
	EvalDuration time.Duration `json:"eval_duration"`
}

const sentimentPromptTemplate = `Analyze the sentiment of the following text and return the result as JSON.
The sentiment must be one of 'positive', 'neutral', 'negative'.
The confidence must be a value between 0 and 1.

Text: %s

JSON format:
{
    "sentiment": "<sentiment>",
    "confidence": <confidence>,
    "explanation": "<analysis explanation>"
}`

const anomalyPromptTemplate = `Analyze the following log text for anomalies and return the result as JSON.
The anomaly status must be one of 'normal', 'warning', 'critical'.
The confidence must be a value between 0 and 1.

Log text:
%s

JSON format:
{
    "anomaly_status": "<status>",
    "confidence": <confidence>,
    "detected_issues": ["<issue 1>", "<issue 2>", ...],
    "explanation": "<analysis explanation>"
}`

const summaryPromptTemplate = `Summarize the following text concisely. Write the summary in 3-5 sentences
and include the most important information.

Text:
%s

Summary:
`

// AnalyzeSentiment asks the model to classify the text's sentiment. When the
// model response carries no parseable JSON object, a neutral result with the
// raw response attached is returned rather than an error.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (SentimentResult, error) {
	result, err := c.Generate(ctx, fmt.Sprintf(sentimentPromptTemplate, text))
	if err != nil {
		return SentimentResult{}, err
	}

	var parsed SentimentResult
	if !extractJSON(result.Text, &parsed) {
		c.logger.Warn("llm: sentiment response not parseable as JSON")
		return SentimentResult{Sentiment: "neutral", RawResponse: result.Text}, nil
	}
	if parsed.Sentiment == "" {
		parsed.Sentiment = "neutral"
	}
	return parsed, nil
}

// DetectAnomaly asks the model to judge a log excerpt. An unparseable
// response degrades to a normal status with the raw response attached.
func (c *Client) DetectAnomaly(ctx context.Context, logText string) (AnomalyResult, error) {
	result, err := c.Generate(ctx, fmt.Sprintf(anomalyPromptTemplate, logText))
	if err != nil {
		return AnomalyResult{}, err
	}

	var parsed AnomalyResult
	if !extractJSON(result.Text, &parsed) {
		c.logger.Warn("llm: anomaly response not parseable as JSON")
		return AnomalyResult{Status: "normal", RawResponse: result.Text}, nil
	}
	if parsed.Status == "" {
		parsed.Status = "normal"
	}
	return parsed, nil
}

// GenerateSummary asks the model for a short free-text summary.
func (c *Client) GenerateSummary(ctx context.Context, text string) (SummaryResult, error) {
	result, err := c.Generate(ctx, fmt.Sprintf(summaryPromptTemplate, text))
	if err != nil {
		return SummaryResult{}, err
	}
	return SummaryResult{
		Summary:      strings.TrimSpace(result.Text),
		EvalCount:    result.EvalCount,
		EvalDuration: result.EvalDuration,
	}, nil
}

// extractJSON pulls the first {...} span out of a model response and decodes
// it into v. Models often wrap the object in prose, so the braces are located
// positionally rather than decoding the whole text.
func extractJSON(text string, v any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), v) == nil
}
