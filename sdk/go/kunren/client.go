// Package kunren provides a Go client for the kunren log-analysis API.
package kunren

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the kunren server (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	// Ignored when HTTPClient is set.
	Timeout time.Duration
}

// Client is an HTTP client for the kunren API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("kunren: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// Health reports the service status, including whether the model backend is
// reachable.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AnalyzeSentiment classifies the sentiment of a text.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error) {
	var resp SentimentResult
	if err := c.post(ctx, "/v1/analyze", analyzeRequest{Type: "sentiment", Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DetectAnomaly judges a log excerpt for anomalies.
func (c *Client) DetectAnomaly(ctx context.Context, logText string) (*AnomalyResult, error) {
	var resp AnomalyResult
	if err := c.post(ctx, "/v1/analyze", analyzeRequest{Type: "anomaly", Text: logText}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateSummary produces a short free-text summary.
func (c *Client) GenerateSummary(ctx context.Context, text string) (*SummaryResult, error) {
	var resp SummaryResult
	if err := c.post(ctx, "/v1/analyze", analyzeRequest{Type: "summary", Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunIngest triggers one pull cycle over the telemetry backends and returns
// how many training examples it produced.
func (c *Client) RunIngest(ctx context.Context) (*IngestResult, error) {
	var resp IngestResult
	if err := c.post(ctx, "/v1/ingest/run", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestExamples fetches the most recent classified training set.
func (c *Client) LatestExamples(ctx context.Context) ([]TrainingExample, error) {
	var resp []TrainingExample
	if err := c.get(ctx, "/v1/examples/latest", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FineTune triggers a fine-tuning pass over the latest examples. Returns
// false when there was nothing to train on or every task failed.
func (c *Client) FineTune(ctx context.Context) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/v1/finetune", struct{}{}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// FineTuneHistory fetches all recorded fine-tuning passes, oldest first.
func (c *Client) FineTuneHistory(ctx context.Context) ([]FineTuneRecord, error) {
	var resp []FineTuneRecord
	if err := c.get(ctx, "/v1/finetune/history", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("kunren: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("kunren: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("kunren: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kunren: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("kunren: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &Error{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("kunren: decode response: %w", err)
	}
	return nil
}
