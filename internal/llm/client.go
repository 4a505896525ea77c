// Package llm talks to a local Ollama server: text generation, model
// management, and the analysis helpers built on top of generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Options are the generation parameters sent with every request.
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	NumPredict  int
}

// DefaultOptions mirrors the model defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        40,
		NumPredict:  256,
	}
}

// Client calls the Ollama HTTP API. Generation responses arrive as
// newline-delimited JSON; the final line carries the assembled response and
// evaluation metadata.
type Client struct {
	baseURL    string
	model      string
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the given Ollama endpoint and model.
func New(baseURL, model string, opts Options, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response     string `json:"response"`
	EvalCount    int    `json:"eval_count"`
	EvalDuration int64  `json:"eval_duration"`
}

// GenerateResult is the final text plus evaluation metadata from Ollama.
type GenerateResult struct {
	Text         string
	EvalCount    int
	EvalDuration time.Duration
}

// Generate sends a prompt and returns the completed response. The API streams
// one JSON object per line; the last line holds the full response text.
func (c *Client) Generate(ctx context.Context, prompt string) (GenerateResult, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:       c.model,
		Prompt:      prompt,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		TopK:        c.opts.TopK,
		NumPredict:  c.opts.NumPredict,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("llm: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GenerateResult{}, fmt.Errorf("llm: generate status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("llm: read response: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	var final generateResponse
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &final); err != nil {
		return GenerateResult{}, fmt.Errorf("llm: decode response: %w", err)
	}

	return GenerateResult{
		Text:         final.Response,
		EvalCount:    final.EvalCount,
		EvalDuration: time.Duration(final.EvalDuration),
	}, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Status describes whether the Ollama service is reachable and how many
// models it serves.
type Status struct {
	Online bool `json:"online"`
	Models int  `json:"models"`
}

// CheckStatus probes the tags endpoint. An unreachable or erroring server is
// reported as offline, not as an error.
func (c *Client) CheckStatus(ctx context.Context) Status {
	tags, err := c.listModels(ctx)
	if err != nil {
		c.logger.Warn("llm: status check failed", "error", err)
		return Status{}
	}
	return Status{Online: true, Models: len(tags.Models)}
}

// EnsureModel checks that the configured model is present and pulls it when
// missing.
func (c *Client) EnsureModel(ctx context.Context) error {
	tags, err := c.listModels(ctx)
	if err != nil {
		return err
	}

	for _, m := range tags.Models {
		if m.Name == c.model {
			c.logger.Info("llm: model already loaded", "model", c.model)
			return nil
		}
	}

	c.logger.Info("llm: pulling model", "model", c.model)
	reqBody, err := json.Marshal(map[string]string{"name": c.model})
	if err != nil {
		return fmt.Errorf("llm: marshal pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("llm: create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm: pull model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("llm: pull status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("llm: model pulled", "model", c.model)
	return nil
}

func (c *Client) listModels(ctx context.Context) (tagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return tagsResponse{}, fmt.Errorf("llm: create tags request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tagsResponse{}, fmt.Errorf("llm: list models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return tagsResponse{}, fmt.Errorf("llm: tags status %d: %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return tagsResponse{}, fmt.Errorf("llm: decode tags response: %w", err)
	}
	return tags, nil
}
