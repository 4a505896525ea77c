// Package search implements the backend query client that pulls raw
// telemetry records for a bounded time window.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/kunren-ai/kunren/internal/model"
)

// pageSize caps every window fetch. There is deliberately no pagination:
// a window holding more than pageSize records loses the excess. This is a
// known limitation of the ingestion contract, preserved rather than fixed.
const pageSize = 1000

// Index patterns queried per source kind.
const (
	IndexApplicationLogs = "application-logs-*"
	IndexNginxAccess     = "nginx-access-*"
	IndexSystemMetrics   = "system-metrics-*"
)

// IndexPattern maps a source kind to its backend index pattern.
func IndexPattern(source model.SourceKind) string {
	switch source {
	case model.SourceApplicationLogs:
		return IndexApplicationLogs
	case model.SourceNginxAccess:
		return IndexNginxAccess
	case model.SourceSystemMetrics:
		return IndexSystemMetrics
	}
	return ""
}

// Searcher fetches raw records with timestamps in [start, end), ascending,
// capped at the page size. Implementations report backend failures as errors;
// the caller degrades to an empty window and keeps going.
type Searcher interface {
	Fetch(ctx context.Context, index string, start, end time.Time) ([]map[string]any, error)
}

// Config holds Elasticsearch connection settings.
type Config struct {
	URL      string
	Username string
	Password string

	// Transport overrides the HTTP transport; used by tests.
	Transport http.RoundTripper
}

// Client is the Elasticsearch-backed Searcher.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates an Elasticsearch search client.
func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}
	return &Client{es: es}, nil
}

// Fetch queries index for records with timestamp in [start, end), sorted
// ascending by timestamp, at most pageSize of them.
func (c *Client) Fetch(ctx context.Context, index string, start, end time.Time) ([]map[string]any, error) {
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{
					"gte": start.Format(time.RFC3339Nano),
					"lt":  end.Format(time.RFC3339Nano),
				},
			},
		},
		"sort": []map[string]any{
			{"timestamp": map[string]any{"order": "asc"}},
		},
		"size": pageSize,
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&body),
	)
	if err != nil {
		return nil, fmt.Errorf("search: query %s: %w", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("search: query %s: status %s", index, res.Status())
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("search: decode %s response: %w", index, err)
	}

	records := make([]map[string]any, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}
