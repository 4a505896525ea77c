package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunren-ai/kunren/internal/model"
)

// fakeTransport serves canned Elasticsearch responses and records the last
// request for inspection.
type fakeTransport struct {
	status   int
	body     string
	lastReq  *http.Request
	lastBody []byte
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if req.Body != nil {
		f.lastBody, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	return &http.Response{
		StatusCode: f.status,
		Header: http.Header{
			"Content-Type":      []string{"application/json"},
			"X-Elastic-Product": []string{"Elasticsearch"},
		},
		Body: io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: "http://localhost:9200", Transport: ft})
	require.NoError(t, err)
	return c
}

func hitsBody(sources ...map[string]any) string {
	type hit struct {
		Source map[string]any `json:"_source"`
	}
	hits := make([]hit, 0, len(sources))
	for _, s := range sources {
		hits = append(hits, hit{Source: s})
	}
	body, _ := json.Marshal(map[string]any{
		"hits": map[string]any{"hits": hits},
	})
	return string(body)
}

func TestFetchReturnsHitSources(t *testing.T) {
	ft := &fakeTransport{
		status: http.StatusOK,
		body: hitsBody(
			map[string]any{"service": "auth", "message": "started"},
			map[string]any{"service": "billing", "message": "stopped"},
		),
	}
	c := newTestClient(t, ft)

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	records, err := c.Fetch(context.Background(), IndexApplicationLogs, start, end)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "auth", records[0]["service"])
	assert.Equal(t, "billing", records[1]["service"])
}

func TestFetchQueryShape(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: hitsBody()}
	c := newTestClient(t, ft)

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	_, err := c.Fetch(context.Background(), IndexNginxAccess, start, end)
	require.NoError(t, err)

	require.NotNil(t, ft.lastReq)
	assert.Contains(t, ft.lastReq.URL.Path, "nginx-access-*")

	var query map[string]any
	require.NoError(t, json.Unmarshal(ft.lastBody, &query))
	assert.Equal(t, float64(1000), query["size"])

	rng := query["query"].(map[string]any)["range"].(map[string]any)["timestamp"].(map[string]any)
	assert.Equal(t, start.Format(time.RFC3339Nano), rng["gte"])
	assert.Equal(t, end.Format(time.RFC3339Nano), rng["lt"])
}

func TestFetchBackendErrorReported(t *testing.T) {
	ft := &fakeTransport{status: http.StatusBadGateway, body: `{"error":"upstream"}`}
	c := newTestClient(t, ft)

	records, err := c.Fetch(context.Background(), IndexSystemMetrics, time.Now().Add(-time.Hour), time.Now())

	require.Error(t, err)
	assert.Empty(t, records)
}

func TestIndexPattern(t *testing.T) {
	tests := []struct {
		source model.SourceKind
		want   string
	}{
		{model.SourceApplicationLogs, "application-logs-*"},
		{model.SourceNginxAccess, "nginx-access-*"},
		{model.SourceSystemMetrics, "system-metrics-*"},
		{model.SourceKind("bogus"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, IndexPattern(tt.source))
		})
	}
}
