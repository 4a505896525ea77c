package kunren

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockServer creates an httptest server that mimics the kunren API.
func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: serverURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	last := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /health": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, Health{
				Status:       "healthy",
				Version:      "1.2.3",
				Ollama:       OllamaStatus{Online: true, Models: 2},
				LastFineTune: &last,
			})
		},
	})
	defer srv.Close()

	h, err := newTestClient(t, srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Ollama.Online)
	require.NotNil(t, h.LastFineTune)
	assert.Equal(t, last, h.LastFineTune.UTC())
}

func TestAnalyzeSentiment(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			var req analyzeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "sentiment", req.Type)
			assert.Equal(t, "great product", req.Text)
			writeJSON(w, http.StatusOK, SentimentResult{Sentiment: "positive", Confidence: 0.95})
		},
	})
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).AnalyzeSentiment(context.Background(), "great product")
	require.NoError(t, err)
	assert.Equal(t, "positive", result.Sentiment)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestDetectAnomaly(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			var req analyzeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "anomaly", req.Type)
			writeJSON(w, http.StatusOK, AnomalyResult{Status: "critical", DetectedIssues: []string{"oom"}})
		},
	})
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).DetectAnomaly(context.Background(), "oom-killer invoked")
	require.NoError(t, err)
	assert.Equal(t, "critical", result.Status)
	assert.Equal(t, []string{"oom"}, result.DetectedIssues)
}

func TestRunIngestAndLatestExamples(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/ingest/run": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, IngestResult{
				Examples:    4,
				FetchErrors: map[string]string{"nginx_access": "backend unreachable"},
			})
		},
		"GET /v1/examples/latest": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []TrainingExample{
				{TaskType: "anomaly", LogText: "t1 auth ERROR boom", AnomalyStatus: "critical"},
			})
		},
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	result, err := c.RunIngest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Examples)
	assert.Contains(t, result.FetchErrors["nginx_access"], "unreachable")

	examples, err := c.LatestExamples(context.Background())
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "anomaly", examples[0].TaskType)
}

func TestFineTune(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/finetune": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		},
		"GET /v1/finetune/history": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []FineTuneRecord{
				{TaskType: "summary", DataCount: 12, Success: true},
			})
		},
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	ok, err := c.FineTune(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := c.FineTuneHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 12, history[0].DataCount)
}

func TestErrorResponses(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "model request failed"})
		},
	})
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).GenerateSummary(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsModelUnavailable(err))
	assert.False(t, IsBadRequest(err))
	assert.Contains(t, err.Error(), "model request failed")
}
