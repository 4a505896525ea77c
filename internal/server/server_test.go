package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kunren-ai/kunren/internal/ingest"
	"github.com/kunren-ai/kunren/internal/llm"
	"github.com/kunren-ai/kunren/internal/model"
)

type fakeAnalyzer struct {
	status llm.Status
	err    error
}

func (f *fakeAnalyzer) CheckStatus(context.Context) llm.Status { return f.status }

func (f *fakeAnalyzer) AnalyzeSentiment(_ context.Context, text string) (llm.SentimentResult, error) {
	if f.err != nil {
		return llm.SentimentResult{}, f.err
	}
	return llm.SentimentResult{Sentiment: "negative", Confidence: 0.8}, nil
}

func (f *fakeAnalyzer) DetectAnomaly(_ context.Context, logText string) (llm.AnomalyResult, error) {
	if f.err != nil {
		return llm.AnomalyResult{}, f.err
	}
	return llm.AnomalyResult{Status: "critical", DetectedIssues: []string{"oom"}}, nil
}

func (f *fakeAnalyzer) GenerateSummary(_ context.Context, text string) (llm.SummaryResult, error) {
	if f.err != nil {
		return llm.SummaryResult{}, f.err
	}
	return llm.SummaryResult{Summary: "short version"}, nil
}

type fakeIngestor struct {
	result ingest.CycleResult
	latest []model.TrainingExample
	runs   int
}

func (f *fakeIngestor) ProcessNewLogs(context.Context) ingest.CycleResult {
	f.runs++
	return f.result
}

func (f *fakeIngestor) Latest() []model.TrainingExample { return f.latest }

type fakeTuner struct {
	history []model.FineTuneRecord
	last    time.Time
}

func (f *fakeTuner) History() []model.FineTuneRecord           { return f.history }
func (f *fakeTuner) LastFineTuneTime(model.TaskType) time.Time { return f.last }

type fakeTrigger struct {
	success bool
	runs    int
}

func (f *fakeTrigger) RunOnce(context.Context) bool {
	f.runs++
	return f.success
}

type testDeps struct {
	analyzer *fakeAnalyzer
	ingestor *fakeIngestor
	tuner    *fakeTuner
	trigger  *fakeTrigger
}

func newTestServer(t *testing.T, deps testDeps) *Server {
	t.Helper()
	if deps.analyzer == nil {
		deps.analyzer = &fakeAnalyzer{status: llm.Status{Online: true, Models: 1}}
	}
	if deps.ingestor == nil {
		deps.ingestor = &fakeIngestor{}
	}
	if deps.tuner == nil {
		deps.tuner = &fakeTuner{}
	}
	if deps.trigger == nil {
		deps.trigger = &fakeTrigger{}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		Port:     0,
		Analyzer: deps.analyzer,
		Ingestor: deps.ingestor,
		Tuner:    deps.tuner,
		Trigger:  deps.trigger,
		Logger:   logger,
		Version:  "test",
	})
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		last := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)
		s := newTestServer(t, testDeps{
			analyzer: &fakeAnalyzer{status: llm.Status{Online: true, Models: 2}},
			tuner:    &fakeTuner{last: last},
		})
		w := doRequest(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, 2, resp.Ollama.Models)
		require.NotNil(t, resp.LastFineTune)
		assert.Equal(t, last, resp.LastFineTune.UTC())
	})

	t.Run("degraded when model service offline", func(t *testing.T) {
		s := newTestServer(t, testDeps{analyzer: &fakeAnalyzer{}})
		w := doRequest(t, s, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Nil(t, resp.LastFineTune)
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("sentiment", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"sentiment","text":"this is bad"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sentiment":"negative"`)
	})

	t.Run("anomaly", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"anomaly","text":"oom-killer"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"anomaly_status":"critical"`)
	})

	t.Run("summary", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"summary","text":"many lines"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"summary":"short version"`)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"translate","text":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"sentiment"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("model failure maps to bad gateway", func(t *testing.T) {
		s := newTestServer(t, testDeps{analyzer: &fakeAnalyzer{err: fmt.Errorf("connection refused")}})
		w := doRequest(t, s, http.MethodPost, "/v1/analyze", `{"type":"sentiment","text":"x"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestIngestRun(t *testing.T) {
	ingestor := &fakeIngestor{
		result: ingest.CycleResult{
			Examples: []model.TrainingExample{{TaskType: model.TaskAnomaly}},
			FetchErrors: map[model.SourceKind]error{
				model.SourceNginxAccess: fmt.Errorf("search: backend unreachable"),
			},
		},
	}
	s := newTestServer(t, testDeps{ingestor: ingestor})

	w := doRequest(t, s, http.MethodPost, "/v1/ingest/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ingestor.runs)

	var resp ingestRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Examples)
	assert.Contains(t, resp.FetchErrors["nginx_access"], "unreachable")
}

func TestLatestExamples(t *testing.T) {
	t.Run("empty set is a json array", func(t *testing.T) {
		s := newTestServer(t, testDeps{})
		w := doRequest(t, s, http.MethodGet, "/v1/examples/latest", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})

	t.Run("returns stored examples", func(t *testing.T) {
		s := newTestServer(t, testDeps{ingestor: &fakeIngestor{
			latest: []model.TrainingExample{{TaskType: model.TaskSummary, Summary: "s"}},
		}})
		w := doRequest(t, s, http.MethodGet, "/v1/examples/latest", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"task_type":"summary"`)
	})
}

func TestFineTuneTrigger(t *testing.T) {
	trigger := &fakeTrigger{success: true}
	s := newTestServer(t, testDeps{trigger: trigger})

	w := doRequest(t, s, http.MethodPost, "/v1/finetune", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, trigger.runs)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestFineTuneHistory(t *testing.T) {
	s := newTestServer(t, testDeps{tuner: &fakeTuner{history: []model.FineTuneRecord{
		{TaskType: model.TaskAnomaly, DataCount: 3, Success: true},
	}}})
	w := doRequest(t, s, http.MethodGet, "/v1/finetune/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"task_type":"anomaly"`)
	assert.Contains(t, w.Body.String(), `"data_count":3`)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testDeps{})
	w := doRequest(t, s, http.MethodGet, "/v1/finetune", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
