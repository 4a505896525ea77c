package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kunren-ai/kunren/internal/ingest"
	"github.com/kunren-ai/kunren/internal/llm"
	"github.com/kunren-ai/kunren/internal/model"
)

// Analyzer runs ad-hoc model analysis for the analyze endpoint.
type Analyzer interface {
	CheckStatus(ctx context.Context) llm.Status
	AnalyzeSentiment(ctx context.Context, text string) (llm.SentimentResult, error)
	DetectAnomaly(ctx context.Context, logText string) (llm.AnomalyResult, error)
	GenerateSummary(ctx context.Context, text string) (llm.SummaryResult, error)
}

// Ingestor runs pull cycles and serves the latest classified examples.
type Ingestor interface {
	ProcessNewLogs(ctx context.Context) ingest.CycleResult
	Latest() []model.TrainingExample
}

// Tuner serves fine-tuning history.
type Tuner interface {
	History() []model.FineTuneRecord
	LastFineTuneTime(taskType model.TaskType) time.Time
}

// Trigger fires a fine-tuning pass on demand.
type Trigger interface {
	RunOnce(ctx context.Context) bool
}

type handlers struct {
	analyzer Analyzer
	ingestor Ingestor
	tuner    Tuner
	trigger  Trigger
	logger   *slog.Logger
	version  string
}

type healthResponse struct {
	Status       string     `json:"status"`
	Version      string     `json:"version"`
	Ollama       llm.Status `json:"ollama"`
	LastFineTune *time.Time `json:"last_fine_tune,omitempty"`
}

// handleHealth handles GET /health. An unreachable model service degrades the
// report but does not fail it; classification runs without the model.
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "healthy",
		Version: h.version,
		Ollama:  h.analyzer.CheckStatus(ctx),
	}
	if !resp.Ollama.Online {
		resp.Status = "degraded"
	}
	if last := h.tuner.LastFineTuneTime(""); !last.IsZero() {
		resp.LastFineTune = &last
	}

	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// handleAnalyze handles POST /v1/analyze.
func (h *handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var (
		result any
		err    error
	)
	switch req.Type {
	case "sentiment":
		result, err = h.analyzer.AnalyzeSentiment(r.Context(), req.Text)
	case "anomaly":
		result, err = h.analyzer.DetectAnomaly(r.Context(), req.Text)
	case "summary":
		result, err = h.analyzer.GenerateSummary(r.Context(), req.Text)
	default:
		writeError(w, http.StatusBadRequest, "type must be one of sentiment, anomaly, summary")
		return
	}
	if err != nil {
		h.logger.Error("server: analyze failed", "type", req.Type, "error", err)
		writeError(w, http.StatusBadGateway, "model request failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type ingestRunResponse struct {
	Examples    int               `json:"examples"`
	FetchErrors map[string]string `json:"fetch_errors,omitempty"`
}

// handleIngestRun handles POST /v1/ingest/run.
func (h *handlers) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	result := h.ingestor.ProcessNewLogs(r.Context())

	resp := ingestRunResponse{Examples: len(result.Examples)}
	if len(result.FetchErrors) > 0 {
		resp.FetchErrors = make(map[string]string, len(result.FetchErrors))
		for source, err := range result.FetchErrors {
			resp.FetchErrors[string(source)] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLatestExamples handles GET /v1/examples/latest.
func (h *handlers) handleLatestExamples(w http.ResponseWriter, r *http.Request) {
	examples := h.ingestor.Latest()
	if examples == nil {
		examples = []model.TrainingExample{}
	}
	writeJSON(w, http.StatusOK, examples)
}

// handleFineTune handles POST /v1/finetune.
func (h *handlers) handleFineTune(w http.ResponseWriter, r *http.Request) {
	success := h.trigger.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// handleFineTuneHistory handles GET /v1/finetune/history.
func (h *handlers) handleFineTuneHistory(w http.ResponseWriter, r *http.Request) {
	history := h.tuner.History()
	if history == nil {
		history = []model.FineTuneRecord{}
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
