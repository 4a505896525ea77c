package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kunren-ai/kunren/internal/classify"
	"github.com/kunren-ai/kunren/internal/config"
	"github.com/kunren-ai/kunren/internal/finetune"
	"github.com/kunren-ai/kunren/internal/ingest"
	"github.com/kunren-ai/kunren/internal/llm"
	"github.com/kunren-ai/kunren/internal/search"
	"github.com/kunren-ai/kunren/internal/server"
	"github.com/kunren-ai/kunren/internal/telemetry"
	"github.com/kunren-ai/kunren/internal/watermark"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("KUNREN_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("kunren starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Elasticsearch client for the pull cycle.
	searcher, err := search.NewClient(search.Config{
		URL:      cfg.ElasticsearchURL,
		Username: cfg.ElasticsearchUser,
		Password: cfg.ElasticsearchPassword,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	// Pipeline state lives in whole-file JSON documents under the data dir.
	marks := watermark.New(filepath.Join(cfg.DataDir, "watermarks.json"), logger)
	latest := ingest.NewLatestStore(filepath.Join(cfg.DataDir, "latest_processed_data.json"), logger)

	engine := classify.New(logger)
	orchestrator := ingest.NewOrchestrator(searcher, engine, marks, latest, logger)

	// Ollama client for analysis and fine-tuning.
	ollama := llm.New(cfg.OllamaURL, cfg.OllamaModel, llm.Options{
		Temperature: cfg.OllamaTemperature,
		TopP:        cfg.OllamaTopP,
		TopK:        cfg.OllamaTopK,
		NumPredict:  cfg.OllamaNumPredict,
	}, logger)

	// Make sure the configured model is available. Non-fatal: the service
	// still classifies and schedules without it.
	if err := ollama.EnsureModel(ctx); err != nil {
		logger.Warn("model not available at startup", "model", cfg.OllamaModel, "error", err)
	}

	// Stream consumer over the Kafka topics.
	transport := ingest.NewKafkaTransport(ingest.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topics:  cfg.KafkaTopics,
	}, logger)
	consumer := ingest.NewStreamConsumer(transport, engine, logger, cfg.BatchSize, cfg.BatchTimeout, nil)
	consumer.Start(ctx)

	// Fine-tuning: history, tuner, and the daily schedule.
	tuner := finetune.New(filepath.Join(cfg.DataDir, "fine_tuning_history.json"), logger)
	scheduler, err := finetune.NewScheduler(cfg.FineTuneSchedule, tuner, orchestrator, logger)
	if err != nil {
		return fmt.Errorf("finetune: %w", err)
	}
	scheduler.Start()

	srv := server.New(server.Config{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Analyzer:     ollama,
		Ingestor:     orchestrator,
		Tuner:        tuner,
		Trigger:      scheduler,
		Logger:       logger,
		Version:      version,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown. Each phase gets its own timeout so early completion
	// doesn't steal budget from later phases.
	// Order: (1) stop accepting new HTTP requests and drain in-flight,
	// (2) drain the stream consumer so its final batch is flushed,
	// (3) stop the schedule and wait out a running fine-tune pass.
	slog.Info("kunren shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
	consumer.Drain(drainCtx)
	drainCancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	scheduler.Stop(stopCtx)
	stopCancel()

	slog.Info("kunren stopped")
	return nil
}
