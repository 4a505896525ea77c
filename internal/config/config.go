// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Elasticsearch settings.
	ElasticsearchURL      string
	ElasticsearchUser     string
	ElasticsearchPassword string

	// Kafka settings.
	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopics  []string
	BatchSize    int           // Records buffered before a stream flush.
	BatchTimeout time.Duration // Maximum buffer age before a stream flush.

	// Ollama settings.
	OllamaURL         string
	OllamaModel       string
	OllamaTemperature float64
	OllamaTopP        float64
	OllamaTopK        int
	OllamaNumPredict  int

	// Pipeline state settings.
	DataDir string // Directory holding watermarks, latest examples, and history.

	// Fine-tuning settings.
	FineTuneSchedule string // Five-field cron expression.

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                  envInt("KUNREN_PORT", 8080),
		ReadTimeout:           envDuration("KUNREN_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:          envDuration("KUNREN_WRITE_TIMEOUT", 120*time.Second),
		ElasticsearchURL:      envStr("ELASTICSEARCH_URL", "http://localhost:9200"),
		ElasticsearchUser:     envStr("ELASTICSEARCH_USER", "elastic"),
		ElasticsearchPassword: envStr("ELASTICSEARCH_PASSWORD", "changeme"),
		KafkaBrokers:          envList("KAFKA_BOOTSTRAP_SERVERS", []string{"localhost:29092"}),
		KafkaGroupID:          envStr("KAFKA_GROUP_ID", "kunren-consumer-group"),
		KafkaTopics: envList("KAFKA_TOPICS", []string{
			"application-logs",
			"nginx-access-logs",
			"beats-logs",
		}),
		BatchSize:         envInt("KUNREN_BATCH_SIZE", 100),
		BatchTimeout:      envDuration("KUNREN_BATCH_TIMEOUT", 60*time.Second),
		OllamaURL:         envStr("OLLAMA_API_URL", "http://localhost:11434"),
		OllamaModel:       envStr("OLLAMA_MODEL", "llama3"),
		OllamaTemperature: envFloat("OLLAMA_TEMPERATURE", 0.7),
		OllamaTopP:        envFloat("OLLAMA_TOP_P", 0.9),
		OllamaTopK:        envInt("OLLAMA_TOP_K", 40),
		OllamaNumPredict:  envInt("OLLAMA_NUM_PREDICT", 256),
		DataDir:           envStr("DATA_DIR", "data"),
		FineTuneSchedule:  envStr("KUNREN_FINETUNE_SCHEDULE", "0 2 * * *"),
		OTELEndpoint:      envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       envStr("OTEL_SERVICE_NAME", "kunren"),
		LogLevel:          envStr("KUNREN_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.ElasticsearchURL == "" {
		return fmt.Errorf("config: ELASTICSEARCH_URL is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("config: KAFKA_BOOTSTRAP_SERVERS is required")
	}
	if len(c.KafkaTopics) == 0 {
		return fmt.Errorf("config: KAFKA_TOPICS is required")
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("config: OLLAMA_MODEL is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: DATA_DIR is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: KUNREN_BATCH_SIZE must be positive")
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("config: KUNREN_BATCH_TIMEOUT must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
