// Package model defines the record schemas, training examples, and
// fine-tuning history entries shared across the pipeline.
package model

// SourceKind identifies one of the three telemetry sources the pipeline
// ingests. The values double as watermark keys in the persisted state file.
type SourceKind string

const (
	SourceApplicationLogs SourceKind = "application_logs"
	SourceNginxAccess     SourceKind = "nginx_access"
	SourceSystemMetrics   SourceKind = "system_metrics"
)

// Sources lists all source kinds in pull-cycle processing order.
// The order is load-bearing: downstream consumers rely on application
// examples preceding access examples preceding metric examples.
func Sources() []SourceKind {
	return []SourceKind{SourceApplicationLogs, SourceNginxAccess, SourceSystemMetrics}
}

// Stream record type discriminators. These are the values carried in the
// "type" field of stream-transported records and differ from the watermark
// keys above (a quirk of the producing agents, preserved as-is).
const (
	StreamTypeApplication = "application"
	StreamTypeNginxAccess = "nginx-access"
	StreamTypeBeats       = "beats"
)

// ApplicationLogRecord is one structured application log line.
// Timestamps are kept verbatim as produced by the source; they are rendered
// into example text, never parsed.
type ApplicationLogRecord struct {
	Timestamp  string `json:"timestamp"`
	Service    string `json:"service"`
	Level      string `json:"log_level"`
	Message    string `json:"message"`
	StackTrace string `json:"stack_trace,omitempty"`
}

// AccessLogRecord is one HTTP access log entry. A missing status code
// defaults to zero, which lands it outside every status bucket.
type AccessLogRecord struct {
	Timestamp      string `json:"timestamp"`
	ClientIP       string `json:"client_ip"`
	Method         string `json:"request_method"`
	Path           string `json:"request_path"`
	StatusCode     int    `json:"status_code"`
	ResponseTimeMS int    `json:"response_time"`
}

// MetricRecord is one host resource-usage sample. The timestamp stays a
// string at this boundary; hourly resampling parses it and skips the host
// summary when parsing fails.
type MetricRecord struct {
	Timestamp   string  `json:"timestamp"`
	Host        string  `json:"host"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
}

// ParseApplicationLog converts an untyped field mapping (an Elasticsearch hit
// source or a stream payload) into a typed record, defaulting missing fields.
func ParseApplicationLog(fields map[string]any) ApplicationLogRecord {
	return ApplicationLogRecord{
		Timestamp:  str(fields, "timestamp"),
		Service:    str(fields, "service"),
		Level:      str(fields, "log_level"),
		Message:    str(fields, "message"),
		StackTrace: str(fields, "stack_trace"),
	}
}

// ParseAccessLog converts an untyped field mapping into an AccessLogRecord.
func ParseAccessLog(fields map[string]any) AccessLogRecord {
	return AccessLogRecord{
		Timestamp:      str(fields, "timestamp"),
		ClientIP:       str(fields, "client_ip"),
		Method:         str(fields, "request_method"),
		Path:           str(fields, "request_path"),
		StatusCode:     integer(fields, "status_code"),
		ResponseTimeMS: integer(fields, "response_time"),
	}
}

// ParseMetric converts an untyped field mapping into a MetricRecord.
// A missing host becomes "unknown" so per-host grouping never loses records.
func ParseMetric(fields map[string]any) MetricRecord {
	host := str(fields, "host")
	if host == "" {
		host = "unknown"
	}
	return MetricRecord{
		Timestamp:   str(fields, "timestamp"),
		Host:        host,
		CPUUsage:    float(fields, "cpu_usage"),
		MemoryUsage: float(fields, "memory_usage"),
		DiskUsage:   float(fields, "disk_usage"),
	}
}

func str(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func float(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func integer(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
