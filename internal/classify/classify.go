// Package classify turns raw telemetry records into labeled training
// examples. All entry points are pure functions of their input records: no
// I/O, no retained state, deterministic output ordering (anomalies before
// summaries, insertion order preserved within each group).
package classify

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kunren-ai/kunren/internal/model"
)

// summaryMinRecords is the minimum qualifying group size before any summary
// example is emitted.
const summaryMinRecords = 10

// Engine classifies raw records of each source kind.
type Engine struct {
	logger *slog.Logger
}

// New creates a classification engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// ApplicationLogs classifies application log records. Every ERROR becomes a
// critical anomaly example and every WARNING a warning one. INFO records are
// volume-compressed: with at least ten non-empty messages they are clustered
// and each non-empty cluster yields one summary example. A clustering failure
// degrades to no summaries without touching the anomaly output.
func (e *Engine) ApplicationLogs(records []model.ApplicationLogRecord) []model.TrainingExample {
	if len(records) == 0 {
		return nil
	}

	var errorLogs, warningLogs, infoLogs []model.ApplicationLogRecord
	for _, rec := range records {
		switch rec.Level {
		case "ERROR":
			errorLogs = append(errorLogs, rec)
		case "WARNING":
			warningLogs = append(warningLogs, rec)
		case "INFO":
			infoLogs = append(infoLogs, rec)
		}
	}

	var result []model.TrainingExample

	for _, rec := range errorLogs {
		text := fmt.Sprintf("%s %s %s %s", rec.Timestamp, rec.Service, rec.Level, rec.Message)
		if rec.StackTrace != "" {
			text += "\n" + rec.StackTrace
		}
		result = append(result, model.TrainingExample{
			TaskType:       model.TaskAnomaly,
			LogText:        text,
			AnomalyStatus:  model.SeverityCritical,
			DetectedIssues: []string{"error occurred"},
			Explanation:    fmt.Sprintf("service '%s' reported an error: %s", rec.Service, rec.Message),
		})
	}

	for _, rec := range warningLogs {
		result = append(result, model.TrainingExample{
			TaskType:       model.TaskAnomaly,
			LogText:        fmt.Sprintf("%s %s %s %s", rec.Timestamp, rec.Service, rec.Level, rec.Message),
			AnomalyStatus:  model.SeverityWarning,
			DetectedIssues: []string{"warning occurred"},
			Explanation:    fmt.Sprintf("service '%s' reported a warning: %s", rec.Service, rec.Message),
		})
	}

	if len(infoLogs) >= summaryMinRecords {
		summaries, err := e.summarizeInfoLogs(infoLogs)
		if err != nil {
			e.logger.Error("classify: info log clustering failed", "error", err, "records", len(infoLogs))
		} else {
			result = append(result, summaries...)
		}
	}

	return result
}

// summarizeInfoLogs clusters info-level messages and emits one summary
// example per non-empty cluster.
func (e *Engine) summarizeInfoLogs(infoLogs []model.ApplicationLogRecord) ([]model.TrainingExample, error) {
	// Records with empty messages carry no clusterable signal.
	var clusterable []model.ApplicationLogRecord
	var messages []string
	for _, rec := range infoLogs {
		if rec.Message != "" {
			clusterable = append(clusterable, rec)
			messages = append(messages, rec.Message)
		}
	}
	if len(messages) < summaryMinRecords {
		return nil, nil
	}

	vectors := vectorize(messages)
	k := min(5, len(messages)/2)
	assignments, err := kmeans(vectors, k)
	if err != nil {
		return nil, err
	}

	var result []model.TrainingExample
	for cluster := 0; cluster < k; cluster++ {
		var members []model.ApplicationLogRecord
		for i, c := range assignments {
			if c == cluster {
				members = append(members, clusterable[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		var lines []string
		for _, rec := range members[:min(len(members), 10)] {
			lines = append(lines, fmt.Sprintf("%s %s %s", rec.Timestamp, rec.Service, rec.Message))
		}
		result = append(result, model.TrainingExample{
			TaskType:     model.TaskSummary,
			OriginalText: strings.Join(lines, "\n"),
			Summary: fmt.Sprintf("activity summary for service '%s': %d similar log messages observed",
				members[0].Service, len(members)),
		})
	}
	return result, nil
}

// AccessLogs classifies HTTP access log records by status bucket and latency,
// plus one traffic summary when any successful requests exist. A slow success
// record produces a latency anomaly in addition to counting toward the
// summary; the two sets intentionally overlap.
func (e *Engine) AccessLogs(records []model.AccessLogRecord) []model.TrainingExample {
	if len(records) == 0 {
		return nil
	}

	var errorLogs, warningLogs, successLogs []model.AccessLogRecord
	for _, rec := range records {
		switch {
		case rec.StatusCode >= 500:
			errorLogs = append(errorLogs, rec)
		case rec.StatusCode >= 400:
			warningLogs = append(warningLogs, rec)
		case rec.StatusCode >= 200 && rec.StatusCode < 400:
			successLogs = append(successLogs, rec)
		}
	}

	var result []model.TrainingExample

	for _, rec := range errorLogs {
		result = append(result, model.TrainingExample{
			TaskType:       model.TaskAnomaly,
			LogText:        accessLine(rec),
			AnomalyStatus:  model.SeverityCritical,
			DetectedIssues: []string{fmt.Sprintf("server error %d", rec.StatusCode)},
			Explanation:    fmt.Sprintf("server error %d occurred. request path: %s", rec.StatusCode, rec.Path),
		})
	}

	for _, rec := range warningLogs {
		result = append(result, model.TrainingExample{
			TaskType:       model.TaskAnomaly,
			LogText:        accessLine(rec),
			AnomalyStatus:  model.SeverityWarning,
			DetectedIssues: []string{fmt.Sprintf("client error %d", rec.StatusCode)},
			Explanation:    fmt.Sprintf("client error %d occurred. request path: %s", rec.StatusCode, rec.Path),
		})
	}

	for _, rec := range successLogs {
		if rec.ResponseTimeMS <= 1000 {
			continue
		}
		result = append(result, model.TrainingExample{
			TaskType:       model.TaskAnomaly,
			LogText:        accessLine(rec),
			AnomalyStatus:  model.SeverityWarning,
			DetectedIssues: []string{"response time delay"},
			Explanation:    fmt.Sprintf("response time of %dms is delayed. request path: %s", rec.ResponseTimeMS, rec.Path),
		})
	}

	if len(successLogs) > 0 {
		result = append(result, trafficSummary(successLogs))
	}

	return result
}

// trafficSummary renders one summary example from the successful requests:
// the first twenty records verbatim plus the top five paths by request count,
// ties broken by first appearance in the input.
func trafficSummary(successLogs []model.AccessLogRecord) model.TrainingExample {
	counts := make(map[string]int)
	var order []string
	for _, rec := range successLogs {
		if rec.Path == "" {
			continue
		}
		if counts[rec.Path] == 0 {
			order = append(order, rec.Path)
		}
		counts[rec.Path]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	top := order[:min(len(order), 5)]

	var b strings.Builder
	b.WriteString("web traffic log:\n")
	for _, rec := range successLogs[:min(len(successLogs), 20)] {
		b.WriteString(accessLine(rec))
		b.WriteString("\n")
	}

	parts := make([]string, 0, len(top))
	for _, path := range top {
		parts = append(parts, fmt.Sprintf("%s (%d)", path, counts[path]))
	}
	summary := fmt.Sprintf("web traffic summary: %d successful requests in total.", len(successLogs))
	if len(parts) > 0 {
		summary += " most requested paths: " + strings.Join(parts, ", ")
	}

	return model.TrainingExample{
		TaskType:     model.TaskSummary,
		OriginalText: b.String(),
		Summary:      summary,
	}
}

func accessLine(rec model.AccessLogRecord) string {
	return fmt.Sprintf("%s %s %s %s %d %dms",
		rec.Timestamp, rec.ClientIP, rec.Method, rec.Path, rec.StatusCode, rec.ResponseTimeMS)
}

// SystemMetrics classifies host resource samples. Each record yields up to
// three threshold anomalies (CPU, then memory, then disk across the host's
// records), and hosts with at least ten samples get one performance summary
// built from hourly resampled averages. A resampling failure skips only that
// host's summary.
func (e *Engine) SystemMetrics(records []model.MetricRecord) []model.TrainingExample {
	if len(records) == 0 {
		return nil
	}

	byHost := make(map[string][]model.MetricRecord)
	var hosts []string
	for _, rec := range records {
		if _, ok := byHost[rec.Host]; !ok {
			hosts = append(hosts, rec.Host)
		}
		byHost[rec.Host] = append(byHost[rec.Host], rec)
	}

	var result []model.TrainingExample
	for _, host := range hosts {
		hostRecords := byHost[host]

		for _, rec := range hostRecords {
			if rec.CPUUsage > 80 {
				result = append(result, metricAnomaly(rec, model.SeverityWarning, "CPU usage high",
					fmt.Sprintf("host '%s' CPU usage is high at %s%%", host, formatUsage(rec.CPUUsage))))
			}
		}
		for _, rec := range hostRecords {
			if rec.MemoryUsage > 90 {
				result = append(result, metricAnomaly(rec, model.SeverityCritical, "memory usage high",
					fmt.Sprintf("host '%s' memory usage is very high at %s%%", host, formatUsage(rec.MemoryUsage))))
			}
		}
		for _, rec := range hostRecords {
			if rec.DiskUsage > 85 {
				result = append(result, metricAnomaly(rec, model.SeverityWarning, "disk usage high",
					fmt.Sprintf("host '%s' disk usage is high at %s%%", host, formatUsage(rec.DiskUsage))))
			}
		}

		if len(hostRecords) >= summaryMinRecords {
			summary, err := hostSummary(host, hostRecords)
			if err != nil {
				e.logger.Error("classify: metric resampling failed", "host", host, "error", err)
				continue
			}
			result = append(result, summary)
		}
	}
	return result
}

func metricAnomaly(rec model.MetricRecord, severity model.Severity, issue, explanation string) model.TrainingExample {
	return model.TrainingExample{
		TaskType:       model.TaskAnomaly,
		LogText:        metricLine(rec, true),
		AnomalyStatus:  severity,
		DetectedIssues: []string{issue},
		Explanation:    explanation,
	}
}

// hostSummary resamples a host's records into hourly buckets, averages each
// bucket, then averages across buckets. Any unparseable timestamp aborts the
// summary for this host.
func hostSummary(host string, hostRecords []model.MetricRecord) (model.TrainingExample, error) {
	type bucket struct {
		cpu, mem, disk float64
		n              int
	}
	buckets := make(map[time.Time]*bucket)
	for _, rec := range hostRecords {
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return model.TrainingExample{}, fmt.Errorf("classify: resample host %s: %w", host, err)
		}
		hour := ts.Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.cpu += rec.CPUUsage
		b.mem += rec.MemoryUsage
		b.disk += rec.DiskUsage
		b.n++
	}

	var avgCPU, avgMem, avgDisk float64
	for _, b := range buckets {
		avgCPU += b.cpu / float64(b.n)
		avgMem += b.mem / float64(b.n)
		avgDisk += b.disk / float64(b.n)
	}
	hours := float64(len(buckets))
	avgCPU /= hours
	avgMem /= hours
	avgDisk /= hours

	var b strings.Builder
	b.WriteString(fmt.Sprintf("host '%s' system metrics:\n", host))
	for _, rec := range hostRecords[:min(len(hostRecords), 20)] {
		b.WriteString(metricLine(rec, false))
		b.WriteString("\n")
	}

	return model.TrainingExample{
		TaskType:     model.TaskSummary,
		OriginalText: b.String(),
		Summary: fmt.Sprintf("host '%s' performance summary: average CPU usage %.1f%%, average memory usage %.1f%%, average disk usage %.1f%%. %d metrics collected in total.",
			host, avgCPU, avgMem, avgDisk, len(hostRecords)),
	}, nil
}

func metricLine(rec model.MetricRecord, withHost bool) string {
	if withHost {
		return fmt.Sprintf("%s %s CPU: %s%% Memory: %s%% Disk: %s%%",
			rec.Timestamp, rec.Host,
			formatUsage(rec.CPUUsage), formatUsage(rec.MemoryUsage), formatUsage(rec.DiskUsage))
	}
	return fmt.Sprintf("%s CPU: %s%% Memory: %s%% Disk: %s%%",
		rec.Timestamp,
		formatUsage(rec.CPUUsage), formatUsage(rec.MemoryUsage), formatUsage(rec.DiskUsage))
}

// formatUsage renders a usage percentage without a forced decimal point, so
// whole numbers read "95" rather than "95.000000".
func formatUsage(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// timestampLayouts are tried in order when resampling metric records.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
