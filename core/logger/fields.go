package logger

import (
	"strings"
	"time"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelNames = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var statusNames = map[string]string{
	"ok":                "ok",
	"fail":              "fail",
	"error":             "fail",
	"skip":              "skip",
	"retry":             "retry",
	"rate_limited":      "rate_limited",
	"cancelled":         "cancelled",
	"expired":           "expired",
	"already_processed": "already_processed",
}

var outcomeNames = map[string]string{
	"ok":                "ok",
	"fail":              "fail",
	"cancelled":         "cancelled",
	"rate_limited":      "rate_limited",
	"expired":           "expired",
	"already_processed": "already_processed",
}

// defaultKeyOrder puts correlation and lifecycle keys ahead of the rest,
// which follow in alphabetical order.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"trace_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"outcome",
	"duration_ms",
	"request_id",
	"request_type",
	"action",
	"from_status",
	"target_status",
	"admin_id",
	"notified",
	"step",
	"tmdb_id",
	"media_type",
	"messages",
	"kb",
	"count",
	"total",
	"page",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func lookupEnum(table map[string]string, raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	v, ok := table[raw]
	if !ok {
		return raw, false
	}
	return v, true
}

// Status maps an error to the status value used in summaries.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Took returns the rounded duration since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were dropped.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
