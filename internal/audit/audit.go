// Package audit persists one record per tool dispatch, success or failure.
package audit

import (
	"time"

	"go.uber.org/zap"
)

// Record captures the outcome of a single dispatch.
type Record struct {
	RequestID   string
	Timestamp   time.Time
	ToolName    string
	CallerID    string
	TenantID    string
	LocationID  string
	AccountKind string
	Success     bool
	ErrorCode   string // empty on success
	ErrorDetail string
	DurationMs  float32
}

// Writer is the audit sink. Write must never block the caller.
type Writer interface {
	Write(rec *Record)
	Close()
}

// LogWriter is the fallback Writer for local development.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter emitting records through the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(rec *Record) {
	w.logger.Info("tool_dispatch",
		zap.String("request_id", rec.RequestID),
		zap.String("tool_name", rec.ToolName),
		zap.String("caller_id", rec.CallerID),
		zap.String("tenant_id", rec.TenantID),
		zap.String("account_kind", rec.AccountKind),
		zap.Bool("success", rec.Success),
		zap.String("error_code", rec.ErrorCode),
		zap.Float32("duration_ms", rec.DurationMs),
	)
}

func (w *LogWriter) Close() {}
