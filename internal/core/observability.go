package core

import (
	"context"
	"time"

	"zenstay/pkg/domain"
)

// Logger is the minimal structured logger used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns the function result.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus reports the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one front desk command for the audit trail.
type AuditEntry struct {
	Timestamp  time.Time
	Operation  string
	Entity     domain.EntityType
	Action     domain.Action
	EntityID   string
	Status     AuditStatus
	Error      string
	Duration   time.Duration
	Violations []domain.Violation
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes command latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// Notifier delivers command notifications to the front desk UI.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) { f(ctx, n) }

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// loggingNotifier writes notifications to the service logger.
type loggingNotifier struct {
	logger Logger
}

func (n loggingNotifier) Notify(_ context.Context, note domain.Notification) {
	n.logger.Info("notification", "kind", note.Kind, "level", note.Level, "message", note.Message, "entity_id", note.EntityID)
}

// LogAuditRecorder writes audit entries to a logger at info level, or warn
// when the command failed.
type LogAuditRecorder struct {
	Logger Logger
}

// Record implements AuditRecorder.
func (r LogAuditRecorder) Record(_ context.Context, e AuditEntry) {
	if r.Logger == nil {
		return
	}
	args := []any{
		"operation", e.Operation,
		"entity", e.Entity,
		"action", e.Action,
		"entity_id", e.EntityID,
		"status", e.Status,
		"duration", e.Duration,
		"violations", len(e.Violations),
	}
	if e.Status == AuditStatusError {
		r.Logger.Warn("audit", append(args, "error", e.Error)...)
		return
	}
	r.Logger.Info("audit", args...)
}
