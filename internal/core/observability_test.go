package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenstay/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceObservability(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 21, 9, 0, 0, 0, time.UTC)
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithClock(ClockFunc(func() time.Time { return fixed })),
		WithIDGenerator(fixedID),
	)

	_, _, err := svc.AddBooking(ctx, femaleDraft("b2-1"))
	require.NoError(t, err)
	require.True(t, audit.has("add_booking", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == "g-fixed" && e.Entity == domain.EntityGuest && e.Action == domain.ActionCreate && e.Timestamp.Equal(fixed)
	}))
	require.True(t, metrics.has("add_booking", true))

	_, _, err = svc.AddBooking(ctx, femaleDraft())
	require.Error(t, err)
	require.True(t, audit.has("add_booking", AuditStatusError, func(e AuditEntry) bool { return e.Error != "" }))
	require.True(t, metrics.has("add_booking", false))

	require.Len(t, tracer.ended, 2)
	require.NoError(t, tracer.ended[0].err)
	require.Error(t, tracer.ended[1].err)
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil || opts.audit == nil || opts.metrics == nil || opts.tracer == nil || opts.newID == nil {
		t.Fatalf("expected defaults populated")
	}
	_ = opts.clock.Now()
	opts.audit.Record(context.Background(), AuditEntry{})
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
	if opts.newID() == opts.newID() {
		t.Fatalf("expected unique ids")
	}
}

func TestNoopLogger(_ *testing.T) {
	var l noopLogger
	l.Debug("d", "k", 1)
	l.Info("i", "k", 2)
	l.Warn("w", "k", 3)
	l.Error("e", "k", 4)
}

type recordingLogger struct {
	noopLogger
	debug []string
	info  []string
	warn  []string
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.debug = append(r.debug, msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.info = append(r.info, msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.warn = append(r.warn, msg) }

func TestLogTracerRetainsRecentSpans(t *testing.T) {
	logger := &recordingLogger{}
	tracer := NewLogTracer(logger, 2)
	for _, op := range []string{"a", "b", "c"} {
		_, span := tracer.Start(context.Background(), op)
		span.End(nil)
	}
	_, span := tracer.Start(context.Background(), "d")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "c", entries[0].Operation)
	require.Equal(t, "error", entries[1].Status)
	require.Equal(t, "boom", entries[1].Error)
	require.Len(t, logger.debug, 4)
}

func TestDefaultNotifierLogs(t *testing.T) {
	logger := &recordingLogger{}
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithLogger(logger))
	_, _, err := svc.SaveSettings(context.Background(), domain.DefaultSettings())
	require.NoError(t, err)
	require.Contains(t, logger.info, "notification")
}

func TestLogAuditRecorderLevels(t *testing.T) {
	logger := &recordingLogger{}
	rec := LogAuditRecorder{Logger: logger}
	rec.Record(context.Background(), AuditEntry{Operation: "add_booking", Status: AuditStatusSuccess})
	rec.Record(context.Background(), AuditEntry{Operation: "delete_room", Status: AuditStatusError, Error: "room has occupied beds"})
	LogAuditRecorder{}.Record(context.Background(), AuditEntry{Operation: "ignored"})

	require.Equal(t, []string{"audit"}, logger.info)
	require.Equal(t, []string{"audit"}, logger.warn)
}
