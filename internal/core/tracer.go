package core

import (
	"context"
	"sync"
	"time"
)

// TraceEntry is one finished span recorded by LogTracer.
type TraceEntry struct {
	Operation  string
	Status     string
	DurationMS float64
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time
}

// LogTracer writes finished spans to a Logger at debug level and keeps the
// most recent ones for inspection.
type LogTracer struct {
	logger  Logger
	limit   int
	mu      sync.Mutex
	entries []TraceEntry
}

// NewLogTracer constructs a tracer retaining up to limit spans. A limit of
// zero or less keeps 256.
func NewLogTracer(logger Logger, limit int) *LogTracer {
	if logger == nil {
		logger = noopLogger{}
	}
	if limit <= 0 {
		limit = 256
	}
	return &LogTracer{logger: logger, limit: limit}
}

// Entries returns a copy of the retained spans, oldest first.
func (t *LogTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *LogTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &logSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type logSpan struct {
	tracer    *LogTracer
	operation string
	started   time.Time
}

func (s *logSpan) End(err error) {
	ended := time.Now().UTC()
	entry := TraceEntry{
		Operation:  s.operation,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.tracer.logger.Debug("span", "operation", entry.Operation, "status", entry.Status, "duration_ms", entry.DurationMS, "error", entry.Error)

	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if over := len(s.tracer.entries) - s.tracer.limit; over > 0 {
		s.tracer.entries = append([]TraceEntry(nil), s.tracer.entries[over:]...)
	}
	s.tracer.mu.Unlock()
}
