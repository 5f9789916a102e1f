// Package jobs runs the scheduled front desk maintenance: state archives
// and overtime sweeps.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"zenstay/internal/archive"
	"zenstay/internal/core"
)

const defaultTimeout = 2 * time.Minute

// Runner executes the jobs against one service.
type Runner struct {
	svc      *core.Service
	archiver *archive.Archiver
	keep     int
	logger   core.Logger
	timeout  time.Duration
}

// NewRunner returns a runner. keep bounds the archives retained after each
// run; zero keeps everything. A nil archiver disables archiving.
func NewRunner(svc *core.Service, archiver *archive.Archiver, keep int, logger core.Logger) *Runner {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Runner{svc: svc, archiver: archiver, keep: keep, logger: logger, timeout: defaultTimeout}
}

// Archive writes the current state and prunes old archives.
func (r *Runner) Archive(ctx context.Context) (archive.Manifest, error) {
	if r.archiver == nil {
		return archive.Manifest{}, fmt.Errorf("archiving is not configured")
	}
	m, err := r.archiver.Archive(ctx, r.svc.State())
	if err != nil {
		return archive.Manifest{}, err
	}
	r.logger.Info("state archived", "archive", m.ID, "rooms", m.Rooms, "guests", m.Guests)
	if r.keep > 0 {
		removed, err := r.archiver.Prune(ctx, r.keep)
		if err != nil {
			return m, fmt.Errorf("prune archives: %w", err)
		}
		if removed > 0 {
			r.logger.Info("archives pruned", "removed", removed, "keep", r.keep)
		}
	}
	return m, nil
}

// SweepOvertime notifies overtime guests and returns how many there were.
func (r *Runner) SweepOvertime(ctx context.Context) int {
	return len(r.svc.SweepOvertime(ctx))
}

// Schedule registers the jobs on c. An empty spec skips that job.
func (r *Runner) Schedule(c *cron.Cron, archiveSpec, overtimeSpec string) error {
	if archiveSpec != "" && r.archiver != nil {
		if _, err := c.AddFunc(archiveSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if _, err := r.Archive(ctx); err != nil {
				r.logger.Error("archive job failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule archive job %q: %w", archiveSpec, err)
		}
	}
	if overtimeSpec != "" {
		if _, err := c.AddFunc(overtimeSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			r.SweepOvertime(ctx)
		}); err != nil {
			return fmt.Errorf("schedule overtime job %q: %w", overtimeSpec, err)
		}
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
