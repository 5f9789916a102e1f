// Command zenstay-snapshot archives, lists, verifies and restores the front
// desk state using the same configuration as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"zenstay/internal/archive"
	"zenstay/internal/blob"
	"zenstay/internal/config"
	"zenstay/internal/core"
	"zenstay/internal/logging"
	"zenstay/pkg/domain"
)

var exitFunc = os.Exit

const usage = `usage: zenstay-snapshot <command> [flags]

commands:
  archive            write the current state to the archive store
  list               list archives, newest first
  restore <id>       replace the current state with an archive ("latest" for the newest)
  prune -keep N      delete all but the newest N archives
  verify             evaluate the rules against the current state
`

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 2
	}
	zl, err := logging.New(cfg.Log.Level, "console", "zenstay-snapshot")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "init logger: %v\n", err)
		return 2
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	err = runCommand(ctx, cfg, logging.Core(zl), args[0], args[1:], stdout, stderr)
	var usageErr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usageErr):
		_, _ = fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "%s failed: %v\n", args[0], err)
		return 1
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func runCommand(ctx context.Context, cfg *config.Config, logger core.Logger, name string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	keep := fs.Int("keep", cfg.Schedule.ArchiveKeep, "archives to keep (prune)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	svc := core.NewService(store, core.WithLogger(logger), core.WithAuditRecorder(core.LogAuditRecorder{Logger: logger}))

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	archiver := archive.New(blobs)

	switch name {
	case "archive":
		m, err := archiver.Archive(ctx, svc.State())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "archived %s (%d rooms, %d beds, %d guests)\n", m.ID, m.Rooms, m.Beds, m.Guests)
		return err
	case "list":
		manifests, err := archiver.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tCREATED\tROOMS\tBEDS\tOCCUPIED\tGUESTS")
		for _, m := range manifests {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", m.ID, m.CreatedAt.Format(time.RFC3339), m.Rooms, m.Beds, m.Occupied, m.Guests)
		}
		return tw.Flush()
	case "restore":
		if fs.NArg() != 1 {
			return usageError{"restore needs exactly one archive id"}
		}
		id := fs.Arg(0)
		if id == "latest" {
			m, ok, err := archiver.Latest(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no archives found")
			}
			id = m.ID
		}
		state, issues, err := archiver.Load(ctx, id)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			_, _ = fmt.Fprintf(stderr, "warning: %s fell back to seed: %v\n", issue.Bucket, issue.Err)
		}
		res, err := svc.Restore(ctx, state)
		printViolations(stderr, res.Violations)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "restored %s\n", id)
		return err
	case "prune":
		if *keep <= 0 {
			return usageError{"prune needs -keep greater than zero"}
		}
		removed, err := archiver.Prune(ctx, *keep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "removed %d archives\n", removed)
		return err
	case "verify":
		res, err := svc.Verify(ctx)
		if err != nil {
			return err
		}
		printViolations(stdout, res.Violations)
		if res.HasBlocking() {
			return errors.New("state has blocking violations")
		}
		_, err = fmt.Fprintln(stdout, "state ok")
		return err
	default:
		return usageError{fmt.Sprintf("unknown command %q", name)}
	}
}

func printViolations(w io.Writer, violations []domain.Violation) {
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "%s %s %s: %s\n", v.Severity, v.Rule, v.EntityID, v.Message)
	}
}
