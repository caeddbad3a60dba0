package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"pixelstudio/internal/adapter/snapshot"
	"pixelstudio/internal/domain"
	"pixelstudio/internal/infra"
	"pixelstudio/internal/jobs"
)

func app() *cli.Command {
	return &cli.Command{
		Name:  "jobprune",
		Usage: "Inspect and prune the persisted generation job snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Snapshot backend (file, sqlite, postgres); defaults to PERSIST_BACKEND",
				Sources: cli.EnvVars("PERSIST_BACKEND"),
			},
		},
		Commands: []*cli.Command{
			showCmd(),
			pruneCmd(),
		},
	}
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "List persisted jobs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repository, closeRepo, err := openRepository(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeRepo()

			entries, err := repository.Load(ctx)
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			return printEntries(os.Stdout, entries, time.Now())
		},
	}
}

func pruneCmd() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Remove unfinished jobs older than --max-age from the snapshot",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "Age after which unfinished jobs are removed",
				Value: jobs.DefaultStaleThreshold,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be removed without saving",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repository, closeRepo, err := openRepository(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeRepo()

			removed, kept, err := prune(ctx, repository, cmd.Duration("max-age"), time.Now, cmd.Bool("dry-run"))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "removed %d stale job(s), %d remaining\n", removed, kept)
			return nil
		},
	}
}

// prune sweeps the persisted snapshot the same way the tracker sweeps its
// live registry and writes the result back unless dryRun is set.
func prune(ctx context.Context, repository domain.SnapshotRepository, maxAge time.Duration, now func() time.Time, dryRun bool) (int, int, error) {
	if maxAge <= 0 {
		return 0, 0, errors.New("max-age must be positive")
	}
	entries, err := repository.Load(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load snapshot: %w", err)
	}
	registry := jobs.NewRegistry(now)
	registry.Restore(entries)
	removed := registry.SweepStale(maxAge)
	if removed == 0 || dryRun {
		return removed, registry.Len(), nil
	}
	if err := repository.Save(ctx, registry.Entries()); err != nil {
		return 0, 0, fmt.Errorf("save snapshot: %w", err)
	}
	return removed, registry.Len(), nil
}

func printEntries(w io.Writer, entries []domain.JobEntry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST ID\tKIND\tSTATUS\tPROGRESS\tAGE\tRESULT / ERROR")
	for _, e := range entries {
		detail := e.Job.ResultReference
		if e.Job.Status == domain.JobStatusFailed {
			detail = e.Job.ErrorDetail
		}
		age := now.Sub(e.Job.CreatedAt).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n", e.RequestID, e.Job.Kind, e.Job.Status, e.Job.Progress, age, detail)
	}
	return tw.Flush()
}

func openRepository(ctx context.Context, cmd *cli.Command) (domain.SnapshotRepository, func(), error) {
	cfg, err := infra.LoadStorageConfig()
	if err != nil {
		return nil, nil, err
	}
	if backend := strings.ToLower(strings.TrimSpace(cmd.String("backend"))); backend != "" {
		cfg.PersistBackend = backend
		if err := cfg.ValidatePersistence(); err != nil {
			return nil, nil, err
		}
	}
	if cfg.PersistBackend == infra.PersistNone {
		return nil, nil, errors.New("no snapshot backend configured; set PERSIST_BACKEND or --backend")
	}
	logger := infra.NewLogger("production", "warn")
	repository, closeRepo, err := snapshot.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository, closeRepo, nil
}
