package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/facegate/internal/config"
	"github.com/alfredjeanlab/facegate/internal/journal"
	gatesync "github.com/alfredjeanlab/facegate/internal/sync"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:     "audit",
	Short:   "Inspect and ship the attempt journal",
	GroupID: "audit",
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print recorded gate attempts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		attempts, err := journal.New(cfg.JournalPath).Tail(limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(attempts)
			return nil
		}
		if len(attempts) == 0 {
			fmt.Printf("No attempts recorded in %s\n", cfg.JournalPath)
			return nil
		}
		printAttemptTable(os.Stdout, attempts)
		return nil
	},
}

var auditPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Export the journal to the configured sync destinations",
	Long: `Export the attempt journal as JSONL and write it to every configured
destination: an S3 bucket, a git repository, and a Postgres table.

With --every the push repeats on that interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetDuration("every")
		if !cmd.Flags().Changed("every") {
			every = cfg.Sync.Interval
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		host := hostname()
		dests, closers, err := buildDestinations(ctx, cfg.Sync, host)
		defer closeAll(closers)
		if err != nil {
			return err
		}
		src := journal.New(cfg.JournalPath)

		if every <= 0 {
			n, err := gatesync.Push(ctx, src, host, dests)
			if err != nil {
				return fmt.Errorf("push: %w", err)
			}
			fmt.Printf("Pushed %d bytes to %d destinations\n", n, len(dests))
			return nil
		}

		sched := gatesync.NewScheduler(src, host, dests, every, logger)
		logger.Info("sync: pushing periodically", "interval", every, "destinations", len(dests))
		sched.Run(ctx)
		pushes, failures := sched.Stats()
		logger.Info("sync: stopped", "pushes", pushes, "failures", failures)
		return nil
	},
}

var errNoDestinations = errors.New("no sync destinations configured (set FACEGATE_SYNC_S3_BUCKET, FACEGATE_SYNC_GIT_REPO, or FACEGATE_SYNC_POSTGRES_URL)")

// buildDestinations creates a destination for each configured target. The
// returned closers must be closed even when err is non-nil.
func buildDestinations(ctx context.Context, sc config.SyncConfig, host string) ([]gatesync.Destination, []io.Closer, error) {
	if !sc.Enabled() {
		return nil, nil, errNoDestinations
	}
	var (
		dests   []gatesync.Destination
		closers []io.Closer
	)
	if sc.S3Bucket != "" {
		d, err := gatesync.NewS3Destination(ctx, sc.S3Bucket, sc.S3Key, sc.S3Region, sc.S3Endpoint, host)
		if err != nil {
			return nil, closers, fmt.Errorf("s3 destination: %w", err)
		}
		dests = append(dests, d)
	}
	if sc.GitRepo != "" {
		dests = append(dests, gatesync.NewGitDestination(sc.GitRepo, sc.GitFile, sc.GitBranch, host))
	}
	if sc.PostgresURL != "" {
		d, err := gatesync.NewPostgresDestination(sc.PostgresURL)
		if err != nil {
			return nil, closers, fmt.Errorf("postgres destination: %w", err)
		}
		dests = append(dests, d)
		closers = append(closers, d)
	}
	return dests, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("sync: close failed", "err", err)
		}
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func init() {
	auditShowCmd.Flags().Int("limit", 20, "show at most this many recent attempts (0 for all)")
	auditPushCmd.Flags().Duration("every", 0, "repeat the push on this interval until interrupted")

	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditPushCmd)
}
