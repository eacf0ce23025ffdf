package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/client/connectivity"
)

func newDaemonCommand(a *App) *cobra.Command {
	var cleanupEvery time.Duration
	cmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Watch connectivity and sync in the background until interrupted",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{localOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runDaemon(ctx, cleanupEvery)
		},
	}
	cmd.Flags().DurationVar(&cleanupEvery, "cleanup-every", 24*time.Hour, "how often expired cache entries are pruned while online")
	return cmd
}

// syncOnce runs a cycle when the server is reachable.
func (a *App) syncOnce(ctx context.Context) {
	if a.monitor.Mode() != connectivity.ModeOnline {
		return
	}
	report, err := a.sync.Sync(ctx)
	if err != nil {
		a.log.Warn(ctx, "background sync failed", "error", err)
		return
	}
	if !report.Skipped && (report.Pushed+report.Pulled+report.Failed) > 0 {
		a.log.Info(ctx, "background sync", "pushed", report.Pushed, "pulled", report.Pulled, "failed", report.Failed)
	}
}

// runDaemon blocks until ctx ends. Stale cache entries are only pruned
// while online, when they can be fetched again.
func (a *App) runDaemon(ctx context.Context, cleanupEvery time.Duration) error {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(a.cfg.SyncInterval),
		gocron.NewTask(func() { a.syncOnce(ctx) }),
		gocron.WithName("sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(cleanupEvery),
		gocron.NewTask(func() {
			if a.monitor.Mode() != connectivity.ModeOnline {
				return
			}
			n := a.cache.CleanupExpired(ctx)
			a.log.Debug(ctx, "cache cleanup", "removed", n)
		}),
		gocron.WithName("cache-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}

	a.monitor.OnReconnect(a.syncOnce)
	a.ensureMode(ctx)
	a.syncOnce(ctx)

	s.Start()
	a.log.Info(ctx, "daemon started", "sync_interval", a.cfg.SyncInterval, "mode", a.monitor.Mode())

	a.monitor.Run(ctx, a.cfg.OnlineCheckInterval)

	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.log.Info(context.Background(), "daemon stopped")
	return nil
}
