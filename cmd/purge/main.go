// Command purge runs one pass of the retention jobs: hard-purging deletion
// requests whose grace period has passed, then sweeping expired exports.
// Each step is idempotent, so the command is safe to schedule on overlapping
// timers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"rgpdgate/internal/app"
	"rgpdgate/internal/platform/config"
	"rgpdgate/internal/platform/logger"
	"rgpdgate/internal/platform/metrics"
	"rgpdgate/internal/policy"
	"rgpdgate/pkg/domain"
	"rgpdgate/pkg/requestcontext"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.load.failed", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := logger.New(cfg.Log, logger.WithViolationCounter(m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, m, reg); err != nil {
		log.Error("purge.exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, reg prometheus.Registerer) error {
	a, err := app.New(ctx, cfg, log, m, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	system := domain.Actor{Scope: domain.ScopeSystem}
	if err := a.Policy.Authorize(ctx, system, policy.ActionPurgeRun, policy.Resource{}); err != nil {
		return err
	}
	ctx = requestcontext.WithActor(ctx, system)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report, err := a.Rgpd.PurgeDue(ctx)
		log.InfoContext(ctx, "purge.deletions.completed",
			"purged", report.Purged,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
		return err
	})
	g.Go(func() error {
		swept, err := a.Rgpd.SweepExpiredExports(ctx)
		log.InfoContext(ctx, "purge.exports.completed", "expired", swept)
		return err
	})
	return g.Wait()
}
