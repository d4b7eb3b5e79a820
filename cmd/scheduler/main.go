package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/logger"
)

const reconcileTimeout = 10 * time.Minute

// reconciler is satisfied by service.ReconcileService.
type reconciler interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format).With("component", "scheduler")
	slog.SetDefault(log)

	store, err := repository.Open(context.Background(), repository.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		TxTimeout:       cfg.Database.TxTimeout,
		AutoMigrate:     cfg.Database.AutoMigrate,
	})
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	c, err := newScheduler(cfg, service.NewReconcileService(store, log), log)
	if err != nil {
		log.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	// Start the scheduler
	c.Start()
	log.Info("scheduler started", "reconcile_schedule", cfg.Scheduler.ReconcileSchedule,
		"timezone", cfg.Scheduler.Timezone)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-c.Stop().Done()
	log.Info("scheduler stopped")
}

func newScheduler(cfg *config.Config, r reconciler, log *slog.Logger) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(cfg.Scheduler.ReconcileSchedule, func() { reconcile(r, log) }); err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", cfg.Scheduler.ReconcileSchedule, err)
	}
	return c, nil
}

func reconcile(r reconciler, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	report, err := r.Run(ctx)
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		return
	}
	if len(report.Discrepancies) > 0 {
		log.Error("ledger discrepancies found", "count", len(report.Discrepancies))
	}
}
