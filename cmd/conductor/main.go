package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/scheduler"
	"brokerage-conductor/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	must(initializeSystem())
	defer trace.Shutdown(context.Background())

	cfg, err := loadConfig(ctx)
	must(err)
	compressOldLogs(ctx)

	db, store, err := openStorage(ctx, cfg)
	must(err)
	defer db.Close()

	orch := buildOrchestrator(ctx, cfg, store)

	sched := scheduler.New(ctx)
	must(registerJobs(sched, cfg, orch))
	sched.Start()

	logger.Info(ctx, "Conductor started",
		"mode", cfg.Mode,
		"brokers", len(cfg.Brokers),
		"rollup_period", cfg.Rollup.Period,
	)

	// First world refresh immediately; the schedules take over from there.
	if report := orch.RefreshTheWorld(ctx, cfg.Sync.FastMode, cfg.Sync.RetryCount); report.HasErrors() {
		logger.Warn(ctx, "Initial sync finished with failures", "report", report.FormatFailures())
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "Shutting down...")
	sched.Stop()
}
