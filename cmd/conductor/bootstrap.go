package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"brokerage-conductor/internal/broker/brokerobs"
	"brokerage-conductor/internal/broker/sim"
	"brokerage-conductor/internal/conductor"
	"brokerage-conductor/internal/conductor/conductorobs"
	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/ops"
	"brokerage-conductor/internal/scheduler"
	"brokerage-conductor/internal/storage/sqlite"
	"brokerage-conductor/internal/store"
	"brokerage-conductor/internal/synclog"
	"brokerage-conductor/internal/trace"
	"brokerage-conductor/internal/types"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("CONDUCTOR_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old sync journal files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("SYNC_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := synclog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// openStorage opens the SQLite database and wraps it in the store
func openStorage(ctx context.Context, cfg *store.Config) (*sql.DB, *sqlite.Store, error) {
	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open database", err, "path", cfg.DatabasePath)
		return nil, nil, err
	}
	logger.Info(ctx, "Database ready", "path", cfg.DatabasePath)
	return db, sqlite.NewStore(db), nil
}

// buildBrokers constructs one adapter per configured broker
func buildBrokers(ctx context.Context, cfg *store.Config) ([]conductor.Binding, map[string]interfaces.Broker) {
	bindings := make([]conductor.Binding, 0, len(cfg.Brokers))
	byName := make(map[string]interfaces.Broker, len(cfg.Brokers))
	for _, bc := range cfg.Brokers {
		// Only the simulated adapter ships in-tree; config validation has
		// already rejected anything else.
		brk := brokerobs.Wrap(bc.Name, sim.New(bc.Name, bc.Sim.Accounts, bc.Sim.Symbols))
		bindings = append(bindings, conductor.Binding{Name: bc.Name, Broker: brk})
		byName[bc.Name] = brk
		logger.Info(ctx, "Broker bound", "broker", bc.Name, "kind", bc.Kind, "accounts", bc.Sim.Accounts)
	}
	if cfg.Mode == "DEMO" {
		logger.Warn(ctx, "Running in DEMO mode - all broker data is simulated")
	}
	return bindings, byName
}

// buildOrchestrator wires stores, per-account operations, and the conductor
// with observability
func buildOrchestrator(ctx context.Context, cfg *store.Config, st *sqlite.Store) conductor.Orchestrator {
	bindings, byName := buildBrokers(ctx, cfg)

	svc := ops.NewService(ops.Config{
		Brokers:    byName,
		Orders:     st,
		Trades:     st,
		Quotes:     st,
		History:    st,
		Period:     types.RollupPeriod(cfg.Rollup.Period),
		Lookback:   time.Duration(cfg.Sync.LookbackDays) * 24 * time.Hour,
		FilledOnly: cfg.Sync.FilledOnly,
	})

	return conductorobs.Wrap(conductor.New(bindings, svc))
}

// registerJobs attaches the three sync operations to their cron schedules
func registerJobs(sched *scheduler.Scheduler, cfg *store.Config, orch conductor.Orchestrator) error {
	retry := cfg.Sync.RetryCount
	if err := sched.AddJob(cfg.Sync.ResyncSchedule, scheduler.ResyncJob(orch, cfg.Sync.FastMode, retry)); err != nil {
		return err
	}
	if err := sched.AddJob(cfg.Sync.QuoteSchedule, scheduler.QuoteJob(orch, retry)); err != nil {
		return err
	}
	return sched.AddJob(cfg.Sync.BalanceSchedule, scheduler.BalanceJob(orch, retry))
}
