package main

import (
	"context"
	"flag"
	"fmt"
	"log"
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
	"brokerage-conductor/internal/storage/sqlite"
	"brokerage-conductor/internal/store"
	"brokerage-conductor/internal/types"
)

// resync is the one-shot CLI: run a single operation across every account and
// print the failure report, exiting non-zero when anything failed.
func main() {
	opFlag := flag.String("op", "resync", "operation: resync, quotes or balances")
	configFlag := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	cfg, err := store.LoadConfig(*configFlag)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	st := sqlite.NewStore(db)

	bindings := make([]conductor.Binding, 0, len(cfg.Brokers))
	byName := make(map[string]interfaces.Broker, len(cfg.Brokers))
	for _, bc := range cfg.Brokers {
		brk := brokerobs.Wrap(bc.Name, sim.New(bc.Name, bc.Sim.Accounts, bc.Sim.Symbols))
		bindings = append(bindings, conductor.Binding{Name: bc.Name, Broker: brk})
		byName[bc.Name] = brk
	}

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
	orch := conductorobs.Wrap(conductor.New(bindings, svc))

	var report conductor.ConductorError
	switch *opFlag {
	case "resync":
		report = orch.RefreshTheWorld(ctx, cfg.Sync.FastMode, cfg.Sync.RetryCount)
	case "quotes":
		report = orch.RefreshAllQuotes(ctx, cfg.Sync.RetryCount)
	case "balances":
		report = orch.RefreshAccountBalances(ctx, cfg.Sync.RetryCount)
	default:
		log.Fatalf("unknown operation %q", *opFlag)
	}

	if report.HasErrors() {
		fmt.Fprintln(os.Stderr, report.FormatFailures())
		os.Exit(1)
	}
	fmt.Println("all accounts synced")
}
