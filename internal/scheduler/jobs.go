package scheduler

import (
	"context"
	"errors"

	"brokerage-conductor/internal/conductor"
)

// SyncJob adapts one conductor operation into a schedulable Job. A report
// with failures becomes an error so the scheduler logs it; clean reports are
// silent.
type SyncJob struct {
	name string
	run  func(ctx context.Context) conductor.ConductorError
}

func (j *SyncJob) Name() string { return j.name }

func (j *SyncJob) Run(ctx context.Context) error {
	report := j.run(ctx)
	if report.HasErrors() {
		return errors.New(report.FormatFailures())
	}
	return nil
}

func ResyncJob(orch conductor.Orchestrator, fastMode bool, retryCount int) *SyncJob {
	return &SyncJob{
		name: "resync_brokers",
		run: func(ctx context.Context) conductor.ConductorError {
			return orch.RefreshTheWorld(ctx, fastMode, retryCount)
		},
	}
}

func QuoteJob(orch conductor.Orchestrator, retryCount int) *SyncJob {
	return &SyncJob{
		name: "refresh_quotes",
		run: func(ctx context.Context) conductor.ConductorError {
			return orch.RefreshAllQuotes(ctx, retryCount)
		},
	}
}

func BalanceJob(orch conductor.Orchestrator, retryCount int) *SyncJob {
	return &SyncJob{
		name: "refresh_balances",
		run: func(ctx context.Context) conductor.ConductorError {
			return orch.RefreshAccountBalances(ctx, retryCount)
		},
	}
}
