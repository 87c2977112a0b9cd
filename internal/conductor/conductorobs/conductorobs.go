package conductorobs

import (
	"context"

	"brokerage-conductor/internal/conductor"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/trace"
)

// observableOrchestrator wraps an Orchestrator with observability (logging &
// tracing)
type observableOrchestrator struct {
	inner conductor.Orchestrator
}

// Compile-time interface check
var _ conductor.Orchestrator = (*observableOrchestrator)(nil)

// Wrap wraps an orchestrator with observability middleware
func Wrap(inner conductor.Orchestrator) conductor.Orchestrator {
	return &observableOrchestrator{inner: inner}
}

func (o *observableOrchestrator) ExecuteOperation(ctx context.Context, op conductor.OperationType, fastMode bool, retryCount int) conductor.ConductorError {
	ctx, span := trace.StartSpan(ctx, "conductor.ExecuteOperation")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Executing operation",
		"operation", op.String(),
		"fast_mode", fastMode,
		"retry_count", retryCount,
	)

	report := o.inner.ExecuteOperation(ctx, op, fastMode, retryCount)
	o.report(ctx, op.String(), report)
	return report
}

func (o *observableOrchestrator) RefreshTheWorld(ctx context.Context, fastMode bool, retryCount int) conductor.ConductorError {
	ctx, span := trace.StartSpan(ctx, "conductor.RefreshTheWorld")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Refreshing the world", "fast_mode", fastMode, "retry_count", retryCount)

	report := o.inner.RefreshTheWorld(ctx, fastMode, retryCount)
	o.report(ctx, "refresh_the_world", report)
	return report
}

func (o *observableOrchestrator) RefreshAccountBalances(ctx context.Context, retryCount int) conductor.ConductorError {
	ctx, span := trace.StartSpan(ctx, "conductor.RefreshAccountBalances")
	defer span.End()

	report := o.inner.RefreshAccountBalances(ctx, retryCount)
	o.report(ctx, "refresh_account_balances", report)
	return report
}

func (o *observableOrchestrator) RefreshAllQuotes(ctx context.Context, retryCount int) conductor.ConductorError {
	ctx, span := trace.StartSpan(ctx, "conductor.RefreshAllQuotes")
	defer span.End()

	report := o.inner.RefreshAllQuotes(ctx, retryCount)
	o.report(ctx, "refresh_all_quotes", report)
	return report
}

func (o *observableOrchestrator) report(ctx context.Context, operation string, report conductor.ConductorError) {
	if !report.HasErrors() {
		logger.InfoSkip(ctx, 2, "Operation completed cleanly", "operation", operation)
		return
	}
	logger.InfoSkip(ctx, 2, "Operation completed with failures",
		"operation", operation,
		"report", report.FormatFailures(),
	)
}
