package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/types"
)

// pctPlaces is the precision percentage fields are rounded to.
const pctPlaces = 2

// Accumulator carries per-account period analytics forward and accumulates
// transfers into AccountHistory snapshots. One row exists per (account,
// period, period end); a new period's row is seeded from the immediately
// preceding period's row.
type Accumulator struct {
	history interfaces.HistoryStore
	period  types.RollupPeriod
	now     func() time.Time
}

func NewAccumulator(history interfaces.HistoryStore, period types.RollupPeriod) *Accumulator {
	return &Accumulator{history: history, period: period, now: time.Now}
}

// RefreshBalance loads or seeds the current period's row, rebases it on the
// fresh broker balance, and persists it.
func (a *Accumulator) RefreshBalance(ctx context.Context, account types.Account, balance types.Balance, ordersExecuted int) error {
	now := a.now().UTC()
	end := PeriodEnd(now, a.period)

	row, prior, err := a.loadOrSeed(ctx, account.ID, end)
	if err != nil {
		return err
	}

	row.Balance = balance.Total
	row.BalanceChangeAmount = decimal.Zero
	row.BalanceChangePct = decimal.Zero
	if prior != nil {
		row.BalanceChangeAmount = balance.Total.Sub(prior.Balance)
		if !prior.Balance.IsZero() {
			row.BalanceChangePct = row.BalanceChangeAmount.Div(prior.Balance).Mul(decimal.NewFromInt(100)).Round(pctPlaces)
		}
	}
	row.NetGain = balance.Total.Sub(row.InvestedAmount)
	row.NetGainPct = decimal.Zero
	if !row.InvestedAmount.IsZero() {
		row.NetGainPct = row.NetGain.Div(row.InvestedAmount).Mul(decimal.NewFromInt(100)).Round(pctPlaces)
	}
	row.OrdersExecuted = ordersExecuted
	row.BalanceUpdateTime = now

	if err := a.history.SaveHistoryRow(ctx, row); err != nil {
		return fmt.Errorf("save history row: %w", err)
	}

	logger.Debug(ctx, "Balance rolled up",
		"account", account.ID,
		"period_end", end,
		"balance", balance.Total.String(),
		"net_gain", row.NetGain.String(),
	)
	return nil
}

// RecordTransfer adds a transfer into the period row covering the transfer
// time. Amounts sum and descriptions append; nothing is overwritten.
func (a *Accumulator) RecordTransfer(ctx context.Context, account types.Account, amount decimal.Decimal, description string, at time.Time) error {
	end := PeriodEnd(at.UTC(), a.period)

	row, _, err := a.loadOrSeed(ctx, account.ID, end)
	if err != nil {
		return err
	}

	AddTransferAmount(row, amount, description)
	row.InvestedAmount = row.InvestedAmount.Add(amount)

	if err := a.history.SaveHistoryRow(ctx, row); err != nil {
		return fmt.Errorf("save history row: %w", err)
	}
	return nil
}

func (a *Accumulator) loadOrSeed(ctx context.Context, accountID string, end time.Time) (row, prior *types.AccountHistory, err error) {
	row, err = a.history.GetHistoryRow(ctx, accountID, a.period, end)
	if err != nil {
		return nil, nil, fmt.Errorf("load history row: %w", err)
	}
	prior, err = a.history.GetLatestHistoryRow(ctx, accountID, end)
	if err != nil {
		return nil, nil, fmt.Errorf("load prior history row: %w", err)
	}
	if row == nil {
		seeded := Seed(prior, accountID, a.period, end)
		row = &seeded
	}
	return row, prior, nil
}

// Seed builds a new period row carried forward from the prior period's row.
// Balance is copied as a placeholder pending recalculation; transfer fields
// start empty.
func Seed(prior *types.AccountHistory, accountID string, period types.RollupPeriod, periodEnd time.Time) types.AccountHistory {
	row := types.AccountHistory{
		AccountID: accountID,
		Period:    period,
		PeriodEnd: periodEnd,
	}
	if prior != nil {
		row.Balance = prior.Balance
		row.BalanceUpdateTime = prior.BalanceUpdateTime
		row.BalanceChangeAmount = prior.BalanceChangeAmount
		row.BalanceChangePct = prior.BalanceChangePct
		row.InvestedAmount = prior.InvestedAmount
		row.NetGain = prior.NetGain
		row.NetGainPct = prior.NetGainPct
	}
	return row
}

// AddTransferAmount is additive: the amount sums into TransferAmount and a
// non-empty description appends to any existing description joined by ". ".
func AddTransferAmount(row *types.AccountHistory, amount decimal.Decimal, description string) {
	row.TransferAmount = row.TransferAmount.Add(amount)
	if description == "" {
		return
	}
	if row.TransferDescription == "" {
		row.TransferDescription = description
		return
	}
	row.TransferDescription = row.TransferDescription + ". " + description
}

// PeriodEnd returns the last second of the rollup period containing t.
// Weeks end on Sunday; all period math is UTC.
func PeriodEnd(t time.Time, period types.RollupPeriod) time.Time {
	t = t.UTC()
	switch period {
	case types.PeriodWeekly:
		days := (7 - int(t.Weekday())) % 7
		d := t.AddDate(0, 0, days)
		return endOfDay(d)
	case types.PeriodMonthly:
		firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return endOfDay(firstOfNext.AddDate(0, 0, -1))
	default:
		return endOfDay(t)
	}
}

// PeriodStart returns the first instant of the rollup period containing t.
func PeriodStart(t time.Time, period types.RollupPeriod) time.Time {
	t = t.UTC()
	switch period {
	case types.PeriodWeekly:
		daysSinceMonday := (int(t.Weekday()) + 6) % 7
		d := t.AddDate(0, 0, -daysSinceMonday)
		return startOfDay(d)
	case types.PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return startOfDay(t)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
