package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"brokerage-conductor/internal/types"
)

const historyColumns = `account_id, period, period_end, balance,
	balance_change_amount, balance_change_pct, invested_amount,
	net_gain, net_gain_pct, transfer_amount, transfer_description,
	orders_executed, comment, balance_update_time`

func (s *Store) GetHistoryRow(ctx context.Context, accountID string, period types.RollupPeriod, periodEnd time.Time) (*types.AccountHistory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM account_history
		 WHERE account_id = ? AND period = ? AND period_end = ?`,
		accountID, string(period), encodeTime(periodEnd))
	return scanHistory(row)
}

// GetLatestHistoryRow returns the newest row of any period length ending
// before the given instant, or nil when the account has no history yet.
func (s *Store) GetLatestHistoryRow(ctx context.Context, accountID string, before time.Time) (*types.AccountHistory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM account_history
		 WHERE account_id = ? AND period_end < ?
		 ORDER BY period_end DESC LIMIT 1`,
		accountID, encodeTime(before))
	return scanHistory(row)
}

func (s *Store) SaveHistoryRow(ctx context.Context, r *types.AccountHistory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, period, period_end) DO UPDATE SET
			balance = excluded.balance,
			balance_change_amount = excluded.balance_change_amount,
			balance_change_pct = excluded.balance_change_pct,
			invested_amount = excluded.invested_amount,
			net_gain = excluded.net_gain,
			net_gain_pct = excluded.net_gain_pct,
			transfer_amount = excluded.transfer_amount,
			transfer_description = excluded.transfer_description,
			orders_executed = excluded.orders_executed,
			comment = excluded.comment,
			balance_update_time = excluded.balance_update_time`,
		r.AccountID, string(r.Period), encodeTime(r.PeriodEnd), r.Balance.String(),
		r.BalanceChangeAmount.String(), r.BalanceChangePct.String(), r.InvestedAmount.String(),
		r.NetGain.String(), r.NetGainPct.String(), r.TransferAmount.String(), r.TransferDescription,
		r.OrdersExecuted, r.Comment, encodeTime(r.BalanceUpdateTime))
	if err != nil {
		return fmt.Errorf("save history row: %w", err)
	}
	return nil
}

func scanHistory(row *sql.Row) (*types.AccountHistory, error) {
	var r types.AccountHistory
	var period, periodEnd, balance, changeAmt, changePct, invested string
	var netGain, netGainPct, transfer, updated string
	err := row.Scan(&r.AccountID, &period, &periodEnd, &balance,
		&changeAmt, &changePct, &invested,
		&netGain, &netGainPct, &transfer, &r.TransferDescription,
		&r.OrdersExecuted, &r.Comment, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan history row: %w", err)
	}
	r.Period = types.RollupPeriod(period)
	if r.PeriodEnd, err = decodeTime(periodEnd); err != nil {
		return nil, fmt.Errorf("decode period_end: %w", err)
	}
	if r.BalanceUpdateTime, err = decodeTime(updated); err != nil {
		return nil, fmt.Errorf("decode balance_update_time: %w", err)
	}
	if r.Balance, err = decodeDecimal(balance); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	if r.BalanceChangeAmount, err = decodeDecimal(changeAmt); err != nil {
		return nil, fmt.Errorf("decode balance_change_amount: %w", err)
	}
	if r.BalanceChangePct, err = decodeDecimal(changePct); err != nil {
		return nil, fmt.Errorf("decode balance_change_pct: %w", err)
	}
	if r.InvestedAmount, err = decodeDecimal(invested); err != nil {
		return nil, fmt.Errorf("decode invested_amount: %w", err)
	}
	if r.NetGain, err = decodeDecimal(netGain); err != nil {
		return nil, fmt.Errorf("decode net_gain: %w", err)
	}
	if r.NetGainPct, err = decodeDecimal(netGainPct); err != nil {
		return nil, fmt.Errorf("decode net_gain_pct: %w", err)
	}
	if r.TransferAmount, err = decodeDecimal(transfer); err != nil {
		return nil, fmt.Errorf("decode transfer_amount: %w", err)
	}
	return &r, nil
}
