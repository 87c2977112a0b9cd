package sqlite

import (
	"context"
	"fmt"

	"brokerage-conductor/internal/types"
)

func (s *Store) GetTradeCountForSymbol(ctx context.Context, accountID, symbol string, isLong bool) (int, error) {
	long := 0
	if isLong {
		long = 1
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE account_id = ? AND symbol = ? AND is_long = ?`,
		accountID, symbol, long).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trades for %s: %w", symbol, err)
	}
	return n, nil
}

func (s *Store) UpsertTrade(ctx context.Context, accountID string, trade *types.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (
			account_id, id, symbol, is_long, closed, open_date, close_date,
			open_quantity, cost_basis, open_amount, close_amount,
			realized_gain, unrealized_gain, total_gain, break_even_price,
			fees, order_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, id) DO UPDATE SET
			symbol = excluded.symbol,
			is_long = excluded.is_long,
			closed = excluded.closed,
			open_date = excluded.open_date,
			close_date = excluded.close_date,
			open_quantity = excluded.open_quantity,
			cost_basis = excluded.cost_basis,
			open_amount = excluded.open_amount,
			close_amount = excluded.close_amount,
			realized_gain = excluded.realized_gain,
			unrealized_gain = excluded.unrealized_gain,
			total_gain = excluded.total_gain,
			break_even_price = excluded.break_even_price,
			fees = excluded.fees,
			order_count = excluded.order_count`,
		accountID, trade.ID, trade.Symbol, boolInt(trade.IsLong), boolInt(trade.Closed),
		encodeTime(trade.OpenDate), encodeTime(trade.CloseDate),
		trade.OpenQuantity.String(), trade.CostBasis.String(),
		trade.OpenAmount.String(), trade.CloseAmount.String(),
		trade.RealizedGain.String(), trade.UnrealizedGain.String(),
		trade.TotalGain.String(), trade.BreakEvenPrice.String(),
		trade.Fees.String(), trade.OrderCount)
	if err != nil {
		return fmt.Errorf("upsert trade %s: %w", trade.ID, err)
	}
	return nil
}

func (s *Store) ListOpenTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, is_long, closed, open_date, close_date,
		       open_quantity, cost_basis, open_amount, close_amount,
		       realized_gain, unrealized_gain, total_gain, break_even_price,
		       fees, order_count
		FROM trades
		WHERE account_id = ? AND closed = 0
		ORDER BY open_date, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query open trades: %w", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var t types.Trade
		var isLong, closed int
		var openDate, closeDate string
		var qty, basis, openAmt, closeAmt, realized, unrealized, total, breakEven, fees string
		if err := rows.Scan(&t.ID, &t.Symbol, &isLong, &closed, &openDate, &closeDate,
			&qty, &basis, &openAmt, &closeAmt,
			&realized, &unrealized, &total, &breakEven,
			&fees, &t.OrderCount); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.IsLong = isLong != 0
		t.Closed = closed != 0
		if t.OpenDate, err = decodeTime(openDate); err != nil {
			return nil, fmt.Errorf("decode open_date for %s: %w", t.ID, err)
		}
		if t.CloseDate, err = decodeTime(closeDate); err != nil {
			return nil, fmt.Errorf("decode close_date for %s: %w", t.ID, err)
		}
		if t.OpenQuantity, err = decodeDecimal(qty); err != nil {
			return nil, fmt.Errorf("decode open_quantity for %s: %w", t.ID, err)
		}
		if t.CostBasis, err = decodeDecimal(basis); err != nil {
			return nil, fmt.Errorf("decode cost_basis for %s: %w", t.ID, err)
		}
		if t.OpenAmount, err = decodeDecimal(openAmt); err != nil {
			return nil, fmt.Errorf("decode open_amount for %s: %w", t.ID, err)
		}
		if t.CloseAmount, err = decodeDecimal(closeAmt); err != nil {
			return nil, fmt.Errorf("decode close_amount for %s: %w", t.ID, err)
		}
		if t.RealizedGain, err = decodeDecimal(realized); err != nil {
			return nil, fmt.Errorf("decode realized_gain for %s: %w", t.ID, err)
		}
		if t.UnrealizedGain, err = decodeDecimal(unrealized); err != nil {
			return nil, fmt.Errorf("decode unrealized_gain for %s: %w", t.ID, err)
		}
		if t.TotalGain, err = decodeDecimal(total); err != nil {
			return nil, fmt.Errorf("decode total_gain for %s: %w", t.ID, err)
		}
		if t.BreakEvenPrice, err = decodeDecimal(breakEven); err != nil {
			return nil, fmt.Errorf("decode break_even_price for %s: %w", t.ID, err)
		}
		if t.Fees, err = decodeDecimal(fees); err != nil {
			return nil, fmt.Errorf("decode fees for %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
