package sqlite

import (
	"context"
	"fmt"

	"brokerage-conductor/internal/types"
)

// SaveOrders upserts imported executions. Re-imports of the same execution
// refresh the broker-reported fields but never clobber the matcher-owned
// trade link or incomplete flag.
func (s *Store) SaveOrders(ctx context.Context, accountID string, orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save orders: %w", err)
	}
	defer rollback(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (
			account_id, broker_order_id, broker_order_step, symbol,
			executed_time, action, quantity, executed_price, fees, order_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, broker_order_id, broker_order_step) DO UPDATE SET
			symbol = excluded.symbol,
			executed_time = excluded.executed_time,
			action = excluded.action,
			quantity = excluded.quantity,
			executed_price = excluded.executed_price,
			fees = excluded.fees,
			order_amount = excluded.order_amount`)
	if err != nil {
		return fmt.Errorf("prepare save orders: %w", err)
	}
	defer stmt.Close()

	for _, o := range orders {
		_, err := stmt.ExecContext(ctx,
			accountID, o.BrokerOrderID, o.BrokerOrderStep, o.Symbol,
			encodeTime(o.ExecutedTime), string(o.Action),
			o.Quantity.String(), o.ExecutedPrice.String(),
			o.Fees.String(), o.OrderAmount.String())
		if err != nil {
			return fmt.Errorf("save order %s/%d: %w", o.BrokerOrderID, o.BrokerOrderStep, err)
		}
	}
	return commit(tx, "save orders")
}

// GetOrdersForTrades returns the account's executions in chronological order,
// excluding orders flagged incomplete.
func (s *Store) GetOrdersForTrades(ctx context.Context, accountID string) ([]types.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT broker_order_id, broker_order_step, symbol, executed_time,
		       action, quantity, executed_price, fees, order_amount,
		       trade_id, incomplete_trade
		FROM orders
		WHERE account_id = ? AND incomplete_trade = 0
		ORDER BY executed_time, broker_order_id, broker_order_step`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []types.Order
	for rows.Next() {
		var o types.Order
		var executed, action, qty, price, fees, amount string
		var incomplete int
		if err := rows.Scan(&o.BrokerOrderID, &o.BrokerOrderStep, &o.Symbol, &executed,
			&action, &qty, &price, &fees, &amount, &o.TradeID, &incomplete); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Action = types.OrderAction(action)
		o.IncompleteTrade = incomplete != 0
		if o.ExecutedTime, err = decodeTime(executed); err != nil {
			return nil, fmt.Errorf("decode executed_time for %s: %w", o.BrokerOrderID, err)
		}
		if o.Quantity, err = decodeDecimal(qty); err != nil {
			return nil, fmt.Errorf("decode quantity for %s: %w", o.BrokerOrderID, err)
		}
		if o.ExecutedPrice, err = decodeDecimal(price); err != nil {
			return nil, fmt.Errorf("decode price for %s: %w", o.BrokerOrderID, err)
		}
		if o.Fees, err = decodeDecimal(fees); err != nil {
			return nil, fmt.Errorf("decode fees for %s: %w", o.BrokerOrderID, err)
		}
		if o.OrderAmount, err = decodeDecimal(amount); err != nil {
			return nil, fmt.Errorf("decode amount for %s: %w", o.BrokerOrderID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) OrdersSetIncomplete(ctx context.Context, accountID string, orders []types.Order) error {
	return s.updateOrders(ctx, accountID, orders,
		`UPDATE orders SET incomplete_trade = 1
		 WHERE account_id = ? AND broker_order_id = ? AND broker_order_step = ?`)
}

func (s *Store) TradeSetForOrders(ctx context.Context, accountID string, tradeID string, orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link orders: %w", err)
	}
	defer rollback(tx)

	for _, o := range orders {
		_, err := tx.ExecContext(ctx,
			`UPDATE orders SET trade_id = ?
			 WHERE account_id = ? AND broker_order_id = ? AND broker_order_step = ?`,
			tradeID, accountID, o.BrokerOrderID, o.BrokerOrderStep)
		if err != nil {
			return fmt.Errorf("link order %s/%d: %w", o.BrokerOrderID, o.BrokerOrderStep, err)
		}
	}
	return commit(tx, "link orders")
}

func (s *Store) updateOrders(ctx context.Context, accountID string, orders []types.Order, query string) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update orders: %w", err)
	}
	defer rollback(tx)

	for _, o := range orders {
		if _, err := tx.ExecContext(ctx, query, accountID, o.BrokerOrderID, o.BrokerOrderStep); err != nil {
			return fmt.Errorf("update order %s/%d: %w", o.BrokerOrderID, o.BrokerOrderStep, err)
		}
	}
	return commit(tx, "update orders")
}
