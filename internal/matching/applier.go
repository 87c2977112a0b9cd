package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/types"
)

// Applier performs the minimal persistence writes for one match result:
// flag partial-at-start orders incomplete, upsert completed trades and link
// their orders, and maintain the single open trade. Repeated application of
// an already-applied result performs no writes.
type Applier struct {
	orders interfaces.OrderStore
	trades interfaces.TradeStore
}

func NewApplier(orders interfaces.OrderStore, trades interfaces.TradeStore) *Applier {
	return &Applier{orders: orders, trades: trades}
}

// Apply returns the trades it wrote, ids assigned, so callers can journal or
// report them. An already-applied result yields an empty slice.
func (a *Applier) Apply(ctx context.Context, account types.Account, res Result, quote *types.Quote) ([]*types.Trade, error) {
	if toFlag := unflagged(res.PartialAtStart); len(toFlag) > 0 {
		if err := a.orders.OrdersSetIncomplete(ctx, account.ID, toFlag); err != nil {
			return nil, fmt.Errorf("mark orders incomplete: %w", err)
		}
	}

	var written []*types.Trade
	for _, group := range res.CompletedTrades {
		if linkedTogether(group) {
			continue
		}
		trade, err := a.writeTrade(ctx, account, group, quote)
		if err != nil {
			return nil, err
		}
		written = append(written, trade)
	}

	// Only touch the open trade when at least one order is new; re-imports
	// with no new orders stay write-free.
	if len(res.PartialAtEnd) > 0 && !linkedTogether(res.PartialAtEnd) {
		trade, err := a.writeTrade(ctx, account, res.PartialAtEnd, quote)
		if err != nil {
			return nil, err
		}
		written = append(written, trade)
	}
	return written, nil
}

func (a *Applier) writeTrade(ctx context.Context, account types.Account, group []types.Order, quote *types.Quote) (*types.Trade, error) {
	trade := BuildTrade(group, quote)
	trade.ID = groupTradeID(group)
	if err := a.trades.UpsertTrade(ctx, account.ID, trade); err != nil {
		return nil, fmt.Errorf("upsert trade %s: %w", trade.ID, err)
	}
	if err := a.orders.TradeSetForOrders(ctx, account.ID, trade.ID, group); err != nil {
		return nil, fmt.Errorf("link orders to trade %s: %w", trade.ID, err)
	}
	return trade, nil
}

func unflagged(orders []types.Order) []types.Order {
	var out []types.Order
	for _, o := range orders {
		if !o.IncompleteTrade {
			out = append(out, o)
		}
	}
	return out
}

// linkedTogether reports whether every order in the group already carries the
// same non-empty trade id.
func linkedTogether(group []types.Order) bool {
	if len(group) == 0 {
		return true
	}
	id := group[0].TradeID
	if id == "" {
		return false
	}
	for _, o := range group[1:] {
		if o.TradeID != id {
			return false
		}
	}
	return true
}

// groupTradeID reuses an id already linked to any order in the group so the
// upsert re-derives the same trade row; fresh groups get a new id.
func groupTradeID(group []types.Order) string {
	for _, o := range group {
		if o.TradeID != "" {
			return o.TradeID
		}
	}
	return uuid.NewString()
}
