package interfaces

import (
	"context"
	"time"

	"brokerage-conductor/internal/types"
)

// OrderStore persists imported executions and carries the two mutations the
// matching applier is allowed to make: incomplete flags and trade links.
type OrderStore interface {
	SaveOrders(ctx context.Context, accountID string, orders []types.Order) error
	// GetOrdersForTrades returns the account's executions in chronological
	// order, excluding orders already flagged incomplete.
	GetOrdersForTrades(ctx context.Context, accountID string) ([]types.Order, error)
	OrdersSetIncomplete(ctx context.Context, accountID string, orders []types.Order) error
	TradeSetForOrders(ctx context.Context, accountID string, tradeID string, orders []types.Order) error
}

type TradeStore interface {
	GetTradeCountForSymbol(ctx context.Context, accountID, symbol string, isLong bool) (int, error)
	UpsertTrade(ctx context.Context, accountID string, trade *types.Trade) error
	ListOpenTrades(ctx context.Context, accountID string) ([]types.Trade, error)
}

type HistoryStore interface {
	GetHistoryRow(ctx context.Context, accountID string, period types.RollupPeriod, periodEnd time.Time) (*types.AccountHistory, error)
	// GetLatestHistoryRow returns the newest row with PeriodEnd before the
	// given instant, or nil when the account has no history yet.
	GetLatestHistoryRow(ctx context.Context, accountID string, before time.Time) (*types.AccountHistory, error)
	SaveHistoryRow(ctx context.Context, row *types.AccountHistory) error
}

type QuoteStore interface {
	SaveQuotes(ctx context.Context, quotes []types.Quote) error
	GetQuote(ctx context.Context, symbol string) (*types.Quote, error)
}
