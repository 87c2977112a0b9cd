package brokerobs

import (
	"context"
	"time"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/trace"
	"brokerage-conductor/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	name   string
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker adapter with observability middleware. Adapters that
// also implement AccountListRefresher keep that capability through the wrap.
func Wrap(name string, broker interfaces.Broker) interfaces.Broker {
	wrapped := &observableBroker{name: name, broker: broker}
	if refresher, ok := broker.(interfaces.AccountListRefresher); ok {
		return &observableRefreshingBroker{
			observableBroker: wrapped,
			refresher:        refresher,
		}
	}
	return wrapped
}

func (ob *observableBroker) GetAccounts(ctx context.Context) ([]types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccounts")
	defer span.End()

	accounts, err := ob.broker.GetAccounts(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list accounts", err, "broker", ob.name)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Accounts listed", "broker", ob.name, "count", len(accounts))
	return accounts, nil
}

func (ob *observableBroker) GetOrders(ctx context.Context, account types.Account, from *time.Time, filledOnly bool) ([]types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOrders")
	defer span.End()

	orders, err := ob.broker.GetOrders(ctx, account, from, filledOnly)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch orders", err,
			"broker", ob.name,
			"account", account.ID,
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Orders fetched",
		"broker", ob.name,
		"account", account.ID,
		"count", len(orders),
	)
	return orders, nil
}

func (ob *observableBroker) GetAccountBalance(ctx context.Context, account types.Account) (types.Balance, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccountBalance")
	defer span.End()

	balance, err := ob.broker.GetAccountBalance(ctx, account)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err,
			"broker", ob.name,
			"account", account.ID,
		)
		return types.Balance{}, err
	}

	logger.DebugSkip(ctx, 1, "Balance fetched",
		"broker", ob.name,
		"account", account.ID,
		"total", balance.Total.String(),
	)
	return balance, nil
}

func (ob *observableBroker) GetQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetQuotes")
	defer span.End()

	quotes, err := ob.broker.GetQuotes(ctx, symbols)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quotes", err,
			"broker", ob.name,
			"symbols", len(symbols),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Quotes fetched", "broker", ob.name, "count", len(quotes))
	return quotes, nil
}

type observableRefreshingBroker struct {
	*observableBroker
	refresher interfaces.AccountListRefresher
}

var _ interfaces.AccountListRefresher = (*observableRefreshingBroker)(nil)

func (ob *observableRefreshingBroker) RefreshAccountList(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.RefreshAccountList")
	defer span.End()

	if err := ob.refresher.RefreshAccountList(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to refresh account list", err, "broker", ob.name)
		return err
	}
	logger.InfoSkip(ctx, 1, "Account list refreshed", "broker", ob.name)
	return nil
}
