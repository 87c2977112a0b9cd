package interfaces

import (
	"context"
	"time"

	"brokerage-conductor/internal/types"
)

// Broker is the capability set consumed per account. Any adapter satisfying
// it, live or simulated, is interchangeable by the conductor.
type Broker interface {
	GetAccounts(ctx context.Context) ([]types.Account, error)
	GetOrders(ctx context.Context, account types.Account, from *time.Time, filledOnly bool) ([]types.Order, error)
	GetAccountBalance(ctx context.Context, account types.Account) (types.Balance, error)
	GetQuotes(ctx context.Context, symbols []string) ([]types.Quote, error)
}

// AccountListRefresher is implemented by adapters that can ask the broker to
// rebuild its account list server-side before a resynchronization.
type AccountListRefresher interface {
	RefreshAccountList(ctx context.Context) error
}
