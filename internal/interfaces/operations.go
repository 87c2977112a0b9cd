package interfaces

import (
	"context"

	"brokerage-conductor/internal/types"
)

// AccountOperations is the per-account dispatch surface the conductor drives.
// Implementations must not retain the account across calls; every call is an
// independent unit of work.
type AccountOperations interface {
	Resync(ctx context.Context, broker string, account types.Account) error
	RefreshQuotes(ctx context.Context, broker string, account types.Account) error
	RefreshBalances(ctx context.Context, broker string, account types.Account) error
}
