package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/types"
)

// epoch anchors all generated execution times so repeated syncs see the same
// history.
var epoch = time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)

// Broker is a deterministic in-memory adapter for demo mode and tests. All
// values derive from FNV hashes of the account and symbol names, so two runs
// against the same config produce byte-identical histories. It never errors.
type Broker struct {
	name     string
	accounts int
	symbols  []string
}

var (
	_ interfaces.Broker               = (*Broker)(nil)
	_ interfaces.AccountListRefresher = (*Broker)(nil)
)

func New(name string, accounts int, symbols []string) *Broker {
	return &Broker{name: name, accounts: accounts, symbols: symbols}
}

func (b *Broker) RefreshAccountList(ctx context.Context) error { return nil }

func (b *Broker) GetAccounts(ctx context.Context) ([]types.Account, error) {
	out := make([]types.Account, 0, b.accounts)
	for i := 1; i <= b.accounts; i++ {
		id := fmt.Sprintf("%s-%03d", b.name, i)
		out = append(out, types.Account{
			ID:     id,
			Name:   fmt.Sprintf("Simulated account %d", i),
			Broker: b.name,
		})
	}
	return out, nil
}

// GetOrders generates, per symbol, one closed round trip followed by an open
// lot for accounts whose hash says so. Times step forward from the epoch so
// the stream is chronological across symbols.
func (b *Broker) GetOrders(ctx context.Context, account types.Account, from *time.Time, filledOnly bool) ([]types.Order, error) {
	var out []types.Order
	for si, symbol := range b.symbols {
		h := seed(account.ID, symbol)
		price := basePrice(h)
		qty := decimal.NewFromInt(int64(1 + h%20))
		base := epoch.Add(time.Duration(si) * time.Hour)

		buy := order(account.ID, symbol, 2*si, types.ActionBuy, qty, price, base)
		sellPrice := price.Add(decimal.NewFromInt(int64(h % 7)))
		sell := order(account.ID, symbol, 2*si+1, types.ActionSell, qty, sellPrice, base.Add(20*time.Minute))
		out = append(out, buy, sell)

		if h%3 != 0 {
			open := order(account.ID, symbol, 2*si+100, types.ActionBuy, qty, sellPrice, base.Add(40*time.Minute))
			out = append(out, open)
		}
	}
	if from != nil {
		filtered := out[:0]
		for _, o := range out {
			if !o.ExecutedTime.Before(*from) {
				filtered = append(filtered, o)
			}
		}
		out = filtered
	}
	return out, nil
}

func (b *Broker) GetAccountBalance(ctx context.Context, account types.Account) (types.Balance, error) {
	h := seed(account.ID, "")
	total := decimal.NewFromInt(int64(10_000 + h%90_000))
	return types.Balance{
		AccountID: account.ID,
		Cash:      total.Div(decimal.NewFromInt(4)).Round(2),
		Total:     total,
		AsOf:      time.Now().UTC(),
	}, nil
}

func (b *Broker) GetQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	now := time.Now().UTC()
	out := make([]types.Quote, 0, len(symbols))
	for _, symbol := range symbols {
		h := seed(symbol, "quote")
		out = append(out, types.Quote{
			Symbol: symbol,
			Last:   basePrice(h).Add(decimal.NewFromInt(int64(h % 11))),
			Time:   now,
		})
	}
	return out, nil
}

func order(accountID, symbol string, n int, action types.OrderAction, qty, price decimal.Decimal, at time.Time) types.Order {
	return types.Order{
		BrokerOrderID: fmt.Sprintf("sim-%s-%s-%d", accountID, symbol, n),
		Symbol:        symbol,
		ExecutedTime:  at,
		Action:        action,
		Quantity:      qty,
		ExecutedPrice: price,
		Fees:          decimal.NewFromInt(1),
		OrderAmount:   qty.Mul(price),
	}
}

func seed(a, b string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return h.Sum32()
}

func basePrice(h uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(20 + h%380))
}
