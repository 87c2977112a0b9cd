package matching

import (
	"context"
	"testing"

	"brokerage-conductor/internal/types"
)

type fakeOrderStore struct {
	incompleteCalls int
	incomplete      []types.OrderKey
	linkCalls       int
	links           map[types.OrderKey]string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{links: map[types.OrderKey]string{}}
}

func (s *fakeOrderStore) SaveOrders(ctx context.Context, accountID string, orders []types.Order) error {
	return nil
}

func (s *fakeOrderStore) GetOrdersForTrades(ctx context.Context, accountID string) ([]types.Order, error) {
	return nil, nil
}

func (s *fakeOrderStore) OrdersSetIncomplete(ctx context.Context, accountID string, orders []types.Order) error {
	s.incompleteCalls++
	for _, o := range orders {
		s.incomplete = append(s.incomplete, o.Key())
	}
	return nil
}

func (s *fakeOrderStore) TradeSetForOrders(ctx context.Context, accountID string, tradeID string, orders []types.Order) error {
	s.linkCalls++
	for _, o := range orders {
		s.links[o.Key()] = tradeID
	}
	return nil
}

type fakeTradeStore struct {
	upsertCalls int
	trades      map[string]types.Trade
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{trades: map[string]types.Trade{}}
}

func (s *fakeTradeStore) GetTradeCountForSymbol(ctx context.Context, accountID, symbol string, isLong bool) (int, error) {
	return 0, nil
}

func (s *fakeTradeStore) UpsertTrade(ctx context.Context, accountID string, trade *types.Trade) error {
	s.upsertCalls++
	s.trades[trade.ID] = *trade
	return nil
}

func (s *fakeTradeStore) ListOpenTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	return nil, nil
}

var testAccount = types.Account{ID: "acct-1", Broker: "sim"}

func TestApplierWritesResult(t *testing.T) {
	orderStore := newFakeOrderStore()
	tradeStore := newFakeTradeStore()
	applier := NewApplier(orderStore, tradeStore)

	res := Result{
		PartialAtStart: []types.Order{order("p0", types.ActionSell, 5, 9, 0)},
		CompletedTrades: [][]types.Order{{
			order("o1", types.ActionBuy, 100, 10, 1),
			order("o2", types.ActionSell, 100, 12, 2),
		}},
		PartialAtEnd: []types.Order{order("o3", types.ActionBuy, 50, 11, 3)},
	}

	written, err := applier.Apply(context.Background(), testAccount, res, nil)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 written trades (closed + open), got %d", len(written))
	}
	for _, tr := range written {
		if tr.ID == "" {
			t.Error("written trades must carry their assigned id")
		}
	}

	if orderStore.incompleteCalls != 1 || len(orderStore.incomplete) != 1 {
		t.Errorf("expected one incomplete write covering p0, got %d calls", orderStore.incompleteCalls)
	}
	if tradeStore.upsertCalls != 2 {
		t.Errorf("expected 2 trade upserts (closed + open), got %d", tradeStore.upsertCalls)
	}
	closedID := orderStore.links[types.OrderKey{BrokerOrderID: "o1"}]
	if closedID == "" || closedID != orderStore.links[types.OrderKey{BrokerOrderID: "o2"}] {
		t.Error("completed group orders must share one trade id")
	}
	openID := orderStore.links[types.OrderKey{BrokerOrderID: "o3"}]
	if openID == "" || openID == closedID {
		t.Error("open trade must get its own trade id")
	}

	var open, closed int
	for _, tr := range tradeStore.trades {
		if tr.Closed {
			closed++
		} else {
			open++
		}
	}
	if closed != 1 || open != 1 {
		t.Errorf("expected 1 closed and 1 open trade, got %d/%d", closed, open)
	}
}

func TestApplierIsIdempotent(t *testing.T) {
	orderStore := newFakeOrderStore()
	tradeStore := newFakeTradeStore()
	applier := NewApplier(orderStore, tradeStore)

	res := Result{
		PartialAtStart: []types.Order{order("p0", types.ActionSell, 5, 9, 0)},
		CompletedTrades: [][]types.Order{{
			order("o1", types.ActionBuy, 100, 10, 1),
			order("o2", types.ActionSell, 100, 12, 2),
		}},
		PartialAtEnd: []types.Order{order("o3", types.ActionBuy, 50, 11, 3)},
	}
	if _, err := applier.Apply(context.Background(), testAccount, res, nil); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}

	// Re-import with no new orders: the stored flags and links are now
	// visible on the orders the matcher hands back.
	applied := res
	applied.PartialAtStart[0].IncompleteTrade = true
	for i := range applied.CompletedTrades[0] {
		o := &applied.CompletedTrades[0][i]
		o.TradeID = orderStore.links[o.Key()]
	}
	applied.PartialAtEnd[0].TradeID = orderStore.links[applied.PartialAtEnd[0].Key()]

	incompleteBefore := orderStore.incompleteCalls
	upsertsBefore := tradeStore.upsertCalls
	linksBefore := orderStore.linkCalls

	written, err := applier.Apply(context.Background(), testAccount, applied, nil)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("re-apply wrote %d trades, want 0", len(written))
	}

	if orderStore.incompleteCalls != incompleteBefore {
		t.Error("re-apply must not re-flag incomplete orders")
	}
	if tradeStore.upsertCalls != upsertsBefore {
		t.Error("re-apply must not upsert trades again")
	}
	if orderStore.linkCalls != linksBefore {
		t.Error("re-apply must not re-associate orders")
	}
}

func TestApplierUpdatesOpenTradeOnNewOrder(t *testing.T) {
	orderStore := newFakeOrderStore()
	tradeStore := newFakeTradeStore()
	applier := NewApplier(orderStore, tradeStore)

	existing := order("o1", types.ActionBuy, 50, 11, 0)
	existing.TradeID = "trade-open"
	fresh := order("o2", types.ActionBuy, 25, 12, 1)

	res := Result{PartialAtEnd: []types.Order{existing, fresh}}
	written, err := applier.Apply(context.Background(), testAccount, res, nil)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(written) != 1 || written[0].ID != "trade-open" {
		t.Fatalf("expected the open trade back under its existing id, got %+v", written)
	}

	if tradeStore.upsertCalls != 1 {
		t.Fatalf("expected 1 upsert, got %d", tradeStore.upsertCalls)
	}
	tr, ok := tradeStore.trades["trade-open"]
	if !ok {
		t.Fatal("open trade must keep its existing id")
	}
	if tr.OrderCount != 2 {
		t.Errorf("expected open trade re-derived over 2 orders, got %d", tr.OrderCount)
	}
	if got := orderStore.links[fresh.Key()]; got != "trade-open" {
		t.Errorf("new order must join the existing open trade, got %q", got)
	}
}
