package ops

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/synclog"
	"brokerage-conductor/internal/types"
)

var t0 = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func order(id, symbol string, action types.OrderAction, qty, price string, minute int) types.Order {
	return types.Order{
		BrokerOrderID: id,
		Symbol:        symbol,
		ExecutedTime:  t0.Add(time.Duration(minute) * time.Minute),
		Action:        action,
		Quantity:      dec(qty),
		ExecutedPrice: dec(price),
	}
}

type fakeBroker struct {
	orders  []types.Order
	quotes  []types.Quote
	balance types.Balance

	ordersErr error
	quotesErr error

	lastFrom       *time.Time
	lastFilledOnly bool
	lastSymbols    []string
}

func (b *fakeBroker) GetAccounts(ctx context.Context) ([]types.Account, error) { return nil, nil }

func (b *fakeBroker) GetOrders(ctx context.Context, account types.Account, from *time.Time, filledOnly bool) ([]types.Order, error) {
	b.lastFrom = from
	b.lastFilledOnly = filledOnly
	return b.orders, b.ordersErr
}

func (b *fakeBroker) GetAccountBalance(ctx context.Context, account types.Account) (types.Balance, error) {
	return b.balance, nil
}

func (b *fakeBroker) GetQuotes(ctx context.Context, symbols []string) ([]types.Quote, error) {
	b.lastSymbols = symbols
	return b.quotes, b.quotesErr
}

type fakeOrderStore struct {
	stream     []types.Order
	saved      []types.Order
	incomplete []types.Order
	links      map[types.OrderKey]string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{links: map[types.OrderKey]string{}}
}

func (s *fakeOrderStore) SaveOrders(ctx context.Context, accountID string, orders []types.Order) error {
	s.saved = append(s.saved, orders...)
	s.stream = append(s.stream, orders...)
	return nil
}

func (s *fakeOrderStore) GetOrdersForTrades(ctx context.Context, accountID string) ([]types.Order, error) {
	return s.stream, nil
}

func (s *fakeOrderStore) OrdersSetIncomplete(ctx context.Context, accountID string, orders []types.Order) error {
	s.incomplete = append(s.incomplete, orders...)
	return nil
}

func (s *fakeOrderStore) TradeSetForOrders(ctx context.Context, accountID string, tradeID string, orders []types.Order) error {
	for _, o := range orders {
		s.links[o.Key()] = tradeID
	}
	return nil
}

type fakeTradeStore struct {
	counts  map[string]int // symbol|L or symbol|S
	trades  map[string]*types.Trade
	open    []types.Trade
	upserts int
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{counts: map[string]int{}, trades: map[string]*types.Trade{}}
}

func countKey(symbol string, isLong bool) string {
	if isLong {
		return symbol + "|L"
	}
	return symbol + "|S"
}

func (s *fakeTradeStore) GetTradeCountForSymbol(ctx context.Context, accountID, symbol string, isLong bool) (int, error) {
	return s.counts[countKey(symbol, isLong)], nil
}

func (s *fakeTradeStore) UpsertTrade(ctx context.Context, accountID string, trade *types.Trade) error {
	s.upserts++
	cp := *trade
	s.trades[trade.ID] = &cp
	return nil
}

func (s *fakeTradeStore) ListOpenTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	return s.open, nil
}

type fakeQuoteStore struct {
	quotes map[string]types.Quote
	saved  []types.Quote
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{quotes: map[string]types.Quote{}}
}

func (s *fakeQuoteStore) SaveQuotes(ctx context.Context, quotes []types.Quote) error {
	s.saved = append(s.saved, quotes...)
	for _, q := range quotes {
		s.quotes[q.Symbol] = q
	}
	return nil
}

func (s *fakeQuoteStore) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	return &q, nil
}

type fakeHistoryStore struct {
	rows map[string]*types.AccountHistory
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{rows: map[string]*types.AccountHistory{}}
}

func histKey(accountID string, period types.RollupPeriod, end time.Time) string {
	return accountID + "|" + string(period) + "|" + end.UTC().Format(time.RFC3339)
}

func (s *fakeHistoryStore) GetHistoryRow(ctx context.Context, accountID string, period types.RollupPeriod, periodEnd time.Time) (*types.AccountHistory, error) {
	if r, ok := s.rows[histKey(accountID, period, periodEnd)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeHistoryStore) GetLatestHistoryRow(ctx context.Context, accountID string, before time.Time) (*types.AccountHistory, error) {
	var latest *types.AccountHistory
	for _, r := range s.rows {
		if r.AccountID != accountID || !r.PeriodEnd.Before(before) {
			continue
		}
		if latest == nil || r.PeriodEnd.After(latest.PeriodEnd) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeHistoryStore) SaveHistoryRow(ctx context.Context, row *types.AccountHistory) error {
	cp := *row
	s.rows[histKey(row.AccountID, row.Period, row.PeriodEnd)] = &cp
	return nil
}

type fixture struct {
	svc     *Service
	broker  *fakeBroker
	orders  *fakeOrderStore
	trades  *fakeTradeStore
	quotes  *fakeQuoteStore
	history *fakeHistoryStore
	logDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logDir := t.TempDir()
	t.Setenv("SYNC_LOG_DIR", logDir)
	f := &fixture{
		broker:  &fakeBroker{},
		orders:  newFakeOrderStore(),
		trades:  newFakeTradeStore(),
		quotes:  newFakeQuoteStore(),
		history: newFakeHistoryStore(),
		logDir:  logDir,
	}
	f.svc = NewService(Config{
		Brokers:    map[string]interfaces.Broker{"sim": f.broker},
		Orders:     f.orders,
		Trades:     f.trades,
		Quotes:     f.quotes,
		History:    f.history,
		Period:     types.PeriodDaily,
		Lookback:   30 * 24 * time.Hour,
		FilledOnly: true,
	})
	f.svc.now = func() time.Time { return t0 }
	return f
}

var acct = types.Account{ID: "acct-1", Name: "Main", Broker: "sim"}

func TestResyncImportsAndMatches(t *testing.T) {
	f := newFixture(t)
	f.broker.orders = []types.Order{
		order("o1", "AAPL", types.ActionBuy, "10", "10", 0),
		order("o2", "AAPL", types.ActionSell, "10", "12", 1),
		order("o3", "MSFT", types.ActionBuy, "5", "100", 2),
	}

	if err := f.svc.Resync(context.Background(), "sim", acct); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if !f.broker.lastFilledOnly {
		t.Error("expected filledOnly to propagate to broker fetch")
	}
	if f.broker.lastFrom == nil {
		t.Fatal("expected lookback window on broker fetch")
	}
	if got, want := *f.broker.lastFrom, t0.Add(-30*24*time.Hour); !got.Equal(want) {
		t.Errorf("lookback start = %v, want %v", got, want)
	}
	if len(f.orders.saved) != 3 {
		t.Fatalf("saved %d orders, want 3", len(f.orders.saved))
	}
	// One closed AAPL trade plus the open MSFT position.
	if f.trades.upserts != 2 {
		t.Fatalf("upserts = %d, want 2", f.trades.upserts)
	}
	aaplID := f.orders.links[types.OrderKey{BrokerOrderID: "o1"}]
	if aaplID == "" || aaplID != f.orders.links[types.OrderKey{BrokerOrderID: "o2"}] {
		t.Error("closed trade orders not linked to one trade id")
	}
	if f.trades.trades[aaplID] == nil || !f.trades.trades[aaplID].Closed {
		t.Error("AAPL trade should be closed")
	}
}

func TestResyncJournalsClosedTradeIDs(t *testing.T) {
	f := newFixture(t)
	f.broker.orders = []types.Order{
		order("o1", "AAPL", types.ActionBuy, "10", "10", 0),
		order("o2", "AAPL", types.ActionSell, "10", "12", 1),
		order("o3", "MSFT", types.ActionBuy, "5", "100", 2),
	}

	if err := f.svc.Resync(context.Background(), "sim", acct); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	aaplID := f.orders.links[types.OrderKey{BrokerOrderID: "o1"}]
	if aaplID == "" {
		t.Fatal("closed trade not linked")
	}

	day := time.Now().UTC().Format("2006-01-02")
	b, err := os.ReadFile(filepath.Join(f.logDir, "trades", day+".txt"))
	if err != nil {
		t.Fatalf("read trade journal: %v", err)
	}
	var entries []synclog.TradeEntry
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		var e synclog.TradeEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad journal line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	// Only the closed AAPL trade is journaled; open MSFT is not.
	if len(entries) != 1 {
		t.Fatalf("journaled %d trades, want 1", len(entries))
	}
	got := entries[0]
	if got.TradeID != aaplID {
		t.Errorf("journal trade id = %q, want %q", got.TradeID, aaplID)
	}
	if got.Symbol != "AAPL" || !got.Closed || got.Account != acct.ID {
		t.Errorf("journal entry fields off: %+v", got)
	}
	if got.RealizedGain != "20" {
		t.Errorf("realized gain = %q, want 20", got.RealizedGain)
	}
}

func TestResyncIsolatesSignViolationPerSymbol(t *testing.T) {
	f := newFixture(t)
	// AAPL has existing long trades, so its stream is matched as a
	// continuation and the oversell surfaces as a violation. MSFT is clean.
	f.trades.counts[countKey("AAPL", true)] = 1
	f.broker.orders = []types.Order{
		order("o1", "AAPL", types.ActionBuy, "10", "10", 0),
		order("o2", "AAPL", types.ActionSell, "15", "12", 1),
		order("o3", "MSFT", types.ActionBuy, "5", "100", 2),
		order("o4", "MSFT", types.ActionSell, "5", "110", 3),
	}

	err := f.svc.Resync(context.Background(), "sim", acct)
	if err == nil {
		t.Fatal("expected account-level error")
	}
	if !strings.Contains(err.Error(), "AAPL") {
		t.Errorf("error should name the failed symbol: %v", err)
	}
	// MSFT still matched and persisted.
	msftID := f.orders.links[types.OrderKey{BrokerOrderID: "o3"}]
	if msftID == "" {
		t.Error("MSFT orders should be linked despite AAPL failure")
	}
}

func TestResyncUnknownBroker(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Resync(context.Background(), "nope", acct); err == nil {
		t.Fatal("expected error for unbound broker")
	}
}

func TestRefreshQuotesUpdatesOpenTrades(t *testing.T) {
	f := newFixture(t)
	f.trades.open = []types.Trade{
		{
			ID:           "tr-1",
			Symbol:       "AAPL",
			IsLong:       true,
			OpenQuantity: dec("10"),
			CostBasis:    dec("100"),
		},
	}
	f.broker.quotes = []types.Quote{{Symbol: "AAPL", Last: dec("12"), Time: t0}}

	if err := f.svc.RefreshQuotes(context.Background(), "sim", acct); err != nil {
		t.Fatalf("RefreshQuotes: %v", err)
	}
	if len(f.quotes.saved) != 1 {
		t.Fatalf("saved %d quotes, want 1", len(f.quotes.saved))
	}
	got := f.trades.trades["tr-1"]
	if got == nil {
		t.Fatal("open trade not upserted")
	}
	// 10 shares at 12 against a 100 basis.
	if !got.UnrealizedGain.Equal(dec("20")) {
		t.Errorf("unrealized = %s, want 20", got.UnrealizedGain)
	}
}

func TestRefreshQuotesNoOpenTrades(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.RefreshQuotes(context.Background(), "sim", acct); err != nil {
		t.Fatalf("RefreshQuotes: %v", err)
	}
	if f.broker.lastSymbols != nil {
		t.Error("broker should not be queried with no open trades")
	}
}

func TestRefreshBalancesCountsPeriodOrders(t *testing.T) {
	f := newFixture(t)
	f.broker.balance = types.Balance{AccountID: acct.ID, Total: dec("10500"), AsOf: t0}
	f.orders.stream = []types.Order{
		order("o1", "AAPL", types.ActionBuy, "1", "10", 0),      // today
		order("o2", "AAPL", types.ActionBuy, "1", "10", -24*60), // yesterday
		order("o3", "AAPL", types.ActionSell, "1", "11", 5),     // today
	}

	if err := f.svc.RefreshBalances(context.Background(), "sim", acct); err != nil {
		t.Fatalf("RefreshBalances: %v", err)
	}
	var row *types.AccountHistory
	for _, r := range f.history.rows {
		row = r
	}
	if row == nil {
		t.Fatal("no history row written")
	}
	if !row.Balance.Equal(dec("10500")) {
		t.Errorf("balance = %s, want 10500", row.Balance)
	}
	if row.OrdersExecuted != 2 {
		t.Errorf("orders executed = %d, want 2", row.OrdersExecuted)
	}
}
