package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"brokerage-conductor/internal/interfaces"
	"brokerage-conductor/internal/logger"
	"brokerage-conductor/internal/matching"
	"brokerage-conductor/internal/rollup"
	"brokerage-conductor/internal/synclog"
	"brokerage-conductor/internal/types"
)

// Service implements the conductor's per-account dispatch surface: the resync
// import pipeline, quote refresh, and balance rollup. One instance serves all
// brokers; accounts are independent units of work.
type Service struct {
	brokers map[string]interfaces.Broker
	orders  interfaces.OrderStore
	trades  interfaces.TradeStore
	quotes  interfaces.QuoteStore

	applier *matching.Applier
	rollup  *rollup.Accumulator
	period  types.RollupPeriod

	lookback   time.Duration // how far back order imports reach; 0 means full history
	filledOnly bool
	now        func() time.Time
}

var _ interfaces.AccountOperations = (*Service)(nil)

type Config struct {
	Brokers    map[string]interfaces.Broker
	Orders     interfaces.OrderStore
	Trades     interfaces.TradeStore
	Quotes     interfaces.QuoteStore
	History    interfaces.HistoryStore
	Period     types.RollupPeriod
	Lookback   time.Duration
	FilledOnly bool
}

func NewService(cfg Config) *Service {
	return &Service{
		brokers:    cfg.Brokers,
		orders:     cfg.Orders,
		trades:     cfg.Trades,
		quotes:     cfg.Quotes,
		applier:    matching.NewApplier(cfg.Orders, cfg.Trades),
		rollup:     rollup.NewAccumulator(cfg.History, cfg.Period),
		period:     cfg.Period,
		lookback:   cfg.Lookback,
		filledOnly: cfg.FilledOnly,
		now:        time.Now,
	}
}

func (s *Service) broker(name string) (interfaces.Broker, error) {
	brk, ok := s.brokers[name]
	if !ok {
		return nil, fmt.Errorf("no adapter bound for broker %q", name)
	}
	return brk, nil
}

// Resync imports fresh executions for one account and re-runs trade matching
// over the full stream. A sign violation aborts only its symbol; sibling
// symbols continue, and the account fails with a summary error so the
// conductor can retry it.
func (s *Service) Resync(ctx context.Context, brokerName string, account types.Account) error {
	brk, err := s.broker(brokerName)
	if err != nil {
		return err
	}

	var from *time.Time
	if s.lookback > 0 {
		t := s.now().Add(-s.lookback)
		from = &t
	}
	imported, err := brk.GetOrders(ctx, account, from, s.filledOnly)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	if len(imported) > 0 {
		if err := s.orders.SaveOrders(ctx, account.ID, imported); err != nil {
			return fmt.Errorf("save orders: %w", err)
		}
	}

	stream, err := s.orders.GetOrdersForTrades(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("load order stream: %w", err)
	}

	var failedSymbols []string
	for _, sym := range symbolsInOrder(stream) {
		if err := s.matchSymbol(ctx, account, sym, bySymbol(stream, sym)); err != nil {
			var sv *matching.SignViolationError
			if errors.As(err, &sv) {
				logger.ErrorWithErr(ctx, "Symbol matching aborted", err,
					"account", account.ID,
					"symbol", sym,
				)
				failedSymbols = append(failedSymbols, sym)
				continue
			}
			return err
		}
	}
	if len(failedSymbols) > 0 {
		sort.Strings(failedSymbols)
		return fmt.Errorf("matching failed for %d symbol(s): %s",
			len(failedSymbols), strings.Join(failedSymbols, ", "))
	}
	return nil
}

func (s *Service) matchSymbol(ctx context.Context, account types.Account, symbol string, orders []types.Order) error {
	existingLong, err := s.trades.GetTradeCountForSymbol(ctx, account.ID, symbol, true)
	if err != nil {
		return fmt.Errorf("count long trades for %s: %w", symbol, err)
	}
	existingShort, err := s.trades.GetTradeCountForSymbol(ctx, account.ID, symbol, false)
	if err != nil {
		return fmt.Errorf("count short trades for %s: %w", symbol, err)
	}

	res, err := matching.Match(orders, matching.Existing{
		Long:  existingLong > 0,
		Short: existingShort > 0,
	})
	if err != nil {
		return err
	}

	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "No quote for symbol during resync", "symbol", symbol, "error", err)
		quote = nil
	}

	written, err := s.applier.Apply(ctx, account, res, quote)
	if err != nil {
		return fmt.Errorf("apply match result for %s: %w", symbol, err)
	}

	logger.MatchOutcome(ctx, symbol,
		len(res.CompletedTrades), len(res.PartialAtEnd), len(res.PartialAtStart),
		"account", account.ID,
	)
	for _, trade := range written {
		if !trade.Closed {
			continue
		}
		_ = synclog.AppendTrade(synclog.TradeEntry{
			Account:      account.ID,
			Symbol:       symbol,
			TradeID:      trade.ID,
			IsLong:       trade.IsLong,
			Closed:       trade.Closed,
			Orders:       trade.OrderCount,
			RealizedGain: trade.RealizedGain.String(),
		})
	}
	return nil
}

// RefreshQuotes pulls quotes for every symbol with an open trade and
// recomputes those trades' unrealized gains.
func (s *Service) RefreshQuotes(ctx context.Context, brokerName string, account types.Account) error {
	brk, err := s.broker(brokerName)
	if err != nil {
		return err
	}

	open, err := s.trades.ListOpenTrades(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(open))
	seen := map[string]bool{}
	for _, t := range open {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}

	quotes, err := brk.GetQuotes(ctx, symbols)
	if err != nil {
		return fmt.Errorf("fetch quotes: %w", err)
	}
	if err := s.quotes.SaveQuotes(ctx, quotes); err != nil {
		return fmt.Errorf("save quotes: %w", err)
	}

	byName := make(map[string]types.Quote, len(quotes))
	for _, q := range quotes {
		byName[q.Symbol] = q
	}
	for i := range open {
		q, ok := byName[open[i].Symbol]
		if !ok {
			continue
		}
		matching.UnrealizedForQuote(&open[i], q)
		if err := s.trades.UpsertTrade(ctx, account.ID, &open[i]); err != nil {
			return fmt.Errorf("update open trade %s: %w", open[i].ID, err)
		}
	}
	return nil
}

// RefreshBalances fetches the account's balance and feeds the rollup
// accumulator.
func (s *Service) RefreshBalances(ctx context.Context, brokerName string, account types.Account) error {
	brk, err := s.broker(brokerName)
	if err != nil {
		return err
	}

	balance, err := brk.GetAccountBalance(ctx, account)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}

	executed, err := s.ordersExecutedThisPeriod(ctx, account)
	if err != nil {
		return err
	}
	return s.rollup.RefreshBalance(ctx, account, balance, executed)
}

func (s *Service) ordersExecutedThisPeriod(ctx context.Context, account types.Account) (int, error) {
	stream, err := s.orders.GetOrdersForTrades(ctx, account.ID)
	if err != nil {
		return 0, fmt.Errorf("load order stream: %w", err)
	}
	start := rollup.PeriodStart(s.now(), s.period)
	count := 0
	for _, o := range stream {
		if !o.ExecutedTime.Before(start) {
			count++
		}
	}
	return count, nil
}

// symbolsInOrder returns each symbol once, in first-appearance order, so
// matching is deterministic run to run.
func symbolsInOrder(orders []types.Order) []string {
	var out []string
	seen := map[string]bool{}
	for _, o := range orders {
		if !seen[o.Symbol] {
			seen[o.Symbol] = true
			out = append(out, o.Symbol)
		}
	}
	return out
}

func bySymbol(orders []types.Order, symbol string) []types.Order {
	var out []types.Order
	for _, o := range orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}
