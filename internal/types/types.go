package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the number of decimal places order quantities are
// normalized to. Brokers report fractional shares to at most four places;
// every quantity entering the system is truncated to this precision so that
// running-sum comparisons against zero are exact.
const QuantityPlaces = 4

type OrderAction string

const (
	ActionBuy        OrderAction = "BUY"
	ActionSell       OrderAction = "SELL"
	ActionSellShort  OrderAction = "SELL_SHORT"
	ActionBuyToCover OrderAction = "BUY_TO_COVER"
)

// Order is an immutable execution record imported from a broker. Only
// TradeID and IncompleteTrade are mutated after import, and only by the
// matching applier.
type Order struct {
	BrokerOrderID   string
	BrokerOrderStep int // sub-step index for combo fills
	Symbol          string
	ExecutedTime    time.Time
	Action          OrderAction
	Quantity        decimal.Decimal // unsigned magnitude; sign derives from Action
	ExecutedPrice   decimal.Decimal
	Fees            decimal.Decimal
	OrderAmount     decimal.Decimal
	TradeID         string // empty until matching links the order to a trade
	IncompleteTrade bool   // excluded from future matching
}

// OrderKey identifies an execution uniquely within one account.
type OrderKey struct {
	BrokerOrderID   string
	BrokerOrderStep int
}

func (o Order) Key() OrderKey {
	return OrderKey{BrokerOrderID: o.BrokerOrderID, BrokerOrderStep: o.BrokerOrderStep}
}

// Trade aggregates a contiguous run of same-symbol, same-direction orders
// whose signed quantities sum to exactly zero (closed) or do not yet (open).
type Trade struct {
	ID             string
	Symbol         string
	IsLong         bool
	Closed         bool
	OpenDate       time.Time
	CloseDate      time.Time // zero value while the trade is open
	OpenQuantity   decimal.Decimal
	CostBasis      decimal.Decimal // remaining basis of the open quantity
	OpenAmount     decimal.Decimal // total paid opening the position
	CloseAmount    decimal.Decimal // total received closing the position
	RealizedGain   decimal.Decimal
	UnrealizedGain decimal.Decimal
	TotalGain      decimal.Decimal
	BreakEvenPrice decimal.Decimal
	Fees           decimal.Decimal
	OrderCount     int
}

type Account struct {
	ID     string
	Name   string
	Broker string
}

type Balance struct {
	AccountID string
	Cash      decimal.Decimal
	Total     decimal.Decimal
	AsOf      time.Time
}

type Quote struct {
	Symbol string
	Last   decimal.Decimal
	Time   time.Time
}

// RollupPeriod is the granularity account balance snapshots aggregate over.
type RollupPeriod string

const (
	PeriodDaily   RollupPeriod = "DAILY"
	PeriodWeekly  RollupPeriod = "WEEKLY"
	PeriodMonthly RollupPeriod = "MONTHLY"
)

// AccountHistory is one rollup snapshot per (account, period, period end).
// A new period's row is seeded from the immediately preceding period's row,
// and transfer fields accumulate additively within a period.
type AccountHistory struct {
	AccountID           string
	Period              RollupPeriod
	PeriodEnd           time.Time
	Balance             decimal.Decimal
	BalanceChangeAmount decimal.Decimal
	BalanceChangePct    decimal.Decimal
	InvestedAmount      decimal.Decimal
	NetGain             decimal.Decimal
	NetGainPct          decimal.Decimal
	TransferAmount      decimal.Decimal
	TransferDescription string
	OrdersExecuted      int
	Comment             string
	BalanceUpdateTime   time.Time
}
