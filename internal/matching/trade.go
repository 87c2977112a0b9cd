package matching

import (
	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/types"
)

// pricePlaces is the precision break-even prices are rounded to.
const pricePlaces = 4

// BuildTrade derives a trade's aggregate fields from one order group using
// average-cost accounting. quote may be nil; without it open trades carry no
// unrealized gain.
func BuildTrade(group []types.Order, quote *types.Quote) *types.Trade {
	first := group[0]
	pol, _ := Classify(first.Action)
	isLong := pol.Direction == Long

	t := &types.Trade{
		Symbol:     first.Symbol,
		IsLong:     isLong,
		OpenDate:   first.ExecutedTime,
		OrderCount: len(group),
	}

	openQty := decimal.Zero // unsigned open magnitude
	costBasis := decimal.Zero
	openAmount := decimal.Zero
	closeAmount := decimal.Zero
	fees := decimal.Zero
	realized := decimal.Zero

	for _, o := range group {
		qty := o.Quantity.Truncate(types.QuantityPlaces)
		amount := o.OrderAmount
		if amount.IsZero() {
			amount = qty.Mul(o.ExecutedPrice)
		}
		fees = fees.Add(o.Fees)

		p, err := Classify(o.Action)
		if err != nil || p.Direction != pol.Direction {
			continue
		}
		if p.Opening() {
			openQty = openQty.Add(qty)
			costBasis = costBasis.Add(amount)
			openAmount = openAmount.Add(amount)
			continue
		}

		closeAmount = closeAmount.Add(amount)
		if openQty.IsPositive() {
			avg := costBasis.Div(openQty)
			released := avg.Mul(qty)
			costBasis = costBasis.Sub(released)
			openQty = openQty.Sub(qty)
			if isLong {
				realized = realized.Add(amount.Sub(released))
			} else {
				realized = realized.Add(released.Sub(amount))
			}
		}
	}

	t.OpenQuantity = openQty
	t.CostBasis = costBasis
	t.OpenAmount = openAmount
	t.CloseAmount = closeAmount
	t.Fees = fees
	t.RealizedGain = realized
	t.UnrealizedGain = decimal.Zero
	t.BreakEvenPrice = decimal.Zero
	t.Closed = openQty.IsZero()

	if t.Closed {
		t.CloseDate = group[len(group)-1].ExecutedTime
		t.CostBasis = decimal.Zero
		t.TotalGain = realized.Sub(fees)
		return t
	}

	// Break-even: the close price at which the remaining quantity exits the
	// whole trade flat, fees included.
	adj := fees.Sub(realized)
	if !isLong {
		adj = realized.Sub(fees)
	}
	if openQty.IsPositive() {
		t.BreakEvenPrice = costBasis.Add(adj).Div(openQty).Round(pricePlaces)
	}

	if quote != nil && openQty.IsPositive() {
		market := quote.Last.Mul(openQty)
		if isLong {
			t.UnrealizedGain = market.Sub(costBasis)
		} else {
			t.UnrealizedGain = costBasis.Sub(market)
		}
	}
	t.TotalGain = realized.Add(t.UnrealizedGain).Sub(fees)
	return t
}

// UnrealizedForQuote recomputes an open trade's unrealized and total gain
// against a fresh quote. Used by the quote-refresh operation so open trades
// track the market without re-running the matcher.
func UnrealizedForQuote(t *types.Trade, quote types.Quote) {
	if t.Closed || !t.OpenQuantity.IsPositive() {
		return
	}
	market := quote.Last.Mul(t.OpenQuantity)
	if t.IsLong {
		t.UnrealizedGain = market.Sub(t.CostBasis)
	} else {
		t.UnrealizedGain = t.CostBasis.Sub(market)
	}
	t.TotalGain = t.RealizedGain.Add(t.UnrealizedGain).Sub(t.Fees)
}
