package matching

import (
	"testing"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/types"
)

func withFees(o types.Order, fees float64) types.Order {
	o.Fees = decimal.NewFromFloat(fees)
	return o
}

func expectDecimal(t *testing.T, label string, got decimal.Decimal, want float64) {
	t.Helper()
	if !got.Equal(decimal.NewFromFloat(want)) {
		t.Errorf("%s: expected %v, got %s", label, want, got)
	}
}

func TestBuildTradeClosedLong(t *testing.T) {
	group := []types.Order{
		withFees(order("o1", types.ActionBuy, 100, 10, 0), 1),
		withFees(order("o2", types.ActionSell, 100, 12, 5), 1),
	}

	tr := BuildTrade(group, nil)

	if !tr.Closed {
		t.Fatal("expected closed trade")
	}
	if !tr.IsLong {
		t.Error("expected long trade")
	}
	expectDecimal(t, "OpenAmount", tr.OpenAmount, 1000)
	expectDecimal(t, "CloseAmount", tr.CloseAmount, 1200)
	expectDecimal(t, "RealizedGain", tr.RealizedGain, 200)
	expectDecimal(t, "Fees", tr.Fees, 2)
	expectDecimal(t, "TotalGain", tr.TotalGain, 198)
	expectDecimal(t, "OpenQuantity", tr.OpenQuantity, 0)
	if tr.OrderCount != 2 {
		t.Errorf("expected 2 orders, got %d", tr.OrderCount)
	}
	if !tr.OpenDate.Equal(group[0].ExecutedTime) || !tr.CloseDate.Equal(group[1].ExecutedTime) {
		t.Error("open/close dates should come from first/last order")
	}
}

func TestBuildTradeClosedShort(t *testing.T) {
	group := []types.Order{
		order("s1", types.ActionSellShort, 10, 20, 0),
		order("s2", types.ActionBuyToCover, 10, 18, 5),
	}

	tr := BuildTrade(group, nil)

	if !tr.Closed || tr.IsLong {
		t.Fatal("expected closed short trade")
	}
	expectDecimal(t, "RealizedGain", tr.RealizedGain, 20)
	expectDecimal(t, "TotalGain", tr.TotalGain, 20)
}

func TestBuildTradeOpenWithQuote(t *testing.T) {
	group := []types.Order{
		withFees(order("o1", types.ActionBuy, 50, 11, 0), 1),
	}
	quote := &types.Quote{Symbol: "AAPL", Last: decimal.NewFromInt(12)}

	tr := BuildTrade(group, quote)

	if tr.Closed {
		t.Fatal("expected open trade")
	}
	expectDecimal(t, "OpenQuantity", tr.OpenQuantity, 50)
	expectDecimal(t, "CostBasis", tr.CostBasis, 550)
	expectDecimal(t, "UnrealizedGain", tr.UnrealizedGain, 50)
	expectDecimal(t, "TotalGain", tr.TotalGain, 49)
	// 50 shares must exit at (550 + 1) / 50 to leave the trade flat.
	expectDecimal(t, "BreakEvenPrice", tr.BreakEvenPrice, 11.02)
	if !tr.CloseDate.IsZero() {
		t.Error("open trade must have zero close date")
	}
}

func TestBuildTradePartialClose(t *testing.T) {
	group := []types.Order{
		order("o1", types.ActionBuy, 100, 10, 0),
		order("o2", types.ActionSell, 40, 12, 5),
	}

	tr := BuildTrade(group, nil)

	if tr.Closed {
		t.Fatal("expected open trade")
	}
	expectDecimal(t, "OpenQuantity", tr.OpenQuantity, 60)
	expectDecimal(t, "RealizedGain", tr.RealizedGain, 80) // 40 * (12 - 10)
	expectDecimal(t, "CostBasis", tr.CostBasis, 600)
	// remaining 60 shares carry basis 600, minus 80 already realized.
	expectDecimal(t, "BreakEvenPrice", tr.BreakEvenPrice, 8.6667)
}

func TestUnrealizedForQuote(t *testing.T) {
	tr := &types.Trade{
		IsLong:       true,
		OpenQuantity: decimal.NewFromInt(10),
		CostBasis:    decimal.NewFromInt(100),
		RealizedGain: decimal.Zero,
		Fees:         decimal.NewFromInt(1),
	}

	UnrealizedForQuote(tr, types.Quote{Last: decimal.NewFromInt(12)})

	expectDecimal(t, "UnrealizedGain", tr.UnrealizedGain, 20)
	expectDecimal(t, "TotalGain", tr.TotalGain, 19)

	closed := &types.Trade{Closed: true}
	UnrealizedForQuote(closed, types.Quote{Last: decimal.NewFromInt(12)})
	expectDecimal(t, "closed UnrealizedGain", closed.UnrealizedGain, 0)
}
