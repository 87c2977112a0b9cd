package matching

import (
	"fmt"

	"brokerage-conductor/internal/types"
)

// Direction is the side of the market a trade lives on. Long trades are
// built from BUY/SELL executions, short trades from SELL_SHORT/BUY_TO_COVER.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "short"
	}
	return "long"
}

// Policy is the pure mapping from an order action to the sign applied to its
// quantity and the direction its trade belongs to.
type Policy struct {
	Sign      int
	Direction Direction
}

// Opening reports whether an order with this policy increases the magnitude
// of a position rather than reducing it.
func (p Policy) Opening() bool {
	return (p.Sign > 0) == (p.Direction == Long)
}

func Classify(action types.OrderAction) (Policy, error) {
	switch action {
	case types.ActionBuy:
		return Policy{Sign: 1, Direction: Long}, nil
	case types.ActionSell:
		return Policy{Sign: -1, Direction: Long}, nil
	case types.ActionSellShort:
		return Policy{Sign: -1, Direction: Short}, nil
	case types.ActionBuyToCover:
		return Policy{Sign: 1, Direction: Short}, nil
	default:
		return Policy{}, fmt.Errorf("unknown order action %q", action)
	}
}
