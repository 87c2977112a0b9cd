package matching

import (
	"fmt"

	"github.com/shopspring/decimal"

	"brokerage-conductor/internal/types"
)

// Result is the matcher's output for one (account, symbol) order stream.
// PartialAtStart holds orders truncated by the start of available history,
// CompletedTrades holds one group per closed trade in original order, and
// PartialAtEnd holds the currently open trade's orders.
type Result struct {
	PartialAtStart  []types.Order
	CompletedTrades [][]types.Order
	PartialAtEnd    []types.Order
}

// Existing says whether the (account, symbol) already has persisted trades in
// each direction. A direction with existing trades is matched as a
// continuation from index 0 instead of scanning for a fresh start index.
type Existing struct {
	Long  bool
	Short bool
}

// SignViolationError reports an inconsistent order sequence: a long running
// sum going negative or a short running sum going positive. It is fatal for
// its symbol only; callers log it and continue with sibling symbols.
type SignViolationError struct {
	Symbol          string
	BrokerOrderID   string
	BrokerOrderStep int
	Direction       Direction
}

func (e *SignViolationError) Error() string {
	return fmt.Sprintf("inconsistent order sequence for %s (%s) at order %s step %d",
		e.Symbol, e.Direction, e.BrokerOrderID, e.BrokerOrderStep)
}

// Match reconstructs trades from one symbol's chronological executions.
// Pure: no I/O, input slices are not mutated.
func Match(orders []types.Order, existing Existing) (Result, error) {
	var long, short []types.Order
	for _, o := range orders {
		pol, err := Classify(o.Action)
		if err != nil {
			return Result{}, err
		}
		if pol.Direction == Long {
			long = append(long, o)
		} else {
			short = append(short, o)
		}
	}

	var res Result
	if err := matchDirection(long, Long, existing.Long, &res); err != nil {
		return Result{}, err
	}
	if err := matchDirection(short, Short, existing.Short, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

func matchDirection(orders []types.Order, dir Direction, continuation bool, res *Result) error {
	if len(orders) == 0 {
		return nil
	}

	start := 0
	if !continuation {
		start = findStartIndex(orders, dir)
		if start < 0 {
			// No start index yields a well-formed trade run. Keep the longest
			// sign-consistent suffix as the open trade and park the rest.
			s := longestConsistentSuffix(orders, dir)
			res.PartialAtStart = append(res.PartialAtStart, orders[:s]...)
			res.PartialAtEnd = append(res.PartialAtEnd, orders[s:]...)
			return nil
		}
		res.PartialAtStart = append(res.PartialAtStart, orders[:start]...)
	}

	sum := decimal.Zero
	groupStart := start
	for i := start; i < len(orders); i++ {
		sum = sum.Add(signedQuantity(orders[i]))
		if violates(sum, dir) {
			return &SignViolationError{
				Symbol:          orders[i].Symbol,
				BrokerOrderID:   orders[i].BrokerOrderID,
				BrokerOrderStep: orders[i].BrokerOrderStep,
				Direction:       dir,
			}
		}
		if sum.IsZero() {
			group := make([]types.Order, i+1-groupStart)
			copy(group, orders[groupStart:i+1])
			res.CompletedTrades = append(res.CompletedTrades, group)
			groupStart = i + 1
		}
	}
	if groupStart < len(orders) {
		res.PartialAtEnd = append(res.PartialAtEnd, orders[groupStart:]...)
	}
	return nil
}

// findStartIndex returns the first index from which the forward accumulation
// touches exactly zero at least once and never violates the direction's sign
// constraint through the end of the list, or -1 when no index qualifies.
// First validating index wins; downstream behavior on ambiguous histories
// depends on this tie-break.
func findStartIndex(orders []types.Order, dir Direction) int {
	for start := range orders {
		sum := decimal.Zero
		sawZero := false
		valid := true
		for i := start; i < len(orders); i++ {
			sum = sum.Add(signedQuantity(orders[i]))
			if violates(sum, dir) {
				valid = false
				break
			}
			if sum.IsZero() {
				sawZero = true
			}
		}
		if valid && sawZero {
			return start
		}
	}
	return -1
}

// longestConsistentSuffix returns the smallest index s such that accumulating
// orders[s:] never violates the direction's sign constraint. May return
// len(orders) when even single-order suffixes violate.
func longestConsistentSuffix(orders []types.Order, dir Direction) int {
	for s := range orders {
		sum := decimal.Zero
		ok := true
		for i := s; i < len(orders); i++ {
			sum = sum.Add(signedQuantity(orders[i]))
			if violates(sum, dir) {
				ok = false
				break
			}
		}
		if ok {
			return s
		}
	}
	return len(orders)
}

// signedQuantity truncates the unsigned magnitude toward zero at the shared
// quantity precision and applies the action's sign. Truncation keeps every
// accumulation exact, so zero checks need no epsilon.
func signedQuantity(o types.Order) decimal.Decimal {
	pol, err := Classify(o.Action)
	if err != nil {
		return decimal.Zero
	}
	q := o.Quantity.Truncate(types.QuantityPlaces)
	if pol.Sign < 0 {
		return q.Neg()
	}
	return q
}

func violates(sum decimal.Decimal, dir Direction) bool {
	if dir == Long {
		return sum.Sign() < 0
	}
	return sum.Sign() > 0
}
