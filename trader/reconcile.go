package trader

import (
	"fmt"
	"math"

	"gridx/trader/types"
)

// levelKey is the matching identity of an order: side plus price expressed
// in whole ticks. Two prices are equal only if they land on the same tick.
func levelKey(side string, price, tick float64) string {
	if tick <= 0 {
		return fmt.Sprintf("%s@%.8f", side, price)
	}
	return fmt.Sprintf("%s@%d", side, int64(math.Round(price/tick)))
}

// Reconcile diffs the target ladder against the live open orders and
// returns the minimal set of actions to converge: cancels for live orders
// at prices the target no longer wants, placements for target levels with
// no resting order. Orders already resting at a correct grid price are left
// untouched, which keeps exchange call volume down and preserves queue
// priority.
//
// Quantity is deliberately not a matching criterion: an order at the right
// (side, price) with the wrong quantity counts as correct and is not
// replaced.
//
// The two result sets are disjoint by construction — cancels act on
// existing order ids, placements on missing price levels.
func Reconcile(target []GridLevel, live []types.OpenOrder, tick float64) (cancels []types.OpenOrder, places []GridLevel) {
	want := make(map[string]bool, len(target))
	for _, lvl := range target {
		want[levelKey(lvl.Side, lvl.Price, tick)] = true
	}

	resting := make(map[string]bool, len(live))
	for _, order := range live {
		key := levelKey(order.Side, order.Price, tick)
		if !want[key] {
			cancels = append(cancels, order)
			continue
		}
		resting[key] = true
	}

	for _, lvl := range target {
		if !resting[levelKey(lvl.Side, lvl.Price, tick)] {
			places = append(places, lvl)
		}
	}

	return cancels, places
}
