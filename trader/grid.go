package trader

import (
	"math"

	"gridx/config"
)

// Order sides as StandX reports them.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// GridLevel is one target order of the ladder: a resting limit order the
// exchange should be holding for us this cycle.
type GridLevel struct {
	Side     string
	Price    float64
	Quantity float64
}

// RoundToTick rounds a price to the nearest multiple of the exchange tick
// size. Prices must be tick-aligned both for submission and for comparing
// against live orders.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}

// BuildGrid computes the target ladder for the current price: up to
// GridCount buy levels below the price and GridCount sell levels above it,
// spread/step offsets applied, each rounded to the tick size. Levels that
// fall outside [LowerPrice, UpperPrice] are dropped — expected steady-state
// behavior as price drifts toward a bound, not an error.
//
// Pure function: no I/O, deterministic for a given price and config.
func BuildGrid(currentPrice float64, cfg *config.Config, tickSize float64) []GridLevel {
	levels := make([]GridLevel, 0, 2*cfg.GridCount)

	for i := 0; i < cfg.GridCount; i++ {
		price := RoundToTick(currentPrice-cfg.PriceSpread-float64(i)*cfg.PriceStep, tickSize)
		if price < cfg.LowerPrice || price > cfg.UpperPrice {
			continue
		}
		levels = append(levels, GridLevel{Side: SideBuy, Price: price, Quantity: cfg.OrderQuantity})
	}

	for i := 0; i < cfg.GridCount; i++ {
		price := RoundToTick(currentPrice+cfg.PriceSpread+float64(i)*cfg.PriceStep, tickSize)
		if price < cfg.LowerPrice || price > cfg.UpperPrice {
			continue
		}
		levels = append(levels, GridLevel{Side: SideSell, Price: price, Quantity: cfg.OrderQuantity})
	}

	return levels
}
