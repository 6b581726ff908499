package engine

import "github.com/shopspring/decimal"

// DepthLevel aggregates one price level of resting interest: total remaining
// quantity and the number of orders contributing to it.
type DepthLevel struct {
	Price      int64
	Quantity   int64
	OrderCount int
}

// bestPrice returns the first qualifying price on a side, walking levels
// best-first. With visibleOnly set, levels holding only hidden orders are
// skipped; the sequences are priority-sorted so the first visible order is
// the best visible price. Caller holds ob.mu.
func (ob *OrderBook) bestPrice(side Side, visibleOnly bool) (int64, bool) {
	var price int64
	found := false
	ob.ascendLevels(side, func(level *PriceLevel) bool {
		for _, order := range level.Orders {
			if !visibleOnly || order.Visible {
				price = level.Price
				found = true
				return false
			}
		}
		return true
	})
	return price, found
}

// BestBid returns the highest bid price in cents. With visibleOnly set,
// hidden orders do not contribute.
func (ob *OrderBook) BestBid(visibleOnly bool) (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPrice(SideBuy, visibleOnly)
}

// BestAsk returns the lowest ask price in cents. With visibleOnly set,
// hidden orders do not contribute.
func (ob *OrderBook) BestAsk(visibleOnly bool) (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPrice(SideSell, visibleOnly)
}

// Spread returns bestAsk - bestBid in cents, or false when either side has
// no qualifying price.
func (ob *OrderBook) Spread(visibleOnly bool) (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bid, hasBid := ob.bestPrice(SideBuy, visibleOnly)
	ask, hasAsk := ob.bestPrice(SideSell, visibleOnly)
	if !hasBid || !hasAsk {
		return 0, false
	}
	return ask - bid, true
}

// Midpoint returns (bestBid + bestAsk) / 2 as a decimal, since the midpoint
// of two cent prices can land on a half-cent.
func (ob *OrderBook) Midpoint(visibleOnly bool) (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bid, hasBid := ob.bestPrice(SideBuy, visibleOnly)
	ask, hasAsk := ob.bestPrice(SideSell, visibleOnly)
	if !hasBid || !hasAsk {
		return decimal.Zero, false
	}
	return decimal.New(bid+ask, -2).Div(decimal.NewFromInt(2)), true
}

// Depth aggregates remaining quantity and order count per price level on one
// side, best-first, returning at most levels entries. With visibleOnly set,
// hidden orders contribute neither quantity nor count, and levels left empty
// by the filter are omitted.
func (ob *OrderBook) Depth(side Side, levels int, visibleOnly bool) []DepthLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	depth := make([]DepthLevel, 0, levels)
	ob.ascendLevels(side, func(level *PriceLevel) bool {
		if len(depth) >= levels {
			return false
		}
		entry := DepthLevel{Price: level.Price}
		for _, order := range level.Orders {
			if visibleOnly && !order.Visible {
				continue
			}
			entry.Quantity += order.RemainingQuantity()
			entry.OrderCount++
		}
		if entry.OrderCount > 0 {
			depth = append(depth, entry)
		}
		return true
	})
	return depth
}
