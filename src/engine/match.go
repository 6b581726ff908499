package engine

import (
	"fmt"
	"time"
)

// crosses reports whether the incoming order is allowed to trade at the given
// opposite-side price. A buy crosses an ask at or below its limit, a sell
// crosses a bid at or above its limit.
func crosses(incoming *Order, oppositePrice int64) bool {
	if incoming.Side == SideBuy {
		return incoming.Price >= oppositePrice
	}
	return incoming.Price <= oppositePrice
}

// matchIncoming runs the matching loop for a newly submitted order against
// the opposite side of the book. Caller holds ob.mu.
//
// The opposite side's best level head is always the highest-priority resting
// order, so matching only ever inspects the front of the book. Once the best
// level fails the crossing test no level behind it can pass either, which is
// why the loop may exit early. Execution is always at the resting order's
// price; price improvement accrues to the aggressor. Hidden resting orders
// participate exactly like visible ones.
func (ob *OrderBook) matchIncoming(incoming *Order) []*Trade {
	trades := make([]*Trade, 0)
	opposite := incoming.Side.Opposite()

	for incoming.RemainingQuantity() > 0 {
		level := ob.bestLevel(opposite)
		if level == nil {
			break
		}
		if !crosses(incoming, level.Price) {
			break
		}

		for incoming.RemainingQuantity() > 0 && len(level.Orders) > 0 {
			resting := level.Orders[0]

			quantity := min(incoming.RemainingQuantity(), resting.RemainingQuantity())
			incoming.Fill(quantity)
			resting.Fill(quantity)

			ob.tradeSeq++
			trade := &Trade{
				TradeID:   fmt.Sprintf("T%06d", ob.tradeSeq),
				Price:     level.Price,
				Quantity:  quantity,
				Timestamp: time.Now().UnixMilli(),
			}
			if incoming.Side == SideBuy {
				trade.BuyOrderID = incoming.ID
				trade.SellOrderID = resting.ID
			} else {
				trade.BuyOrderID = resting.ID
				trade.SellOrderID = incoming.ID
			}
			trades = append(trades, trade)
			ob.trades = append(ob.trades, trade)

			// edge case: a filled resting order leaves the level immediately,
			// a partial one stays at the head as the passive price-setter
			if resting.IsFilled() {
				level.Orders = level.Orders[1:]
			}
		}

		if len(level.Orders) == 0 {
			ob.deleteLevel(opposite, level.Price)
		}
	}

	return trades
}
