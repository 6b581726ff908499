package tests

import (
	"testing"

	"priority-book/src/engine"
)

// mustOrder builds an order or fails the test, keeping scenario setup terse.
func mustOrder(t *testing.T, side engine.Side, price, quantity int64, visible bool) *engine.Order {
	t.Helper()
	order, err := engine.NewOrder(side, price, quantity, visible)
	if err != nil {
		t.Fatalf("NewOrder(%s, %d, %d, %v) failed: %v", side, price, quantity, visible, err)
	}
	return order
}

// submit builds and submits an order, returning it with its book-assigned ID.
func submit(t *testing.T, book *engine.OrderBook, side engine.Side, price, quantity int64, visible bool) (*engine.Order, []*engine.Trade) {
	t.Helper()
	order := mustOrder(t, side, price, quantity, visible)
	trades := book.SubmitOrder(order)
	return order, trades
}
