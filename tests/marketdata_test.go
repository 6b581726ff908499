package tests

import (
	"testing"

	"github.com/shopspring/decimal"

	"priority-book/src/engine"
)

// TestBestPricesVisibleOnly: hidden orders are excluded from visible-only
// best prices but included otherwise.
func TestBestPricesVisibleOnly(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideBuy, 10050, 100, false) // hidden best bid
	submit(t, book, engine.SideBuy, 10000, 100, true)
	submit(t, book, engine.SideSell, 10100, 100, false) // hidden-only ask side

	price, ok := book.BestBid(false)
	if !ok || price != 10050 {
		t.Errorf("Expected full best bid 10050, got: %d (ok=%v)", price, ok)
	}
	price, ok = book.BestBid(true)
	if !ok || price != 10000 {
		t.Errorf("Expected visible best bid 10000, got: %d (ok=%v)", price, ok)
	}

	price, ok = book.BestAsk(false)
	if !ok || price != 10100 {
		t.Errorf("Expected full best ask 10100, got: %d (ok=%v)", price, ok)
	}
	if _, ok := book.BestAsk(true); ok {
		t.Error("Hidden-only ask side must expose no visible best ask")
	}
}

// TestSpreadAndMidpoint: spread is ask minus bid; the midpoint may land on a
// half-cent and is reported as a decimal.
func TestSpreadAndMidpoint(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideBuy, 10000, 100, true)
	submit(t, book, engine.SideSell, 10050, 100, true)

	spread, ok := book.Spread(false)
	if !ok || spread != 50 {
		t.Errorf("Expected spread 50, got: %d (ok=%v)", spread, ok)
	}

	midpoint, ok := book.Midpoint(false)
	if !ok || !midpoint.Equal(decimal.RequireFromString("100.25")) {
		t.Errorf("Expected midpoint 100.25, got: %s (ok=%v)", midpoint, ok)
	}
}

func TestMidpointHalfCent(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideBuy, 10000, 100, true)
	submit(t, book, engine.SideSell, 10001, 100, true)

	midpoint, ok := book.Midpoint(false)
	if !ok || !midpoint.Equal(decimal.RequireFromString("100.005")) {
		t.Errorf("Expected midpoint 100.005, got: %s (ok=%v)", midpoint, ok)
	}
}

// TestSpreadUndefinedOneSided: spread and midpoint are undefined when either
// side lacks a qualifying price.
func TestSpreadUndefinedOneSided(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideBuy, 10000, 100, true)

	if _, ok := book.Spread(false); ok {
		t.Error("Expected no spread with an empty ask side")
	}
	if _, ok := book.Midpoint(false); ok {
		t.Error("Expected no midpoint with an empty ask side")
	}

	// a hidden-only opposite side gives no visible spread either
	submit(t, book, engine.SideSell, 10100, 100, false)
	if _, ok := book.Spread(true); ok {
		t.Error("Expected no visible spread against a hidden-only ask side")
	}
	if _, ok := book.Spread(false); !ok {
		t.Error("Expected a full spread once both sides have orders")
	}
}

// TestDepthAggregation: two bids at 99.50 (200 and 100) and one at 99.75
// (180) aggregate to [{99.75, 180, 1}, {99.50, 300, 2}].
func TestDepthAggregation(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideBuy, 9950, 200, true)
	submit(t, book, engine.SideBuy, 9950, 100, true)
	submit(t, book, engine.SideBuy, 9975, 180, true)

	depth := book.Depth(engine.SideBuy, 10, false)
	if len(depth) != 2 {
		t.Fatalf("Expected 2 depth levels, got: %d", len(depth))
	}
	if depth[0].Price != 9975 || depth[0].Quantity != 180 || depth[0].OrderCount != 1 {
		t.Errorf("Level 0: expected {9975, 180, 1}, got: %+v", depth[0])
	}
	if depth[1].Price != 9950 || depth[1].Quantity != 300 || depth[1].OrderCount != 2 {
		t.Errorf("Level 1: expected {9950, 300, 2}, got: %+v", depth[1])
	}
}

// TestDepthVisibleOnly: hidden quantity never leaks into visible-only depth,
// and a level left empty by the filter is omitted entirely.
func TestDepthVisibleOnly(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideSell, 10000, 100, true)
	submit(t, book, engine.SideSell, 10000, 50, false)
	submit(t, book, engine.SideSell, 10050, 75, false) // hidden-only level

	depth := book.Depth(engine.SideSell, 10, true)
	if len(depth) != 1 {
		t.Fatalf("Expected 1 visible depth level, got: %d", len(depth))
	}
	if depth[0].Price != 10000 || depth[0].Quantity != 100 || depth[0].OrderCount != 1 {
		t.Errorf("Expected {10000, 100, 1}, got: %+v", depth[0])
	}

	full := book.Depth(engine.SideSell, 10, false)
	if len(full) != 2 {
		t.Fatalf("Expected 2 full depth levels, got: %d", len(full))
	}
	if full[0].Quantity != 150 || full[0].OrderCount != 2 {
		t.Errorf("Full level 0: expected quantity 150 from 2 orders, got: %+v", full[0])
	}
}

// TestDepthLevelCap: at most the requested number of levels is returned,
// best-first.
func TestDepthLevelCap(t *testing.T) {
	book := engine.NewOrderBook()

	prices := []int64{10000, 10010, 10020, 10030, 10040}
	for _, price := range prices {
		submit(t, book, engine.SideSell, price, 10, true)
	}

	depth := book.Depth(engine.SideSell, 2, false)
	if len(depth) != 2 {
		t.Fatalf("Expected 2 levels, got: %d", len(depth))
	}
	if depth[0].Price != 10000 || depth[1].Price != 10010 {
		t.Errorf("Expected best-first levels [10000, 10010], got: [%d, %d]", depth[0].Price, depth[1].Price)
	}
}

// TestDepthReflectsRemaining: depth counts remaining quantity, not original.
func TestDepthReflectsRemaining(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideSell, 10000, 100, true)
	submit(t, book, engine.SideBuy, 10000, 40, true)

	depth := book.Depth(engine.SideSell, 10, false)
	if len(depth) != 1 {
		t.Fatalf("Expected 1 depth level, got: %d", len(depth))
	}
	if depth[0].Quantity != 60 {
		t.Errorf("Expected remaining quantity 60, got: %d", depth[0].Quantity)
	}
}
