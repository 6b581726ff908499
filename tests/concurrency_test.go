package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"priority-book/src/engine"
	"priority-book/src/models"
)

// TestConcurrentOrderSubmission verifies that parallel submissions neither
// race nor collide on book-assigned identifiers.
func TestConcurrentOrderSubmission(t *testing.T) {
	book := engine.NewOrderBook()

	numGoroutines := 50
	ordersPerGoroutine := 10

	var wg sync.WaitGroup
	ids := make(chan string, numGoroutines*ordersPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := 0; j < ordersPerGoroutine; j++ {
				side := engine.SideBuy
				price := int64(9900 + j%10)
				if (goroutineID+j)%2 == 0 {
					side = engine.SideSell
					price = int64(10100 + j%10) // keep the sides apart so nothing crosses
				}

				order, err := engine.NewOrder(side, price, 100, j%3 != 0)
				if err != nil {
					t.Errorf("NewOrder failed: %v", err)
					return
				}
				book.SubmitOrder(order)
				ids <- order.ID
			}
		}(i)
	}

	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if id == "" {
			t.Error("Submission left an order without an ID")
		}
		if seen[id] {
			t.Errorf("Duplicate order ID assigned: %s", id)
		}
		seen[id] = true
	}

	if len(seen) != numGoroutines*ordersPerGoroutine {
		t.Errorf("Expected %d unique orders, got: %d", numGoroutines*ordersPerGoroutine, len(seen))
	}
	if book.OrderCount() != numGoroutines*ordersPerGoroutine {
		t.Errorf("Expected %d orders in the index, got: %d", numGoroutines*ordersPerGoroutine, book.OrderCount())
	}
}

// TestConcurrentMatching verifies conservation when many aggressors race for
// the same resting liquidity: total traded quantity equals the resting size
// and no trade is mispriced.
func TestConcurrentMatching(t *testing.T) {
	book := engine.NewOrderBook()

	submit(t, book, engine.SideSell, 10050, 1000, true)
	submit(t, book, engine.SideSell, 10051, 1000, true)

	numGoroutines := 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var totalTraded int64

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			order, err := engine.NewOrder(engine.SideBuy, 10055, 100, true)
			if err != nil {
				t.Errorf("NewOrder failed: %v", err)
				return
			}
			trades := book.SubmitOrder(order)

			mu.Lock()
			defer mu.Unlock()
			for _, trade := range trades {
				totalTraded += trade.Quantity
				if trade.Price != 10050 && trade.Price != 10051 {
					t.Errorf("Trade at unexpected price: %d", trade.Price)
				}
			}
		}()
	}

	wg.Wait()

	// 20 buys of 100 against 2000 resting: everything crosses
	if totalTraded != 2000 {
		t.Errorf("Expected 2000 traded, got: %d", totalTraded)
	}
	if len(book.SideOrders(engine.SideSell)) != 0 {
		t.Error("Expected ask side swept clean")
	}
	if len(book.Trades()) == 0 {
		t.Error("Expected trades on the tape")
	}
}

// TestConcurrentCancellation verifies that racing cancels of the same orders
// succeed exactly once each.
func TestConcurrentCancellation(t *testing.T) {
	book := engine.NewOrderBook()

	numOrders := 100
	ids := make([]string, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		order, _ := submit(t, book, engine.SideBuy, int64(9000+i), 10, true)
		ids = append(ids, order.ID)
	}

	attemptsPerOrder := 3
	var wg sync.WaitGroup
	successes := make(chan string, numOrders*attemptsPerOrder)

	for _, id := range ids {
		for a := 0; a < attemptsPerOrder; a++ {
			wg.Add(1)
			go func(orderID string) {
				defer wg.Done()
				if book.CancelOrder(orderID) {
					successes <- orderID
				}
			}(id)
		}
	}

	wg.Wait()
	close(successes)

	counts := make(map[string]int)
	for id := range successes {
		counts[id]++
	}

	if len(counts) != numOrders {
		t.Errorf("Expected %d orders cancelled, got: %d", numOrders, len(counts))
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("Order %s cancelled %d times, want exactly once", id, n)
		}
	}
	if len(book.ActiveOrders()) != 0 {
		t.Errorf("Expected no active orders, got: %d", len(book.ActiveOrders()))
	}
}

// TestConcurrentQueriesDuringMutation runs market-data reads against a book
// being mutated, checking reads stay internally consistent.
func TestConcurrentQueriesDuringMutation(t *testing.T) {
	book := engine.NewOrderBook()

	var wg sync.WaitGroup
	done := make(chan struct{})

	// writers: submit and occasionally cancel
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			side := engine.SideBuy
			price := int64(9900 + i%20)
			if i%2 == 0 {
				side = engine.SideSell
				price = int64(10100 + i%20)
			}
			order, err := engine.NewOrder(side, price, 10, i%4 != 0)
			if err != nil {
				t.Errorf("NewOrder failed: %v", err)
				return
			}
			book.SubmitOrder(order)
			if i%7 == 0 {
				book.CancelOrder(order.ID)
			}
		}
		close(done)
	}()

	// readers: depth, best prices, active orders
	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				for _, visibleOnly := range []bool{true, false} {
					depth := book.Depth(engine.SideBuy, 10, visibleOnly)
					for i := 1; i < len(depth); i++ {
						if depth[i].Price >= depth[i-1].Price {
							t.Errorf("Bid depth out of order: %d before %d", depth[i-1].Price, depth[i].Price)
							return
						}
					}
				}
				book.BestBid(true)
				book.ActiveOrders()
				book.Spread(true)
			}
		}()
	}

	wg.Wait()
}

// TestConcurrentSubmissionAPI exercises the full HTTP path under parallel
// load, the same pressure the engine lock is there to absorb.
func TestConcurrentSubmissionAPI(t *testing.T) {
	app, book := setupTestServer()

	numGoroutines := 20
	ordersPerGoroutine := 5

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := 0; j < ordersPerGoroutine; j++ {
				side := "BUY"
				price := "99.50"
				if (goroutineID+j)%2 == 0 {
					side = "SELL"
					price = "101.50"
				}

				payload, err := json.Marshal(map[string]any{
					"side":     side,
					"price":    price,
					"quantity": 100,
				})
				if err != nil {
					t.Errorf("Failed to marshal request: %v", err)
					return
				}

				req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(payload))
				req.Header.Set("Content-Type", "application/json")
				resp, err := app.Test(req, -1)
				if err != nil {
					t.Errorf("Request failed: %v", err)
					return
				}

				if resp.StatusCode != http.StatusCreated {
					t.Errorf("Expected 201, got: %d", resp.StatusCode)
					resp.Body.Close()
					return
				}

				var result models.SubmitOrderResponse
				err = json.NewDecoder(resp.Body).Decode(&result)
				resp.Body.Close()
				if err != nil {
					t.Errorf("Failed to decode response: %v", err)
					return
				}
				if result.OrderID == "" {
					t.Error("Expected an order ID")
					return
				}
			}
		}(i)
	}

	wg.Wait()

	if book.OrderCount() != numGoroutines*ordersPerGoroutine {
		t.Errorf("Expected %d orders, got: %d", numGoroutines*ordersPerGoroutine, book.OrderCount())
	}
}
