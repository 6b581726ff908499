package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
)

// PriceLevel is one price bucket on one side of the book. Orders within a
// level are kept visible-first, then FIFO by arrival, so the head of the best
// level is always the highest-priority resting order on that side.
type PriceLevel struct {
	Price  int64
	Orders []*Order
}

// insert places an order at its priority position within the level. A new
// order is always the latest arrival, so a visible order goes in front of the
// first hidden order and a hidden order goes at the tail.
func (pl *PriceLevel) insert(order *Order) {
	pos := len(pl.Orders)
	if order.Visible {
		for i, o := range pl.Orders {
			if !o.Visible {
				pos = i
				break
			}
		}
	}
	pl.Orders = append(pl.Orders, nil)
	copy(pl.Orders[pos+1:], pl.Orders[pos:])
	pl.Orders[pos] = order
}

// remove deletes the order with the given ID from the level, if present.
func (pl *PriceLevel) remove(orderID string) {
	for i, o := range pl.Orders {
		if o.ID == orderID {
			pl.Orders = append(pl.Orders[:i], pl.Orders[i+1:]...)
			return
		}
	}
}

// levelItem is implemented by both btree item wrappers so traversal code can
// be shared between the two sides.
type levelItem interface {
	btree.Item
	Level() *PriceLevel
}

// bidItem orders levels descending so the highest bid is the tree minimum.
type bidItem struct {
	level *PriceLevel
}

func (i *bidItem) Less(than btree.Item) bool {
	return i.level.Price > than.(*bidItem).level.Price
}

func (i *bidItem) Level() *PriceLevel { return i.level }

// askItem orders levels ascending so the lowest ask is the tree minimum.
type askItem struct {
	level *PriceLevel
}

func (i *askItem) Less(than btree.Item) bool {
	return i.level.Price < than.(*askItem).level.Price
}

func (i *askItem) Level() *PriceLevel { return i.level }

// OrderBook is a single-instrument limit order book with price, visibility,
// time priority. Bids and asks are btrees of price levels kept best-first;
// the identity index retains every order ever submitted, including filled and
// cancelled ones; the trade tape is append-only.
type OrderBook struct {
	bids     *btree.BTree
	asks     *btree.BTree
	orders   map[string]*Order
	trades   []*Trade
	orderSeq uint64
	tradeSeq uint64
	mu       sync.RWMutex
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:   btree.New(32),
		asks:   btree.New(32),
		orders: make(map[string]*Order),
		trades: make([]*Trade, 0),
	}
}

// SubmitOrder ingests a newly constructed order: assigns its identity,
// arrival sequence and timestamp, matches it against the opposite side and
// rests any remaining quantity at its priority position. Returns the trades
// generated, in execution order.
func (ob *OrderBook) SubmitOrder(order *Order) []*Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.orderSeq++
	order.ID = fmt.Sprintf("O%06d", ob.orderSeq)
	order.sequence = ob.orderSeq
	order.Timestamp = time.Now().UnixMilli()
	order.SetStatus(StatusActive)
	ob.orders[order.ID] = order

	trades := ob.matchIncoming(order)

	if order.RemainingQuantity() > 0 {
		ob.insertResting(order)
	}

	return trades
}

// CancelOrder cancels a resting order by ID. Returns false if the ID is
// unknown or the order is already filled or cancelled; a failed cancel leaves
// the book untouched. The identity index retains the order either way.
func (ob *OrderBook) CancelOrder(orderID string) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, exists := ob.orders[orderID]
	if !exists {
		return false
	}
	if order.GetStatus().Terminal() {
		return false
	}

	ob.removeResting(order)
	order.SetStatus(StatusCancelled)
	return true
}

// GetOrder looks up any order ever submitted, regardless of status.
func (ob *OrderBook) GetOrder(orderID string) (*Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	order, exists := ob.orders[orderID]
	return order, exists
}

// OrderCount is the number of orders ever submitted, including terminal ones.
func (ob *OrderBook) OrderCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.orders)
}

// AllOrders returns every order ever submitted, in submission order.
func (ob *OrderBook) AllOrders() []*Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	all := make([]*Order, 0, len(ob.orders))
	for _, order := range ob.orders {
		all = append(all, order)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].sequence < all[j].sequence
	})
	return all
}

// ActiveOrders returns the resting orders, bids then asks, each side in
// priority order.
func (ob *OrderBook) ActiveOrders() []*Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	active := ob.flatten(SideBuy)
	return append(active, ob.flatten(SideSell)...)
}

// SideOrders returns one side's resting orders in priority order, best first.
func (ob *OrderBook) SideOrders(side Side) []*Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.flatten(side)
}

// Trades returns a copy of the trade tape in execution order.
func (ob *OrderBook) Trades() []*Trade {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	tape := make([]*Trade, len(ob.trades))
	copy(tape, ob.trades)
	return tape
}

// QueuePosition reports an order's place among the resting orders at its
// price level, 1-based, together with the level's order count. Returns false
// for unknown or terminal orders.
func (ob *OrderBook) QueuePosition(orderID string) (position, total int, ok bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	order, exists := ob.orders[orderID]
	if !exists || order.GetStatus().Terminal() {
		return 0, 0, false
	}

	level := ob.levelFor(order.Side, order.Price)
	if level == nil {
		return 0, 0, false
	}
	for i, o := range level.Orders {
		if o.ID == orderID {
			return i + 1, len(level.Orders), true
		}
	}
	return 0, 0, false
}

// Clear resets the book to its empty initial state. Exposed for demo and
// test resets; identity and trade counters restart as well.
func (ob *OrderBook) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.bids = btree.New(32)
	ob.asks = btree.New(32)
	ob.orders = make(map[string]*Order)
	ob.trades = make([]*Trade, 0)
	ob.orderSeq = 0
	ob.tradeSeq = 0
}

// internal helpers, callers hold ob.mu

func (ob *OrderBook) tree(side Side) *btree.BTree {
	if side == SideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) lookupItem(side Side, price int64) btree.Item {
	if side == SideBuy {
		return &bidItem{level: &PriceLevel{Price: price}}
	}
	return &askItem{level: &PriceLevel{Price: price}}
}

func (ob *OrderBook) levelFor(side Side, price int64) *PriceLevel {
	item := ob.tree(side).Get(ob.lookupItem(side, price))
	if item == nil {
		return nil
	}
	return item.(levelItem).Level()
}

// bestLevel returns the side's best price level, or nil if the side is empty.
func (ob *OrderBook) bestLevel(side Side) *PriceLevel {
	item := ob.tree(side).Min()
	if item == nil {
		return nil
	}
	return item.(levelItem).Level()
}

func (ob *OrderBook) insertResting(order *Order) {
	level := ob.levelFor(order.Side, order.Price)
	if level == nil {
		level = &PriceLevel{Price: order.Price, Orders: make([]*Order, 0, 1)}
		if order.Side == SideBuy {
			ob.bids.ReplaceOrInsert(&bidItem{level: level})
		} else {
			ob.asks.ReplaceOrInsert(&askItem{level: level})
		}
	}
	level.insert(order)
}

func (ob *OrderBook) removeResting(order *Order) {
	level := ob.levelFor(order.Side, order.Price)
	if level == nil {
		return
	}
	level.remove(order.ID)
	// edge case: empty price levels are deleted so best-level lookups stay O(1)
	if len(level.Orders) == 0 {
		ob.deleteLevel(order.Side, order.Price)
	}
}

func (ob *OrderBook) deleteLevel(side Side, price int64) {
	ob.tree(side).Delete(ob.lookupItem(side, price))
}

// ascendLevels walks one side's price levels best-first.
func (ob *OrderBook) ascendLevels(side Side, fn func(*PriceLevel) bool) {
	ob.tree(side).Ascend(func(item btree.Item) bool {
		return fn(item.(levelItem).Level())
	})
}

func (ob *OrderBook) flatten(side Side) []*Order {
	orders := make([]*Order, 0)
	ob.ascendLevels(side, func(level *PriceLevel) bool {
		orders = append(orders, level.Orders...)
		return true
	})
	return orders
}
