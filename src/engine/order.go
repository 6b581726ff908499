package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusActive    OrderStatus = "ACTIVE"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are defined from the status.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// edge case: price stored as int64 in cents to avoid floating-point precision errors
type Order struct {
	ID             string
	Side           Side
	Price          int64       // price in cents
	Quantity       int64
	FilledQuantity int64       // atomic for thread-safety
	Visible        bool        // hidden orders match normally but are excluded from public market data
	Timestamp      int64       // unix millis, assigned at submission
	sequence       uint64      // book-wide arrival counter, the same-price/same-visibility tie-break
	Status         OrderStatus
	statusMu       sync.Mutex
}

type Trade struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	Price       int64
	Quantity    int64
	Timestamp   int64
}

// NewOrder builds an order ready for submission. Identity, timestamp and
// arrival sequence are assigned by the book, not here.
func NewOrder(side Side, price, quantity int64, visible bool) (*Order, error) {
	if side != SideBuy && side != SideSell {
		return nil, &InvalidOrderError{Reason: fmt.Sprintf("side must be BUY or SELL, got %q", side)}
	}
	if price <= 0 {
		return nil, &InvalidOrderError{Reason: fmt.Sprintf("price must be positive, got %d", price)}
	}
	if quantity <= 0 {
		return nil, &InvalidOrderError{Reason: fmt.Sprintf("quantity must be positive, got %d", quantity)}
	}
	return &Order{
		Side:     side,
		Price:    price,
		Quantity: quantity,
		Visible:  visible,
		Status:   StatusPending,
	}, nil
}

func (o *Order) GetFilledQuantity() int64 {
	return atomic.LoadInt64(&o.FilledQuantity)
}

func (o *Order) RemainingQuantity() int64 {
	return o.Quantity - atomic.LoadInt64(&o.FilledQuantity)
}

func (o *Order) IsFilled() bool {
	return atomic.LoadInt64(&o.FilledQuantity) >= o.Quantity
}

func (o *Order) Fill(quantity int64) {
	newFilled := atomic.AddInt64(&o.FilledQuantity, quantity)

	o.statusMu.Lock()
	if newFilled >= o.Quantity {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartial
	}
	o.statusMu.Unlock()
}

func (o *Order) GetStatus() OrderStatus {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.Status
}

func (o *Order) SetStatus(status OrderStatus) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	o.Status = status
}

type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return "invalid order: " + e.Reason
}
