package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Prices cross the API as decimals ("100.50" or 100.50) and live in the
// engine as int64 cents; the two helpers below are the only conversion point.

var ErrSubCentPrice = errors.New("price has precision finer than one cent")

// ToCents converts a decimal price to engine cents, rejecting sub-cent
// precision rather than rounding it away.
func ToCents(price decimal.Decimal) (int64, error) {
	scaled := price.Shift(2)
	if !scaled.IsInteger() {
		return 0, ErrSubCentPrice
	}
	return scaled.IntPart(), nil
}

// FromCents converts engine cents back to a decimal price.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type SubmitOrderRequest struct {
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Visible  *bool           `json:"visible"` // defaults to true when omitted
}

type SubmitOrderResponse struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	Message           string          `json:"message,omitempty"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	Trades            []TradeInfo     `json:"trades,omitempty"`
	Price             decimal.Decimal `json:"price"`
}

type TradeInfo struct {
	TradeID     string          `json:"trade_id"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Timestamp   int64           `json:"timestamp"` // unix timestamp in milliseconds
}

type CancelOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OrderInfo struct {
	OrderID           string          `json:"order_id"`
	Side              string          `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	Visible           bool            `json:"visible"`
	Status            string          `json:"status"`
	Timestamp         int64           `json:"timestamp"` // unix timestamp in milliseconds
	QueuePosition     int             `json:"queue_position,omitempty"`
	QueueTotal        int             `json:"queue_total,omitempty"`
}

type DepthLevelInfo struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

type BookResponse struct {
	Timestamp   int64            `json:"timestamp"` // unix timestamp in milliseconds
	VisibleOnly bool             `json:"visible_only"`
	BestBid     *decimal.Decimal `json:"best_bid"`
	BestAsk     *decimal.Decimal `json:"best_ask"`
	Spread      *decimal.Decimal `json:"spread"`
	Midpoint    *decimal.Decimal `json:"midpoint"`
	Bids        []DepthLevelInfo `json:"bids"` // best first (highest price)
	Asks        []DepthLevelInfo `json:"asks"` // best first (lowest price)
}

type TradesResponse struct {
	Count  int         `json:"count"`
	Trades []TradeInfo `json:"trades"`
}

type OrdersResponse struct {
	Count  int         `json:"count"`
	Orders []OrderInfo `json:"orders"`
}

type ResetResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	OrdersProcessed int64  `json:"orders_processed"`
}

type MetricsResponse struct {
	OrdersReceived         int64   `json:"orders_received"`
	OrdersMatched          int64   `json:"orders_matched"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	OrdersResting          int64   `json:"orders_resting"`
	TradesExecuted         int64   `json:"trades_executed"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
