package handlers

import (
	"errors"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"priority-book/src/engine"
	"priority-book/src/models"
)

// BookHandler exposes the order book over HTTP and keeps the operational
// counters served by /health and /metrics.
type BookHandler struct {
	Book            *engine.OrderBook
	StartTime       time.Time
	OrdersReceived  int64
	OrdersMatched   int64
	OrdersCancelled int64
	TradesExecuted  int64

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewBookHandler(book *engine.OrderBook) *BookHandler {
	maxLatencies := 10000
	if envMax := os.Getenv("METRICS_MAX_LATENCIES"); envMax != "" {
		if parsed, err := strconv.Atoi(envMax); err == nil && parsed > 0 {
			maxLatencies = parsed
		}
	}

	return &BookHandler{
		Book:         book,
		StartTime:    time.Now(),
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

func (h *BookHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	priceCents, err := models.ToCents(req.Price)
	if err != nil {
		log.Warn().
			Str("price", req.Price.String()).
			Str("ip", c.IP()).
			Msg("Invalid order request: sub-cent price")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order: " + err.Error(),
		})
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	order, err := engine.NewOrder(engine.Side(req.Side), priceCents, req.Quantity, visible)
	if err != nil {
		var invalid *engine.InvalidOrderError
		if errors.As(err, &invalid) {
			log.Warn().
				Err(err).
				Str("side", req.Side).
				Int64("quantity", req.Quantity).
				Str("ip", c.IP()).
				Msg("Invalid order request")
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: err.Error(),
			})
		}
		log.Error().Err(err).Msg("Error constructing order")
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Internal server error",
		})
	}

	atomic.AddInt64(&h.OrdersReceived, 1)

	startTime := time.Now()
	trades := h.Book.SubmitOrder(order)
	h.recordLatency(time.Since(startTime))

	status := order.GetStatus()
	if len(trades) > 0 {
		atomic.AddInt64(&h.OrdersMatched, 1)
		atomic.AddInt64(&h.TradesExecuted, int64(len(trades)))
	}

	log.Info().
		Str("order_id", order.ID).
		Str("side", req.Side).
		Int64("price", priceCents).
		Int64("quantity", req.Quantity).
		Bool("visible", visible).
		Str("status", string(status)).
		Int("trades_count", len(trades)).
		Str("ip", c.IP()).
		Msg("Order processed")

	response := models.SubmitOrderResponse{
		OrderID:           order.ID,
		Status:            string(status),
		FilledQuantity:    order.GetFilledQuantity(),
		RemainingQuantity: order.RemainingQuantity(),
		Trades:            toTradeInfos(trades),
		Price:             models.FromCents(order.Price),
	}

	switch status {
	case engine.StatusActive:
		response.Message = "Order resting in book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case engine.StatusPartial:
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func (h *BookHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, exists := h.Book.GetOrder(orderID)
	if !exists {
		log.Warn().
			Str("order_id", orderID).
			Str("ip", c.IP()).
			Msg("Cancel order: order not found")
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	if !h.Book.CancelOrder(orderID) {
		// edge case: filled and already-cancelled orders cannot be cancelled
		log.Warn().
			Str("order_id", orderID).
			Str("status", string(order.GetStatus())).
			Msg("Cancel order: order in terminal state")
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: "Cannot cancel: order is " + string(order.GetStatus()),
		})
	}

	atomic.AddInt64(&h.OrdersCancelled, 1)

	log.Info().
		Str("order_id", orderID).
		Str("ip", c.IP()).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID: orderID,
		Status:  string(engine.StatusCancelled),
	})
}

func (h *BookHandler) GetOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, exists := h.Book.GetOrder(orderID)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	info := toOrderInfo(order)
	if pos, total, ok := h.Book.QueuePosition(orderID); ok {
		info.QueuePosition = pos
		info.QueueTotal = total
	}

	return c.Status(fiber.StatusOK).JSON(info)
}

func (h *BookHandler) ListOrders(c *fiber.Ctx) error {
	var orders []*engine.Order
	if c.QueryBool("active", false) {
		orders = h.Book.ActiveOrders()
	} else {
		orders = h.Book.AllOrders()
	}

	infos := make([]models.OrderInfo, 0, len(orders))
	for _, order := range orders {
		infos = append(infos, toOrderInfo(order))
	}

	return c.Status(fiber.StatusOK).JSON(models.OrdersResponse{
		Count:  len(infos),
		Orders: infos,
	})
}

func (h *BookHandler) GetBook(c *fiber.Ctx) error {
	defaultDepth := 10
	if envDepth := os.Getenv("BOOK_DEFAULT_DEPTH"); envDepth != "" {
		if parsed, err := strconv.Atoi(envDepth); err == nil && parsed > 0 {
			defaultDepth = parsed
		}
	}

	maxDepth := 1000
	if envMaxDepth := os.Getenv("BOOK_MAX_DEPTH"); envMaxDepth != "" {
		if parsed, err := strconv.Atoi(envMaxDepth); err == nil && parsed > 0 {
			maxDepth = parsed
		}
	}

	depth := c.QueryInt("depth", defaultDepth)
	if depth <= 0 {
		depth = defaultDepth
	}
	// edge case: enforce maximum depth limit
	if depth > maxDepth {
		depth = maxDepth
	}

	visibleOnly := c.QueryBool("visible_only", false)

	response := models.BookResponse{
		Timestamp:   time.Now().UnixMilli(),
		VisibleOnly: visibleOnly,
		Bids:        toDepthInfos(h.Book.Depth(engine.SideBuy, depth, visibleOnly)),
		Asks:        toDepthInfos(h.Book.Depth(engine.SideSell, depth, visibleOnly)),
	}

	if bid, ok := h.Book.BestBid(visibleOnly); ok {
		d := models.FromCents(bid)
		response.BestBid = &d
	}
	if ask, ok := h.Book.BestAsk(visibleOnly); ok {
		d := models.FromCents(ask)
		response.BestAsk = &d
	}
	if spread, ok := h.Book.Spread(visibleOnly); ok {
		d := models.FromCents(spread)
		response.Spread = &d
	}
	if midpoint, ok := h.Book.Midpoint(visibleOnly); ok {
		d := midpoint
		response.Midpoint = &d
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *BookHandler) GetTrades(c *fiber.Ctx) error {
	trades := h.Book.Trades()
	return c.Status(fiber.StatusOK).JSON(models.TradesResponse{
		Count:  len(trades),
		Trades: toTradeInfos(trades),
	})
}

// ResetBook clears the book to its empty state. A demo/test affordance, not
// something a production venue would expose.
func (h *BookHandler) ResetBook(c *fiber.Ctx) error {
	h.Book.Clear()

	log.Info().
		Str("ip", c.IP()).
		Msg("Order book reset")

	return c.Status(fiber.StatusOK).JSON(models.ResetResponse{
		Status: "reset",
	})
}

func (h *BookHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(uptime),
		OrdersProcessed: int64(h.Book.OrderCount()),
	})
}

func (h *BookHandler) Metrics(c *fiber.Ctx) error {
	p50, p99, p999 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         atomic.LoadInt64(&h.OrdersReceived),
		OrdersMatched:          atomic.LoadInt64(&h.OrdersMatched),
		OrdersCancelled:        atomic.LoadInt64(&h.OrdersCancelled),
		OrdersResting:          int64(len(h.Book.ActiveOrders())),
		TradesExecuted:         atomic.LoadInt64(&h.TradesExecuted),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: h.calculateThroughput(),
	})
}

func (h *BookHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		h.latencies = h.latencies[len(h.latencies)-h.maxLatencies:]
	}
}

func (h *BookHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(h.latencies))
	copy(sorted, h.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	percentile := func(q float64) float64 {
		idx := int(float64(len(sorted)) * q)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return float64(sorted[idx].Nanoseconds()) / 1e6
	}

	return percentile(0.50), percentile(0.99), percentile(0.999)
}

func (h *BookHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&h.OrdersReceived)) / uptime
}

func toTradeInfos(trades []*engine.Trade) []models.TradeInfo {
	infos := make([]models.TradeInfo, 0, len(trades))
	for _, trade := range trades {
		infos = append(infos, models.TradeInfo{
			TradeID:     trade.TradeID,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       models.FromCents(trade.Price),
			Quantity:    trade.Quantity,
			Timestamp:   trade.Timestamp,
		})
	}
	return infos
}

func toOrderInfo(order *engine.Order) models.OrderInfo {
	return models.OrderInfo{
		OrderID:           order.ID,
		Side:              string(order.Side),
		Price:             models.FromCents(order.Price),
		Quantity:          order.Quantity,
		FilledQuantity:    order.GetFilledQuantity(),
		RemainingQuantity: order.RemainingQuantity(),
		Visible:           order.Visible,
		Status:            string(order.GetStatus()),
		Timestamp:         order.Timestamp,
	}
}

func toDepthInfos(levels []engine.DepthLevel) []models.DepthLevelInfo {
	infos := make([]models.DepthLevelInfo, 0, len(levels))
	for _, level := range levels {
		infos = append(infos, models.DepthLevelInfo{
			Price:      models.FromCents(level.Price),
			Quantity:   level.Quantity,
			OrderCount: level.OrderCount,
		})
	}
	return infos
}
