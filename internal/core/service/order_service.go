package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warecore/inventory/internal/core/domain"
	"github.com/warecore/inventory/internal/port"
)

// NewLineItem is the caller's view of a line item at order creation.
type NewLineItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// OrderService owns the order status machine and coordinates the one
// operation that spans two aggregates: cancellation, which must restore
// reserved stock atomically with the status write.
type OrderService struct {
	orders   port.OrderRepository
	products port.ProductReader
	cache    port.CacheRepository
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewOrderService(orders port.OrderRepository, products port.ProductReader, cache port.CacheRepository, cacheTTL time.Duration, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Create inserts the order and reserves stock for every line item in one
// transaction. If any line would drive stock negative, nothing is
// persisted.
func (s *OrderService) Create(ctx context.Context, userID string, items []NewLineItem) (*domain.Order, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	if len(items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "order must contain at least one line item"}
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if item.Price.IsNegative() {
			return nil, &domain.ValidationError{Field: "price", Reason: "must not be negative"}
		}
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &domain.ValidationError{Field: "productId", Reason: "product " + item.ProductID + " not found"}
		}
	}

	now := time.Now()
	order := domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderDate: now,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines := make([]domain.OrderLineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderLineItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	if err := s.orders.CreateOrder(ctx, order, lines); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int("line_items", len(lines)))

	return &order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLineItem, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.orders.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// Transition moves the order to the target status. A cancelled order
// never leaves CANCELLED; any other recognized move is permitted.
func (s *OrderService) Transition(ctx context.Context, orderID, targetStatus string) (*domain.Order, error) {
	status, err := domain.ParseStatus(targetStatus)
	if err != nil {
		return nil, err
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.StatusCancelled {
		return nil, &domain.InvalidTransitionError{OrderID: orderID, From: order.Status}
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)))

	order.Status = status
	return order, nil
}

// Cancel restores the reserved stock of every line item and sets the
// status to CANCELLED. Either everything commits or nothing does:
// a failed restoration leaves both the order and all inventory
// quantities untouched.
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == domain.StatusCancelled {
		return &domain.InvalidOperationError{Op: "cancel", OrderID: orderID, Reason: "order is already cancelled"}
	}
	if order.Status == domain.StatusDelivered {
		return &domain.InvalidOperationError{Op: "cancel", OrderID: orderID, Reason: "delivered orders cannot be cancelled"}
	}

	lines, err := s.orders.GetOrderLines(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.orders.CancelOrder(ctx, orderID, lines); err != nil {
		return err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", orderID),
		zap.Int("line_items_restored", len(lines)))

	return nil
}

// Total sums price * quantity over the order's visible line items.
// An order with no line items totals zero.
func (s *OrderService) Total(ctx context.Context, orderID string) (decimal.Decimal, error) {
	if _, err := s.getOrder(ctx, orderID); err != nil {
		return decimal.Zero, err
	}

	lines, err := s.orders.GetOrderLines(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

// Summary aggregates orders whose date falls in the inclusive range
// [from, to]. Results are cached briefly; staleness is bounded by the
// cache TTL.
func (s *OrderService) Summary(ctx context.Context, from, to time.Time) (*domain.OrderSummary, error) {
	if from.After(to) {
		return nil, &domain.ValidationError{Field: "dateRange", Reason: "from date is after to date"}
	}

	key := "orders:summary:" + from.Format("2006-01-02") + ":" + to.Format("2006-01-02")
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached domain.OrderSummary
		if json.Unmarshal(raw, &cached) == nil {
			return &cached, nil
		}
	}

	end := to.AddDate(0, 0, 1)
	orders, err := s.orders.ListBetween(ctx, from, end)
	if err != nil {
		return nil, err
	}

	summary := domain.OrderSummary{
		FromDate:     from,
		ToDate:       to,
		TotalOrders:  len(orders),
		TotalRevenue: decimal.Zero,
	}

	if len(orders) > 0 {
		ids := make([]string, 0, len(orders))
		for _, order := range orders {
			ids = append(ids, order.ID)
		}
		lines, err := s.orders.LinesForOrders(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			summary.TotalRevenue = summary.TotalRevenue.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			summary.TotalItemsSold += line.Quantity
		}
	}

	if raw, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &summary, nil
}

func (s *OrderService) ListByStatus(ctx context.Context, status string, page, size int) ([]domain.Order, error) {
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	page, size = clampPage(page, size)
	return s.orders.ListByStatus(ctx, parsed, page, size)
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) getOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: orderID}
	}
	return order, nil
}
