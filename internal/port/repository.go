package port

import (
	"context"
	"time"

	"github.com/warecore/inventory/internal/core/domain"
)

// Read methods return (nil, nil) when the entity is absent or
// soft-deleted; services translate that into a typed NotFoundError.
// Mutating methods that span several statements run inside a single
// database transaction and surface domain errors directly.

type OrderRepository interface {
	// CreateOrder inserts the order and its line items and reserves stock
	// for every line (a "SALE" movement per inventory record) in one
	// transaction. Fails without side effects if any reservation would
	// drive stock negative.
	CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLineItem) error

	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// GetOrderLines returns the order's visible line items in insertion order.
	GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLineItem, error)

	UpdateStatus(ctx context.Context, orderID string, status domain.Status) error

	// CancelOrder restores stock for every line item (a "CANCELLATION"
	// movement per inventory record) and sets the order status to
	// CANCELLED, all in one transaction.
	CancelOrder(ctx context.Context, orderID string, lines []domain.OrderLineItem) error

	ListByStatus(ctx context.Context, status domain.Status, page, size int) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// ListBetween returns visible orders with from <= order_date < end.
	ListBetween(ctx context.Context, from, end time.Time) ([]domain.Order, error)

	// LinesForOrders returns the visible line items of all given orders.
	LinesForOrders(ctx context.Context, orderIDs []string) ([]domain.OrderLineItem, error)
}

type InventoryRepository interface {
	CreateRecord(ctx context.Context, rec domain.InventoryRecord) error
	GetRecord(ctx context.Context, inventoryID string) (*domain.InventoryRecord, error)
	GetRecordByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error)
	SoftDelete(ctx context.Context, inventoryID string) error

	// SetQuantity reads the current quantity, appends a movement entry and
	// persists the new quantity as one transaction.
	SetQuantity(ctx context.Context, inventoryID string, newQuantity int, movementType string) (*domain.InventoryRecord, error)

	// AdjustQuantity is SetQuantity with newQuantity = current + delta.
	// Fails with a ValidationError if the result would be negative.
	AdjustQuantity(ctx context.Context, inventoryID string, delta int, movementType string) (*domain.InventoryRecord, error)

	LowStock(ctx context.Context, threshold, page, size int) ([]domain.InventoryRecord, error)
	ByCategory(ctx context.Context, category string, page, size int) ([]domain.InventoryRecord, error)
}

type MovementRepository interface {
	// Record appends one ledger entry. The entry's timestamp is assigned
	// here, not by the caller. Fails with a NotFoundError if the inventory
	// record is absent or soft-deleted.
	Record(ctx context.Context, inventoryID string, previousQuantity, newQuantity int, movementType string) (*domain.MovementEntry, error)

	// History returns entries for one record, newest first.
	History(ctx context.Context, inventoryID string, page, size int) ([]domain.MovementEntry, error)

	// TopMovers returns inventory records ordered by descending count of
	// visible ledger entries.
	TopMovers(ctx context.Context, limit int) ([]domain.InventoryRecord, error)

	// InactiveSince returns records whose most recent entry, or absence of
	// any entry, predates the cutoff.
	InactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.InventoryRecord, error)
}

type ProductReader interface {
	FindByID(ctx context.Context, productID string) (*domain.Product, error)
}
