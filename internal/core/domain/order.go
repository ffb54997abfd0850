package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID        string
	UserID    string
	OrderDate time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderLineItem ties a product to an order. Price is a snapshot of the
// unit price at order time and is never recomputed from the product.
type OrderLineItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// OrderSummary aggregates orders whose date falls in [FromDate, ToDate].
// TotalOrders counts distinct orders, not line items.
type OrderSummary struct {
	FromDate       time.Time
	ToDate         time.Time
	TotalOrders    int
	TotalRevenue   decimal.Decimal
	TotalItemsSold int
}
