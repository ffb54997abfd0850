package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warecore/inventory/internal/core/domain"
)

type inventoryResponse struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	QuantityInStock int       `json:"quantity_in_stock"`
	LastRestockAt   time.Time `json:"last_restock_at"`
}

type movementResponse struct {
	ID               string    `json:"id"`
	InventoryID      string    `json:"inventory_id"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	MovementType     string    `json:"movement_type"`
	CreatedAt        time.Time `json:"created_at"`
}

type orderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	OrderDate time.Time          `json:"order_date"`
	Status    string             `json:"status"`
	Items     []lineItemResponse `json:"items,omitempty"`
}

type lineItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type summaryResponse struct {
	FromDate       string          `json:"from_date"`
	ToDate         string          `json:"to_date"`
	TotalOrders    int             `json:"total_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalItemsSold int             `json:"total_items_sold"`
}

func toInventoryResponse(rec *domain.InventoryRecord) inventoryResponse {
	return inventoryResponse{
		ID:              rec.ID,
		ProductID:       rec.ProductID,
		QuantityInStock: rec.QuantityInStock,
		LastRestockAt:   rec.LastRestockAt,
	}
}

func toInventoryResponses(records []domain.InventoryRecord) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(records))
	for i := range records {
		out = append(out, toInventoryResponse(&records[i]))
	}
	return out
}

func toMovementResponse(e domain.MovementEntry) movementResponse {
	return movementResponse{
		ID:               e.ID,
		InventoryID:      e.InventoryID,
		PreviousQuantity: e.PreviousQuantity,
		NewQuantity:      e.NewQuantity,
		MovementType:     e.MovementType,
		CreatedAt:        e.CreatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		OrderDate: o.OrderDate,
		Status:    string(o.Status),
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func toLineItemResponse(l domain.OrderLineItem) lineItemResponse {
	return lineItemResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Price:     l.Price,
	}
}
