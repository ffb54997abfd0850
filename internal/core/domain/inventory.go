package domain

import "time"

// InventoryRecord holds the authoritative stock quantity for a product.
// The quantity is mutated only through operations that also append a
// MovementEntry, so the latest ledger entry always matches it.
type InventoryRecord struct {
	ID              string
	ProductID       string
	QuantityInStock int
	LastRestockAt   time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MovementEntry is one immutable ledger record of a quantity change.
// Once written, its quantities and timestamp never change.
type MovementEntry struct {
	ID               string
	InventoryID      string
	PreviousQuantity int
	NewQuantity      int
	MovementType     string
	CreatedAt        time.Time
}

// Movement types are free-form tags; these are the ones the system
// itself writes.
const (
	MovementRestock      = "RESTOCK"
	MovementSale         = "SALE"
	MovementReturn       = "RETURN"
	MovementCancellation = "CANCELLATION"
)
