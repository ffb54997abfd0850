package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warecore/inventory/internal/core/domain"
	"github.com/warecore/inventory/internal/port"
)

// InventoryService owns the current stock quantity per product. Every
// quantity change goes through the repository as one transaction that
// also appends a ledger entry, so the quantity and the ledger never
// drift apart.
type InventoryService struct {
	inventory port.InventoryRepository
	products  port.ProductReader
	logger    *zap.Logger
}

func NewInventoryService(inventory port.InventoryRepository, products port.ProductReader, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		inventory: inventory,
		products:  products,
		logger:    logger,
	}
}

func (s *InventoryService) Create(ctx context.Context, productID string, quantity int) (*domain.InventoryRecord, error) {
	if quantity < 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.ValidationError{Field: "productId", Reason: "product " + productID + " not found"}
	}

	now := time.Now()
	rec := domain.InventoryRecord{
		ID:              uuid.NewString(),
		ProductID:       productID,
		QuantityInStock: quantity,
		LastRestockAt:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.inventory.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("inventory record created",
		zap.String("inventory_id", rec.ID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity))

	return &rec, nil
}

func (s *InventoryService) Get(ctx context.Context, inventoryID string) (*domain.InventoryRecord, error) {
	rec, err := s.inventory.GetRecord(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	return rec, nil
}

// Delete hides the record behind the visibility flag; nothing is ever
// hard-deleted.
func (s *InventoryService) Delete(ctx context.Context, inventoryID string) error {
	if _, err := s.Get(ctx, inventoryID); err != nil {
		return err
	}
	if err := s.inventory.SoftDelete(ctx, inventoryID); err != nil {
		return err
	}
	s.logger.Info("inventory record deleted", zap.String("inventory_id", inventoryID))
	return nil
}

func (s *InventoryService) SetQuantity(ctx context.Context, inventoryID string, newQuantity int, movementType string) (*domain.InventoryRecord, error) {
	if newQuantity < 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	movementType, err := normalizeMovementType(movementType)
	if err != nil {
		return nil, err
	}

	rec, err := s.inventory.SetQuantity(ctx, inventoryID, newQuantity, movementType)
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory quantity set",
		zap.String("inventory_id", inventoryID),
		zap.String("movement_type", movementType),
		zap.Int("new_quantity", rec.QuantityInStock))

	return rec, nil
}

// AdjustQuantity applies a relative change. Restoring more than was ever
// reserved is allowed; driving stock negative is not.
func (s *InventoryService) AdjustQuantity(ctx context.Context, inventoryID string, delta int, movementType string) (*domain.InventoryRecord, error) {
	movementType, err := normalizeMovementType(movementType)
	if err != nil {
		return nil, err
	}

	rec, err := s.inventory.AdjustQuantity(ctx, inventoryID, delta, movementType)
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory quantity adjusted",
		zap.String("inventory_id", inventoryID),
		zap.String("movement_type", movementType),
		zap.Int("delta", delta),
		zap.Int("new_quantity", rec.QuantityInStock))

	return rec, nil
}

func (s *InventoryService) LowStock(ctx context.Context, threshold, page, size int) ([]domain.InventoryRecord, error) {
	if threshold < 0 {
		return nil, &domain.ValidationError{Field: "threshold", Reason: "must not be negative"}
	}
	page, size = clampPage(page, size)
	return s.inventory.LowStock(ctx, threshold, page, size)
}

func (s *InventoryService) ByCategory(ctx context.Context, category string, page, size int) ([]domain.InventoryRecord, error) {
	if strings.TrimSpace(category) == "" {
		return nil, &domain.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	page, size = clampPage(page, size)
	return s.inventory.ByCategory(ctx, category, page, size)
}

func normalizeMovementType(movementType string) (string, error) {
	movementType = strings.ToUpper(strings.TrimSpace(movementType))
	if movementType == "" {
		return "", &domain.ValidationError{Field: "movementType", Reason: "must not be empty"}
	}
	return movementType, nil
}
