package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warecore/inventory/internal/core/domain"
)

// memStore is an in-memory double for all repository ports. Transactional
// methods validate everything before applying anything, mirroring the
// all-or-nothing semantics of the MySQL adapter.
type memStore struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	inventory map[string]*domain.InventoryRecord
	visible   map[string]bool
	byProduct map[string]string
	movements []domain.MovementEntry
	orders    map[string]*domain.Order
	lines     map[string][]domain.OrderLineItem

	clock time.Time

	topMoversCalls int
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]domain.Product),
		inventory: make(map[string]*domain.InventoryRecord),
		visible:   make(map[string]bool),
		byProduct: make(map[string]string),
		orders:    make(map[string]*domain.Order),
		lines:     make(map[string][]domain.OrderLineItem),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addProduct(id, category string, price float64) {
	m.products[id] = domain.Product{ID: id, Name: id, Category: category, Price: decimal.NewFromFloat(price)}
}

func (m *memStore) addInventory(id, productID string, quantity int) {
	m.inventory[id] = &domain.InventoryRecord{
		ID:              id,
		ProductID:       productID,
		QuantityInStock: quantity,
		LastRestockAt:   m.clock,
		CreatedAt:       m.clock,
		UpdatedAt:       m.clock,
	}
	m.visible[id] = true
	m.byProduct[productID] = id
}

func (m *memStore) quantity(inventoryID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inventory[inventoryID].QuantityInStock
}

func (m *memStore) movementsFor(inventoryID string) []domain.MovementEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MovementEntry
	for _, e := range m.movements {
		if e.InventoryID == inventoryID {
			out = append(out, e)
		}
	}
	return out
}

// tick advances the logical clock so ledger timestamps are strictly
// increasing within a test.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

// --- ProductReader ---

func (m *memStore) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// --- InventoryRepository ---

func (m *memStore) CreateRecord(ctx context.Context, rec domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := rec
	m.inventory[rec.ID] = &copied
	m.visible[rec.ID] = true
	m.byProduct[rec.ProductID] = rec.ID
	return nil
}

func (m *memStore) GetRecord(ctx context.Context, inventoryID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordLocked(inventoryID), nil
}

func (m *memStore) GetRecordByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordLocked(m.byProduct[productID]), nil
}

func (m *memStore) recordLocked(inventoryID string) *domain.InventoryRecord {
	rec, ok := m.inventory[inventoryID]
	if !ok || !m.visible[inventoryID] {
		return nil
	}
	copied := *rec
	return &copied
}

func (m *memStore) SoftDelete(ctx context.Context, inventoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible[inventoryID] {
		return &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	m.visible[inventoryID] = false
	return nil
}

func (m *memStore) SetQuantity(ctx context.Context, inventoryID string, newQuantity int, movementType string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.applyQuantityLocked(inventoryID, func(int) int { return newQuantity }, movementType); err != nil {
		return nil, err
	}
	return m.recordLocked(inventoryID), nil
}

func (m *memStore) AdjustQuantity(ctx context.Context, inventoryID string, delta int, movementType string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.applyQuantityLocked(inventoryID, func(current int) int { return current + delta }, movementType); err != nil {
		return nil, err
	}
	return m.recordLocked(inventoryID), nil
}

func (m *memStore) applyQuantityLocked(inventoryID string, next func(int) int, movementType string) error {
	rec, ok := m.inventory[inventoryID]
	if !ok || !m.visible[inventoryID] {
		return &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	newQuantity := next(rec.QuantityInStock)
	if newQuantity < 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "change would drive stock negative"}
	}
	now := m.tick()
	m.movements = append(m.movements, domain.MovementEntry{
		ID:               uuid.NewString(),
		InventoryID:      inventoryID,
		PreviousQuantity: rec.QuantityInStock,
		NewQuantity:      newQuantity,
		MovementType:     movementType,
		CreatedAt:        now,
	})
	rec.QuantityInStock = newQuantity
	rec.LastRestockAt = now
	rec.UpdatedAt = now
	return nil
}

func (m *memStore) LowStock(ctx context.Context, threshold, page, size int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InventoryRecord
	for id, rec := range m.inventory {
		if m.visible[id] && rec.QuantityInStock <= threshold {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuantityInStock < out[j].QuantityInStock })
	return paginate(out, page, size), nil
}

func (m *memStore) ByCategory(ctx context.Context, category string, page, size int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InventoryRecord
	for id, rec := range m.inventory {
		if m.visible[id] && m.products[rec.ProductID].Category == category {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page, size), nil
}

// --- MovementRepository ---

func (m *memStore) Record(ctx context.Context, inventoryID string, previousQuantity, newQuantity int, movementType string) (*domain.MovementEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible[inventoryID] {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	entry := domain.MovementEntry{
		ID:               uuid.NewString(),
		InventoryID:      inventoryID,
		PreviousQuantity: previousQuantity,
		NewQuantity:      newQuantity,
		MovementType:     movementType,
		CreatedAt:        m.tick(),
	}
	m.movements = append(m.movements, entry)
	return &entry, nil
}

func (m *memStore) History(ctx context.Context, inventoryID string, page, size int) ([]domain.MovementEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MovementEntry
	for _, e := range m.movements {
		if e.InventoryID == inventoryID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, size), nil
}

func (m *memStore) TopMovers(ctx context.Context, limit int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topMoversCalls++

	counts := make(map[string]int)
	for _, e := range m.movements {
		counts[e.InventoryID]++
	}
	var out []domain.InventoryRecord
	for id, rec := range m.inventory {
		if m.visible[id] && counts[id] > 0 {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return counts[out[i].ID] > counts[out[j].ID] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) InactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[string]time.Time)
	for _, e := range m.movements {
		if e.CreatedAt.After(latest[e.InventoryID]) {
			latest[e.InventoryID] = e.CreatedAt
		}
	}
	var out []domain.InventoryRecord
	for id, rec := range m.inventory {
		if !m.visible[id] {
			continue
		}
		last := latest[id]
		if last.IsZero() {
			last = rec.CreatedAt
		}
		if last.Before(cutoff) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- OrderRepository ---

func (m *memStore) CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every reservation before applying any, like a rollback would.
	for _, line := range lines {
		inventoryID, ok := m.byProduct[line.ProductID]
		if !ok || !m.visible[inventoryID] {
			return &domain.NotFoundError{Entity: "inventory for product", ID: line.ProductID}
		}
		if m.inventory[inventoryID].QuantityInStock < line.Quantity {
			return &domain.ValidationError{Field: "quantity", Reason: "change would drive stock negative"}
		}
	}

	for _, line := range lines {
		inventoryID := m.byProduct[line.ProductID]
		if err := m.applyQuantityLocked(inventoryID, func(current int) int { return current - line.Quantity }, domain.MovementSale); err != nil {
			return err
		}
	}

	copied := order
	m.orders[order.ID] = &copied
	m.lines[order.ID] = append([]domain.OrderLineItem(nil), lines...)
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *memStore) GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderLineItem(nil), m.lines[orderID]...), nil
}

func (m *memStore) UpdateStatus(ctx context.Context, orderID string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: orderID}
	}
	order.Status = status
	return nil
}

func (m *memStore) CancelOrder(ctx context.Context, orderID string, lines []domain.OrderLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return &domain.NotFoundError{Entity: "order", ID: orderID}
	}

	for _, line := range lines {
		inventoryID, ok := m.byProduct[line.ProductID]
		if !ok || !m.visible[inventoryID] {
			return &domain.NotFoundError{Entity: "inventory for product", ID: line.ProductID}
		}
	}

	for _, line := range lines {
		inventoryID := m.byProduct[line.ProductID]
		if err := m.applyQuantityLocked(inventoryID, func(current int) int { return current + line.Quantity }, domain.MovementCancellation); err != nil {
			return err
		}
	}

	order.Status = domain.StatusCancelled
	return nil
}

func (m *memStore) ListByStatus(ctx context.Context, status domain.Status, page, size int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.Status == status {
			out = append(out, *order)
		}
	}
	sortOrders(out)
	return paginate(out, page, size), nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	sortOrders(out)
	return out, nil
}

func (m *memStore) ListBetween(ctx context.Context, from, end time.Time) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if !order.OrderDate.Before(from) && order.OrderDate.Before(end) {
			out = append(out, *order)
		}
	}
	sortOrders(out)
	return out, nil
}

func (m *memStore) LinesForOrders(ctx context.Context, orderIDs []string) ([]domain.OrderLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OrderLineItem
	for _, id := range orderIDs {
		out = append(out, m.lines[id]...)
	}
	return out, nil
}

// --- CacheRepository ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	return raw, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// --- helpers ---

func paginate[T any](items []T, page, size int) []T {
	start := page * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].OrderDate.Before(orders[j].OrderDate)
	})
}
