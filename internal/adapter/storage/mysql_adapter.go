package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warecore/inventory/internal/core/domain"
)

// MySQLAdapter implements the order, inventory, movement and product
// ports on a single MySQL database. Multi-statement operations run in
// one transaction; per-record serialization comes from SELECT ... FOR
// UPDATE on the inventory row.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// --- orders ---

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLineItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, order_date, status, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, TRUE, ?, ?)`,
		order.ID, order.UserID, order.OrderDate, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_line_item (id, order_id, product_id, quantity, price, visibility)
			VALUES (?, ?, ?, ?, ?, TRUE)`,
			line.ID, line.OrderID, line.ProductID, line.Quantity, line.Price,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}

		inventoryID, err := inventoryIDForProductTx(ctx, tx, line.ProductID)
		if err != nil {
			return err
		}
		if _, err := adjustQuantityTx(ctx, tx, inventoryID, -line.Quantity, domain.MovementSale); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, order_date, status, created_at, updated_at
		FROM orders WHERE id = ? AND visibility = TRUE`, orderID,
	).Scan(&order.ID, &order.UserID, &order.OrderDate, &order.Status, &order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &order, nil
}

func (m *MySQLAdapter) GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_line_item WHERE order_id = ? AND visibility = TRUE
		ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	return scanLines(rows)
}

func (m *MySQLAdapter) UpdateStatus(ctx context.Context, orderID string, status domain.Status) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE id = ? AND visibility = TRUE`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &domain.NotFoundError{Entity: "order", ID: orderID}
	}
	return nil
}

func (m *MySQLAdapter) CancelOrder(ctx context.Context, orderID string, lines []domain.OrderLineItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, line := range lines {
		inventoryID, err := inventoryIDForProductTx(ctx, tx, line.ProductID)
		if err != nil {
			return err
		}
		if _, err := adjustQuantityTx(ctx, tx, inventoryID, line.Quantity, domain.MovementCancellation); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW()
		WHERE id = ? AND visibility = TRUE`,
		domain.StatusCancelled, orderID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &domain.NotFoundError{Entity: "order", ID: orderID}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) ListByStatus(ctx context.Context, status domain.Status, page, size int) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, order_date, status, created_at, updated_at
		FROM orders WHERE status = ? AND visibility = TRUE
		ORDER BY order_date, id LIMIT ? OFFSET ?`,
		status, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders by status: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (m *MySQLAdapter) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, order_date, status, created_at, updated_at
		FROM orders WHERE user_id = ? AND visibility = TRUE
		ORDER BY order_date, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (m *MySQLAdapter) ListBetween(ctx context.Context, from, end time.Time) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, order_date, status, created_at, updated_at
		FROM orders WHERE order_date >= ? AND order_date < ? AND visibility = TRUE
		ORDER BY order_date, id`,
		from, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders by date: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (m *MySQLAdapter) LinesForOrders(ctx context.Context, orderIDs []string) ([]domain.OrderLineItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(orderIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_line_item WHERE order_id IN (`+placeholders+`) AND visibility = TRUE
		ORDER BY order_id, id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	return scanLines(rows)
}

// --- inventory ---

func (m *MySQLAdapter) CreateRecord(ctx context.Context, rec domain.InventoryRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (id, product_id, quantity_in_stock, last_restock_at, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, TRUE, ?, ?)`,
		rec.ID, rec.ProductID, rec.QuantityInStock, rec.LastRestockAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetRecord(ctx context.Context, inventoryID string) (*domain.InventoryRecord, error) {
	return m.queryRecord(ctx, `
		SELECT id, product_id, quantity_in_stock, last_restock_at, created_at, updated_at
		FROM inventory WHERE id = ? AND visibility = TRUE`, inventoryID)
}

func (m *MySQLAdapter) GetRecordByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return m.queryRecord(ctx, `
		SELECT id, product_id, quantity_in_stock, last_restock_at, created_at, updated_at
		FROM inventory WHERE product_id = ? AND visibility = TRUE`, productID)
}

func (m *MySQLAdapter) SoftDelete(ctx context.Context, inventoryID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory SET visibility = FALSE, updated_at = NOW()
		WHERE id = ? AND visibility = TRUE`, inventoryID,
	)
	if err != nil {
		return fmt.Errorf("soft delete inventory: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	return nil
}

func (m *MySQLAdapter) SetQuantity(ctx context.Context, inventoryID string, newQuantity int, movementType string) (*domain.InventoryRecord, error) {
	return m.mutateQuantity(ctx, inventoryID, func(current int) int { return newQuantity }, movementType)
}

func (m *MySQLAdapter) AdjustQuantity(ctx context.Context, inventoryID string, delta int, movementType string) (*domain.InventoryRecord, error) {
	return m.mutateQuantity(ctx, inventoryID, func(current int) int { return current + delta }, movementType)
}

// mutateQuantity wraps the read-modify-write plus the ledger append in
// one transaction. The FOR UPDATE read serializes concurrent mutations
// of the same record.
func (m *MySQLAdapter) mutateQuantity(ctx context.Context, inventoryID string, next func(current int) int, movementType string) (*domain.InventoryRecord, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity_in_stock FROM inventory
		WHERE id = ? AND visibility = TRUE FOR UPDATE`, inventoryID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	if err != nil {
		return nil, fmt.Errorf("lock inventory: %w", err)
	}

	newQuantity := next(current)
	if newQuantity < 0 {
		return nil, &domain.ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("change would drive stock of inventory %s negative (current %d)", inventoryID, current),
		}
	}

	if err := writeQuantityTx(ctx, tx, inventoryID, current, newQuantity, movementType); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return m.GetRecord(ctx, inventoryID)
}

func (m *MySQLAdapter) LowStock(ctx context.Context, threshold, page, size int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, quantity_in_stock, last_restock_at, created_at, updated_at
		FROM inventory WHERE quantity_in_stock <= ? AND visibility = TRUE
		ORDER BY quantity_in_stock, id LIMIT ? OFFSET ?`,
		threshold, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (m *MySQLAdapter) ByCategory(ctx context.Context, category string, page, size int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT i.id, i.product_id, i.quantity_in_stock, i.last_restock_at, i.created_at, i.updated_at
		FROM inventory i
		JOIN product p ON p.id = i.product_id AND p.visibility = TRUE
		WHERE p.category = ? AND i.visibility = TRUE
		ORDER BY i.id LIMIT ? OFFSET ?`,
		category, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("query by category: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// --- movement ledger ---

func (m *MySQLAdapter) Record(ctx context.Context, inventoryID string, previousQuantity, newQuantity int, movementType string) (*domain.MovementEntry, error) {
	var exists int
	err := m.db.QueryRowContext(ctx, `
		SELECT 1 FROM inventory WHERE id = ? AND visibility = TRUE`, inventoryID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	if err != nil {
		return nil, fmt.Errorf("check inventory: %w", err)
	}

	entry := domain.MovementEntry{
		ID:               uuid.NewString(),
		InventoryID:      inventoryID,
		PreviousQuantity: previousQuantity,
		NewQuantity:      newQuantity,
		MovementType:     movementType,
		CreatedAt:        time.Now(),
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO inventory_movement (id, inventory_id, previous_quantity, new_quantity, movement_type, created_at, visibility)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)`,
		entry.ID, entry.InventoryID, entry.PreviousQuantity, entry.NewQuantity, entry.MovementType, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}
	return &entry, nil
}

func (m *MySQLAdapter) History(ctx context.Context, inventoryID string, page, size int) ([]domain.MovementEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, inventory_id, previous_quantity, new_quantity, movement_type, created_at
		FROM inventory_movement WHERE inventory_id = ? AND visibility = TRUE
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		inventoryID, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("query movement history: %w", err)
	}
	defer rows.Close()

	var entries []domain.MovementEntry
	for rows.Next() {
		var e domain.MovementEntry
		if err := rows.Scan(&e.ID, &e.InventoryID, &e.PreviousQuantity, &e.NewQuantity, &e.MovementType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (m *MySQLAdapter) TopMovers(ctx context.Context, limit int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT i.id, i.product_id, i.quantity_in_stock, i.last_restock_at, i.created_at, i.updated_at
		FROM inventory i
		JOIN inventory_movement mv ON mv.inventory_id = i.id AND mv.visibility = TRUE
		WHERE i.visibility = TRUE
		GROUP BY i.id
		ORDER BY COUNT(mv.id) DESC, i.id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top movers: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (m *MySQLAdapter) InactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT i.id, i.product_id, i.quantity_in_stock, i.last_restock_at, i.created_at, i.updated_at
		FROM inventory i
		LEFT JOIN inventory_movement mv ON mv.inventory_id = i.id AND mv.visibility = TRUE
		WHERE i.visibility = TRUE
		GROUP BY i.id
		HAVING COALESCE(MAX(mv.created_at), i.created_at) < ?
		ORDER BY COALESCE(MAX(mv.created_at), i.created_at), i.id LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query inactive inventory: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// --- products ---

func (m *MySQLAdapter) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, category, price
		FROM product WHERE id = ? AND visibility = TRUE`, productID,
	).Scan(&p.ID, &p.Name, &p.Category, &p.Price)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

// --- shared helpers ---

func inventoryIDForProductTx(ctx context.Context, tx *sql.Tx, productID string) (string, error) {
	var inventoryID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM inventory WHERE product_id = ? AND visibility = TRUE`, productID,
	).Scan(&inventoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &domain.NotFoundError{Entity: "inventory for product", ID: productID}
	}
	if err != nil {
		return "", fmt.Errorf("resolve inventory: %w", err)
	}
	return inventoryID, nil
}

// adjustQuantityTx locks the record, validates the result and writes the
// quantity plus its ledger entry within the caller's transaction.
func adjustQuantityTx(ctx context.Context, tx *sql.Tx, inventoryID string, delta int, movementType string) (int, error) {
	var current int
	err := tx.QueryRowContext(ctx, `
		SELECT quantity_in_stock FROM inventory
		WHERE id = ? AND visibility = TRUE FOR UPDATE`, inventoryID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &domain.NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	if err != nil {
		return 0, fmt.Errorf("lock inventory: %w", err)
	}

	newQuantity := current + delta
	if newQuantity < 0 {
		return 0, &domain.ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("change would drive stock of inventory %s negative (current %d)", inventoryID, current),
		}
	}

	if err := writeQuantityTx(ctx, tx, inventoryID, current, newQuantity, movementType); err != nil {
		return 0, err
	}
	return newQuantity, nil
}

func writeQuantityTx(ctx context.Context, tx *sql.Tx, inventoryID string, current, newQuantity int, movementType string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_movement (id, inventory_id, previous_quantity, new_quantity, movement_type, created_at, visibility)
		VALUES (?, ?, ?, ?, ?, ?, TRUE)`,
		uuid.NewString(), inventoryID, current, newQuantity, movementType, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory SET quantity_in_stock = ?, last_restock_at = NOW(), updated_at = NOW()
		WHERE id = ?`,
		newQuantity, inventoryID,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) queryRecord(ctx context.Context, query string, arg any) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := m.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID, &rec.ProductID, &rec.QuantityInStock, &rec.LastRestockAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanLines(rows *sql.Rows) ([]domain.OrderLineItem, error) {
	var lines []domain.OrderLineItem
	for rows.Next() {
		var l domain.OrderLineItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]domain.InventoryRecord, error) {
	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.QuantityInStock, &rec.LastRestockAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
