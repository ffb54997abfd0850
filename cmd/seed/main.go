// Seed tool: loads a demo catalog and hammers one inventory record with
// concurrent adjustments to verify that the transactional read-modify-write
// never loses an update.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/warecore/inventory/internal/adapter/storage"
	"github.com/warecore/inventory/internal/core/domain"
)

const (
	initialStock  = 500
	totalAdjusts  = 200
	adjustDelta   = -2
	demoCategory  = "demo"
	demoProductID = "seed-product"
)

func main() {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	ctx := context.Background()

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	adapter := storage.NewMySQLAdapter(db)

	// Reset previous demo data
	db.ExecContext(ctx, `DELETE FROM inventory_movement WHERE inventory_id IN (SELECT id FROM inventory WHERE product_id = ?)`, demoProductID)
	db.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = ?`, demoProductID)
	db.ExecContext(ctx, `DELETE FROM product WHERE id = ?`, demoProductID)

	_, err = db.ExecContext(ctx, `
		INSERT INTO product (id, name, category, price, visibility, created_at, updated_at)
		VALUES (?, 'Seed Widget', ?, 9.99, TRUE, NOW(), NOW())`,
		demoProductID, demoCategory,
	)
	if err != nil {
		log.Fatalf("failed to insert product: %v", err)
	}

	rec := domain.InventoryRecord{
		ID:              uuid.NewString(),
		ProductID:       demoProductID,
		QuantityInStock: initialStock,
		LastRestockAt:   time.Now(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := adapter.CreateRecord(ctx, rec); err != nil {
		log.Fatalf("failed to insert inventory: %v", err)
	}
	log.Printf("seeded inventory %s with stock %d", rec.ID, initialStock)

	// Concurrent adjustments against one record
	var okCount, failCount atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < totalAdjusts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if _, err := adapter.AdjustQuantity(callCtx, rec.ID, adjustDelta, domain.MovementSale); err != nil {
				failCount.Add(1)
			} else {
				okCount.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	final, err := adapter.GetRecord(ctx, rec.ID)
	if err != nil || final == nil {
		log.Fatalf("failed to read back inventory: %v", err)
	}

	var movements int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_movement WHERE inventory_id = ?`, rec.ID).Scan(&movements)

	fmt.Printf("adjustments: %d ok, %d failed in %s\n", okCount.Load(), failCount.Load(), elapsed)
	fmt.Printf("final stock: %d (expected %d)\n", final.QuantityInStock, initialStock+int(okCount.Load())*adjustDelta)
	fmt.Printf("ledger entries: %d (expected %d)\n", movements, okCount.Load())
}
