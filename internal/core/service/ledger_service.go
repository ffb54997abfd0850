package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warecore/inventory/internal/core/domain"
	"github.com/warecore/inventory/internal/port"
)

const defaultPageSize = 10

// LedgerService exposes the append-only movement ledger: writes go
// through Record, reads are plain queries plus two aggregations backed
// by an advisory cache.
type LedgerService struct {
	movements port.MovementRepository
	cache     port.CacheRepository
	cacheTTL  time.Duration
	logger    *zap.Logger
}

func NewLedgerService(movements port.MovementRepository, cache port.CacheRepository, cacheTTL time.Duration, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		movements: movements,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func (s *LedgerService) Record(ctx context.Context, inventoryID string, previousQuantity, newQuantity int, movementType string) (*domain.MovementEntry, error) {
	movementType = strings.ToUpper(strings.TrimSpace(movementType))
	if movementType == "" {
		return nil, &domain.ValidationError{Field: "movementType", Reason: "must not be empty"}
	}
	if newQuantity < 0 {
		return nil, &domain.ValidationError{Field: "newQuantity", Reason: "must not be negative"}
	}

	entry, err := s.movements.Record(ctx, inventoryID, previousQuantity, newQuantity, movementType)
	if err != nil {
		return nil, err
	}

	s.logger.Info("movement recorded",
		zap.String("inventory_id", inventoryID),
		zap.String("movement_type", movementType),
		zap.Int("previous_quantity", previousQuantity),
		zap.Int("new_quantity", newQuantity))

	return entry, nil
}

// History returns movement entries for one inventory record, newest
// first. An empty page is not an error.
func (s *LedgerService) History(ctx context.Context, inventoryID string, page, size int) ([]domain.MovementEntry, error) {
	page, size = clampPage(page, size)
	return s.movements.History(ctx, inventoryID, page, size)
}

func (s *LedgerService) TopMovers(ctx context.Context, limit int) ([]domain.InventoryRecord, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	key := fmt.Sprintf("ledger:top-movers:%d", limit)
	var cached []domain.InventoryRecord
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	records, err := s.movements.TopMovers(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, records)
	return records, nil
}

func (s *LedgerService) InactiveSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.InventoryRecord, error) {
	if cutoff.IsZero() {
		return nil, &domain.ValidationError{Field: "cutoff", Reason: "must be a valid timestamp"}
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	return s.movements.InactiveSince(ctx, cutoff, limit)
}

// cacheGet reports whether the key was present and decoded. Cache
// failures degrade to a direct query.
func (s *LedgerService) cacheGet(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *LedgerService) cacheSet(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	return page, size
}
