package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryItem is the authoritative stock level for one (product, warehouse)
// pair. Rows are created on first movement and never deleted, only zeroed.
// All writes go through ApplyMovementBatch so the movement ledger and the
// item quantity can never diverge.
type InventoryItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index:idx_inv_item_key,unique,priority:1;not null" json:"business_id"`
	WarehouseId int             `gorm:"index:idx_inv_item_key,unique,priority:2;not null" json:"warehouse_id"`
	ProductId   int             `gorm:"index:idx_inv_item_key,unique,priority:3;not null" json:"product_id"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryMovement is an append-only ledger row. The sum of QtyDelta per
// (product, warehouse) must equal InventoryItem.Qty at all times.
type InventoryMovement struct {
	ID            string          `gorm:"size:36;primary_key" json:"id"` // uuid
	BusinessId    string          `gorm:"index:idx_inv_move_biz_item,priority:1;not null" json:"business_id"`
	WarehouseId   int             `gorm:"index:idx_inv_move_biz_item,priority:2;not null" json:"warehouse_id"`
	ProductId     int             `gorm:"index:idx_inv_move_biz_item,priority:3;not null" json:"product_id"`
	QtyDelta      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_delta"`
	Reason        MovementReason  `gorm:"size:30;not null" json:"reason"`
	DocType       DocType         `gorm:"size:20;not null" json:"doc_type"`
	DocId         int             `gorm:"index;not null" json:"doc_id"`
	EffectiveDate time.Time       `gorm:"index;not null" json:"effective_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
}

// MovementEntry is one requested stock delta inside a batch.
type MovementEntry struct {
	ProductId   int
	WarehouseId int
	QtyDelta    decimal.Decimal
	Reason      MovementReason
	DocType     DocType
	DocId       int
}

// StockKey identifies one stock bucket.
type StockKey struct {
	ProductId   int
	WarehouseId int
}

// PlanMovementBatch validates a batch of deltas against current quantities
// and returns the resulting quantity per key. It is pure: nothing is applied.
// The whole batch is rejected if any resulting quantity would go negative.
func PlanMovementBatch(current map[StockKey]decimal.Decimal, entries []MovementEntry) (map[StockKey]decimal.Decimal, error) {
	result := make(map[StockKey]decimal.Decimal, len(current))
	for k, v := range current {
		result[k] = v
	}
	for _, e := range entries {
		if e.ProductId <= 0 || e.WarehouseId <= 0 {
			return nil, utils.ValidationErrorf("movement entry requires product and warehouse")
		}
		if e.QtyDelta.IsZero() {
			return nil, utils.ValidationErrorf("movement entry quantity cannot be zero")
		}
		k := StockKey{ProductId: e.ProductId, WarehouseId: e.WarehouseId}
		next := result[k].Add(e.QtyDelta)
		if next.IsNegative() && !e.Reason.AllowsNegative() {
			return nil, utils.InsufficientStockErrorf(
				"insufficient stock for product %d in warehouse %d (have %s, need %s)",
				e.ProductId, e.WarehouseId, result[k].String(), e.QtyDelta.Neg().String())
		}
		result[k] = next
	}
	return result, nil
}

// lockInventoryItems fetches (creating when absent) and row-locks the
// InventoryItem for every key touched by entries. Must run inside tx.
func lockInventoryItems(tx *gorm.DB, businessId string, entries []MovementEntry) (map[StockKey]*InventoryItem, error) {
	items := make(map[StockKey]*InventoryItem)
	for _, e := range entries {
		k := StockKey{ProductId: e.ProductId, WarehouseId: e.WarehouseId}
		if _, ok := items[k]; ok {
			continue
		}
		item := InventoryItem{
			BusinessId:  businessId,
			WarehouseId: e.WarehouseId,
			ProductId:   e.ProductId,
		}
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("business_id = ? AND warehouse_id = ? AND product_id = ?",
				businessId, e.WarehouseId, e.ProductId).
			FirstOrCreate(&item)
		if result.Error != nil {
			return nil, result.Error
		}
		items[k] = &item
	}
	return items, nil
}

// ApplyMovementBatch applies a list of stock deltas atomically inside tx:
// either every entry lands (item update + ledger row) or the caller rolls
// the transaction back. Validation happens against row-locked quantities so
// two concurrent batches cannot both pass the sufficiency check.
func ApplyMovementBatch(ctx context.Context, tx *gorm.DB, businessId string, entries []MovementEntry, effectiveDate time.Time) ([]*InventoryMovement, error) {
	if len(entries) == 0 {
		return nil, utils.ValidationErrorf("movement batch is empty")
	}

	items, err := lockInventoryItems(tx, businessId, entries)
	if err != nil {
		return nil, err
	}

	current := make(map[StockKey]decimal.Decimal, len(items))
	for k, item := range items {
		current[k] = item.Qty
	}
	planned, err := PlanMovementBatch(current, entries)
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	movements := make([]*InventoryMovement, 0, len(entries))
	for _, e := range entries {
		movement := &InventoryMovement{
			ID:            uuid.NewString(),
			BusinessId:    businessId,
			WarehouseId:   e.WarehouseId,
			ProductId:     e.ProductId,
			QtyDelta:      e.QtyDelta,
			Reason:        e.Reason,
			DocType:       e.DocType,
			DocId:         e.DocId,
			EffectiveDate: effectiveDate,
			CorrelationId: correlationId,
		}
		if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}

	for k, item := range items {
		if err := tx.WithContext(ctx).Model(&InventoryItem{}).
			Where("id = ?", item.ID).
			Update("qty", planned[k]).Error; err != nil {
			return nil, err
		}
		item.Qty = planned[k]
	}

	return movements, nil
}

// ApplyMovement applies a single delta; see ApplyMovementBatch.
func ApplyMovement(ctx context.Context, tx *gorm.DB, businessId string, entry MovementEntry, effectiveDate time.Time) (*InventoryMovement, error) {
	movements, err := ApplyMovementBatch(ctx, tx, businessId, []MovementEntry{entry}, effectiveDate)
	if err != nil {
		return nil, err
	}
	return movements[0], nil
}

// AvailableQty returns the current stock for a (product, warehouse) pair.
// A missing row means zero.
func AvailableQty(ctx context.Context, productId int, warehouseId int) (decimal.Decimal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var item InventoryItem
	err := db.WithContext(ctx).
		Where("business_id = ? AND product_id = ? AND warehouse_id = ?", businessId, productId, warehouseId).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return item.Qty, nil
}

// LedgerQtySum sums the movement ledger for a stock bucket. Used by the
// rebuild tool and consistency checks; must equal InventoryItem.Qty.
func LedgerQtySum(ctx context.Context, businessId string, productId int, warehouseId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var sum decimal.NullDecimal
	err := db.WithContext(ctx).Model(&InventoryMovement{}).
		Select("SUM(qty_delta)").
		Where("business_id = ? AND product_id = ? AND warehouse_id = ?", businessId, productId, warehouseId).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// ListMovements returns the movement rows generated by one document.
func ListMovements(ctx context.Context, docType DocType, docId int) ([]*InventoryMovement, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var movements []*InventoryMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND doc_type = ? AND doc_id = ?", businessId, docType, docId).
		Order("created_at").Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
