package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

// InventoryAdjustment reconciles counted stock against the ledger. Each line
// records the counted quantity; the movement written is the delta between
// the count and the on-hand quantity at apply time.
type InventoryAdjustment struct {
	ID             int                       `gorm:"primary_key" json:"id"`
	BusinessId     string                    `gorm:"index;not null" json:"business_id"`
	WarehouseId    int                       `gorm:"not null" json:"warehouse_id"`
	AdjustmentDate time.Time                 `gorm:"not null" json:"adjustment_date"`
	Reason         string                    `gorm:"size:500" json:"reason"`
	CreatedAt      time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	Items          []InventoryAdjustmentItem `gorm:"foreignKey:AdjustmentId" json:"items"`
}

func (a *InventoryAdjustment) GetId() int {
	return a.ID
}

type InventoryAdjustmentItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	AdjustmentId int             `gorm:"index;not null" json:"adjustment_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	PreviousQty  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"previous_qty"`
	ActualQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_qty"`
	Delta        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"delta"`
}

type NewInventoryAdjustment struct {
	WarehouseId    int                          `json:"warehouse_id" binding:"required"`
	AdjustmentDate *time.Time                   `json:"adjustment_date"`
	Reason         string                       `json:"reason"`
	Items          []NewInventoryAdjustmentItem `json:"items" binding:"required"`
}

type NewInventoryAdjustmentItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	ActualQty decimal.Decimal `json:"actual_qty"`
}

// CreateInventoryAdjustment applies a stock count. Lines whose counted
// quantity matches the on-hand quantity produce no movement; a count that
// matches everywhere still records the adjustment document for the audit
// trail but touches no stock.
func CreateInventoryAdjustment(ctx context.Context, input *NewInventoryAdjustment) (*InventoryAdjustment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return nil, utils.NotFoundErrorf("warehouse not found")
	}
	if len(input.Items) == 0 {
		return nil, utils.ValidationErrorf("adjustment requires at least one item")
	}
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ActualQty.IsNegative() {
			return nil, utils.ValidationErrorf("counted quantity cannot be negative")
		}
		productIds = append(productIds, item.ProductId)
	}
	if err := utils.ValidateResourcesId[Product](ctx, businessId, productIds); err != nil {
		return nil, utils.NotFoundErrorf("product not found")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "models", "CreateInventoryAdjustment")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	adjustmentDate := time.Now().UTC()
	if input.AdjustmentDate != nil {
		adjustmentDate = *input.AdjustmentDate
	}

	db := config.GetDB()
	tx := db.Begin()

	adjustment := InventoryAdjustment{
		BusinessId:     businessId,
		WarehouseId:    input.WarehouseId,
		AdjustmentDate: adjustmentDate,
		Reason:         input.Reason,
	}
	if err := tx.WithContext(ctx).Create(&adjustment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	entries := make([]MovementEntry, 0, len(input.Items))
	items := make([]InventoryAdjustmentItem, 0, len(input.Items))
	for _, item := range input.Items {
		current, err := AvailableQty(ctx, item.ProductId, input.WarehouseId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		delta := item.ActualQty.Sub(current)
		items = append(items, InventoryAdjustmentItem{
			AdjustmentId: adjustment.ID,
			ProductId:    item.ProductId,
			PreviousQty:  current,
			ActualQty:    item.ActualQty,
			Delta:        delta,
		})
		if delta.IsZero() {
			continue
		}
		entries = append(entries, MovementEntry{
			ProductId:   item.ProductId,
			WarehouseId: input.WarehouseId,
			QtyDelta:    delta,
			Reason:      MovementReasonAdjustment,
			DocType:     DocTypeInventoryAdjustment,
			DocId:       adjustment.ID,
		})
	}

	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(entries) > 0 {
		if _, err := ApplyMovementBatch(ctx, tx, businessId, entries, adjustmentDate); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	adjustment.Items = items
	return &adjustment, nil
}

func GetInventoryAdjustment(ctx context.Context, id int) (*InventoryAdjustment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[InventoryAdjustment](ctx, businessId, id, "Items")
}
