package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InventoryRebuildResult summarizes one rebuild run.
type InventoryRebuildResult struct {
	BucketsChecked   int
	BucketsCorrected int
}

// InventoryDrift is one stock bucket whose item row disagrees with the
// ledger sum.
type InventoryDrift struct {
	ProductId   int
	WarehouseId int
	ItemQty     decimal.Decimal
	LedgerQty   decimal.Decimal
}

type ledgerBucket struct {
	ProductId   int
	WarehouseId int
	Total       decimal.Decimal
}

func sumLedgerBuckets(ctx context.Context, db *gorm.DB, businessId string) ([]ledgerBucket, error) {
	var buckets []ledgerBucket
	err := db.WithContext(ctx).Model(&models.InventoryMovement{}).
		Select("product_id, warehouse_id, SUM(qty_delta) AS total").
		Where("business_id = ?", businessId).
		Group("product_id, warehouse_id").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// InventoryDriftReport lists drifted buckets without writing anything.
func InventoryDriftReport(ctx context.Context, db *gorm.DB, businessId string) ([]InventoryDrift, error) {
	buckets, err := sumLedgerBuckets(ctx, db, businessId)
	if err != nil {
		return nil, err
	}

	var drift []InventoryDrift
	for _, b := range buckets {
		var item models.InventoryItem
		err := db.WithContext(ctx).
			Where("business_id = ? AND product_id = ? AND warehouse_id = ?",
				businessId, b.ProductId, b.WarehouseId).
			First(&item).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			drift = append(drift, InventoryDrift{
				ProductId:   b.ProductId,
				WarehouseId: b.WarehouseId,
				ItemQty:     decimal.Zero,
				LedgerQty:   b.Total,
			})
			continue
		case err != nil:
			return nil, err
		}
		if !item.Qty.Equal(b.Total) {
			drift = append(drift, InventoryDrift{
				ProductId:   b.ProductId,
				WarehouseId: b.WarehouseId,
				ItemQty:     item.Qty,
				LedgerQty:   b.Total,
			})
		}
	}
	return drift, nil
}

// RebuildInventoryFromLedger recomputes every InventoryItem.Qty for a
// business from SUM(qty_delta) over the movement ledger. The ledger is the
// source of truth; item rows that drifted (crash between writes, manual
// edits) are overwritten. Used by cmd/inventory-rebuild.
func RebuildInventoryFromLedger(ctx context.Context, db *gorm.DB, logger *logrus.Logger, businessId string) (*InventoryRebuildResult, error) {
	buckets, err := sumLedgerBuckets(ctx, db, businessId)
	if err != nil {
		return nil, err
	}

	result := &InventoryRebuildResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range buckets {
			result.BucketsChecked++

			var item models.InventoryItem
			err := tx.Where("business_id = ? AND product_id = ? AND warehouse_id = ?",
				businessId, b.ProductId, b.WarehouseId).
				First(&item).Error
			switch {
			case err == gorm.ErrRecordNotFound:
				item = models.InventoryItem{
					BusinessId:  businessId,
					ProductId:   b.ProductId,
					WarehouseId: b.WarehouseId,
					Qty:         b.Total,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
				result.BucketsCorrected++
				continue
			case err != nil:
				return err
			}

			if item.Qty.Equal(b.Total) {
				continue
			}
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"business_id":  businessId,
					"product_id":   b.ProductId,
					"warehouse_id": b.WarehouseId,
					"item_qty":     item.Qty.String(),
					"ledger_qty":   b.Total.String(),
				}).Warn("inventory drift corrected from ledger")
			}
			if err := tx.Model(&models.InventoryItem{}).
				Where("id = ?", item.ID).
				Update("qty", b.Total).Error; err != nil {
				return err
			}
			result.BucketsCorrected++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
