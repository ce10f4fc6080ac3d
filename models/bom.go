package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillOfMaterial defines the component recipe for one finished product.
// One BOM per product per business.
type BillOfMaterial struct {
	ID         int            `gorm:"primary_key" json:"id"`
	BusinessId string         `gorm:"index:idx_bom_biz_product,unique,priority:1;not null" json:"business_id"`
	ProductId  int            `gorm:"index:idx_bom_biz_product,unique,priority:2;not null" json:"product_id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	Components []BomComponent `gorm:"foreignKey:BomId" json:"components"`
}

func (b *BillOfMaterial) GetId() int {
	return b.ID
}

type BomComponent struct {
	ID        int             `gorm:"primary_key" json:"id"`
	BomId     int             `gorm:"index;not null" json:"bom_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
}

type NewBillOfMaterial struct {
	ProductId  int               `json:"product_id" binding:"required"`
	Components []NewBomComponent `json:"components" binding:"required"`
}

type NewBomComponent struct {
	ProductId int             `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

// RequiredComponents scales a BOM's per-unit component quantities to the
// requested output quantity. Pure.
func RequiredComponents(components []BomComponent, outputQty decimal.Decimal) map[int]decimal.Decimal {
	required := make(map[int]decimal.Decimal, len(components))
	for _, c := range components {
		required[c.ProductId] = required[c.ProductId].Add(c.Qty.Mul(outputQty))
	}
	return required
}

func (input *NewBillOfMaterial) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Product](ctx, businessId, input.ProductId); err != nil {
		return utils.NotFoundErrorf("product not found")
	}
	if len(input.Components) == 0 {
		return utils.ValidationErrorf("bill of material requires at least one component")
	}
	componentIds := make([]int, 0, len(input.Components))
	for _, c := range input.Components {
		if c.ProductId == input.ProductId {
			return utils.ValidationErrorf("a product cannot be a component of itself")
		}
		if !c.Qty.IsPositive() {
			return utils.ValidationErrorf("component quantity must be greater than zero")
		}
		componentIds = append(componentIds, c.ProductId)
	}
	if err := utils.ValidateResourcesId[Product](ctx, businessId, componentIds); err != nil {
		return utils.NotFoundErrorf("component product not found")
	}
	return nil
}

// SaveBillOfMaterial creates or replaces the BOM for a product. Replacement
// swaps the component set atomically.
func SaveBillOfMaterial(ctx context.Context, input *NewBillOfMaterial) (*BillOfMaterial, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	components := make([]BomComponent, 0, len(input.Components))
	for _, c := range input.Components {
		components = append(components, BomComponent{ProductId: c.ProductId, Qty: c.Qty})
	}

	db := config.GetDB()
	tx := db.Begin()

	var bom BillOfMaterial
	err := tx.WithContext(ctx).
		Where("business_id = ? AND product_id = ?", businessId, input.ProductId).
		First(&bom).Error
	switch {
	case err == nil:
		if err := tx.WithContext(ctx).Where("bom_id = ?", bom.ID).
			Delete(&BomComponent{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range components {
			components[i].BomId = bom.ID
		}
		if err := tx.WithContext(ctx).Create(&components).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	case err == gorm.ErrRecordNotFound:
		bom = BillOfMaterial{
			BusinessId: businessId,
			ProductId:  input.ProductId,
			Components: components,
		}
		if err := tx.WithContext(ctx).Create(&bom).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	default:
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	bom.Components = components
	return &bom, nil
}

// DeleteBillOfMaterial removes a BOM unless an unfinished work order still
// references its product.
func DeleteBillOfMaterial(ctx context.Context, productId int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var bom BillOfMaterial
	err := db.WithContext(ctx).
		Where("business_id = ? AND product_id = ?", businessId, productId).
		First(&bom).Error
	if err != nil {
		return utils.NotFoundErrorf("bill of material not found")
	}

	var openWorkOrders int64
	err = db.WithContext(ctx).Model(&WorkOrder{}).
		Where("business_id = ? AND product_id = ? AND current_status <> ?",
			businessId, productId, WorkOrderStatusCompleted).
		Count(&openWorkOrders).Error
	if err != nil {
		return err
	}
	if openWorkOrders > 0 {
		return utils.ConflictErrorf("bill of material is referenced by %d open work order(s)", openWorkOrders)
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("bom_id = ?", bom.ID).
		Delete(&BomComponent{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&bom).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// GetBillOfMaterial fetches the BOM for a product.
func GetBillOfMaterial(ctx context.Context, productId int) (*BillOfMaterial, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var bom BillOfMaterial
	err := db.WithContext(ctx).Preload("Components").
		Where("business_id = ? AND product_id = ?", businessId, productId).
		First(&bom).Error
	if err != nil {
		return nil, utils.NotFoundErrorf("bill of material not found")
	}
	return &bom, nil
}
