package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Sku        string          `gorm:"size:100;not null" json:"sku"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	MinStock   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) GetId() int {
	return p.ID
}

type NewProduct struct {
	Sku       string          `json:"sku" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	MinStock  decimal.Decimal `json:"min_stock"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if input.Name == "" {
		return utils.ValidationErrorf("product name is required")
	}
	if input.UnitPrice.IsNegative() || input.UnitCost.IsNegative() || input.MinStock.IsNegative() {
		return utils.ValidationErrorf("price, cost and min stock cannot be negative")
	}
	if err := utils.ValidateUnique[Product](ctx, businessId, "sku", input.Sku, id); err != nil {
		return err
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	product := Product{
		BusinessId: businessId,
		Sku:        input.Sku,
		Name:       input.Name,
		UnitPrice:  input.UnitPrice,
		UnitCost:   input.UnitCost,
		MinStock:   input.MinStock,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[Product](businessId)

	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Sku":       input.Sku,
		"Name":      input.Name,
		"UnitPrice": input.UnitPrice,
		"UnitCost":  input.UnitCost,
		"MinStock":  input.MinStock,
	}).Error
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[Product](businessId)

	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Product](ctx, businessId, id)
}

// ListProducts returns all products for the business, redis-cached.
func ListProducts(ctx context.Context) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	cached, err := utils.RetrieveRedisList[Product](businessId)
	if err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var products []*Product
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[Product](products, businessId)
	return products, nil
}

// LowStockItems lists inventory rows at or below the product's min stock
// threshold, used to back caller-side stock warnings.
type LowStockItem struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	WarehouseId int             `json:"warehouse_id"`
	Qty         decimal.Decimal `json:"qty"`
	MinStock    decimal.Decimal `json:"min_stock"`
}

func LowStockItems(ctx context.Context) ([]*LowStockItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var rows []*LowStockItem
	err := db.WithContext(ctx).
		Table("inventory_items").
		Select("inventory_items.product_id, products.name AS product_name, inventory_items.warehouse_id, inventory_items.qty, products.min_stock").
		Joins("JOIN products ON products.id = inventory_items.product_id").
		Where("inventory_items.business_id = ?", businessId).
		Where("products.min_stock > 0 AND inventory_items.qty <= products.min_stock").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
