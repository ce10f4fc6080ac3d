package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
)

type Warehouse struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Address    string    `gorm:"size:255" json:"address"`
	IsPrimary  *bool     `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *Warehouse) GetId() int {
	return w.ID
}

type NewWarehouse struct {
	Name      string `json:"name" binding:"required"`
	Address   string `json:"address"`
	IsPrimary *bool  `json:"is_primary"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := utils.ValidateUnique[Warehouse](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	isPrimary := input.IsPrimary
	if isPrimary == nil {
		isPrimary = utils.NewFalse()
	}
	warehouse := Warehouse{
		BusinessId: businessId,
		Name:       input.Name,
		Address:    input.Address,
		IsPrimary:  isPrimary,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[Warehouse](businessId)

	return &warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Warehouse](ctx, businessId, id)
}

// ListWarehouses returns all warehouses for the business, redis-cached.
func ListWarehouses(ctx context.Context) ([]*Warehouse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	cached, err := utils.RetrieveRedisList[Warehouse](businessId)
	if err == nil && cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var warehouses []*Warehouse
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("id").Find(&warehouses).Error; err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[Warehouse](warehouses, businessId)
	return warehouses, nil
}
