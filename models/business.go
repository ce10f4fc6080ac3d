package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/google/uuid"
)

// Business is one tenant. Every domain row carries its id; the tenant guard
// plugin scopes queries to it automatically.
type Business struct {
	ID        string    `gorm:"size:36;primary_key" json:"id"` // uuid
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name string `json:"name" binding:"required"`
}

// CreateBusiness registers a tenant and seeds its chart of accounts in one
// transaction.
func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if input.Name == "" {
		return nil, utils.ValidationErrorf("business name is required")
	}

	business := Business{
		ID:   uuid.NewString(),
		Name: input.Name,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&business).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SeedSystemAccounts(ctx, tx, business.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusiness(ctx context.Context, id string) (*Business, error) {
	db := config.GetDB()
	var business Business
	err := db.WithContext(ctx).Where("id = ?", id).First(&business).Error
	if err != nil {
		return nil, utils.NotFoundErrorf("business not found")
	}
	return &business, nil
}
