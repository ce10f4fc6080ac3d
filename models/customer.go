package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"gorm.io/gorm"
)

type Customer struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Email      string    `gorm:"size:255" json:"email"`
	Phone      string    `gorm:"size:50" json:"phone"`
	Address    string    `gorm:"size:255" json:"address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) GetId() int {
	return c.ID
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (input *NewCustomer) validate() error {
	if input.Name == "" {
		return utils.ValidationErrorf("customer name is required")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.ValidationErrorf("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.ValidationErrorf("invalid phone number")
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	customer := Customer{
		BusinessId: businessId,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer updates contact info. A changed display name is an explicit
// denormalization-sync: the new name is propagated onto the customer's
// orders, sales returns, and quotations in the same transaction so document
// snapshots stay referentially consistent.
func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	oldName := customer.Name

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if oldName != input.Name {
		if err := propagateCustomerRename(ctx, tx, businessId, id, input.Name); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func propagateCustomerRename(ctx context.Context, tx *gorm.DB, businessId string, customerId int, newName string) error {
	if err := tx.WithContext(ctx).Model(&Order{}).
		Where("business_id = ? AND customer_id = ?", businessId, customerId).
		Update("customer_name", newName).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(&SalesReturn{}).
		Where("business_id = ? AND customer_id = ?", businessId, customerId).
		Update("customer_name", newName).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(&Quotation{}).
		Where("business_id = ? AND customer_id = ?", businessId, customerId).
		Update("customer_name", newName).Error; err != nil {
		return err
	}
	return nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Customer](ctx, businessId, id)
}
