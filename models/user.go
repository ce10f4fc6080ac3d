package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
)

type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"index:idx_user_biz_email,unique,priority:1;not null" json:"business_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"index:idx_user_biz_email,unique,priority:2;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsAdmin      *bool     `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) GetId() int {
	return u.ID
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsAdmin  *bool  `json:"is_admin"`
}

func CreateUser(ctx context.Context, businessId string, input *NewUser) (*User, error) {
	if businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if !utils.IsValidEmail(input.Email) {
		return nil, utils.ValidationErrorf("invalid email address")
	}
	if len(input.Password) < 8 {
		return nil, utils.ValidationErrorf("password must be at least 8 characters")
	}
	if err := utils.ValidateUnique[User](ctx, businessId, "email", input.Email, 0); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	isAdmin := input.IsAdmin
	if isAdmin == nil {
		isAdmin = utils.NewFalse()
	}

	user := User{
		BusinessId:   businessId,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(ctx context.Context, businessId string, email string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).
		Where("business_id = ? AND email = ?", businessId, email).
		First(&user).Error
	if err != nil {
		return nil, utils.NotFoundErrorf("user not found")
	}
	return &user, nil
}
