package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"gorm.io/gorm"
)

// Account is one ledger account in the business's chart of accounts.
// System accounts are seeded on business creation and cannot be deleted.
type Account struct {
	ID         int         `gorm:"primary_key" json:"id"`
	BusinessId string      `gorm:"index:idx_account_biz_code,unique,priority:1;not null" json:"business_id"`
	Code       string      `gorm:"index:idx_account_biz_code,unique,priority:2;size:20;not null" json:"code"`
	Name       string      `gorm:"size:255;not null" json:"name"`
	Type       AccountType `gorm:"type:enum('Asset','Liability','Equity','Revenue','Expense');not null" json:"type"`
	IsSystem   *bool       `gorm:"not null;default:false" json:"is_system"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) GetId() int {
	return a.ID
}

type systemAccount struct {
	Code string
	Name string
	Type AccountType
}

var systemAccounts = []systemAccount{
	{AccountCodeCash, "Cash", AccountTypeAsset},
	{AccountCodeAccountsReceivable, "Accounts Receivable", AccountTypeAsset},
	{AccountCodeInventory, "Inventory", AccountTypeAsset},
	{AccountCodeAccountsPayable, "Accounts Payable", AccountTypeLiability},
	{AccountCodeSalesRevenue, "Sales Revenue", AccountTypeRevenue},
	{AccountCodeSalesReturns, "Sales Returns", AccountTypeRevenue},
	{AccountCodeCOGS, "Cost of Goods Sold", AccountTypeExpense},
}

// SeedSystemAccounts creates any missing system accounts for the business.
// Idempotent; safe to run on every startup or business onboarding.
func SeedSystemAccounts(ctx context.Context, tx *gorm.DB, businessId string) error {
	for _, sa := range systemAccounts {
		var count int64
		err := tx.WithContext(ctx).Model(&Account{}).
			Where("business_id = ? AND code = ?", businessId, sa.Code).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		account := Account{
			BusinessId: businessId,
			Code:       sa.Code,
			Name:       sa.Name,
			Type:       sa.Type,
			IsSystem:   utils.NewTrue(),
		}
		if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetAccountByCode resolves a code within the business; posting helpers use
// this so journals always reference real account rows.
func GetAccountByCode(ctx context.Context, tx *gorm.DB, businessId string, code string) (*Account, error) {
	var account Account
	err := tx.WithContext(ctx).
		Where("business_id = ? AND code = ?", businessId, code).
		First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundErrorf("account %s not found", code)
		}
		return nil, err
	}
	return &account, nil
}

func ListAccounts(ctx context.Context) ([]*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var accounts []*Account
	err := db.WithContext(ctx).Where("business_id = ?", businessId).
		Order("code").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
