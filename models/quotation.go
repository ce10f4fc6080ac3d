package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Quotation struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	CustomerId      int             `gorm:"index;not null" json:"customer_id"`
	CustomerName    string          `gorm:"size:255" json:"customer_name"`
	QuotationNumber string          `gorm:"size:255;not null" json:"quotation_number"`
	SequenceNo      decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	QuotationDate   time.Time       `gorm:"not null" json:"quotation_date"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountType    *DiscountType   `gorm:"type:enum('P','A');default:null" json:"discount_type"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	CurrentStatus   QuotationStatus `gorm:"type:enum('Draft','Sent','Accepted','Rejected','Converted');not null" json:"current_status"`
	ConvertedOrderId *int           `gorm:"index" json:"converted_order_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items           []QuotationItem `gorm:"foreignKey:QuotationId" json:"items"`
}

func (q *Quotation) GetId() int {
	return q.ID
}

type QuotationItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	QuotationId int             `gorm:"index;not null" json:"quotation_id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	Name        string          `gorm:"size:255" json:"name"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewQuotation struct {
	CustomerId    int                `json:"customer_id" binding:"required"`
	QuotationDate *time.Time         `json:"quotation_date"`
	ExpiryDate    *time.Time         `json:"expiry_date"`
	Discount      decimal.Decimal    `json:"discount"`
	DiscountType  *DiscountType      `json:"discount_type"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	Items         []NewQuotationItem `json:"items" binding:"required"`
}

type NewQuotationItem struct {
	ProductId int              `json:"product_id" binding:"required"`
	Qty       decimal.Decimal  `json:"qty" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// ValidateQuotationTransition enforces Draft -> Sent -> Accepted|Rejected.
// Converted is reachable only through the conversion workflow, never by a
// direct status update.
func ValidateQuotationTransition(current QuotationStatus, next QuotationStatus) error {
	if !next.Valid() {
		return utils.ValidationErrorf("unknown quotation status %q", next)
	}
	if next == QuotationStatusConverted {
		return utils.InvalidTransitionErrorf("quotations are converted through the conversion operation")
	}
	if next == current {
		return utils.InvalidTransitionErrorf("quotation is already %s", current)
	}
	allowed := map[QuotationStatus][]QuotationStatus{
		QuotationStatusDraft: {QuotationStatusSent},
		QuotationStatusSent:  {QuotationStatusAccepted, QuotationStatusRejected},
	}
	for _, s := range allowed[current] {
		if s == next {
			return nil
		}
	}
	return utils.InvalidTransitionErrorf("cannot change quotation from %s to %s", current, next)
}

func (input *NewQuotation) validate(ctx context.Context, businessId string) ([]NewQuotationItem, error) {
	if err := utils.ValidateResourceId[Customer](ctx, businessId, input.CustomerId); err != nil {
		return nil, utils.NotFoundErrorf("customer not found")
	}

	validItems := make([]NewQuotationItem, 0, len(input.Items))
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Qty.IsPositive() {
			validItems = append(validItems, item)
			productIds = append(productIds, item.ProductId)
		}
	}
	if len(validItems) == 0 {
		return nil, utils.ValidationErrorf("quotation requires at least one item with quantity greater than zero")
	}
	if err := utils.ValidateResourcesId[Product](ctx, businessId, productIds); err != nil {
		return nil, utils.NotFoundErrorf("product not found")
	}
	return validItems, nil
}

func buildQuotationItems(ctx context.Context, businessId string, items []NewQuotationItem) ([]QuotationItem, decimal.Decimal, error) {
	qtItems := make([]QuotationItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product, err := utils.FetchModel[Product](ctx, businessId, item.ProductId)
		if err != nil {
			return nil, decimal.Zero, utils.NotFoundErrorf("product %d not found", item.ProductId)
		}
		unitPrice := product.UnitPrice
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		if unitPrice.IsNegative() {
			return nil, decimal.Zero, utils.ValidationErrorf("unit price cannot be negative")
		}
		amount := unitPrice.Mul(item.Qty)
		subtotal = subtotal.Add(amount)
		qtItems = append(qtItems, QuotationItem{
			ProductId: item.ProductId,
			Name:      product.Name,
			Qty:       item.Qty,
			UnitPrice: unitPrice,
			Amount:    amount,
		})
	}
	return qtItems, subtotal, nil
}

func CreateQuotation(ctx context.Context, input *NewQuotation) (*Quotation, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}
	items, subtotal, err := buildQuotationItems(ctx, businessId, validItems)
	if err != nil {
		return nil, err
	}

	discountType := string(DiscountTypeAmount)
	if input.DiscountType != nil {
		discountType = string(*input.DiscountType)
	}
	totals := utils.CalculateOrderTotals(subtotal, input.Discount, discountType, input.TaxRate)

	customer, err := utils.FetchModel[Customer](ctx, businessId, input.CustomerId)
	if err != nil {
		return nil, utils.NotFoundErrorf("customer not found")
	}

	quotationDate := time.Now().UTC()
	if input.QuotationDate != nil {
		quotationDate = *input.QuotationDate
	}

	seqNo, err := utils.GetSequence[Quotation](ctx, businessId)
	if err != nil {
		return nil, err
	}

	quotation := Quotation{
		BusinessId:      businessId,
		CustomerId:      input.CustomerId,
		CustomerName:    customer.Name,
		QuotationNumber: "QT-" + fmt.Sprint(seqNo),
		SequenceNo:      decimal.NewFromInt(seqNo),
		QuotationDate:   quotationDate,
		ExpiryDate:      input.ExpiryDate,
		Subtotal:        totals.Subtotal,
		Discount:        input.Discount,
		DiscountType:    input.DiscountType,
		DiscountAmount:  totals.DiscountAmount,
		TaxRate:         input.TaxRate,
		TaxAmount:       totals.TaxAmount,
		Total:           totals.Total,
		CurrentStatus:   QuotationStatusDraft,
		Items:           items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&quotation).Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

// UpdateQuotation replaces a Draft quotation's lines and totals.
func UpdateQuotation(ctx context.Context, id int, input *NewQuotation) (*Quotation, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	quotation, err := utils.FetchModel[Quotation](ctx, businessId, id, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("quotation not found")
	}
	if quotation.CurrentStatus != QuotationStatusDraft {
		return nil, utils.InvalidStateErrorf("only draft quotations can be edited")
	}

	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}
	items, subtotal, err := buildQuotationItems(ctx, businessId, validItems)
	if err != nil {
		return nil, err
	}

	discountType := string(DiscountTypeAmount)
	if input.DiscountType != nil {
		discountType = string(*input.DiscountType)
	}
	totals := utils.CalculateOrderTotals(subtotal, input.Discount, discountType, input.TaxRate)

	customer, err := utils.FetchModel[Customer](ctx, businessId, input.CustomerId)
	if err != nil {
		return nil, utils.NotFoundErrorf("customer not found")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&quotation).Updates(map[string]interface{}{
		"CustomerId":     input.CustomerId,
		"CustomerName":   customer.Name,
		"ExpiryDate":     input.ExpiryDate,
		"Subtotal":       totals.Subtotal,
		"Discount":       input.Discount,
		"DiscountType":   input.DiscountType,
		"DiscountAmount": totals.DiscountAmount,
		"TaxRate":        input.TaxRate,
		"TaxAmount":      totals.TaxAmount,
		"Total":          totals.Total,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("quotation_id = ?", quotation.ID).
		Delete(&QuotationItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].QuotationId = quotation.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	quotation.Items = items
	return quotation, nil
}

// UpdateQuotationStatus moves a quotation along Draft -> Sent ->
// Accepted|Rejected.
func UpdateQuotationStatus(ctx context.Context, id int, next QuotationStatus) (*Quotation, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	quotation, err := utils.FetchModel[Quotation](ctx, businessId, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("quotation not found")
	}
	if err := ValidateQuotationTransition(quotation.CurrentStatus, next); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&quotation).
		Update("current_status", next).Error
	if err != nil {
		return nil, err
	}
	return quotation, nil
}

// MarkQuotationConverted stamps the quotation inside the conversion
// transaction. Guarded by the caller holding the quotation in Accepted state.
func MarkQuotationConverted(ctx context.Context, tx *gorm.DB, quotation *Quotation, orderId int) error {
	return tx.WithContext(ctx).Model(quotation).Updates(map[string]interface{}{
		"CurrentStatus":    QuotationStatusConverted,
		"ConvertedOrderId": orderId,
	}).Error
}

func DeleteQuotation(ctx context.Context, id int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return utils.ValidationErrorf("business id is required")
	}

	quotation, err := utils.FetchModel[Quotation](ctx, businessId, id)
	if err != nil {
		return utils.NotFoundErrorf("quotation not found")
	}
	if quotation.CurrentStatus != QuotationStatusDraft {
		return utils.InvalidStateErrorf("only draft quotations can be deleted")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("quotation_id = ?", quotation.ID).
		Delete(&QuotationItem{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&quotation).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetQuotation(ctx context.Context, id int) (*Quotation, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Quotation](ctx, businessId, id, "Items")
}
