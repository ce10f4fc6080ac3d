package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesReturn records goods coming back against a completed order. Returns
// are terminal documents: created in Completed state, never edited.
type SalesReturn struct {
	ID           int               `gorm:"primary_key" json:"id"`
	BusinessId   string            `gorm:"index;not null" json:"business_id"`
	OrderId      int               `gorm:"index;not null" json:"order_id"`
	CustomerId   int               `gorm:"index;not null" json:"customer_id"`
	CustomerName string            `gorm:"size:255" json:"customer_name"`
	ReturnNumber string            `gorm:"size:255;not null" json:"return_number"`
	SequenceNo   decimal.Decimal   `gorm:"type:decimal(15);not null" json:"sequence_no"`
	ReturnDate   time.Time         `gorm:"not null" json:"return_date"`
	WarehouseId  int               `gorm:"not null" json:"warehouse_id"`
	Reason       string            `gorm:"size:500" json:"reason"`
	RefundAmount decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"refund_amount"`
	Status       SalesReturnStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	Items        []SalesReturnItem `gorm:"foreignKey:SalesReturnId" json:"items"`
}

func (s *SalesReturn) GetId() int {
	return s.ID
}

type SalesReturnItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SalesReturnId int             `gorm:"index;not null" json:"sales_return_id"`
	ProductId     int             `gorm:"index;not null" json:"product_id"`
	Name          string          `gorm:"size:255" json:"name"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewSalesReturn struct {
	OrderId    int                  `json:"order_id" binding:"required"`
	ReturnDate *time.Time           `json:"return_date"`
	Reason     string               `json:"reason"`
	Items      []NewSalesReturnItem `json:"items" binding:"required"`
}

type NewSalesReturnItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

// MaxReturnable computes the remaining returnable quantity per product for
// an order: quantity sold minus quantity already returned, floored at zero.
// Pure; the workflow feeds it ordered and previously-returned quantities.
func MaxReturnable(orderedQty map[int]decimal.Decimal, returnedQty map[int]decimal.Decimal) map[int]decimal.Decimal {
	remaining := make(map[int]decimal.Decimal, len(orderedQty))
	for productId, ordered := range orderedQty {
		left := ordered.Sub(returnedQty[productId])
		if left.IsNegative() {
			left = decimal.Zero
		}
		remaining[productId] = left
	}
	return remaining
}

// ValidateReturnItems checks requested return lines against the remaining
// returnable quantities. Pure.
func ValidateReturnItems(items []NewSalesReturnItem, remaining map[int]decimal.Decimal) error {
	if len(items) == 0 {
		return utils.ValidationErrorf("return requires at least one item")
	}
	requested := make(map[int]decimal.Decimal, len(items))
	for _, item := range items {
		if !item.Qty.IsPositive() {
			return utils.ValidationErrorf("return quantity must be greater than zero")
		}
		requested[item.ProductId] = requested[item.ProductId].Add(item.Qty)
	}
	for productId, qty := range requested {
		left, ok := remaining[productId]
		if !ok {
			return utils.ValidationErrorf("product %d is not on the order", productId)
		}
		if qty.GreaterThan(left) {
			return utils.ValidationErrorf(
				"return quantity for product %d exceeds returnable amount (%s left)",
				productId, left.String())
		}
	}
	return nil
}

// ReturnedQtyByProduct sums prior return quantities for an order.
func ReturnedQtyByProduct(ctx context.Context, businessId string, orderId int) (map[int]decimal.Decimal, error) {
	db := config.GetDB()

	type row struct {
		ProductId int
		Qty       decimal.Decimal
	}
	var rows []row
	err := db.WithContext(ctx).Model(&SalesReturnItem{}).
		Select("sales_return_items.product_id AS product_id, SUM(sales_return_items.qty) AS qty").
		Joins("JOIN sales_returns ON sales_returns.id = sales_return_items.sales_return_id").
		Where("sales_returns.business_id = ? AND sales_returns.order_id = ?", businessId, orderId).
		Group("sales_return_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	returned := make(map[int]decimal.Decimal, len(rows))
	for _, r := range rows {
		returned[r.ProductId] = r.Qty
	}
	return returned, nil
}

func GetSalesReturn(ctx context.Context, id int) (*SalesReturn, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[SalesReturn](ctx, businessId, id, "Items")
}

// ListSalesReturnsForOrder returns all returns recorded against an order.
func ListSalesReturnsForOrder(ctx context.Context, orderId int) ([]*SalesReturn, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var returns []*SalesReturn
	err := db.WithContext(ctx).Preload("Items").
		Where("business_id = ? AND order_id = ?", businessId, orderId).
		Order("id").Find(&returns).Error
	if err != nil {
		return nil, err
	}
	return returns, nil
}
