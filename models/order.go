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

type Order struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	CustomerId     int             `gorm:"index;not null" json:"customer_id"`
	CustomerName   string          `gorm:"size:255" json:"customer_name"`
	OrderNumber    string          `gorm:"size:255;not null" json:"order_number"`
	SequenceNo     decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	OrderDate      time.Time       `gorm:"not null" json:"order_date"`
	WarehouseId    int             `gorm:"not null" json:"warehouse_id"`
	PaymentMethod  string          `gorm:"size:50" json:"payment_method"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Discount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountType   *DiscountType   `gorm:"type:enum('P','A');default:null" json:"discount_type"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	CurrentStatus  OrderStatus     `gorm:"type:enum('Pending','Processing','Completed','Cancelled');not null" json:"current_status"`
	PaymentStatus  PaymentStatus   `gorm:"type:enum('Unpaid','Partially Paid','Paid');not null" json:"payment_status"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	CompletedAt    *time.Time      `json:"completed_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items          []OrderItem     `gorm:"foreignKey:OrderId" json:"items"`
}

func (o *Order) GetId() int {
	return o.ID
}

type OrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Name      string          `gorm:"size:255" json:"name"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewOrder struct {
	CustomerId    int             `json:"customer_id" binding:"required"`
	OrderDate     *time.Time      `json:"order_date"`
	WarehouseId   int             `json:"warehouse_id" binding:"required"`
	PaymentMethod string          `json:"payment_method"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountType  *DiscountType   `json:"discount_type"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Items         []NewOrderItem  `json:"items" binding:"required"`
}

type NewOrderItem struct {
	ProductId int              `json:"product_id" binding:"required"`
	Qty       decimal.Decimal  `json:"qty" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

/* Pure state machine helpers */

// ValidateOrderTransition enforces the sales order state machine:
// Pending -> Processing -> Completed; Pending|Processing -> Cancelled.
// A no-op transition (next == current) is rejected so a retried click can
// never repeat side effects.
func ValidateOrderTransition(current OrderStatus, next OrderStatus) error {
	if !next.Valid() {
		return utils.ValidationErrorf("unknown order status %q", next)
	}
	if next == current {
		return utils.InvalidTransitionErrorf("order is already %s", current)
	}
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
	}
	for _, s := range allowed[current] {
		if s == next {
			return nil
		}
	}
	return utils.InvalidTransitionErrorf("cannot change order from %s to %s", current, next)
}

// NextPaymentStatus recomputes the payment axis from amounts.
func NextPaymentStatus(total decimal.Decimal, amountPaid decimal.Decimal) PaymentStatus {
	if amountPaid.IsZero() {
		return PaymentStatusUnpaid
	}
	if amountPaid.GreaterThanOrEqual(total) {
		return PaymentStatusPaid
	}
	return PaymentStatusPartiallyPaid
}

/* Create / update */

func (input *NewOrder) validate(ctx context.Context, businessId string) ([]NewOrderItem, error) {
	if input.CustomerId <= 0 {
		return nil, utils.ValidationErrorf("customer is required")
	}
	if err := utils.ValidateResourceId[Customer](ctx, businessId, input.CustomerId); err != nil {
		return nil, utils.NotFoundErrorf("customer not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return nil, utils.NotFoundErrorf("warehouse not found")
	}

	validItems := make([]NewOrderItem, 0, len(input.Items))
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Qty.IsPositive() {
			validItems = append(validItems, item)
			productIds = append(productIds, item.ProductId)
		}
	}
	if len(validItems) == 0 {
		return nil, utils.ValidationErrorf("order requires at least one item with quantity greater than zero")
	}
	if err := utils.ValidateResourcesId[Product](ctx, businessId, productIds); err != nil {
		return nil, utils.NotFoundErrorf("product not found")
	}
	return validItems, nil
}

// buildOrderItems resolves products, prices each line, and returns the lines
// plus the order subtotal. A missing unit price falls back to the product's
// current price; unit cost is snapshotted for COGS posting.
func buildOrderItems(ctx context.Context, businessId string, items []NewOrderItem) ([]OrderItem, decimal.Decimal, error) {
	orderItems := make([]OrderItem, 0, len(items))
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
		orderItems = append(orderItems, OrderItem{
			ProductId: item.ProductId,
			Name:      product.Name,
			Qty:       item.Qty,
			UnitPrice: unitPrice,
			UnitCost:  product.UnitCost,
			Amount:    amount,
		})
	}
	return orderItems, subtotal, nil
}

// CreateOrderInTx builds and persists a new Pending order inside tx.
// Used directly by the POS and quotation-conversion workflows.
func CreateOrderInTx(ctx context.Context, tx *gorm.DB, businessId string, input *NewOrder) (*Order, error) {
	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}
	items, subtotal, err := buildOrderItems(ctx, businessId, validItems)
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

	orderDate := time.Now().UTC()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	order := Order{
		BusinessId:     businessId,
		CustomerId:     input.CustomerId,
		CustomerName:   customer.Name,
		OrderDate:      orderDate,
		WarehouseId:    input.WarehouseId,
		PaymentMethod:  input.PaymentMethod,
		Subtotal:       totals.Subtotal,
		Discount:       input.Discount,
		DiscountType:   input.DiscountType,
		DiscountAmount: totals.DiscountAmount,
		TaxRate:        input.TaxRate,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.Total,
		CurrentStatus:  OrderStatusPending,
		PaymentStatus:  PaymentStatusUnpaid,
		AmountPaid:     decimal.Zero,
		Items:          items,
	}

	seqNo, err := utils.GetSequence[Order](ctx, businessId)
	if err != nil {
		return nil, err
	}
	order.SequenceNo = decimal.NewFromInt(seqNo)
	order.OrderNumber = "ORD-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder replaces a Pending order's lines and recomputes totals.
// Availability is validated with the order's own reservation added back:
// available = currentStock + originalQtyOnThisOrder, so shrinking or keeping
// a line is never blocked by its own prior quantity.
func UpdateOrder(ctx context.Context, id int, input *NewOrder) (*Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	order, err := utils.FetchModel[Order](ctx, businessId, id, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("order not found")
	}
	if order.CurrentStatus != OrderStatusPending {
		return nil, utils.InvalidStateErrorf("only pending orders can be edited")
	}

	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}

	originalQty := make(map[int]decimal.Decimal, len(order.Items))
	for _, item := range order.Items {
		originalQty[item.ProductId] = originalQty[item.ProductId].Add(item.Qty)
	}
	for _, item := range validItems {
		current, err := AvailableQty(ctx, item.ProductId, input.WarehouseId)
		if err != nil {
			return nil, err
		}
		available := current.Add(originalQty[item.ProductId])
		if item.Qty.GreaterThan(available) {
			return nil, utils.InsufficientStockErrorf(
				"insufficient stock for product %d (available %s)", item.ProductId, available.String())
		}
	}

	items, subtotal, err := buildOrderItems(ctx, businessId, validItems)
	if err != nil {
		return nil, err
	}
	discountType := string(DiscountTypeAmount)
	if input.DiscountType != nil {
		discountType = string(*input.DiscountType)
	}
	totals := utils.CalculateOrderTotals(subtotal, input.Discount, discountType, input.TaxRate)

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
		"CustomerId":     input.CustomerId,
		"WarehouseId":    input.WarehouseId,
		"PaymentMethod":  input.PaymentMethod,
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

	// replace lines
	if err := tx.WithContext(ctx).Where("order_id = ?", order.ID).
		Delete(&OrderItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].OrderId = order.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Order](ctx, businessId, id, "Items")
}
