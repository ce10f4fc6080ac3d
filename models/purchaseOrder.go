package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseOrder struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BusinessId    string              `gorm:"index;not null" json:"business_id"`
	SupplierId    int                 `gorm:"index;not null" json:"supplier_id"`
	SupplierName  string              `gorm:"size:255" json:"supplier_name"`
	OrderNumber   string              `gorm:"size:255;not null" json:"order_number"`
	SequenceNo    decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	OrderDate     time.Time           `gorm:"not null" json:"order_date"`
	WarehouseId   int                 `gorm:"not null" json:"warehouse_id"`
	Total         decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total"`
	CurrentStatus PurchaseOrderStatus `gorm:"type:enum('Draft','Ordered','Received');not null" json:"current_status"`
	AmountPaid    decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	PaymentStatus PaymentStatus       `gorm:"type:enum('Unpaid','Partially Paid','Paid');not null" json:"payment_status"`
	ReceivedDate  *time.Time          `json:"received_date"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	Items         []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderId" json:"items"`
}

func (p *PurchaseOrder) GetId() int {
	return p.ID
}

type PurchaseOrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	Name            string          `gorm:"size:255" json:"name"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewPurchaseOrder struct {
	SupplierId  int                    `json:"supplier_id" binding:"required"`
	OrderDate   *time.Time             `json:"order_date"`
	WarehouseId int                    `json:"warehouse_id" binding:"required"`
	Items       []NewPurchaseOrderItem `json:"items" binding:"required"`
}

type NewPurchaseOrderItem struct {
	ProductId int              `json:"product_id" binding:"required"`
	Qty       decimal.Decimal  `json:"qty" binding:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
}

// ValidatePurchaseOrderTransition enforces Draft -> Ordered -> Received.
// Receipt side effects run in the purchase workflow, not here.
func ValidatePurchaseOrderTransition(current PurchaseOrderStatus, next PurchaseOrderStatus) error {
	if !next.Valid() {
		return utils.ValidationErrorf("unknown purchase order status %q", next)
	}
	if next == current {
		return utils.InvalidTransitionErrorf("purchase order is already %s", current)
	}
	allowed := map[PurchaseOrderStatus]PurchaseOrderStatus{
		PurchaseOrderStatusDraft:   PurchaseOrderStatusOrdered,
		PurchaseOrderStatusOrdered: PurchaseOrderStatusReceived,
	}
	if allowed[current] != next {
		return utils.InvalidTransitionErrorf("cannot change purchase order from %s to %s", current, next)
	}
	return nil
}

func (input *NewPurchaseOrder) validate(ctx context.Context, businessId string) ([]NewPurchaseOrderItem, error) {
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
		return nil, utils.NotFoundErrorf("supplier not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return nil, utils.NotFoundErrorf("warehouse not found")
	}

	validItems := make([]NewPurchaseOrderItem, 0, len(input.Items))
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Qty.IsPositive() {
			validItems = append(validItems, item)
			productIds = append(productIds, item.ProductId)
		}
	}
	if len(validItems) == 0 {
		return nil, utils.ValidationErrorf("purchase order requires at least one item with quantity greater than zero")
	}
	if err := utils.ValidateResourcesId[Product](ctx, businessId, productIds); err != nil {
		return nil, utils.NotFoundErrorf("product not found")
	}
	return validItems, nil
}

func buildPurchaseOrderItems(ctx context.Context, businessId string, items []NewPurchaseOrderItem) ([]PurchaseOrderItem, decimal.Decimal, error) {
	poItems := make([]PurchaseOrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		product, err := utils.FetchModel[Product](ctx, businessId, item.ProductId)
		if err != nil {
			return nil, decimal.Zero, utils.NotFoundErrorf("product %d not found", item.ProductId)
		}
		unitCost := product.UnitCost
		if item.UnitCost != nil {
			unitCost = *item.UnitCost
		}
		if unitCost.IsNegative() {
			return nil, decimal.Zero, utils.ValidationErrorf("unit cost cannot be negative")
		}
		amount := unitCost.Mul(item.Qty)
		total = total.Add(amount)
		poItems = append(poItems, PurchaseOrderItem{
			ProductId: item.ProductId,
			Name:      product.Name,
			Qty:       item.Qty,
			UnitCost:  unitCost,
			Amount:    amount,
		})
	}
	return poItems, total, nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}
	items, total, err := buildPurchaseOrderItems(ctx, businessId, validItems)
	if err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, businessId, input.SupplierId)
	if err != nil {
		return nil, utils.NotFoundErrorf("supplier not found")
	}

	orderDate := time.Now().UTC()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx, businessId)
	if err != nil {
		return nil, err
	}

	purchaseOrder := PurchaseOrder{
		BusinessId:    businessId,
		SupplierId:    input.SupplierId,
		SupplierName:  supplier.Name,
		OrderNumber:   "PO-" + fmt.Sprint(seqNo),
		SequenceNo:    decimal.NewFromInt(seqNo),
		OrderDate:     orderDate,
		WarehouseId:   input.WarehouseId,
		Total:         total,
		CurrentStatus: PurchaseOrderStatusDraft,
		AmountPaid:    decimal.Zero,
		PaymentStatus: PaymentStatusUnpaid,
		Items:         items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&purchaseOrder).Error; err != nil {
		return nil, err
	}
	return &purchaseOrder, nil
}

// UpdatePurchaseOrder replaces a Draft purchase order's lines and total.
// Ordered and Received documents are immutable.
func UpdatePurchaseOrder(ctx context.Context, id int, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	purchaseOrder, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("purchase order not found")
	}
	if purchaseOrder.CurrentStatus != PurchaseOrderStatusDraft {
		return nil, utils.InvalidStateErrorf("only draft purchase orders can be edited")
	}

	validItems, err := input.validate(ctx, businessId)
	if err != nil {
		return nil, err
	}
	items, total, err := buildPurchaseOrderItems(ctx, businessId, validItems)
	if err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, businessId, input.SupplierId)
	if err != nil {
		return nil, utils.NotFoundErrorf("supplier not found")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&purchaseOrder).Updates(map[string]interface{}{
		"SupplierId":   input.SupplierId,
		"SupplierName": supplier.Name,
		"WarehouseId":  input.WarehouseId,
		"Total":        total,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("purchase_order_id = ?", purchaseOrder.ID).
		Delete(&PurchaseOrderItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].PurchaseOrderId = purchaseOrder.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	purchaseOrder.Items = items
	return purchaseOrder, nil
}

// DeletePurchaseOrder removes a Draft purchase order and its lines.
func DeletePurchaseOrder(ctx context.Context, id int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return utils.ValidationErrorf("business id is required")
	}

	purchaseOrder, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id)
	if err != nil {
		return utils.NotFoundErrorf("purchase order not found")
	}
	if purchaseOrder.CurrentStatus != PurchaseOrderStatusDraft {
		return utils.InvalidStateErrorf("only draft purchase orders can be deleted")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("purchase_order_id = ?", purchaseOrder.ID).
		Delete(&PurchaseOrderItem{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.WithContext(ctx).Delete(&purchaseOrder).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Items")
}
