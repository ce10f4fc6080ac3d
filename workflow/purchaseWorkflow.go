package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseOrderEventPayload struct {
	OrderNumber  string `json:"order_number"`
	SupplierId   int    `json:"supplier_id"`
	Total        string `json:"total"`
	ReceivedDate string `json:"received_date,omitempty"`
}

// UpdatePurchaseOrderStatus moves a purchase order along Draft -> Ordered ->
// Received. Reaching Received is a posting: every line lands in stock as one
// movement batch, ReceivedDate is stamped, and the payable journal
// (Dr Inventory / Cr Accounts Payable) is written, all in one transaction.
func UpdatePurchaseOrderStatus(ctx context.Context, purchaseOrderId int, next models.PurchaseOrderStatus) (*models.PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	purchaseOrder, err := utils.FetchModel[models.PurchaseOrder](ctx, businessId, purchaseOrderId, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("purchase order not found")
	}
	if err := models.ValidatePurchaseOrderTransition(purchaseOrder.CurrentStatus, next); err != nil {
		return nil, err
	}

	if next == models.PurchaseOrderStatusOrdered {
		db := config.GetDB()
		err = db.WithContext(ctx).Model(purchaseOrder).
			Update("current_status", models.PurchaseOrderStatusOrdered).Error
		if err != nil {
			return nil, err
		}
		return purchaseOrder, nil
	}

	return receivePurchaseOrder(ctx, businessId, purchaseOrder)
}

func receivePurchaseOrder(ctx context.Context, businessId string, purchaseOrder *models.PurchaseOrder) (*models.PurchaseOrder, error) {
	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "workflow", "receivePurchaseOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	now := time.Now().UTC()
	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	entries := make([]models.MovementEntry, 0, len(purchaseOrder.Items))
	for _, item := range purchaseOrder.Items {
		entries = append(entries, models.MovementEntry{
			ProductId:   item.ProductId,
			WarehouseId: purchaseOrder.WarehouseId,
			QtyDelta:    item.Qty,
			Reason:      models.MovementReasonPurchaseReceipt,
			DocType:     models.DocTypePurchaseOrder,
			DocId:       purchaseOrder.ID,
		})
	}
	if _, err := models.ApplyMovementBatch(ctx, tx, businessId, entries, now); err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if purchaseOrder.Total.IsPositive() {
		_, err = postJournal(ctx, tx, businessId,
			fmt.Sprintf("Receipt %s", purchaseOrder.OrderNumber),
			models.DocTypePurchaseOrder, purchaseOrder.ID, now,
			purchaseReceiptJournalLines(purchaseOrder.Total))
		if err != nil {
			rollbackPosting(tx, businessId)
			return nil, err
		}
	}

	err = tx.WithContext(ctx).Model(purchaseOrder).Updates(map[string]interface{}{
		"CurrentStatus": models.PurchaseOrderStatusReceived,
		"ReceivedDate":  &now,
	}).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	err = emitEvent(ctx, tx, businessId, models.EventTypePurchaseOrderReceived,
		models.DocTypePurchaseOrder, purchaseOrder.ID,
		purchaseOrderEventPayload{
			OrderNumber:  purchaseOrder.OrderNumber,
			SupplierId:   purchaseOrder.SupplierId,
			Total:        purchaseOrder.Total.String(),
			ReceivedDate: now.Format(time.RFC3339),
		})
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}
	return purchaseOrder, nil
}

// UpdatePurchaseOrderPayment records a supplier payment: amount bounded by
// the outstanding balance, disbursement journal Dr Accounts Payable /
// Cr Cash. The balance check runs against a row locked inside the posting
// transaction, so concurrent payments serialize instead of double-posting.
func UpdatePurchaseOrderPayment(ctx context.Context, purchaseOrderId int, amount decimal.Decimal) (*models.PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if !amount.IsPositive() {
		return nil, utils.ValidationErrorf("payment amount must be greater than zero")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	var purchaseOrder models.PurchaseOrder
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, purchaseOrderId).
		First(&purchaseOrder).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErrorf("purchase order not found")
		}
		return nil, err
	}
	if purchaseOrder.CurrentStatus == models.PurchaseOrderStatusDraft {
		rollbackPosting(tx, businessId)
		return nil, utils.InvalidStateErrorf("cannot record payment on a draft purchase order")
	}
	outstanding := purchaseOrder.Total.Sub(purchaseOrder.AmountPaid)
	if amount.GreaterThan(outstanding) {
		rollbackPosting(tx, businessId)
		return nil, utils.ValidationErrorf("payment exceeds outstanding balance (%s)", outstanding.String())
	}

	newPaid := purchaseOrder.AmountPaid.Add(amount)
	newStatus := models.NextPaymentStatus(purchaseOrder.Total, newPaid)
	now := time.Now().UTC()

	err = tx.WithContext(ctx).Model(&purchaseOrder).Updates(map[string]interface{}{
		"AmountPaid":    newPaid,
		"PaymentStatus": newStatus,
	}).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	_, err = postJournal(ctx, tx, businessId,
		fmt.Sprintf("Supplier payment %s", purchaseOrder.OrderNumber),
		models.DocTypePurchaseOrder, purchaseOrder.ID, now,
		supplierPaymentJournalLines(amount))
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}
	return &purchaseOrder, nil
}

// DeleteDraftPurchaseOrder deletes a Draft purchase order behind the
// confirmation gate. declined is true when the prompt was answered
// negatively.
func DeleteDraftPurchaseOrder(ctx context.Context, purchaseOrderId int, gate *ConfirmationGate) (declined bool, err error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return false, utils.ValidationErrorf("business id is required")
	}

	purchaseOrder, err := utils.FetchModel[models.PurchaseOrder](ctx, businessId, purchaseOrderId)
	if err != nil {
		return false, utils.NotFoundErrorf("purchase order not found")
	}
	if purchaseOrder.CurrentStatus != models.PurchaseOrderStatusDraft {
		return false, utils.InvalidStateErrorf("only draft purchase orders can be deleted")
	}

	confirmed, err := gate.Ask(ctx, ConfirmationPrompt{
		Action:  "delete-purchase-order",
		Summary: fmt.Sprintf("Delete draft purchase order %s?", purchaseOrder.OrderNumber),
	})
	if err != nil {
		return false, err
	}
	if !confirmed {
		return true, nil
	}
	return false, models.DeletePurchaseOrder(ctx, purchaseOrderId)
}
