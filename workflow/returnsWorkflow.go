package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type returnEventPayload struct {
	ReturnNumber string `json:"return_number"`
	OrderNumber  string `json:"order_number"`
	RefundAmount string `json:"refund_amount"`
}

// CreateSalesReturn records goods coming back against a completed order.
// Quantities are bounded per product by what the order sold minus what was
// already returned; restock movements and the refund journal
// (Dr Sales Returns / Cr Cash) commit atomically with the document.
func CreateSalesReturn(ctx context.Context, input *models.NewSalesReturn) (*models.SalesReturn, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	order, err := utils.FetchModel[models.Order](ctx, businessId, input.OrderId, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("order not found")
	}
	if order.CurrentStatus != models.OrderStatusCompleted {
		return nil, utils.InvalidStateErrorf("returns can only be recorded against completed orders")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "workflow", "CreateSalesReturn")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	orderedQty := make(map[int]decimal.Decimal, len(order.Items))
	unitPrice := make(map[int]decimal.Decimal, len(order.Items))
	for _, item := range order.Items {
		orderedQty[item.ProductId] = orderedQty[item.ProductId].Add(item.Qty)
		unitPrice[item.ProductId] = item.UnitPrice
	}
	returnedQty, err := models.ReturnedQtyByProduct(ctx, businessId, order.ID)
	if err != nil {
		return nil, err
	}
	remaining := models.MaxReturnable(orderedQty, returnedQty)
	if err := models.ValidateReturnItems(input.Items, remaining); err != nil {
		return nil, err
	}

	returnDate := time.Now().UTC()
	if input.ReturnDate != nil {
		returnDate = *input.ReturnDate
	}

	refund := decimal.Zero
	items := make([]models.SalesReturnItem, 0, len(input.Items))
	productName := make(map[int]string, len(order.Items))
	for _, item := range order.Items {
		productName[item.ProductId] = item.Name
	}
	for _, item := range input.Items {
		amount := unitPrice[item.ProductId].Mul(item.Qty)
		refund = refund.Add(amount)
		items = append(items, models.SalesReturnItem{
			ProductId: item.ProductId,
			Name:      productName[item.ProductId],
			Qty:       item.Qty,
			UnitPrice: unitPrice[item.ProductId],
			Amount:    amount,
		})
	}

	seqNo, err := utils.GetSequence[models.SalesReturn](ctx, businessId)
	if err != nil {
		return nil, err
	}

	salesReturn := models.SalesReturn{
		BusinessId:   businessId,
		OrderId:      order.ID,
		CustomerId:   order.CustomerId,
		CustomerName: order.CustomerName,
		ReturnNumber: "RET-" + fmt.Sprint(seqNo),
		SequenceNo:   decimal.NewFromInt(seqNo),
		ReturnDate:   returnDate,
		WarehouseId:  order.WarehouseId,
		Reason:       input.Reason,
		RefundAmount: refund,
		Status:       models.SalesReturnStatusCompleted,
		Items:        items,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Create(&salesReturn).Error; err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	entries := make([]models.MovementEntry, 0, len(input.Items))
	for _, item := range input.Items {
		entries = append(entries, models.MovementEntry{
			ProductId:   item.ProductId,
			WarehouseId: order.WarehouseId,
			QtyDelta:    item.Qty,
			Reason:      models.MovementReasonReturn,
			DocType:     models.DocTypeSalesReturn,
			DocId:       salesReturn.ID,
		})
	}
	if _, err := models.ApplyMovementBatch(ctx, tx, businessId, entries, returnDate); err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if refund.IsPositive() {
		_, err = postJournal(ctx, tx, businessId,
			fmt.Sprintf("Refund %s for %s", salesReturn.ReturnNumber, order.OrderNumber),
			models.DocTypeSalesReturn, salesReturn.ID, returnDate,
			refundJournalLines(refund))
		if err != nil {
			rollbackPosting(tx, businessId)
			return nil, err
		}
	}

	err = emitEvent(ctx, tx, businessId, models.EventTypeReturnCreated,
		models.DocTypeSalesReturn, salesReturn.ID,
		returnEventPayload{
			ReturnNumber: salesReturn.ReturnNumber,
			OrderNumber:  order.OrderNumber,
			RefundAmount: refund.String(),
		})
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}
	return &salesReturn, nil
}
