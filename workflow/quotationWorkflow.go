package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
)

// ConvertQuotationToOrder turns an Accepted quotation into a Pending order
// carrying the quotation's lines, prices, and discount. The quotation moves
// to Converted with a back-reference in the same transaction, so a quotation
// can never be converted twice.
func ConvertQuotationToOrder(ctx context.Context, quotationId int, warehouseId int) (*models.Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	quotation, err := utils.FetchModel[models.Quotation](ctx, businessId, quotationId, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("quotation not found")
	}
	if quotation.CurrentStatus != models.QuotationStatusAccepted {
		return nil, utils.InvalidStateErrorf("only accepted quotations can be converted (current: %s)", quotation.CurrentStatus)
	}

	orderInput := models.NewOrder{
		CustomerId:   quotation.CustomerId,
		WarehouseId:  warehouseId,
		Discount:     quotation.Discount,
		DiscountType: quotation.DiscountType,
		TaxRate:      quotation.TaxRate,
	}
	for _, item := range quotation.Items {
		price := item.UnitPrice
		orderInput.Items = append(orderInput.Items, models.NewOrderItem{
			ProductId: item.ProductId,
			Qty:       item.Qty,
			UnitPrice: &price,
		})
	}

	db := config.GetDB()
	tx := db.Begin()
	order, err := models.CreateOrderInTx(ctx, tx, businessId, &orderInput)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.MarkQuotationConverted(ctx, tx, quotation, order.ID); err != nil {
		tx.Rollback()
		return nil, err
	}
	err = emitEvent(ctx, tx, businessId, models.EventTypeOrderCreated, models.DocTypeOrder, order.ID,
		orderEventPayload{OrderNumber: order.OrderNumber, CustomerId: order.CustomerId, Total: order.Total.String()})
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteDraftQuotation deletes a Draft quotation behind the confirmation
// gate.
func DeleteDraftQuotation(ctx context.Context, quotationId int, gate *ConfirmationGate) (declined bool, err error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return false, utils.ValidationErrorf("business id is required")
	}

	quotation, err := utils.FetchModel[models.Quotation](ctx, businessId, quotationId)
	if err != nil {
		return false, utils.NotFoundErrorf("quotation not found")
	}
	if quotation.CurrentStatus != models.QuotationStatusDraft {
		return false, utils.InvalidStateErrorf("only draft quotations can be deleted")
	}

	confirmed, err := gate.Ask(ctx, ConfirmationPrompt{
		Action:  "delete-quotation",
		Summary: fmt.Sprintf("Delete draft quotation %s?", quotation.QuotationNumber),
	})
	if err != nil {
		return false, err
	}
	if !confirmed {
		return true, nil
	}
	return false, models.DeleteQuotation(ctx, quotationId)
}
