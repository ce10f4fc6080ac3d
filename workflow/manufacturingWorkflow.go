package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type workOrderEventPayload struct {
	WorkOrderNumber string `json:"work_order_number"`
	ProductId       int    `json:"product_id"`
	Qty             string `json:"qty"`
}

// CompleteWorkOrder posts a production run: the BOM is exploded to component
// requirements, and consumption plus output land in ONE movement batch so a
// shortage on any component rolls the whole run back. The operation is gated
// behind confirmation; declined is true when the prompt was answered
// negatively and nothing ran.
func CompleteWorkOrder(ctx context.Context, workOrderId int, gate *ConfirmationGate) (workOrder *models.WorkOrder, declined bool, err error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, false, utils.ValidationErrorf("business id is required")
	}

	workOrder, err = utils.FetchModel[models.WorkOrder](ctx, businessId, workOrderId, "Steps")
	if err != nil {
		return nil, false, utils.NotFoundErrorf("work order not found")
	}
	if err := models.ValidateWorkOrderTransition(workOrder.CurrentStatus, models.WorkOrderStatusCompleted); err != nil {
		return nil, false, err
	}

	bom, err := models.GetBillOfMaterial(ctx, workOrder.ProductId)
	if err != nil {
		return nil, false, utils.ValidationErrorf("product has no bill of material")
	}
	required := models.RequiredComponents(bom.Components, workOrder.Qty)

	confirmed, err := gate.Ask(ctx, ConfirmationPrompt{
		Action:  "complete-work-order",
		Summary: describeProductionRun(workOrder, required),
	})
	if err != nil {
		return nil, false, err
	}
	if !confirmed {
		return workOrder, true, nil
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "workflow", "CompleteWorkOrder")
	if err != nil {
		return nil, false, err
	}
	defer lock.Release(ctx)

	// precheck against current quantities for a readable shortage message;
	// the authoritative check runs on locked rows inside the batch
	for componentId, qty := range required {
		available, err := models.AvailableQty(ctx, componentId, workOrder.WarehouseId)
		if err != nil {
			return nil, false, err
		}
		if qty.GreaterThan(available) {
			return nil, false, utils.InsufficientStockErrorf(
				"insufficient stock of component %d (need %s, have %s)",
				componentId, qty.String(), available.String())
		}
	}

	now := time.Now().UTC()
	db := config.GetDB()
	tx := db.Begin()

	entries := make([]models.MovementEntry, 0, len(required)+1)
	componentIds := make([]int, 0, len(required))
	for componentId := range required {
		componentIds = append(componentIds, componentId)
	}
	sort.Ints(componentIds)
	for _, componentId := range componentIds {
		entries = append(entries, models.MovementEntry{
			ProductId:   componentId,
			WarehouseId: workOrder.WarehouseId,
			QtyDelta:    required[componentId].Neg(),
			Reason:      models.MovementReasonProductionConsume,
			DocType:     models.DocTypeWorkOrder,
			DocId:       workOrder.ID,
		})
	}
	entries = append(entries, models.MovementEntry{
		ProductId:   workOrder.ProductId,
		WarehouseId: workOrder.WarehouseId,
		QtyDelta:    workOrder.Qty,
		Reason:      models.MovementReasonProductionOutput,
		DocType:     models.DocTypeWorkOrder,
		DocId:       workOrder.ID,
	})
	if _, err := models.ApplyMovementBatch(ctx, tx, businessId, entries, now); err != nil {
		tx.Rollback()
		return nil, false, err
	}

	err = tx.WithContext(ctx).Model(workOrder).Updates(map[string]interface{}{
		"CurrentStatus": models.WorkOrderStatusCompleted,
		"CompletedAt":   &now,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}

	err = emitEvent(ctx, tx, businessId, models.EventTypeWorkOrderCompleted,
		models.DocTypeWorkOrder, workOrder.ID,
		workOrderEventPayload{
			WorkOrderNumber: workOrder.WorkOrderNumber,
			ProductId:       workOrder.ProductId,
			Qty:             workOrder.Qty.String(),
		})
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, false, err
	}
	return workOrder, false, nil
}

func describeProductionRun(workOrder *models.WorkOrder, required map[int]decimal.Decimal) string {
	parts := make([]string, 0, len(required))
	componentIds := make([]int, 0, len(required))
	for componentId := range required {
		componentIds = append(componentIds, componentId)
	}
	sort.Ints(componentIds)
	for _, componentId := range componentIds {
		parts = append(parts, fmt.Sprintf("%s of product %d", required[componentId].String(), componentId))
	}
	return fmt.Sprintf("Complete %s: produce %s x %s, consuming %s?",
		workOrder.WorkOrderNumber, workOrder.Qty.String(), workOrder.ProductName,
		strings.Join(parts, ", "))
}
