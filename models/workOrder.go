package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

type WorkOrder struct {
	ID              int              `gorm:"primary_key" json:"id"`
	BusinessId      string           `gorm:"index;not null" json:"business_id"`
	WorkOrderNumber string           `gorm:"size:255;not null" json:"work_order_number"`
	SequenceNo      decimal.Decimal  `gorm:"type:decimal(15);not null" json:"sequence_no"`
	ProductId       int              `gorm:"index;not null" json:"product_id"`
	ProductName     string           `gorm:"size:255" json:"product_name"`
	Qty             decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"qty"`
	WarehouseId     int              `gorm:"not null" json:"warehouse_id"`
	CurrentStatus   WorkOrderStatus  `gorm:"type:enum('Planned','In Progress','Completed');not null" json:"current_status"`
	StartDate       *time.Time       `json:"start_date"`
	CompletedAt     *time.Time       `json:"completed_at"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Steps           []ProductionStep `gorm:"foreignKey:WorkOrderId" json:"steps"`
}

func (w *WorkOrder) GetId() int {
	return w.ID
}

// ProductionStep is a named checklist item on a work order. Steps are
// informational; completion does not require all steps to be done.
type ProductionStep struct {
	ID          int    `gorm:"primary_key" json:"id"`
	WorkOrderId int    `gorm:"index;not null" json:"work_order_id"`
	Seq         int    `gorm:"not null" json:"seq"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Done        *bool  `gorm:"not null;default:false" json:"done"`
}

type NewWorkOrder struct {
	ProductId   int             `json:"product_id" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	WarehouseId int             `json:"warehouse_id" binding:"required"`
	StartDate   *time.Time      `json:"start_date"`
	Steps       []string        `json:"steps"`
}

type WorkOrderStepUpdate struct {
	StepId int  `json:"step_id" binding:"required"`
	Done   bool `json:"done"`
}

// ValidateWorkOrderTransition enforces Planned -> In Progress -> Completed.
// Completion runs through the manufacturing workflow for its stock and
// posting side effects.
func ValidateWorkOrderTransition(current WorkOrderStatus, next WorkOrderStatus) error {
	if !next.Valid() {
		return utils.ValidationErrorf("unknown work order status %q", next)
	}
	if next == current {
		return utils.InvalidTransitionErrorf("work order is already %s", current)
	}
	allowed := map[WorkOrderStatus]WorkOrderStatus{
		WorkOrderStatusPlanned:    WorkOrderStatusInProgress,
		WorkOrderStatusInProgress: WorkOrderStatusCompleted,
	}
	if allowed[current] != next {
		return utils.InvalidTransitionErrorf("cannot change work order from %s to %s", current, next)
	}
	return nil
}

func CreateWorkOrder(ctx context.Context, input *NewWorkOrder) (*WorkOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.ValidationErrorf("work order quantity must be greater than zero")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return nil, utils.NotFoundErrorf("warehouse not found")
	}
	product, err := utils.FetchModel[Product](ctx, businessId, input.ProductId)
	if err != nil {
		return nil, utils.NotFoundErrorf("product not found")
	}

	// the product must have a recipe before production can be planned
	if _, err := GetBillOfMaterial(ctx, input.ProductId); err != nil {
		return nil, utils.ValidationErrorf("product has no bill of material")
	}

	seqNo, err := utils.GetSequence[WorkOrder](ctx, businessId)
	if err != nil {
		return nil, err
	}

	steps := make([]ProductionStep, 0, len(input.Steps))
	for i, name := range input.Steps {
		steps = append(steps, ProductionStep{Seq: i + 1, Name: name, Done: utils.NewFalse()})
	}

	workOrder := WorkOrder{
		BusinessId:      businessId,
		WorkOrderNumber: "WO-" + fmt.Sprint(seqNo),
		SequenceNo:      decimal.NewFromInt(seqNo),
		ProductId:       input.ProductId,
		ProductName:     product.Name,
		Qty:             input.Qty,
		WarehouseId:     input.WarehouseId,
		CurrentStatus:   WorkOrderStatusPlanned,
		StartDate:       input.StartDate,
		Steps:           steps,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&workOrder).Error; err != nil {
		return nil, err
	}
	return &workOrder, nil
}

// StartWorkOrder moves a Planned work order to In Progress.
func StartWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, businessId, id)
	if err != nil {
		return nil, utils.NotFoundErrorf("work order not found")
	}
	if err := ValidateWorkOrderTransition(workOrder.CurrentStatus, WorkOrderStatusInProgress); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"CurrentStatus": WorkOrderStatusInProgress}
	if workOrder.StartDate == nil {
		updates["StartDate"] = &now
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&workOrder).Updates(updates).Error; err != nil {
		return nil, err
	}
	return workOrder, nil
}

// UpdateWorkOrderSteps toggles step completion flags on an unfinished work
// order.
func UpdateWorkOrderSteps(ctx context.Context, id int, updates []WorkOrderStepUpdate) (*WorkOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, businessId, id, "Steps")
	if err != nil {
		return nil, utils.NotFoundErrorf("work order not found")
	}
	if workOrder.CurrentStatus == WorkOrderStatusCompleted {
		return nil, utils.InvalidStateErrorf("completed work orders cannot be edited")
	}

	stepById := make(map[int]*ProductionStep, len(workOrder.Steps))
	for i := range workOrder.Steps {
		stepById[workOrder.Steps[i].ID] = &workOrder.Steps[i]
	}

	db := config.GetDB()
	tx := db.Begin()
	for _, u := range updates {
		step, ok := stepById[u.StepId]
		if !ok {
			tx.Rollback()
			return nil, utils.NotFoundErrorf("step %d not found on work order", u.StepId)
		}
		done := u.Done
		if err := tx.WithContext(ctx).Model(&ProductionStep{}).
			Where("id = ?", step.ID).
			Update("done", done).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		step.Done = &done
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return workOrder, nil
}

func GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[WorkOrder](ctx, businessId, id, "Steps")
}
