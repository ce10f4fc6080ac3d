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

// OrderPostingResult is everything CompleteOrder produced: the updated
// order, the ledger movements, the journals, and any non-fatal min-stock
// warnings triggered by the deduction.
type OrderPostingResult struct {
	Order         *models.Order               `json:"order"`
	Movements     []*models.InventoryMovement `json:"movements"`
	Journals      []*models.Journal           `json:"journals"`
	StockWarnings []string                    `json:"stock_warnings"`
}

type orderEventPayload struct {
	OrderNumber string `json:"order_number"`
	CustomerId  int    `json:"customer_id"`
	Total       string `json:"total"`
}

// CreateOrder creates a Pending order and emits the order.created event in
// the same transaction.
func CreateOrder(ctx context.Context, input *models.NewOrder) (*models.Order, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	order, err := models.CreateOrderInTx(ctx, tx, businessId, input)
	if err != nil {
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

// CompleteOrder posts a sales order: one movement batch deducting every line
// from the order's warehouse, a revenue journal, and a COGS journal when
// cost tracking is on. All of it commits atomically; re-completion is
// rejected before anything runs.
func CompleteOrder(ctx context.Context, orderId int) (*OrderPostingResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "workflow", "CompleteOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	order, err := utils.FetchModel[models.Order](ctx, businessId, orderId, "Items")
	if err != nil {
		return nil, utils.NotFoundErrorf("order not found")
	}
	if err := models.ValidateOrderTransition(order.CurrentStatus, models.OrderStatusCompleted); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	result, err := completeOrderTx(ctx, tx, businessId, order)
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}
	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}

	result.StockWarnings = collectStockWarnings(ctx, order)
	return result, nil
}

// completeOrderTx runs the posting inside an open transaction. Shared by
// CompleteOrder and the POS path.
func completeOrderTx(ctx context.Context, tx *gorm.DB, businessId string, order *models.Order) (*OrderPostingResult, error) {
	now := time.Now().UTC()

	entries := make([]models.MovementEntry, 0, len(order.Items))
	cogs := decimal.Zero
	for _, item := range order.Items {
		entries = append(entries, models.MovementEntry{
			ProductId:   item.ProductId,
			WarehouseId: order.WarehouseId,
			QtyDelta:    item.Qty.Neg(),
			Reason:      models.MovementReasonSale,
			DocType:     models.DocTypeOrder,
			DocId:       order.ID,
		})
		cogs = cogs.Add(item.UnitCost.Mul(item.Qty))
	}
	movements, err := models.ApplyMovementBatch(ctx, tx, businessId, entries, now)
	if err != nil {
		return nil, err
	}

	journals := make([]*models.Journal, 0, 2)
	if order.Total.IsPositive() {
		revenue, err := postJournal(ctx, tx, businessId,
			fmt.Sprintf("Sale %s", order.OrderNumber),
			models.DocTypeOrder, order.ID, now,
			saleJournalLines(order.Total, order.AmountPaid))
		if err != nil {
			return nil, err
		}
		journals = append(journals, revenue)
	}

	if config.CostTrackingEnabled() && cogs.IsPositive() {
		cogsJournal, err := postJournal(ctx, tx, businessId,
			fmt.Sprintf("COGS %s", order.OrderNumber),
			models.DocTypeOrder, order.ID, now,
			cogsJournalLines(cogs))
		if err != nil {
			return nil, err
		}
		journals = append(journals, cogsJournal)
	}

	err = tx.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"CurrentStatus": models.OrderStatusCompleted,
		"CompletedAt":   &now,
	}).Error
	if err != nil {
		return nil, err
	}

	err = emitEvent(ctx, tx, businessId, models.EventTypeOrderCompleted, models.DocTypeOrder, order.ID,
		orderEventPayload{OrderNumber: order.OrderNumber, CustomerId: order.CustomerId, Total: order.Total.String()})
	if err != nil {
		return nil, err
	}

	return &OrderPostingResult{Order: order, Movements: movements, Journals: journals}, nil
}

// collectStockWarnings reports products the order pushed to or under their
// minimum stock. Failures here never fail the posting.
func collectStockWarnings(ctx context.Context, order *models.Order) []string {
	low, err := models.LowStockItems(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "workflow", "collectStockWarnings", "low stock query failed", order.ID, err)
		return nil
	}
	onOrder := make(map[int]bool, len(order.Items))
	for _, item := range order.Items {
		onOrder[item.ProductId] = true
	}
	var warnings []string
	for _, item := range low {
		if onOrder[item.ProductId] {
			warnings = append(warnings, fmt.Sprintf(
				"%s is at %s (minimum %s)", item.ProductName, item.Qty.String(), item.MinStock.String()))
		}
	}
	return warnings
}

// DeliveryInfo optionally accompanies the Pending -> Processing transition;
// the contact update cascades through the customer record.
type DeliveryInfo struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// UpdateOrderStatus drives the order state machine. Completed delegates to
// CompleteOrder; Cancelled is gated behind confirmation; Processing accepts
// optional delivery contact info and emits the delivery event. The declined
// return is true when a confirmation prompt was answered negatively.
func UpdateOrderStatus(ctx context.Context, orderId int, next models.OrderStatus, delivery *DeliveryInfo, gate *ConfirmationGate) (*models.Order, bool, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, false, utils.ValidationErrorf("business id is required")
	}

	order, err := utils.FetchModel[models.Order](ctx, businessId, orderId, "Items")
	if err != nil {
		return nil, false, utils.NotFoundErrorf("order not found")
	}
	if err := models.ValidateOrderTransition(order.CurrentStatus, next); err != nil {
		return nil, false, err
	}

	switch next {
	case models.OrderStatusCompleted:
		result, err := CompleteOrder(ctx, orderId)
		if err != nil {
			return nil, false, err
		}
		return result.Order, false, nil

	case models.OrderStatusCancelled:
		confirmed, err := gate.Ask(ctx, ConfirmationPrompt{
			Action:  "cancel-order",
			Summary: fmt.Sprintf("Cancel order %s for %s?", order.OrderNumber, order.CustomerName),
		})
		if err != nil {
			return nil, false, err
		}
		if !confirmed {
			return order, true, nil
		}
		db := config.GetDB()
		err = db.WithContext(ctx).Model(order).
			Update("current_status", models.OrderStatusCancelled).Error
		if err != nil {
			return nil, false, err
		}
		return order, false, nil

	case models.OrderStatusProcessing:
		db := config.GetDB()
		tx := db.Begin()
		err = tx.WithContext(ctx).Model(order).
			Update("current_status", models.OrderStatusProcessing).Error
		if err != nil {
			tx.Rollback()
			return nil, false, err
		}
		if delivery != nil && (delivery.Phone != "" || delivery.Address != "") {
			if err := updateDeliveryContact(ctx, tx, businessId, order.CustomerId, delivery); err != nil {
				tx.Rollback()
				return nil, false, err
			}
		}
		err = emitEvent(ctx, tx, businessId, models.EventTypeOrderDelivery, models.DocTypeOrder, order.ID,
			orderEventPayload{OrderNumber: order.OrderNumber, CustomerId: order.CustomerId, Total: order.Total.String()})
		if err != nil {
			tx.Rollback()
			return nil, false, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, false, err
		}
		return order, false, nil
	}

	return nil, false, utils.InvalidTransitionErrorf("cannot change order from %s to %s", order.CurrentStatus, next)
}

func updateDeliveryContact(ctx context.Context, tx *gorm.DB, businessId string, customerId int, delivery *DeliveryInfo) error {
	if delivery.Phone != "" {
		if err := utils.ValidatePhoneNumber(delivery.Phone, utils.CountryCode); err != nil {
			return utils.ValidationErrorf("invalid delivery phone number")
		}
	}
	updates := map[string]interface{}{}
	if delivery.Phone != "" {
		updates["Phone"] = delivery.Phone
	}
	if delivery.Address != "" {
		updates["Address"] = delivery.Address
	}
	return tx.WithContext(ctx).Model(&models.Customer{}).
		Where("business_id = ? AND id = ?", businessId, customerId).
		Updates(updates).Error
}

type paymentEventPayload struct {
	OrderNumber   string `json:"order_number"`
	Amount        string `json:"amount"`
	PaymentStatus string `json:"payment_status"`
}

// UpdateOrderPayment records a customer payment against an order. The amount
// must be positive and must not exceed the outstanding balance; the balance
// check runs against a row locked inside the posting transaction, so two
// concurrent payments cannot both clear it against the same snapshot.
// Payments on completed orders post a cash-receipt journal; pre-completion
// payments only move the payment axis and settle through the completion
// journal's split.
func UpdateOrderPayment(ctx context.Context, orderId int, amount decimal.Decimal) (*models.Order, error) {

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

	var order models.Order
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, orderId).
		First(&order).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErrorf("order not found")
		}
		return nil, err
	}
	if order.CurrentStatus == models.OrderStatusCancelled {
		rollbackPosting(tx, businessId)
		return nil, utils.InvalidStateErrorf("cannot record payment on a cancelled order")
	}
	outstanding := order.Total.Sub(order.AmountPaid)
	if amount.GreaterThan(outstanding) {
		rollbackPosting(tx, businessId)
		return nil, utils.ValidationErrorf("payment exceeds outstanding balance (%s)", outstanding.String())
	}

	newPaid := order.AmountPaid.Add(amount)
	newStatus := models.NextPaymentStatus(order.Total, newPaid)
	now := time.Now().UTC()

	err = tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
		"AmountPaid":    newPaid,
		"PaymentStatus": newStatus,
	}).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	if order.CurrentStatus == models.OrderStatusCompleted {
		_, err = postJournal(ctx, tx, businessId,
			fmt.Sprintf("Payment %s", order.OrderNumber),
			models.DocTypeOrder, order.ID, now,
			cashReceiptJournalLines(amount))
		if err != nil {
			rollbackPosting(tx, businessId)
			return nil, err
		}
	}

	err = emitEvent(ctx, tx, businessId, models.EventTypePaymentReceived, models.DocTypeOrder, order.ID,
		paymentEventPayload{OrderNumber: order.OrderNumber, Amount: amount.String(), PaymentStatus: string(newStatus)})
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}
	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateAndCompleteOrder is the POS path: create and post in one
// transaction, fully paid up front. idempotencyKey deduplicates retried
// submissions; a replay returns the originally created order.
func CreateAndCompleteOrder(ctx context.Context, input *models.NewOrder, idempotencyKey string) (*OrderPostingResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	if idempotencyKey != "" {
		record, fresh, err := BeginIdempotency(ctx, businessId, "pos.create_and_complete", idempotencyKey)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return replayPosOrder(ctx, businessId, record)
		}
		result, err := createAndCompleteOrder(ctx, businessId, input)
		if err != nil {
			_ = FinishIdempotency(ctx, record, models.IdempotencyStatusFailed, nil)
			return nil, err
		}
		_ = FinishIdempotency(ctx, record, models.IdempotencyStatusSucceeded, &result.Order.ID)
		return result, nil
	}
	return createAndCompleteOrder(ctx, businessId, input)
}

func createAndCompleteOrder(ctx context.Context, businessId string, input *models.NewOrder) (*OrderPostingResult, error) {
	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "workflow", "CreateAndCompleteOrder")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	db := config.GetDB()
	tx := db.Begin()
	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	order, err := models.CreateOrderInTx(ctx, tx, businessId, input)
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}

	// POS sales are settled at the counter
	err = tx.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"AmountPaid":    order.Total,
		"PaymentStatus": models.PaymentStatusPaid,
	}).Error
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}
	order.AmountPaid = order.Total
	order.PaymentStatus = models.PaymentStatusPaid

	result, err := completeOrderTx(ctx, tx, businessId, order)
	if err != nil {
		rollbackPosting(tx, businessId)
		return nil, err
	}
	if err := commitPosting(tx, businessId); err != nil {
		return nil, err
	}
	result.StockWarnings = collectStockWarnings(ctx, order)
	return result, nil
}

func replayPosOrder(ctx context.Context, businessId string, record *models.IdempotencyKey) (*OrderPostingResult, error) {
	if record.Status == models.IdempotencyStatusSucceeded && record.ReferenceId != nil {
		order, err := utils.FetchModel[models.Order](ctx, businessId, *record.ReferenceId, "Items")
		if err != nil {
			return nil, err
		}
		journals, err := models.ListJournalsForDoc(ctx, models.DocTypeOrder, order.ID)
		if err != nil {
			return nil, err
		}
		movements, err := models.ListMovements(ctx, models.DocTypeOrder, order.ID)
		if err != nil {
			return nil, err
		}
		return &OrderPostingResult{Order: order, Movements: movements, Journals: journals}, nil
	}
	return nil, utils.ConflictErrorf("a submission with this idempotency key is already in progress")
}
