package models

/* Sales order */

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentStatusPaid          PaymentStatus = "Paid"
)

/* Purchase order */

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft    PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusOrdered  PurchaseOrderStatus = "Ordered"
	PurchaseOrderStatusReceived PurchaseOrderStatus = "Received"
)

func (s PurchaseOrderStatus) Valid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived:
		return true
	}
	return false
}

/* Quotation */

type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "Draft"
	QuotationStatusSent      QuotationStatus = "Sent"
	QuotationStatusAccepted  QuotationStatus = "Accepted"
	QuotationStatusRejected  QuotationStatus = "Rejected"
	QuotationStatusConverted QuotationStatus = "Converted"
)

func (s QuotationStatus) Valid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted,
		QuotationStatusRejected, QuotationStatusConverted:
		return true
	}
	return false
}

/* Work order */

type WorkOrderStatus string

const (
	WorkOrderStatusPlanned    WorkOrderStatus = "Planned"
	WorkOrderStatusInProgress WorkOrderStatus = "In Progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "Completed"
)

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderStatusPlanned, WorkOrderStatusInProgress, WorkOrderStatusCompleted:
		return true
	}
	return false
}

/* Sales return */

type SalesReturnStatus string

const (
	SalesReturnStatusCompleted SalesReturnStatus = "Completed"
)

/* Inventory movements */

// MovementReason classifies an InventoryMovement row. The ledger is
// append-only; a reason plus document reference makes every delta auditable.
type MovementReason string

const (
	MovementReasonSale              MovementReason = "sale"
	MovementReasonPurchaseReceipt   MovementReason = "purchase-receipt"
	MovementReasonAdjustment        MovementReason = "adjustment"
	MovementReasonTransferOut       MovementReason = "transfer-out"
	MovementReasonTransferIn        MovementReason = "transfer-in"
	MovementReasonProductionConsume MovementReason = "production-consume"
	MovementReasonProductionOutput  MovementReason = "production-output"
	MovementReasonReturn            MovementReason = "return"
)

// AllowsNegative reports whether the reason may drive stock below zero.
// Sales, production consumption, and transfers never may; adjustments set an
// absolute actual count and are validated upstream.
func (r MovementReason) AllowsNegative() bool {
	return false
}

/* Document references */

type DocType string

const (
	DocTypeOrder               DocType = "ORD"
	DocTypePurchaseOrder       DocType = "PO"
	DocTypeQuotation           DocType = "QT"
	DocTypeWorkOrder           DocType = "WO"
	DocTypeSalesReturn         DocType = "RET"
	DocTypeInventoryAdjustment DocType = "IVA"
	DocTypeStockTransfer       DocType = "TRF"
	DocTypeJournal             DocType = "JRN"
)

/* Discounts */

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "P"
	DiscountTypeAmount     DiscountType = "A"
)

/* Accounts */

type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeRevenue   AccountType = "Revenue"
	AccountTypeExpense   AccountType = "Expense"
)

// System account codes seeded per business.
const (
	AccountCodeCash               = "1000"
	AccountCodeAccountsReceivable = "1100"
	AccountCodeInventory          = "1200"
	AccountCodeAccountsPayable    = "2000"
	AccountCodeSalesRevenue       = "4000"
	AccountCodeSalesReturns       = "4100"
	AccountCodeCOGS               = "5000"
)

/* Events (outbox) */

type EventType string

const (
	EventTypeOrderCreated          EventType = "order.created"
	EventTypeOrderCompleted        EventType = "order.completed"
	EventTypeOrderDelivery         EventType = "order.delivery"
	EventTypePaymentReceived       EventType = "payment.received"
	EventTypeReturnCreated         EventType = "return.created"
	EventTypePurchaseOrderReceived EventType = "purchase_order.received"
	EventTypeWorkOrderCompleted    EventType = "work_order.completed"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
)

/* Idempotency */

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
