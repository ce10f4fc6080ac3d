package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateOrderTransition(t *testing.T) {
	cases := []struct {
		current OrderStatus
		next    OrderStatus
		ok      bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCompleted, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCompleted, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
		// same-state update is rejected, not a silent no-op
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},
	}
	for _, tc := range cases {
		err := ValidateOrderTransition(tc.current, tc.next)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.current, tc.next, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: expected error", tc.current, tc.next)
		}
	}
}

func TestValidateOrderTransitionUnknownStatus(t *testing.T) {
	if err := ValidateOrderTransition(OrderStatusPending, OrderStatus("Shipped")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestNextPaymentStatus(t *testing.T) {
	total := decimal.NewFromInt(100000)
	cases := []struct {
		paid string
		want PaymentStatus
	}{
		{"0", PaymentStatusUnpaid},
		{"1", PaymentStatusPartiallyPaid},
		{"99999.99", PaymentStatusPartiallyPaid},
		{"100000", PaymentStatusPaid},
	}
	for _, tc := range cases {
		paid, _ := decimal.NewFromString(tc.paid)
		if got := NextPaymentStatus(total, paid); got != tc.want {
			t.Fatalf("paid %s: got %s, want %s", tc.paid, got, tc.want)
		}
	}
}

func TestValidatePurchaseOrderTransition(t *testing.T) {
	cases := []struct {
		current PurchaseOrderStatus
		next    PurchaseOrderStatus
		ok      bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusOrdered, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusReceived, false},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusOrdered, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusReceived, false},
	}
	for _, tc := range cases {
		err := ValidatePurchaseOrderTransition(tc.current, tc.next)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.current, tc.next, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: expected error", tc.current, tc.next)
		}
	}
}

func TestValidateQuotationTransition(t *testing.T) {
	cases := []struct {
		current QuotationStatus
		next    QuotationStatus
		ok      bool
	}{
		{QuotationStatusDraft, QuotationStatusSent, true},
		{QuotationStatusSent, QuotationStatusAccepted, true},
		{QuotationStatusSent, QuotationStatusRejected, true},
		{QuotationStatusDraft, QuotationStatusAccepted, false},
		{QuotationStatusAccepted, QuotationStatusRejected, false},
		{QuotationStatusRejected, QuotationStatusSent, false},
		// Converted is set by the conversion operation, never directly
		{QuotationStatusAccepted, QuotationStatusConverted, false},
		{QuotationStatusConverted, QuotationStatusSent, false},
	}
	for _, tc := range cases {
		err := ValidateQuotationTransition(tc.current, tc.next)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.current, tc.next, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: expected error", tc.current, tc.next)
		}
	}
}

func TestValidateWorkOrderTransition(t *testing.T) {
	cases := []struct {
		current WorkOrderStatus
		next    WorkOrderStatus
		ok      bool
	}{
		{WorkOrderStatusPlanned, WorkOrderStatusInProgress, true},
		{WorkOrderStatusInProgress, WorkOrderStatusCompleted, true},
		{WorkOrderStatusPlanned, WorkOrderStatusCompleted, false},
		{WorkOrderStatusCompleted, WorkOrderStatusInProgress, false},
		{WorkOrderStatusInProgress, WorkOrderStatusPlanned, false},
	}
	for _, tc := range cases {
		err := ValidateWorkOrderTransition(tc.current, tc.next)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.current, tc.next, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: expected error", tc.current, tc.next)
		}
	}
}
