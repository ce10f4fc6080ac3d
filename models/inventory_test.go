package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

func TestPlanMovementBatch(t *testing.T) {
	key := StockKey{ProductId: 1, WarehouseId: 1}
	current := map[StockKey]decimal.Decimal{key: decimal.NewFromInt(10)}

	planned, err := PlanMovementBatch(current, []MovementEntry{
		{ProductId: 1, WarehouseId: 1, QtyDelta: decimal.NewFromInt(-4), Reason: MovementReasonSale, DocType: DocTypeOrder, DocId: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !planned[key].Equal(decimal.NewFromInt(6)) {
		t.Fatalf("got %s, want 6", planned[key])
	}
	// input map untouched
	if !current[key].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("current mutated: %s", current[key])
	}
}

func TestPlanMovementBatchInsufficientStock(t *testing.T) {
	key := StockKey{ProductId: 1, WarehouseId: 1}
	current := map[StockKey]decimal.Decimal{key: decimal.NewFromInt(3)}

	_, err := PlanMovementBatch(current, []MovementEntry{
		{ProductId: 1, WarehouseId: 1, QtyDelta: decimal.NewFromInt(-5), Reason: MovementReasonSale, DocType: DocTypeOrder, DocId: 1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if utils.KindOf(err) != utils.ErrorKindInsufficientStock {
		t.Fatalf("got kind %s, want insufficient_stock", utils.KindOf(err))
	}
}

func TestPlanMovementBatchAllOrNothing(t *testing.T) {
	// second entry fails, so the whole batch is rejected even though the
	// first entry alone would pass
	current := map[StockKey]decimal.Decimal{
		{ProductId: 1, WarehouseId: 1}: decimal.NewFromInt(10),
		{ProductId: 2, WarehouseId: 1}: decimal.NewFromInt(1),
	}
	_, err := PlanMovementBatch(current, []MovementEntry{
		{ProductId: 1, WarehouseId: 1, QtyDelta: decimal.NewFromInt(-2), Reason: MovementReasonSale, DocType: DocTypeOrder, DocId: 1},
		{ProductId: 2, WarehouseId: 1, QtyDelta: decimal.NewFromInt(-2), Reason: MovementReasonSale, DocType: DocTypeOrder, DocId: 1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPlanMovementBatchSequentialDeltasOnSameKey(t *testing.T) {
	// transfer into then out of the same bucket within one batch is checked
	// against the running quantity, not the starting one
	key := StockKey{ProductId: 1, WarehouseId: 2}
	current := map[StockKey]decimal.Decimal{}

	planned, err := PlanMovementBatch(current, []MovementEntry{
		{ProductId: 1, WarehouseId: 2, QtyDelta: decimal.NewFromInt(5), Reason: MovementReasonTransferIn, DocType: DocTypeStockTransfer, DocId: 7},
		{ProductId: 1, WarehouseId: 2, QtyDelta: decimal.NewFromInt(-3), Reason: MovementReasonSale, DocType: DocTypeOrder, DocId: 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !planned[key].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("got %s, want 2", planned[key])
	}
}

func TestPlanMovementBatchRejectsZeroAndInvalidEntries(t *testing.T) {
	cases := []struct {
		name  string
		entry MovementEntry
	}{
		{"zero delta", MovementEntry{ProductId: 1, WarehouseId: 1, QtyDelta: decimal.Zero, Reason: MovementReasonAdjustment}},
		{"missing product", MovementEntry{WarehouseId: 1, QtyDelta: decimal.NewFromInt(1), Reason: MovementReasonAdjustment}},
		{"missing warehouse", MovementEntry{ProductId: 1, QtyDelta: decimal.NewFromInt(1), Reason: MovementReasonAdjustment}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanMovementBatch(nil, []MovementEntry{tc.entry})
			if err == nil {
				t.Fatal("expected error")
			}
			if utils.KindOf(err) != utils.ErrorKindValidation {
				t.Fatalf("got kind %s, want validation", utils.KindOf(err))
			}
		})
	}
}
