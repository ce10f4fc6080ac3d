package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestMaxReturnable(t *testing.T) {
	ordered := map[int]decimal.Decimal{1: qty(5), 2: qty(3), 3: qty(2)}
	returned := map[int]decimal.Decimal{1: qty(2), 3: qty(4)}

	remaining := MaxReturnable(ordered, returned)

	if !remaining[1].Equal(qty(3)) {
		t.Fatalf("product 1: got %s, want 3", remaining[1])
	}
	if !remaining[2].Equal(qty(3)) {
		t.Fatalf("product 2: got %s, want 3", remaining[2])
	}
	// over-returned floors at zero rather than going negative
	if !remaining[3].Equal(qty(0)) {
		t.Fatalf("product 3: got %s, want 0", remaining[3])
	}
}

func TestValidateReturnItems(t *testing.T) {
	remaining := map[int]decimal.Decimal{1: qty(3), 2: qty(0)}

	cases := []struct {
		name  string
		items []NewSalesReturnItem
		ok    bool
	}{
		{"within bounds", []NewSalesReturnItem{{ProductId: 1, Qty: qty(3)}}, true},
		{"partial", []NewSalesReturnItem{{ProductId: 1, Qty: qty(1)}}, true},
		{"exceeds remaining", []NewSalesReturnItem{{ProductId: 1, Qty: qty(4)}}, false},
		{"fully returned already", []NewSalesReturnItem{{ProductId: 2, Qty: qty(1)}}, false},
		{"not on order", []NewSalesReturnItem{{ProductId: 9, Qty: qty(1)}}, false},
		{"zero qty", []NewSalesReturnItem{{ProductId: 1, Qty: qty(0)}}, false},
		{"negative qty", []NewSalesReturnItem{{ProductId: 1, Qty: qty(-1)}}, false},
		{"no items", nil, false},
		{
			// two lines for the same product count against the bound together
			"split lines exceed remaining",
			[]NewSalesReturnItem{{ProductId: 1, Qty: qty(2)}, {ProductId: 1, Qty: qty(2)}},
			false,
		},
		{
			"split lines within remaining",
			[]NewSalesReturnItem{{ProductId: 1, Qty: qty(2)}, {ProductId: 1, Qty: qty(1)}},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReturnItems(tc.items, remaining)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
