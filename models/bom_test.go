package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequiredComponents(t *testing.T) {
	components := []BomComponent{
		{ProductId: 10, Qty: decimal.NewFromInt(4)},
		{ProductId: 11, Qty: decimal.NewFromFloat(0.5)},
		{ProductId: 10, Qty: decimal.NewFromInt(1)}, // duplicate component rows accumulate
	}

	required := RequiredComponents(components, decimal.NewFromInt(3))

	if len(required) != 2 {
		t.Fatalf("got %d products, want 2", len(required))
	}
	if !required[10].Equal(decimal.NewFromInt(15)) {
		t.Fatalf("product 10: got %s, want 15", required[10])
	}
	if !required[11].Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("product 11: got %s, want 1.5", required[11])
	}
}

func TestRequiredComponentsEmpty(t *testing.T) {
	required := RequiredComponents(nil, decimal.NewFromInt(5))
	if len(required) != 0 {
		t.Fatalf("got %d products, want 0", len(required))
	}
}
