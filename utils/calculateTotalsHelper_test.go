package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestCalculateOrderTotals(t *testing.T) {
	cases := []struct {
		name         string
		subTotal     string
		discount     string
		discountType string
		taxRate      string
		wantDiscount string
		wantTax      string
		wantTotal    string
	}{
		{
			name:     "no discount no tax",
			subTotal: "100000", discount: "0", discountType: "A", taxRate: "0",
			wantDiscount: "0", wantTax: "0", wantTotal: "100000",
		},
		{
			name:     "percentage discount with tax",
			subTotal: "250000", discount: "10", discountType: "P", taxRate: "10",
			wantDiscount: "25000", wantTax: "22500", wantTotal: "247500",
		},
		{
			name:     "absolute discount",
			subTotal: "250000", discount: "50000", discountType: "A", taxRate: "5",
			wantDiscount: "50000", wantTax: "10000", wantTotal: "210000",
		},
		{
			name:     "percentage clamped to 100",
			subTotal: "80000", discount: "150", discountType: "P", taxRate: "5",
			wantDiscount: "80000", wantTax: "0", wantTotal: "0",
		},
		{
			name:     "absolute discount clamped to subtotal",
			subTotal: "30000", discount: "45000", discountType: "A", taxRate: "5",
			wantDiscount: "30000", wantTax: "0", wantTotal: "0",
		},
		{
			name:     "negative discount ignored",
			subTotal: "100000", discount: "-20", discountType: "P", taxRate: "0",
			wantDiscount: "0", wantTax: "0", wantTotal: "100000",
		},
		{
			name:     "negative tax ignored",
			subTotal: "100000", discount: "0", discountType: "A", taxRate: "-5",
			wantDiscount: "0", wantTax: "0", wantTotal: "100000",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateOrderTotals(d(tc.subTotal), d(tc.discount), tc.discountType, d(tc.taxRate))
			if !got.DiscountAmount.Equal(d(tc.wantDiscount)) {
				t.Fatalf("discount: got %s, want %s", got.DiscountAmount, tc.wantDiscount)
			}
			if !got.TaxAmount.Equal(d(tc.wantTax)) {
				t.Fatalf("tax: got %s, want %s", got.TaxAmount, tc.wantTax)
			}
			if !got.Total.Equal(d(tc.wantTotal)) {
				t.Fatalf("total: got %s, want %s", got.Total, tc.wantTotal)
			}
			if !got.Subtotal.Equal(d(tc.subTotal)) {
				t.Fatalf("subtotal: got %s, want %s", got.Subtotal, tc.subTotal)
			}
		})
	}
}

func TestCalculateTaxAmountRounding(t *testing.T) {
	// 33333 * 7% = 2333.31
	got := CalculateTaxAmount(d("33333"), d("7"))
	if !got.Equal(d("2333.31")) {
		t.Fatalf("got %s, want 2333.31", got)
	}
}
