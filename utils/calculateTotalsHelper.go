package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// OrderTotals is the computed money breakdown of a sales document.
type OrderTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// CalculateDiscountAmount resolves a raw discount into an amount.
// discountType "P" is a percentage of subTotal clamped to [0,100];
// anything else is an absolute amount clamped to [0, subTotal].
func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {

	if discount.IsNegative() {
		return decimal.Zero
	}

	var discountAmount decimal.Decimal
	if discountType == "P" {
		pct := discount
		if pct.GreaterThan(decimalOneHundred) {
			pct = decimalOneHundred
		}
		discountAmount = subTotal.Mul(pct).DivRound(decimalOneHundred, 4)
	} else {
		discountAmount = discount
		if discountAmount.GreaterThan(subTotal) {
			discountAmount = subTotal
		}
	}

	return discountAmount
}

// CalculateTaxAmount computes tax-exclusive tax on totalAmount:
// (totalAmount / 100) * taxRate.
func CalculateTaxAmount(totalAmount decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	if taxRate.IsZero() || taxRate.IsNegative() {
		return decimal.Zero
	}
	return totalAmount.DivRound(decimalOneHundred, 4).Mul(taxRate)
}

// CalculateOrderTotals computes the full money breakdown of a sales document.
// Tax applies to the discounted subtotal: total = subtotal - discount + tax.
func CalculateOrderTotals(subTotal decimal.Decimal, discount decimal.Decimal, discountType string, taxRate decimal.Decimal) OrderTotals {
	discountAmount := CalculateDiscountAmount(subTotal, discount, discountType)
	taxable := subTotal.Sub(discountAmount)
	taxAmount := CalculateTaxAmount(taxable, taxRate)
	return OrderTotals{
		Subtotal:       subTotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		Total:          taxable.Add(taxAmount),
	}
}
