package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestValidateJournalLines(t *testing.T) {
	cases := []struct {
		name  string
		lines []JournalLine
		ok    bool
	}{
		{
			"balanced two lines",
			[]JournalLine{
				{AccountCode: AccountCodeCash, Debit: amt("100000")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("100000")},
			},
			true,
		},
		{
			"balanced three lines",
			[]JournalLine{
				{AccountCode: AccountCodeCash, Debit: amt("60000")},
				{AccountCode: AccountCodeAccountsReceivable, Debit: amt("40000")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("100000")},
			},
			true,
		},
		{
			"unbalanced",
			[]JournalLine{
				{AccountCode: AccountCodeCash, Debit: amt("100000")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("90000")},
			},
			false,
		},
		{
			"single line",
			[]JournalLine{{AccountCode: AccountCodeCash, Debit: amt("100000")}},
			false,
		},
		{
			"both sides on one line",
			[]JournalLine{
				{AccountCode: AccountCodeCash, Debit: amt("100000"), Credit: amt("100000")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("0")},
			},
			false,
		},
		{
			"neither side set",
			[]JournalLine{
				{AccountCode: AccountCodeCash},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("0")},
			},
			false,
		},
		{
			"negative amount",
			[]JournalLine{
				{AccountCode: AccountCodeCash, Debit: amt("-100")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("-100")},
			},
			false,
		},
		{
			"missing account code",
			[]JournalLine{
				{AccountCode: "", Debit: amt("100")},
				{AccountCode: AccountCodeSalesRevenue, Credit: amt("100")},
			},
			false,
		},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateJournalLines(tc.lines)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
