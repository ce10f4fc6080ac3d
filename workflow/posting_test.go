package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"github.com/shopspring/decimal"
)

func TestSaleJournalLinesSplitByPayment(t *testing.T) {
	n := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	tests := []struct {
		name       string
		total      decimal.Decimal
		amountPaid decimal.Decimal
		wantLines  int
	}{
		{"unpaid", n(90000), n(0), 2},
		{"partially paid", n(90000), n(60000), 3},
		{"fully paid", n(90000), n(90000), 2},
		{"overpaid clamps to total", n(90000), n(95000), 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines := saleJournalLines(tc.total, tc.amountPaid)
			if len(lines) != tc.wantLines {
				t.Fatalf("lines: got %d, want %d", len(lines), tc.wantLines)
			}
			if err := models.ValidateJournalLines(lines); err != nil {
				t.Fatalf("ValidateJournalLines: %v", err)
			}
		})
	}
}

// A zero total builds a single zero-credit revenue line, which is not a
// postable journal. Completion skips the revenue journal for such orders
// instead of posting these lines.
func TestZeroTotalSaleHasNoPostableJournal(t *testing.T) {
	lines := saleJournalLines(decimal.Zero, decimal.Zero)
	if err := models.ValidateJournalLines(lines); err == nil {
		t.Fatal("zero-total sale lines formed a postable journal")
	}
}
