package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/*
Journal line builders. Each returns balanced lines for one posting; zero
amounts are dropped so a fully-paid or fully-unpaid order still produces a
valid journal.

Sale:               Dr 1000 (paid part), Dr 1100 (outstanding part), Cr 4000
Cost of goods sold: Dr 5000, Cr 1200
Cash receipt:       Dr 1000, Cr 1100
Purchase receipt:   Dr 1200, Cr 2000
Supplier payment:   Dr 2000, Cr 1000
Sales refund:       Dr 4100, Cr 1000
*/

func saleJournalLines(total decimal.Decimal, amountPaid decimal.Decimal) []models.JournalLine {
	lines := make([]models.JournalLine, 0, 3)
	paid := amountPaid
	if paid.GreaterThan(total) {
		paid = total
	}
	outstanding := total.Sub(paid)
	if paid.IsPositive() {
		lines = append(lines, models.JournalLine{AccountCode: models.AccountCodeCash, Debit: paid})
	}
	if outstanding.IsPositive() {
		lines = append(lines, models.JournalLine{AccountCode: models.AccountCodeAccountsReceivable, Debit: outstanding})
	}
	lines = append(lines, models.JournalLine{AccountCode: models.AccountCodeSalesRevenue, Credit: total})
	return lines
}

func cogsJournalLines(cogs decimal.Decimal) []models.JournalLine {
	return []models.JournalLine{
		{AccountCode: models.AccountCodeCOGS, Debit: cogs},
		{AccountCode: models.AccountCodeInventory, Credit: cogs},
	}
}

func cashReceiptJournalLines(amount decimal.Decimal) []models.JournalLine {
	return []models.JournalLine{
		{AccountCode: models.AccountCodeCash, Debit: amount},
		{AccountCode: models.AccountCodeAccountsReceivable, Credit: amount},
	}
}

func purchaseReceiptJournalLines(total decimal.Decimal) []models.JournalLine {
	return []models.JournalLine{
		{AccountCode: models.AccountCodeInventory, Debit: total},
		{AccountCode: models.AccountCodeAccountsPayable, Credit: total},
	}
}

func supplierPaymentJournalLines(amount decimal.Decimal) []models.JournalLine {
	return []models.JournalLine{
		{AccountCode: models.AccountCodeAccountsPayable, Debit: amount},
		{AccountCode: models.AccountCodeCash, Credit: amount},
	}
}

func refundJournalLines(amount decimal.Decimal) []models.JournalLine {
	return []models.JournalLine{
		{AccountCode: models.AccountCodeSalesReturns, Debit: amount},
		{AccountCode: models.AccountCodeCash, Credit: amount},
	}
}

// postJournal writes one system journal tied to its source document inside
// the caller's transaction.
func postJournal(ctx context.Context, tx *gorm.DB, businessId string, description string, docType models.DocType, docId int, journalDate time.Time, lines []models.JournalLine) (*models.Journal, error) {
	input := models.NewJournal{
		JournalDate: &journalDate,
		Description: description,
		Lines:       lines,
	}
	return models.CreateJournalInTx(ctx, tx, businessId, &input, &docType, &docId)
}
