package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal is one double-entry posting. Journals are append-only: corrections
// are made by posting a reversing journal, never by editing rows.
type Journal struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	BusinessId    string               `gorm:"index;not null" json:"business_id"`
	JournalNumber string               `gorm:"size:255;not null" json:"journal_number"`
	SequenceNo    decimal.Decimal      `gorm:"type:decimal(15);not null" json:"sequence_no"`
	JournalDate   time.Time            `gorm:"index;not null" json:"journal_date"`
	Description   string               `gorm:"size:500" json:"description"`
	DocType       *DocType             `gorm:"size:20" json:"doc_type"`
	DocId         *int                 `gorm:"index" json:"doc_id"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	Transactions  []JournalTransaction `gorm:"foreignKey:JournalId" json:"transactions"`
}

func (j *Journal) GetId() int {
	return j.ID
}

// JournalTransaction is one leg of a journal. Exactly one of Debit/Credit is
// positive; the other is zero.
type JournalTransaction struct {
	ID        int             `gorm:"primary_key" json:"id"`
	JournalId int             `gorm:"index;not null" json:"journal_id"`
	AccountId int             `gorm:"index;not null" json:"account_id"`
	Debit     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}

// JournalLine is one requested leg keyed by account code.
type JournalLine struct {
	AccountCode string          `json:"account_code" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type NewJournal struct {
	JournalDate *time.Time    `json:"journal_date"`
	Description string        `json:"description"`
	Lines       []JournalLine `json:"lines" binding:"required"`
}

// ValidateJournalLines enforces the double-entry invariant: at least two
// legs, each leg strictly one-sided and positive, and total debits equal to
// total credits. Pure; shared by manual journals and posting helpers.
func ValidateJournalLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return utils.ValidationErrorf("journal requires at least two lines")
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		if line.AccountCode == "" {
			return utils.ValidationErrorf("journal line requires an account code")
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return utils.ValidationErrorf("journal line amounts cannot be negative")
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return utils.ValidationErrorf("journal line must have exactly one of debit or credit")
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return utils.ValidationErrorf("journal is not balanced (debit %s, credit %s)",
			totalDebit.String(), totalCredit.String())
	}
	return nil
}

// CreateJournalInTx validates, numbers, and persists a journal inside tx.
// docType/docId tie system-generated journals back to their source document;
// both are nil for manual journals.
func CreateJournalInTx(ctx context.Context, tx *gorm.DB, businessId string, input *NewJournal, docType *DocType, docId *int) (*Journal, error) {
	if err := ValidateJournalLines(input.Lines); err != nil {
		return nil, err
	}

	journalDate := time.Now().UTC()
	if input.JournalDate != nil {
		journalDate = *input.JournalDate
	}

	seqNo, err := utils.GetSequence[Journal](ctx, businessId)
	if err != nil {
		return nil, err
	}

	journal := Journal{
		BusinessId:    businessId,
		JournalNumber: "JRN-" + fmt.Sprint(seqNo),
		SequenceNo:    decimal.NewFromInt(seqNo),
		JournalDate:   journalDate,
		Description:   input.Description,
		DocType:       docType,
		DocId:         docId,
	}
	for _, line := range input.Lines {
		account, err := GetAccountByCode(ctx, tx, businessId, line.AccountCode)
		if err != nil {
			return nil, err
		}
		journal.Transactions = append(journal.Transactions, JournalTransaction{
			AccountId: account.ID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}

	if err := tx.WithContext(ctx).Create(&journal).Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

// CreateJournal posts a manual journal entry.
func CreateJournal(ctx context.Context, input *NewJournal) (*Journal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	journal, err := CreateJournalInTx(ctx, tx, businessId, input, nil, nil)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return journal, nil
}

func GetJournal(ctx context.Context, id int) (*Journal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[Journal](ctx, businessId, id, "Transactions")
}

// ListJournalsForDoc returns the journals generated by one source document.
func ListJournalsForDoc(ctx context.Context, docType DocType, docId int) ([]*Journal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}

	db := config.GetDB()
	var journals []*Journal
	err := db.WithContext(ctx).Preload("Transactions").
		Where("business_id = ? AND doc_type = ? AND doc_id = ?", businessId, docType, docId).
		Order("id").Find(&journals).Error
	if err != nil {
		return nil, err
	}
	return journals, nil
}
