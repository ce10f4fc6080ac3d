package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/backoffice_backend/config"
	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

// StockTransfer moves quantities between two warehouses of the same
// business. The out and in movements for every line commit in one
// transaction so stock can never be in flight.
type StockTransfer struct {
	ID                int                 `gorm:"primary_key" json:"id"`
	BusinessId        string              `gorm:"index;not null" json:"business_id"`
	TransferNumber    string              `gorm:"size:255;not null" json:"transfer_number"`
	SequenceNo        decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	SourceWarehouseId int                 `gorm:"not null" json:"source_warehouse_id"`
	DestWarehouseId   int                 `gorm:"not null" json:"dest_warehouse_id"`
	TransferDate      time.Time           `gorm:"not null" json:"transfer_date"`
	Note              string              `gorm:"size:500" json:"note"`
	CreatedAt         time.Time           `gorm:"autoCreateTime" json:"created_at"`
	Items             []StockTransferItem `gorm:"foreignKey:StockTransferId" json:"items"`
}

func (t *StockTransfer) GetId() int {
	return t.ID
}

type StockTransferItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	StockTransferId int             `gorm:"index;not null" json:"stock_transfer_id"`
	ProductId       int             `gorm:"index;not null" json:"product_id"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
}

type NewStockTransfer struct {
	SourceWarehouseId int                    `json:"source_warehouse_id" binding:"required"`
	DestWarehouseId   int                    `json:"dest_warehouse_id" binding:"required"`
	TransferDate      *time.Time             `json:"transfer_date"`
	Note              string                 `json:"note"`
	Items             []NewStockTransferItem `json:"items" binding:"required"`
}

type NewStockTransferItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

func (input *NewStockTransfer) validate(ctx context.Context, businessId string) error {
	if input.SourceWarehouseId == input.DestWarehouseId {
		return utils.ValidationErrorf("source and destination warehouse must differ")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.SourceWarehouseId); err != nil {
		return utils.NotFoundErrorf("source warehouse not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.DestWarehouseId); err != nil {
		return utils.NotFoundErrorf("destination warehouse not found")
	}
	if len(input.Items) == 0 {
		return utils.ValidationErrorf("transfer requires at least one item")
	}
	productIds := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		if !item.Qty.IsPositive() {
			return utils.ValidationErrorf("transfer quantity must be greater than zero")
		}
		productIds = append(productIds, item.ProductId)
	}
	return utils.ValidateResourcesId[Product](ctx, businessId, productIds)
}

// CreateStockTransfer executes a warehouse-to-warehouse transfer. Every line
// produces a paired transfer-out/transfer-in movement; sufficiency at the
// source is validated against row-locked quantities inside the transaction.
func CreateStockTransfer(ctx context.Context, input *NewStockTransfer) (*StockTransfer, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	lock, err := utils.BusinessLock(ctx, businessId, "stockLock", "models", "CreateStockTransfer")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	// cheap precheck before the document row is written; the authoritative
	// check happens against locked rows in ApplyMovementBatch
	for _, item := range input.Items {
		available, err := AvailableQty(ctx, item.ProductId, input.SourceWarehouseId)
		if err != nil {
			return nil, err
		}
		if item.Qty.GreaterThan(available) {
			return nil, utils.InsufficientStockErrorf(
				"insufficient stock for product %d in source warehouse (available %s)",
				item.ProductId, available.String())
		}
	}

	seqNo, err := utils.GetSequence[StockTransfer](ctx, businessId)
	if err != nil {
		return nil, err
	}
	transferDate := time.Now().UTC()
	if input.TransferDate != nil {
		transferDate = *input.TransferDate
	}

	items := make([]StockTransferItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, StockTransferItem{ProductId: item.ProductId, Qty: item.Qty})
	}

	transfer := StockTransfer{
		BusinessId:        businessId,
		TransferNumber:    "TRF-" + fmt.Sprint(seqNo),
		SequenceNo:        decimal.NewFromInt(seqNo),
		SourceWarehouseId: input.SourceWarehouseId,
		DestWarehouseId:   input.DestWarehouseId,
		TransferDate:      transferDate,
		Note:              input.Note,
		Items:             items,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&transfer).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	entries := make([]MovementEntry, 0, len(input.Items)*2)
	for _, item := range input.Items {
		entries = append(entries,
			MovementEntry{
				ProductId:   item.ProductId,
				WarehouseId: input.SourceWarehouseId,
				QtyDelta:    item.Qty.Neg(),
				Reason:      MovementReasonTransferOut,
				DocType:     DocTypeStockTransfer,
				DocId:       transfer.ID,
			},
			MovementEntry{
				ProductId:   item.ProductId,
				WarehouseId: input.DestWarehouseId,
				QtyDelta:    item.Qty,
				Reason:      MovementReasonTransferIn,
				DocType:     DocTypeStockTransfer,
				DocId:       transfer.ID,
			},
		)
	}
	if _, err := ApplyMovementBatch(ctx, tx, businessId, entries, transferDate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func GetStockTransfer(ctx context.Context, id int) (*StockTransfer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationErrorf("business id is required")
	}
	return utils.FetchModel[StockTransfer](ctx, businessId, id, "Items")
}
